// Package codegen turns eligible classes into parcelable classes. For every
// class it resolves an adapter per property, patches the original class with
// a CREATOR field and the parcel entry points, and synthesizes the matching
// <Name>$$Creator factory.
package codegen

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kanengo/parcelgen/internal/adapter"
	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/classmodel"
	"github.com/kanengo/parcelgen/internal/errgroup"
	"github.com/kanengo/parcelgen/internal/hierarchy"
	"github.com/kanengo/parcelgen/pkg/xerrors"
)

const instrumentationName = "github.com/kanengo/parcelgen/internal/codegen"

// Options configure a Generator. The zero value processes classes one by
// one, logs nowhere and records spans on the global tracer provider.
type Options struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *metrics.Set

	// Jobs is the number of classes processed concurrently. Values below 2
	// process sequentially.
	Jobs int
	// FailFast stops before the next class once a class failed.
	FailFast bool
}

// Generator is safe for concurrent use. The universe, the oracle and the
// adapter registry are read-only once New returns.
type Generator struct {
	universe *classmodel.Universe
	oracle   *hierarchy.Oracle
	registry *adapter.Registry
	opts     Options
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *generatorMetrics
}

// New discovers the global adapters of u. A malformed global adapter fails
// construction; every such adapter is reported.
func New(u *classmodel.Universe, opts Options) (*Generator, error) {
	o := hierarchy.New(u)
	r, err := adapter.NewRegistry(u, o)
	if err != nil {
		return nil, err
	}

	g := &Generator{universe: u, oracle: o, registry: r, opts: opts}
	g.logger = opts.Logger
	if g.logger == nil {
		g.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g.tracer = opts.Tracer
	if g.tracer == nil {
		g.tracer = otel.Tracer(instrumentationName)
	}
	set := opts.Metrics
	if set == nil {
		set = metrics.NewSet()
	}
	g.metrics = newGeneratorMetrics(set)
	return g, nil
}

func (g *Generator) Universe() *classmodel.Universe { return g.universe }

func (g *Generator) Registry() *adapter.Registry { return g.registry }

// Targets returns the eligible user classes ordered by name.
func (g *Generator) Targets() []*classmodel.ClassInfo {
	var out []*classmodel.ClassInfo
	for _, c := range g.universe.UserClasses() {
		if classmodel.Eligible(g.oracle, c) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *classmodel.ClassInfo) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Artifact is one generated class.
type Artifact struct {
	// Name is the qualified class name.
	Name    string
	Class   *bytecode.Class
	Content []byte
}

// PropertyReport records how a property is marshalled.
type PropertyReport struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Adapter string `json:"adapter"`
}

type Status string

const (
	StatusGenerated      Status = "generated"
	StatusInvalidTarget  Status = "invalid_target"
	StatusInvalidAdapter Status = "invalid_adapter"
	StatusSkipped        Status = "skipped"
	StatusFailed         Status = "failed"
)

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusGenerated
	case errors.Is(err, xerrors.ErrInvalidTarget):
		return StatusInvalidTarget
	case errors.Is(err, xerrors.ErrInvalidAdapter):
		return StatusInvalidAdapter
	case errors.Is(err, context.Canceled):
		return StatusSkipped
	}
	return StatusFailed
}

// Result is the outcome for one class. A failed class has no artifacts.
type Result struct {
	Class      string
	Kind       classmodel.SpecKind
	Status     Status
	Properties []PropertyReport
	Artifacts  []Artifact
	Err        error
	Duration   time.Duration
}

// Process generates the patched class and the factory of spec. Any
// resolution failure aborts the class without artifacts.
func (g *Generator) Process(ctx context.Context, spec *classmodel.ClassSpec) (Result, error) {
	ctx, span := g.tracer.Start(ctx, "parcelgen.Process", trace.WithAttributes(
		attribute.String("parcelgen.class", spec.Name()),
		attribute.String("parcelgen.kind", spec.Kind.String()),
	))
	defer span.End()

	res, err := g.process(ctx, spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(attribute.Int("parcelgen.artifacts", len(res.Artifacts)))
	return res, nil
}

// process yields two artifacts for both kinds: the patched class and its
// factory. An object class has nothing to write, but the CREATOR field it
// gains can only be carried by a patched copy of the class.
func (g *Generator) process(ctx context.Context, spec *classmodel.ClassSpec) (Result, error) {
	res := Result{Class: spec.Name(), Kind: spec.Kind}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	scope, err := g.registry.Scope(spec)
	if err != nil {
		return res, err
	}

	adapters := make([]adapter.Adapter, len(spec.Properties))
	for i, p := range spec.Properties {
		a, err := scope.Resolve(p)
		if err != nil {
			return Result{Class: spec.Name(), Kind: spec.Kind}, err
		}
		adapters[i] = a
		res.Properties = append(res.Properties, PropertyReport{
			Name:    p.Name,
			Type:    p.Type.String(),
			Adapter: adapter.Describe(a),
		})
	}

	original := classmodel.Compile(spec.Class)
	var classes []*bytecode.Class
	switch spec.Kind {
	case classmodel.ObjectSpec:
		classes = []*bytecode.Class{patch(original, objectWriter()), objectFactory(spec)}
	default:
		classes = []*bytecode.Class{patch(original, dataWriter(spec, adapters)), dataFactory(spec, adapters)}
	}
	for _, c := range classes {
		res.Artifacts = append(res.Artifacts, Artifact{Name: c.Name, Class: c, Content: bytecode.Encode(c)})
	}
	return res, nil
}

// Run builds the spec of every class and processes it. Results come back in
// the order of classes; the returned error joins every class failure.
func (g *Generator) Run(ctx context.Context, classes []*classmodel.ClassInfo) ([]Result, error) {
	ctx, span := g.tracer.Start(ctx, "parcelgen.Run", trace.WithAttributes(
		attribute.Int("parcelgen.classes", len(classes)),
	))
	defer span.End()

	start := time.Now()
	results := make([]Result, len(classes))
	if g.opts.Jobs > 1 {
		group, _ := errgroup.WithContext(ctx, g.opts.FailFast)
		group.SetLimit(g.opts.Jobs)
		for i, c := range classes {
			group.Go(func(ctx context.Context) error {
				results[i] = g.runOne(ctx, c)
				return results[i].Err
			})
		}
		_ = group.Wait()
	} else {
		failed := false
		for i, c := range classes {
			if failed && g.opts.FailFast {
				results[i] = Result{Class: c.Name, Status: StatusSkipped}
				g.metrics.observe(StatusSkipped, 0, 0)
				continue
			}
			results[i] = g.runOne(ctx, c)
			failed = failed || results[i].Err != nil
		}
	}

	var errs []error
	counts := map[Status]int{}
	for _, r := range results {
		counts[r.Status]++
		if r.Err != nil && r.Status != StatusSkipped {
			errs = append(errs, r.Err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("%d classes failed", len(errs)))
	}
	g.logger.Info("generation finished",
		"classes", len(classes),
		"generated", counts[StatusGenerated],
		"failed", len(errs),
		"skipped", counts[StatusSkipped],
		"elapsed", time.Since(start))
	return results, err
}

func (g *Generator) runOne(ctx context.Context, c *classmodel.ClassInfo) Result {
	start := time.Now()
	res, err := g.buildAndProcess(ctx, c)
	res.Class = c.Name
	res.Err = err
	res.Status = statusOf(err)
	res.Duration = time.Since(start)
	if err != nil {
		res.Artifacts = nil
	}
	g.metrics.observe(res.Status, res.Duration, len(res.Artifacts))

	switch res.Status {
	case StatusGenerated:
		g.logger.Debug("class generated", "class", c.Name, "kind", res.Kind.String(), "artifacts", len(res.Artifacts))
	case StatusSkipped:
		g.logger.Debug("class skipped", "class", c.Name)
	default:
		g.logger.Warn("class rejected", "class", c.Name, "status", string(res.Status), "err", err)
	}
	return res
}

func (g *Generator) buildAndProcess(ctx context.Context, c *classmodel.ClassInfo) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	spec, err := classmodel.BuildSpec(c)
	if err != nil {
		return Result{}, err
	}
	return g.Process(ctx, spec)
}
