package tool

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/classmodel"
	"github.com/kanengo/parcelgen/internal/codegen"
	"github.com/kanengo/parcelgen/runtime"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func newExplainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain [class...]",
		Short: "Show how the properties of classes are marshalled",
		Long: `Explain resolves an adapter for every property of the named classes, or
of every eligible class when none is named, without writing anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			config, err := loadConfig(v, v.GetStringSlice("manifest"))
			if err != nil {
				return err
			}
			if len(args) > 0 {
				config.Classes = args
			}
			return explain(cmd, config, explainOptions{
				dump:     v.GetBool("dump"),
				bytecode: v.GetBool("bytecode"),
			})
		},
	}

	key := "manifest"
	cmd.Flags().StringSliceP(key, "m", nil, "class manifest files or glob patterns")

	key = "dump"
	cmd.Flags().Bool(key, false, "dump the resolved adapter trees")

	key = "bytecode"
	cmd.Flags().Bool(key, false, "print the generated classes")

	return cmd
}

type explainOptions struct {
	dump     bool
	bytecode bool
}

func explain(cmd *cobra.Command, config *runtime.Config, opts explainOptions) error {
	logger, _ := newLogger(cmd.ErrOrStderr(), "explain", config)
	u, err := loadUniverse(config)
	if err != nil {
		return err
	}
	g, err := codegen.New(u, codegen.Options{Logger: logger})
	if err != nil {
		return err
	}
	classes, err := selectClasses(u, config.Classes, g.Targets)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	var errs []error
	for _, c := range classes {
		if err := explainClass(cmd, w, g, c, opts); err != nil {
			_, _ = fmt.Fprintf(w, "%s: %v\n\n", c.Name, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func explainClass(cmd *cobra.Command, w io.Writer, g *codegen.Generator, c *classmodel.ClassInfo, opts explainOptions) error {
	spec, err := classmodel.BuildSpec(c)
	if err != nil {
		return err
	}
	res, err := g.Process(cmd.Context(), spec)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "%s (%s)\n", spec.Name(), spec.Kind)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range res.Properties {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", p.Name, p.Type, p.Adapter)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if opts.dump {
		scope, err := g.Registry().Scope(spec)
		if err != nil {
			return err
		}
		for _, p := range spec.Properties {
			a, err := scope.Resolve(p)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(w, "\n%s: ", p.Name)
			dumper.Fdump(w, a)
		}
	}
	if opts.bytecode {
		for _, a := range res.Artifacts {
			_, _ = fmt.Fprintln(w)
			if err := bytecode.Format(w, a.Class); err != nil {
				return err
			}
		}
	}
	_, _ = fmt.Fprintln(w)
	return nil
}
