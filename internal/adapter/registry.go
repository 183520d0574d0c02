package adapter

import (
	"errors"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/exp/maps"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/classmodel"
	"github.com/kanengo/parcelgen/internal/hierarchy"
	"github.com/kanengo/parcelgen/pkg/xerrors"
)

// Registry is the run-wide adapter baseline: the built-in adapters plus the
// discovered global adapters. It is immutable after NewRegistry; only its
// resolution cache fills up, and that cache is safe for concurrent use.
type Registry struct {
	universe *classmodel.Universe
	oracle   *hierarchy.Oracle
	builtins map[string]Adapter
	globals  map[string]*External
	cache    *xsync.MapOf[string, Adapter]
}

// NewRegistry discovers the global adapters of u. Any malformed global
// adapter, or two of them handling the same type, fails the whole registry.
func NewRegistry(u *classmodel.Universe, o *hierarchy.Oracle) (*Registry, error) {
	r := &Registry{
		universe: u,
		oracle:   o,
		builtins: builtins(),
		globals:  map[string]*External{},
		cache:    xsync.NewMapOf[string, Adapter](),
	}

	var errs []error
	for _, c := range u.Tagged(classmodel.GlobalAdapterTag) {
		if _, _, err := classmodel.DecodeTag[classmodel.GlobalAdapter](c, classmodel.GlobalAdapterTag); err != nil {
			errs = append(errs, err)
			continue
		}
		ext, err := newExternal(u, o, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		key := ext.Type.Erasure()
		if prev, dup := r.globals[key]; dup {
			errs = append(errs, xerrors.Adapter(c.Name, xerrors.MsgDuplicateGlobal, prev.Adapter, c.Name, key))
			continue
		}
		r.globals[key] = ext
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

func (r *Registry) Universe() *classmodel.Universe { return r.universe }

func (r *Registry) Oracle() *hierarchy.Oracle { return r.oracle }

// Globals returns the global adapters ordered by the type they handle.
func (r *Registry) Globals() []*External {
	keys := maps.Keys(r.globals)
	slices.Sort(keys)
	out := make([]*External, len(keys))
	for i, k := range keys {
		out[i] = r.globals[k]
	}
	return out
}

// Scope is the registry as seen while processing one class: the baseline
// overlaid with the class's local adapters. A scope with local adapters owns
// a private cache that is dropped with it.
type Scope struct {
	registry *Registry
	class    string
	locals   map[string]*External
	cache    *xsync.MapOf[string, Adapter]
}

// Scope returns the scope for spec. Local adapters are validated here: a
// malformed adapter is an InvalidAdapter error, an unknown adapter class or
// two local adapters for the same type an InvalidTarget error naming spec.
func (r *Registry) Scope(spec *classmodel.ClassSpec) (*Scope, error) {
	s := &Scope{registry: r, class: spec.Name(), cache: r.cache}

	tag, ok, err := classmodel.DecodeTag[classmodel.LocalAdapters](spec.Class, classmodel.LocalAdaptersTag)
	if err != nil {
		return nil, xerrors.Target(spec.Name(), "%v", err)
	}
	if !ok || len(tag.Value) == 0 {
		return s, nil
	}

	s.locals = map[string]*External{}
	for _, name := range tag.Value {
		c, ok := r.universe.Lookup(name)
		if !ok {
			return nil, xerrors.Target(spec.Name(), xerrors.MsgUnknownClass, name)
		}
		ext, err := newExternal(r.universe, r.oracle, c)
		if err != nil {
			return nil, err
		}
		key := ext.Type.Erasure()
		if prev, dup := s.locals[key]; dup {
			return nil, xerrors.Target(spec.Name(), xerrors.MsgDuplicateLocalAdapter, prev.Adapter, name, key)
		}
		s.locals[key] = ext
	}
	s.cache = xsync.NewMapOf[string, Adapter]()
	return s, nil
}

// Locals returns the local adapters of the scope ordered by handled type.
func (s *Scope) Locals() []*External {
	keys := maps.Keys(s.locals)
	slices.Sort(keys)
	out := make([]*External, len(keys))
	for i, k := range keys {
		out[i] = s.locals[k]
	}
	return out
}

// lookup is the exact-type layer: local adapters shadow global adapters,
// which shadow the built-ins.
func (s *Scope) lookup(erasure string) (Adapter, bool) {
	if ext, ok := s.locals[erasure]; ok {
		return ext, true
	}
	if ext, ok := s.registry.globals[erasure]; ok {
		return ext, true
	}
	a, ok := s.registry.builtins[erasure]
	return a, ok
}

func builtins() map[string]Adapter {
	m := map[string]Adapter{
		classmodel.StringClass:   &Platform{Kind: String},
		"java.lang.CharSequence": &Platform{Kind: CharSequence},
		"byte[]":                 &Platform{Kind: ByteArray},
		classmodel.DateClass:     &Boxed{Class: classmodel.DateClass, Prim: bytecode.LongType},
	}
	for class, prim := range map[string]bytecode.Type{
		"android.util.SparseIntArray":     bytecode.IntType,
		"android.util.SparseLongArray":    bytecode.LongType,
		"android.util.SparseBooleanArray": bytecode.BooleanType,
	} {
		m[class] = &Sparse{Class: class, ValueType: prim, Value: &Scalar{Type: prim}}
	}
	for prim, boxed := range map[bytecode.Type]string{
		bytecode.BooleanType: "java.lang.Boolean",
		bytecode.ByteType:    "java.lang.Byte",
		bytecode.CharType:    "java.lang.Character",
		bytecode.ShortType:   "java.lang.Short",
		bytecode.IntType:     "java.lang.Integer",
		bytecode.LongType:    "java.lang.Long",
		bytecode.FloatType:   "java.lang.Float",
		bytecode.DoubleType:  "java.lang.Double",
	} {
		m[prim.ClassName()] = &Scalar{Type: prim}
		m[boxed] = &Boxed{Class: boxed, Prim: prim}
	}
	return m
}
