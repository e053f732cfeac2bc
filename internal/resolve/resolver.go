// Package resolve turns syntactic type references into catalog TypeRefs,
// instantiating templates on the way.
package resolve

import (
	"slices"

	"anvil/internal/catalog"
	"anvil/internal/diag"
	"anvil/internal/observ"
	"anvil/internal/semerr"
	"anvil/internal/types"
)

// Instantiator is the part of the template instantiator the resolver
// drives.
type Instantiator interface {
	Instantiate(template types.TypeKey, args []types.TypeRef) (types.TypeKey, error)
}

// DefaultArrayTemplate is the template that "T[]" sugar instantiates.
const DefaultArrayTemplate = "array"

// Resolver resolves type expressions. It is safe for concurrent use when
// the catalog and instantiator are.
type Resolver struct {
	cat       *catalog.Catalog
	inst      Instantiator
	arrayName string
	counters  *observ.Counters
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithArrayTemplate names the template used for "[]" suffixes.
func WithArrayTemplate(qualified string) Option {
	return func(r *Resolver) { r.arrayName = qualified }
}

// WithCounters counts resolutions.
func WithCounters(cs *observ.Counters) Option {
	return func(r *Resolver) { r.counters = cs }
}

// NewResolver returns a resolver over cat using inst for generic
// arguments.
func NewResolver(cat *catalog.Catalog, inst Instantiator, opts ...Option) *Resolver {
	r := &Resolver{cat: cat, inst: inst, arrayName: DefaultArrayTemplate}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the TypeRef denoted by expr in ctx. On failure it
// returns types.ErrorRef together with the error, so callers can keep
// analysing with the sentinel.
func (r *Resolver) Resolve(expr *TypeExpr, ctx Context) (types.TypeRef, error) {
	r.counters.Add(observ.CounterResolve, 1)
	if expr == nil || expr.Name == "" {
		return types.ErrorRef, semerr.New(semerr.UnknownType, "<empty>").WithCode(diag.ResMalformedTypeExpr)
	}
	base, err := r.resolveBase(expr, ctx)
	if err != nil {
		return types.ErrorRef, err
	}
	ref, err := r.fold(base, expr)
	if err != nil {
		return types.ErrorRef, err
	}
	return ref, nil
}

// resolveBase finds the named entry and instantiates it when generic
// arguments are present.
func (r *Resolver) resolveBase(expr *TypeExpr, ctx Context) (types.TypeKey, error) {
	e, ok := r.lookup(expr, ctx)
	if !ok {
		return types.NoKey, semerr.New(semerr.UnknownType, expr.QualifiedName())
	}
	switch {
	case len(expr.Args) > 0:
		if !e.IsTemplate() {
			return types.NoKey, semerr.Newf(semerr.UnknownType, []string{e.QualifiedName()},
				"type does not take template arguments").WithCode(diag.ResNotATemplate)
		}
		args := make([]types.TypeRef, len(expr.Args))
		for i, a := range expr.Args {
			ref, err := r.Resolve(a, ctx)
			if err != nil {
				return types.NoKey, err
			}
			args[i] = ref
		}
		return r.inst.Instantiate(e.Key, args)
	case e.IsTemplate() && !insideTemplate(ctx, e.QualifiedName()):
		return types.NoKey, semerr.Newf(semerr.TemplateValidationRejected, []string{e.QualifiedName()},
			"template used without arguments").WithCode(diag.ResTemplateArity)
	}
	return e.Key, nil
}

// insideTemplate reports whether the bare template name refers to the
// template currently being declared.
func insideTemplate(ctx Context, qualified string) bool {
	for _, ts := range ctx.TemplateScopes {
		if ts.Owner == qualified {
			return true
		}
	}
	return false
}

// lookup searches, in order: the explicit scope path (relative to each
// enclosing namespace, innermost first, then from the global namespace),
// or for unscoped names the template parameter scopes innermost first,
// the enclosing namespace chain, the imports and finally the global
// namespace.
func (r *Resolver) lookup(expr *TypeExpr, ctx Context) (*catalog.Entry, bool) {
	if expr.Absolute {
		return r.cat.GetByName(expr.QualifiedName())
	}
	if len(expr.Scope) == 0 {
		for i := len(ctx.TemplateScopes) - 1; i >= 0; i-- {
			ts := ctx.TemplateScopes[i]
			if slices.Contains(ts.Params, expr.Name) {
				if e, ok := r.cat.Get(catalog.TemplateParamKey(ts.Owner, expr.Name)); ok {
					return e, true
				}
			}
		}
	}
	for i := len(ctx.Namespace); i > 0; i-- {
		path := slices.Concat(ctx.Namespace[:i], expr.Scope)
		if e, ok := r.cat.GetByName(types.Qualify(path, expr.Name)); ok {
			return e, true
		}
	}
	for _, imp := range ctx.Imports {
		path := slices.Concat(imp, expr.Scope)
		if e, ok := r.cat.GetByName(types.Qualify(path, expr.Name)); ok {
			return e, true
		}
	}
	return r.cat.GetByName(expr.QualifiedName())
}

// fold applies the leading const, the suffixes and the reference mode.
func (r *Resolver) fold(base types.TypeKey, expr *TypeExpr) (types.TypeRef, error) {
	ref := types.TypeRef{Base: base, IsConst: expr.Const}
	for _, s := range expr.Suffixes {
		switch s.Kind {
		case SuffixHandle:
			if ref.IsHandle {
				return types.ErrorRef, semerr.Newf(semerr.UnknownType, []string{expr.String()},
					"handle of a handle").WithCode(diag.ResMalformedTypeExpr)
			}
			if !r.handleable(ref.Base) {
				return types.ErrorRef, semerr.Newf(semerr.UnknownType, []string{expr.String()},
					"%s cannot be held by handle", r.cat.TypeName(ref.Base)).WithCode(diag.ResMalformedTypeExpr)
			}
			ref = types.TypeRef{Base: ref.Base, IsHandle: true, IsHandleToConst: ref.IsConst, IsConst: s.Const}
		case SuffixArray:
			arr, ok := r.cat.GetByName(r.arrayName)
			if !ok {
				return types.ErrorRef, semerr.New(semerr.UnknownType, r.arrayName)
			}
			key, err := r.inst.Instantiate(arr.Key, []types.TypeRef{ref})
			if err != nil {
				return types.ErrorRef, err
			}
			ref = types.TypeRef{Base: key, IsConst: s.Const}
		default:
			return types.ErrorRef, semerr.Newf(semerr.UnknownType, []string{expr.String()},
				"unknown suffix").WithCode(diag.ResMalformedTypeExpr)
		}
	}
	ref.Ref = expr.Ref
	return ref, nil
}

// handleable reports whether key may be held by handle. Template
// parameters are allowed; the argument decides later.
func (r *Resolver) handleable(key types.TypeKey) bool {
	e, ok := r.cat.Get(key)
	if !ok {
		return false
	}
	switch e.Kind {
	case catalog.KindClass, catalog.KindInterface, catalog.KindFuncdef, catalog.KindTemplateParam:
		return true
	}
	return false
}

// Functions returns the first non-empty overload set for name, searched
// with the same namespace rules as types.
func (r *Resolver) Functions(scope []string, name string, ctx Context) []types.TypeKey {
	for i := len(ctx.Namespace); i > 0; i-- {
		if set := r.cat.Overloads(types.Qualify(slices.Concat(ctx.Namespace[:i], scope), name)); len(set) > 0 {
			return set
		}
	}
	for _, imp := range ctx.Imports {
		if set := r.cat.Overloads(types.Qualify(slices.Concat(imp, scope), name)); len(set) > 0 {
			return set
		}
	}
	return r.cat.Overloads(types.Qualify(scope, name))
}
