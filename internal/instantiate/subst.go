package instantiate

import (
	"slices"

	"anvil/internal/catalog"
	"anvil/internal/types"
)

// subst replaces template parameter slots with concrete arguments inside
// type references. Nested instances whose arguments mention a slot are
// re-instantiated through the owning build state.
//
// A reference to the template being instantiated (the template's own name
// used inside its declaration) becomes a reference to self.
type subst struct {
	in       *Instantiator
	st       *state
	template types.TypeKey
	self     types.TypeKey
	slots    map[types.TypeKey]types.TypeRef
	cache    map[types.TypeRef]types.TypeRef
}

func newSubst(in *Instantiator, st *state, template, self types.TypeKey, params []types.TypeKey, args []types.TypeRef) *subst {
	s := &subst{
		in:       in,
		st:       st,
		template: template,
		self:     self,
		slots:    make(map[types.TypeKey]types.TypeRef, len(params)),
		cache:    make(map[types.TypeRef]types.TypeRef, 16),
	}
	for i, p := range params {
		s.slots[p] = args[i]
	}
	return s
}

// Ref substitutes r.
func (s *subst) Ref(r types.TypeRef) (types.TypeRef, error) {
	if cached, ok := s.cache[r]; ok {
		return cached, nil
	}
	out, err := s.refNoCache(r)
	if err != nil {
		return types.ErrorRef, err
	}
	s.cache[r] = out
	return out, nil
}

func (s *subst) refNoCache(r types.TypeRef) (types.TypeRef, error) {
	if arg, ok := s.slots[r.Base]; ok {
		return s.bind(r, arg), nil
	}
	if r.Base == s.template && s.self.IsValid() {
		out := r
		out.Base = s.self
		return out, nil
	}
	e, ok := s.in.cat.Get(r.Base)
	if !ok || !e.IsInstance() || !s.mentionsSlot(e.Class.TemplateArgs) {
		return r, nil
	}
	args := make([]types.TypeRef, len(e.Class.TemplateArgs))
	for i, a := range e.Class.TemplateArgs {
		sub, err := s.Ref(a)
		if err != nil {
			return types.ErrorRef, err
		}
		args[i] = sub
	}
	key, err := s.in.build(s.st, e.Class.Template, args)
	if err != nil {
		return types.ErrorRef, err
	}
	out := r
	out.Base = key
	return out, nil
}

// bind places arg where the declaration wrote r (a reference to a slot).
//
//	T@ with T = Obj@         -> Obj@
//	T@ with T = const Obj    -> const Obj@
//	const T with T = Obj@    -> Obj@ const, or const Obj@ const when
//	                            handle-then-const is on
func (s *subst) bind(r, arg types.TypeRef) types.TypeRef {
	out := types.TypeRef{Base: arg.Base, Ref: r.Ref}
	switch {
	case r.IsHandle:
		out.IsHandle = true
		out.IsHandleToConst = r.IsHandleToConst || arg.IsHandleToConst || (!arg.IsHandle && arg.IsConst)
		out.IsConst = r.IsConst
	case arg.IsHandle:
		out.IsHandle = true
		out.IsHandleToConst = arg.IsHandleToConst
		out.IsConst = r.IsConst || arg.IsConst
		if r.IsConst && s.in.ifHandleThenConst {
			out.IsHandleToConst = true
		}
	default:
		out.IsConst = r.IsConst || arg.IsConst
	}
	return out
}

func (s *subst) mentionsSlot(args []types.TypeRef) bool {
	for _, a := range args {
		if _, ok := s.slots[a.Base]; ok {
			return true
		}
		if e, ok := s.in.cat.Get(a.Base); ok && e.IsInstance() && s.mentionsSlot(e.Class.TemplateArgs) {
			return true
		}
	}
	return false
}

// Key substitutes a bare key such as a base class or interface.
func (s *subst) Key(k types.TypeKey) (types.TypeKey, error) {
	if !k.IsValid() {
		return k, nil
	}
	r, err := s.Ref(types.Simple(k))
	return r.Base, err
}

// Params substitutes every parameter type.
func (s *subst) Params(ps []catalog.Param) ([]catalog.Param, error) {
	out := slices.Clone(ps)
	for i := range out {
		t, err := s.Ref(out[i].Type)
		if err != nil {
			return nil, err
		}
		out[i].Type = t
	}
	return out, nil
}

// Function returns a copy of fn with its signature substituted and owner
// set to owner. The key is recomputed for the new owner.
func (s *subst) Function(fn *catalog.Function, owner types.TypeKey) (*catalog.Function, error) {
	params, err := s.Params(fn.Params)
	if err != nil {
		return nil, err
	}
	ret, err := s.Ref(fn.Return)
	if err != nil {
		return nil, err
	}
	cp := *fn
	cp.Key = types.NoKey
	cp.Namespace = slices.Clone(fn.Namespace)
	cp.Params = params
	cp.Return = ret
	cp.Owner = owner
	cp.TemplateParams = slices.Clone(fn.TemplateParams)
	cp.TemplateArgs = slices.Clone(fn.TemplateArgs)
	cp.Key = cp.ComputeKey()
	return &cp, nil
}
