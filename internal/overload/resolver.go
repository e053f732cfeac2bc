// Package overload picks the unique best function for a call site, or
// reports why there is none.
package overload

import (
	"errors"
	"slices"
	"strings"

	"anvil/internal/catalog"
	"anvil/internal/conv"
	"anvil/internal/observ"
	"anvil/internal/semerr"
	"anvil/internal/types"
)

// Match is the winning candidate together with the conversion applied to
// each argument.
type Match struct {
	Function types.TypeKey
	Cost     uint32
	Plans    []conv.Plan
}

// Resolver ranks overload candidates by summed conversion cost.
type Resolver struct {
	cat      *catalog.Catalog
	chk      *conv.Checker
	counters *observ.Counters
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCounters counts resolutions.
func WithCounters(cs *observ.Counters) Option {
	return func(r *Resolver) { r.counters = cs }
}

// NewResolver returns a resolver reading cat through chk.
func NewResolver(cat *catalog.Catalog, chk *conv.Checker, opts ...Option) *Resolver {
	r := &Resolver{cat: cat, chk: chk}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ErrErrorArgument is returned when an argument or the object already has
// the error type. The failure behind it was reported where it happened,
// so callers should not report this one.
var ErrErrorArgument = errors.New("overload: error-typed argument")

func anyError(args []types.TypeRef) bool {
	for _, a := range args {
		if a.IsError() {
			return true
		}
	}
	return false
}

type scored struct {
	key   types.TypeKey
	cost  uint32
	plans []conv.Plan
}

// Resolve selects among candidates for a call with args.
//
// A candidate is viable when len(args) lies in [required, total]
// parameters; variadic candidates accept any number of trailing
// arguments, each matched against "?". A candidate whose parameters all
// match exactly wins at once. Otherwise per-argument implicit costs are
// summed and the cheapest candidate wins; a tie for the lowest cost is
// an AmbiguousOverload naming both. An error-typed argument converts to
// everything, so the call is not ranked at all and ErrErrorArgument is
// returned.
func (r *Resolver) Resolve(candidates []types.TypeKey, args []types.TypeRef) (Match, error) {
	r.counters.Add(observ.CounterOverload, 1)
	if anyError(args) {
		return Match{}, ErrErrorArgument
	}

	viable := make([]*catalog.Function, 0, len(candidates))
	for _, key := range candidates {
		fn, ok := r.cat.Function(key)
		if !ok {
			continue
		}
		if arityFits(fn, len(args)) {
			viable = append(viable, fn)
		}
	}

	if m, ok := r.exact(viable, args); ok {
		return m, nil
	}

	ranked := make([]scored, 0, len(viable))
	for _, fn := range viable {
		if s, ok := r.score(fn, args); ok {
			ranked = append(ranked, s)
		}
	}
	if len(ranked) == 0 {
		return Match{}, r.noViable(candidates, args)
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		switch {
		case a.cost < b.cost:
			return -1
		case a.cost > b.cost:
			return 1
		default:
			return 0
		}
	})
	if len(ranked) > 1 && ranked[0].cost == ranked[1].cost {
		return Match{}, semerr.New(semerr.AmbiguousOverload, r.setName(ranked[0].key)).
			WithCandidates(r.cat.SignatureOf(ranked[0].key), r.cat.SignatureOf(ranked[1].key))
	}
	best := ranked[0]
	return Match{Function: best.key, Cost: best.cost, Plans: best.plans}, nil
}

func arityFits(fn *catalog.Function, n int) bool {
	if n < fn.RequiredParams() {
		return false
	}
	return fn.Traits.Variadic || n <= len(fn.Params)
}

func paramAt(fn *catalog.Function, i int) types.TypeRef {
	if i < len(fn.Params) {
		return fn.Params[i].Type
	}
	return types.Simple(types.AnyKey)
}

// exact returns the single candidate whose parameters match args without
// any conversion. Several exact candidates (possible through defaults)
// fall through to ranking, which reports the tie.
func (r *Resolver) exact(viable []*catalog.Function, args []types.TypeRef) (Match, bool) {
	var hit *catalog.Function
	for _, fn := range viable {
		all := true
		for i, arg := range args {
			if !conv.ExactMatch(arg, paramAt(fn, i)) {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		if hit != nil {
			return Match{}, false
		}
		hit = fn
	}
	if hit == nil {
		return Match{}, false
	}
	plans := make([]conv.Plan, len(args))
	for i := range plans {
		plans[i] = conv.Plan{Kind: conv.KindIdentity, Implicit: true}
	}
	return Match{Function: hit.Key, Plans: plans}, true
}

func (r *Resolver) score(fn *catalog.Function, args []types.TypeRef) (scored, bool) {
	s := scored{key: fn.Key, plans: make([]conv.Plan, len(args))}
	for i, arg := range args {
		plan, ok := r.chk.CanConvert(arg, paramAt(fn, i))
		if !ok || !plan.Implicit {
			return scored{}, false
		}
		s.plans[i] = plan
		s.cost += plan.Cost
	}
	return s, true
}

func (r *Resolver) noViable(candidates []types.TypeKey, args []types.TypeRef) error {
	name := "<none>"
	if len(candidates) > 0 {
		name = r.setName(candidates[0])
	}
	sigs := make([]string, 0, len(candidates))
	for _, key := range candidates {
		sigs = append(sigs, r.cat.SignatureOf(key))
	}
	argNames := make([]string, len(args))
	for i, a := range args {
		argNames[i] = r.cat.RefString(a)
	}
	return semerr.Newf(semerr.NoViableOverload, []string{name}, "no match for argument types (%s)", strings.Join(argNames, ", ")).
		WithCandidates(sigs...)
}

func (r *Resolver) setName(key types.TypeKey) string {
	fn, ok := r.cat.Function(key)
	if !ok {
		return key.String()
	}
	if fn.Owner.IsValid() {
		return r.cat.TypeName(fn.Owner) + "::" + fn.Name
	}
	return types.Qualify(fn.Namespace, fn.Name)
}

// ResolveMethod resolves a call to the method name on an object of type
// obj. Const objects only see const methods.
func (r *Resolver) ResolveMethod(obj types.TypeRef, name string, args []types.TypeRef) (Match, error) {
	if obj.IsError() {
		return Match{}, ErrErrorArgument
	}
	keys := r.constFilter(obj, r.cat.Methods(obj.Base, name))
	if len(keys) == 0 {
		return Match{}, semerr.New(semerr.NoViableOverload, r.cat.TypeName(obj.Base)+"::"+name)
	}
	return r.Resolve(keys, args)
}

// ResolveConstructor picks the constructor of class for args.
func (r *Resolver) ResolveConstructor(class types.TypeKey, args []types.TypeRef) (Match, error) {
	keys := r.cat.Constructors(class)
	if len(keys) == 0 {
		return Match{}, semerr.New(semerr.NoViableOverload, r.cat.TypeName(class))
	}
	return r.Resolve(keys, args)
}

// constFilter keeps the const methods of a read-only object. A mutable
// object sees every method, except that a const method is hidden by a
// non-const one with the same name and parameters.
func (r *Resolver) constFilter(obj types.TypeRef, keys []types.TypeKey) []types.TypeKey {
	out := keys[:0:0]
	if readOnly(obj) {
		for _, k := range keys {
			if fn, ok := r.cat.Function(k); ok && fn.Traits.Const {
				out = append(out, k)
			}
		}
		return out
	}
	mutable := make(map[types.TypeKey]struct{})
	for _, k := range keys {
		if fn, ok := r.cat.Function(k); ok && !fn.Traits.Const {
			mutable[types.FromFunction(fn.Name, fn.ParamKeys())] = struct{}{}
		}
	}
	for _, k := range keys {
		fn, ok := r.cat.Function(k)
		if ok && fn.Traits.Const {
			if _, hidden := mutable[types.FromFunction(fn.Name, fn.ParamKeys())]; hidden {
				continue
			}
		}
		out = append(out, k)
	}
	return out
}

func readOnly(r types.TypeRef) bool {
	if r.IsHandle {
		return r.IsHandleToConst
	}
	return r.IsConst
}
