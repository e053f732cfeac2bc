// Package conv decides whether a value of one type can stand in for
// another and at what cost. Every query is pure: the checker only reads
// the catalog.
package conv

import (
	"anvil/internal/catalog"
	"anvil/internal/observ"
	"anvil/internal/types"
)

// Checker answers conversion queries against a catalog.
type Checker struct {
	cat      *catalog.Catalog
	counters *observ.Counters
}

// Option configures a Checker.
type Option func(*Checker)

// WithCounters records queries that found no plan.
func WithCounters(cs *observ.Counters) Option {
	return func(c *Checker) { c.counters = cs }
}

// NewChecker returns a Checker reading cat.
func NewChecker(cat *catalog.Catalog, opts ...Option) *Checker {
	c := &Checker{cat: cat}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the catalog the checker reads.
func (c *Checker) Catalog() *catalog.Catalog { return c.cat }

// CanConvert finds the cheapest implicit plan turning from into to.
func (c *Checker) CanConvert(from, to types.TypeRef) (Plan, bool) {
	return c.count(c.convert(from, to, false, true))
}

// CanConvertExplicit also considers explicit-only plans (explicit
// constructors, opConv, opCast, const removal). An implicit plan is
// still preferred when one exists.
func (c *Checker) CanConvertExplicit(from, to types.TypeRef) (Plan, bool) {
	return c.count(c.convert(from, to, true, true))
}

func (c *Checker) count(p Plan, ok bool) (Plan, bool) {
	if !ok {
		c.counters.Add(observ.CounterConversionMiss, 1)
	}
	return p, ok
}

// SameType reports structural equality ignoring the reference mode and,
// for values, top-level const.
func SameType(a, b types.TypeRef) bool {
	if a.Base != b.Base || a.IsHandle != b.IsHandle {
		return false
	}
	if !a.IsHandle {
		return true
	}
	return a.IsHandleToConst == b.IsHandleToConst
}

// ExactMatch reports a zero-cost match used by the overload fast path:
// identical types ignoring reference mode.
func ExactMatch(arg, param types.TypeRef) bool {
	return arg.Base == param.Base &&
		arg.IsHandle == param.IsHandle &&
		arg.IsHandleToConst == param.IsHandleToConst &&
		(arg.IsHandle || arg.IsConst == param.IsConst)
}

func (c *Checker) convert(from, to types.TypeRef, explicit, userDefined bool) (Plan, bool) {
	// The error type absorbs everything so one failure does not cascade.
	if from.Base == types.ErrorKey || to.Base == types.ErrorKey {
		return identity(), true
	}
	if from == to || SameType(from, to) {
		return identity(), true
	}

	if from.Base == types.NullKey {
		switch {
		case to.IsHandle:
			return Plan{Kind: KindNullToHandle, Cost: CostNullToHandle, Implicit: true}, true
		case to.Base == types.AnyKey:
			return identity(), true
		default:
			return Plan{}, false
		}
	}
	if from.Base == types.AnyKey || to.Base == types.AnyKey {
		return identity(), true
	}

	fromEntry, ok := c.cat.Get(from.Base)
	if !ok {
		return Plan{}, false
	}
	toEntry, ok := c.cat.Get(to.Base)
	if !ok {
		return Plan{}, false
	}

	if fromEntry.Kind == catalog.KindPrimitive && toEntry.Kind == catalog.KindPrimitive {
		if from.IsHandle || to.IsHandle {
			return Plan{}, false
		}
		if cost, ok := PrimitiveCost(from.Base, to.Base); ok {
			return Plan{Kind: KindPrimitive, Cost: cost, Implicit: true}, true
		}
		return Plan{}, false
	}

	if fromEntry.Kind == catalog.KindEnum || toEntry.Kind == catalog.KindEnum {
		if plan, ok := enumPlan(fromEntry, toEntry, from, to); ok {
			return plan, true
		}
		if !fromEntry.IsObject() && !toEntry.IsObject() {
			return Plan{}, false
		}
	}

	if fromEntry.Kind == catalog.KindFuncdef && from.Base == to.Base {
		// a function pointer is always held by handle
		return identity(), true
	}

	if !from.IsHandle && to.IsHandle && from.Base == to.Base && fromEntry.IsObject() {
		return Plan{Kind: KindValueToHandle, Cost: CostValueToHandle, Implicit: true}, true
	}

	if from.IsHandle && to.IsHandle {
		if plan, ok := c.handlePlan(fromEntry, from, to); ok {
			if plan.Implicit || explicit {
				return plan, true
			}
		}
	}

	if !userDefined {
		return Plan{}, false
	}
	return c.userDefined(fromEntry, toEntry, from, to, explicit)
}

func enumPlan(fromEntry, toEntry *catalog.Entry, from, to types.TypeRef) (Plan, bool) {
	if from.IsHandle || to.IsHandle {
		return Plan{}, false
	}
	switch {
	case fromEntry.Kind == catalog.KindEnum && toEntry.Kind == catalog.KindEnum:
		return Plan{}, false
	case fromEntry.Kind == catalog.KindEnum:
		under := fromEntry.Enum.Underlying
		if under == to.Base {
			return Plan{Kind: KindEnumToInteger, Cost: CostEnum, Implicit: true}, true
		}
		if cost, ok := PrimitiveCost(under, to.Base); ok {
			return Plan{Kind: KindEnumToInteger, Cost: CostEnum + cost, Implicit: true}, true
		}
	case toEntry.Kind == catalog.KindEnum:
		under := toEntry.Enum.Underlying
		if under == from.Base {
			return Plan{Kind: KindEnumToInteger, Cost: CostEnum, Implicit: true}, true
		}
		if cost, ok := PrimitiveCost(from.Base, under); ok {
			return Plan{Kind: KindEnumToInteger, Cost: CostEnum + cost, Implicit: true}, true
		}
	}
	return Plan{}, false
}

// handlePlan composes handle-to-const with derived-to-base and
// class-to-interface. Removing const from the referenced object is
// explicit-only.
func (c *Checker) handlePlan(fromEntry *catalog.Entry, from, to types.TypeRef) (Plan, bool) {
	addsConst := to.IsHandleToConst && !from.IsHandleToConst
	dropsConst := from.IsHandleToConst && !to.IsHandleToConst

	var plan Plan
	switch {
	case from.Base == to.Base:
		plan = identity()
	case fromEntry.Kind == catalog.KindClass:
		if _, ok := c.cat.DerivationDistance(from.Base, to.Base); ok {
			plan = Plan{Kind: KindDerivedToBase, Cost: CostDerivedToBase, Implicit: true}
		} else if c.cat.Implements(from.Base, to.Base) {
			plan = Plan{Kind: KindClassToInterface, Cost: CostClassToInterface, Implicit: true}
		} else {
			return Plan{}, false
		}
	case fromEntry.Kind == catalog.KindInterface:
		if !c.cat.Implements(from.Base, to.Base) {
			return Plan{}, false
		}
		plan = Plan{Kind: KindClassToInterface, Cost: CostClassToInterface, Implicit: true}
	default:
		return Plan{}, false
	}

	switch {
	case dropsConst:
		return Plan{Kind: KindConstCast, Cost: ExplicitCost + plan.Cost, Implicit: false}, true
	case addsConst && plan.Kind == KindIdentity:
		return Plan{Kind: KindHandleToConst, Cost: CostAddConst, Implicit: true}, true
	case addsConst:
		plan.Cost += CostAddConst
	}
	return plan, true
}

// userDefined searches, in order: constructors of the target type,
// opImplConv and opImplCast on the source type; then, when explicit is
// set, explicit constructors, opConv and opCast.
func (c *Checker) userDefined(fromEntry, toEntry *catalog.Entry, from, to types.TypeRef, explicit bool) (Plan, bool) {
	if !to.IsHandle && toEntry.Kind == catalog.KindClass {
		if plan, ok := c.constructorPlan(toEntry, from, false); ok {
			return plan, true
		}
	}
	if fromEntry.Kind == catalog.KindClass {
		if !to.IsHandle {
			if plan, ok := c.methodPlan(from, to, types.OpImplConv, KindImplicitConvMethod, true); ok {
				return plan, true
			}
		} else if plan, ok := c.methodPlan(from, to, types.OpImplCast, KindImplicitCastMethod, true); ok {
			return plan, true
		}
	}
	if !explicit {
		return Plan{}, false
	}

	if !to.IsHandle && toEntry.Kind == catalog.KindClass {
		if plan, ok := c.constructorPlan(toEntry, from, true); ok {
			return plan, true
		}
	}
	if fromEntry.Kind == catalog.KindClass {
		if !to.IsHandle {
			if plan, ok := c.methodPlan(from, to, types.OpConv, KindExplicitConvMethod, false); ok {
				return plan, true
			}
		} else if plan, ok := c.methodPlan(from, to, types.OpCast, KindExplicitCastMethod, false); ok {
			return plan, true
		}
	}
	return Plan{}, false
}

// constructorPlan looks for a single-argument constructor of the target
// whose parameter accepts from without another user-defined step.
func (c *Checker) constructorPlan(toEntry *catalog.Entry, from types.TypeRef, explicitOnly bool) (Plan, bool) {
	best := Plan{}
	found := false
	for _, key := range toEntry.Class.Behaviors.Constructors {
		fn, ok := c.cat.Function(key)
		if !ok || fn.Traits.Explicit != explicitOnly {
			continue
		}
		if len(fn.Params) == 0 || fn.RequiredParams() > 1 {
			continue
		}
		argPlan, ok := c.convert(from, fn.Params[0].Type, false, false)
		if !ok {
			continue
		}
		plan := Plan{Kind: KindConstructor, Cost: CostUserImplicit + argPlan.Cost, Implicit: !explicitOnly, Function: key}
		if explicitOnly {
			plan.Cost = ExplicitCost + argPlan.Cost
		}
		if !found || plan.Cost < best.Cost {
			best, found = plan, true
		}
	}
	return best, found
}

// methodPlan looks for a conversion operator on the source type whose
// result is the target type.
func (c *Checker) methodPlan(from, to types.TypeRef, op types.Operator, kind Kind, implicit bool) (Plan, bool) {
	readOnly := from.IsHandleToConst || (!from.IsHandle && from.IsConst)
	for _, key := range c.cat.OperatorMethods(from.Base, op) {
		fn, ok := c.cat.Function(key)
		if !ok || len(fn.Params) != 0 {
			continue
		}
		if readOnly && !fn.Traits.Const {
			continue
		}
		ret := fn.Return
		if ret.Base != to.Base || ret.IsHandle != to.IsHandle {
			continue
		}
		if to.IsHandle && ret.IsHandleToConst && !to.IsHandleToConst {
			continue
		}
		cost := CostUserImplicit
		if !implicit {
			cost = ExplicitCost
		}
		return Plan{Kind: kind, Cost: cost, Implicit: implicit, Function: key}, true
	}
	return Plan{}, false
}
