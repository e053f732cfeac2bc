package conv

import (
	"fmt"

	"anvil/internal/types"
)

// Kind classifies a conversion plan.
type Kind uint8

const (
	KindNone Kind = iota
	KindIdentity
	KindPrimitive
	KindNullToHandle
	KindValueToHandle
	KindHandleToConst
	KindDerivedToBase
	KindClassToInterface
	KindEnumToInteger
	KindConstructor
	KindImplicitConvMethod
	KindExplicitConvMethod
	KindImplicitCastMethod
	KindExplicitCastMethod
	// KindConstCast drops const from the object behind a handle. It is
	// only ever explicit.
	KindConstCast
)

var kindNames = [...]string{
	KindNone:               "none",
	KindIdentity:           "identity",
	KindPrimitive:          "primitive",
	KindNullToHandle:       "null-to-handle",
	KindValueToHandle:      "value-to-handle",
	KindHandleToConst:      "handle-to-const",
	KindDerivedToBase:      "derived-to-base",
	KindClassToInterface:   "class-to-interface",
	KindEnumToInteger:      "enum-to-integer",
	KindConstructor:        "constructor",
	KindImplicitConvMethod: "opImplConv",
	KindExplicitConvMethod: "opConv",
	KindImplicitCastMethod: "opImplCast",
	KindExplicitCastMethod: "opCast",
	KindConstCast:          "const-cast",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Costs. Explicit-only plans never cost less than ExplicitCost so they
// lose to every implicit plan.
const (
	CostIdentity         uint32 = 0
	CostNullToHandle     uint32 = 1
	CostValueToHandle    uint32 = 1
	CostEnum             uint32 = 1
	CostAddConst         uint32 = 2
	CostDerivedToBase    uint32 = 3
	CostClassToInterface uint32 = 5
	CostUserImplicit     uint32 = 10
	ExplicitCost         uint32 = 100
)

// Plan describes how a value of one type becomes another. Function is
// the constructor or conversion method for user-defined kinds.
type Plan struct {
	Kind     Kind
	Cost     uint32
	Implicit bool
	Function types.TypeKey
}

// IsIdentity reports a zero-cost identity plan.
func (p Plan) IsIdentity() bool { return p.Kind == KindIdentity }

func (p Plan) String() string {
	mode := "implicit"
	if !p.Implicit {
		mode = "explicit"
	}
	return fmt.Sprintf("%s(cost=%d, %s)", p.Kind, p.Cost, mode)
}

func identity() Plan { return Plan{Kind: KindIdentity, Cost: CostIdentity, Implicit: true} }
