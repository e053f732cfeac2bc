package types

import "fmt"

// Operator names a behaviour a class may implement through a specially
// named method.
type Operator uint8

const (
	OpNone Operator = iota

	// assignment
	OpAssign
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpModAssign
	OpPowAssign
	OpAndAssign
	OpOrAssign
	OpXorAssign
	OpShlAssign
	OpShrAssign

	// binary, forward and reverse
	OpAdd
	OpAddR
	OpSub
	OpSubR
	OpMul
	OpMulR
	OpDiv
	OpDivR
	OpMod
	OpModR
	OpPow
	OpPowR
	OpAnd
	OpAndR
	OpOr
	OpOrR
	OpXor
	OpXorR
	OpShl
	OpShlR
	OpShr
	OpShrR

	// comparison
	OpEquals
	OpCmp

	// unary
	OpNeg
	OpCom
	OpPreInc
	OpPreDec
	OpPostInc
	OpPostDec

	// index and call
	OpIndex
	OpCall

	// conversion
	OpConv
	OpImplConv
	OpCast
	OpImplCast
)

var operatorNames = map[Operator]string{
	OpAssign: "opAssign", OpAddAssign: "opAddAssign", OpSubAssign: "opSubAssign",
	OpMulAssign: "opMulAssign", OpDivAssign: "opDivAssign", OpModAssign: "opModAssign",
	OpPowAssign: "opPowAssign", OpAndAssign: "opAndAssign", OpOrAssign: "opOrAssign",
	OpXorAssign: "opXorAssign", OpShlAssign: "opShlAssign", OpShrAssign: "opShrAssign",
	OpAdd: "opAdd", OpAddR: "opAdd_r", OpSub: "opSub", OpSubR: "opSub_r",
	OpMul: "opMul", OpMulR: "opMul_r", OpDiv: "opDiv", OpDivR: "opDiv_r",
	OpMod: "opMod", OpModR: "opMod_r", OpPow: "opPow", OpPowR: "opPow_r",
	OpAnd: "opAnd", OpAndR: "opAnd_r", OpOr: "opOr", OpOrR: "opOr_r",
	OpXor: "opXor", OpXorR: "opXor_r", OpShl: "opShl", OpShlR: "opShl_r",
	OpShr: "opShr", OpShrR: "opShr_r",
	OpEquals: "opEquals", OpCmp: "opCmp",
	OpNeg: "opNeg", OpCom: "opCom", OpPreInc: "opPreInc", OpPreDec: "opPreDec",
	OpPostInc: "opPostInc", OpPostDec: "opPostDec",
	OpIndex: "opIndex", OpCall: "opCall",
	OpConv: "opConv", OpImplConv: "opImplConv", OpCast: "opCast", OpImplCast: "opImplCast",
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames))
	for op, name := range operatorNames {
		m[name] = op
	}
	return m
}()

// MethodName returns the method name implementing op.
func (op Operator) MethodName() string {
	return operatorNames[op]
}

func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", op)
}

// OperatorFromMethodName maps "opAdd" to OpAdd. Ordinary method names
// report false.
func OperatorFromMethodName(name string) (Operator, bool) {
	op, ok := operatorsByName[name]
	return op, ok
}

// IsConversion reports whether op is one of the four conversion operators.
func (op Operator) IsConversion() bool {
	return op == OpConv || op == OpImplConv || op == OpCast || op == OpImplCast
}

// Surface is an operator as written in source.
type Surface uint8

const (
	SurfaceInvalid Surface = iota
	SurfaceAdd
	SurfaceSub
	SurfaceMul
	SurfaceDiv
	SurfaceMod
	SurfacePow
	SurfaceBitAnd
	SurfaceBitOr
	SurfaceBitXor
	SurfaceShl
	SurfaceShr
	SurfaceEq
	SurfaceNotEq
	SurfaceLess
	SurfaceLessEq
	SurfaceGreater
	SurfaceGreaterEq
	SurfaceLogicalAnd
	SurfaceLogicalOr
	SurfaceAssign
	SurfaceAddAssign
	SurfaceSubAssign
	SurfaceMulAssign
	SurfaceDivAssign
	SurfaceModAssign
	SurfacePowAssign
	SurfaceAndAssign
	SurfaceOrAssign
	SurfaceXorAssign
	SurfaceShlAssign
	SurfaceShrAssign
	SurfaceNeg
	SurfaceCom
	SurfaceNot
	SurfacePreInc
	SurfacePreDec
	SurfacePostInc
	SurfacePostDec
)

var surfaceText = map[Surface]string{
	SurfaceAdd: "+", SurfaceSub: "-", SurfaceMul: "*", SurfaceDiv: "/", SurfaceMod: "%",
	SurfacePow: "**", SurfaceBitAnd: "&", SurfaceBitOr: "|", SurfaceBitXor: "^",
	SurfaceShl: "<<", SurfaceShr: ">>",
	SurfaceEq: "==", SurfaceNotEq: "!=", SurfaceLess: "<", SurfaceLessEq: "<=",
	SurfaceGreater: ">", SurfaceGreaterEq: ">=",
	SurfaceLogicalAnd: "&&", SurfaceLogicalOr: "||",
	SurfaceAssign: "=", SurfaceAddAssign: "+=", SurfaceSubAssign: "-=", SurfaceMulAssign: "*=",
	SurfaceDivAssign: "/=", SurfaceModAssign: "%=", SurfacePowAssign: "**=",
	SurfaceAndAssign: "&=", SurfaceOrAssign: "|=", SurfaceXorAssign: "^=",
	SurfaceShlAssign: "<<=", SurfaceShrAssign: ">>=",
	SurfaceNeg: "-x", SurfaceCom: "~", SurfaceNot: "!",
	SurfacePreInc: "++x", SurfacePreDec: "--x", SurfacePostInc: "x++", SurfacePostDec: "x--",
}

var surfaceByText = func() map[string]Surface {
	m := make(map[string]Surface, len(surfaceText))
	for s, text := range surfaceText {
		m[text] = s
	}
	return m
}()

func (s Surface) String() string {
	if text, ok := surfaceText[s]; ok {
		return text
	}
	return "?"
}

// ParseSurface maps operator text ("+", "<=", "x++") to a Surface.
func ParseSurface(text string) (Surface, bool) {
	s, ok := surfaceByText[text]
	return s, ok
}

// SurfaceBinding tells the overload resolver which methods implement a
// surface operator.
type SurfaceBinding struct {
	Forward Operator
	Reverse Operator // OpNone when the operator has no reverse form
}

var surfaceBindings = map[Surface]SurfaceBinding{
	SurfaceAdd:       {OpAdd, OpAddR},
	SurfaceSub:       {OpSub, OpSubR},
	SurfaceMul:       {OpMul, OpMulR},
	SurfaceDiv:       {OpDiv, OpDivR},
	SurfaceMod:       {OpMod, OpModR},
	SurfacePow:       {OpPow, OpPowR},
	SurfaceBitAnd:    {OpAnd, OpAndR},
	SurfaceBitOr:     {OpOr, OpOrR},
	SurfaceBitXor:    {OpXor, OpXorR},
	SurfaceShl:       {OpShl, OpShlR},
	SurfaceShr:       {OpShr, OpShrR},
	SurfaceEq:        {OpEquals, OpNone},
	SurfaceNotEq:     {OpEquals, OpNone},
	SurfaceLess:      {OpCmp, OpNone},
	SurfaceLessEq:    {OpCmp, OpNone},
	SurfaceGreater:   {OpCmp, OpNone},
	SurfaceGreaterEq: {OpCmp, OpNone},
	SurfaceAssign:    {OpAssign, OpNone},
	SurfaceAddAssign: {OpAddAssign, OpNone},
	SurfaceSubAssign: {OpSubAssign, OpNone},
	SurfaceMulAssign: {OpMulAssign, OpNone},
	SurfaceDivAssign: {OpDivAssign, OpNone},
	SurfaceModAssign: {OpModAssign, OpNone},
	SurfacePowAssign: {OpPowAssign, OpNone},
	SurfaceAndAssign: {OpAndAssign, OpNone},
	SurfaceOrAssign:  {OpOrAssign, OpNone},
	SurfaceXorAssign: {OpXorAssign, OpNone},
	SurfaceShlAssign: {OpShlAssign, OpNone},
	SurfaceShrAssign: {OpShrAssign, OpNone},
	SurfaceNeg:       {OpNeg, OpNone},
	SurfaceCom:       {OpCom, OpNone},
	SurfacePreInc:    {OpPreInc, OpNone},
	SurfacePreDec:    {OpPreDec, OpNone},
	SurfacePostInc:   {OpPostInc, OpNone},
	SurfacePostDec:   {OpPostDec, OpNone},
}

// Binding returns the methods implementing s.
func (s Surface) Binding() (SurfaceBinding, bool) {
	b, ok := surfaceBindings[s]
	return b, ok
}

// IsEquality reports == and !=.
func (s Surface) IsEquality() bool { return s == SurfaceEq || s == SurfaceNotEq }

// IsOrdering reports <, <=, > and >=.
func (s Surface) IsOrdering() bool {
	return s == SurfaceLess || s == SurfaceLessEq || s == SurfaceGreater || s == SurfaceGreaterEq
}

// IsUnary reports prefix/postfix operators.
func (s Surface) IsUnary() bool { return s >= SurfaceNeg }

// Mirror returns the ordering with operands swapped (a < b  <=>  b > a).
func (s Surface) Mirror() Surface {
	switch s {
	case SurfaceLess:
		return SurfaceGreater
	case SurfaceLessEq:
		return SurfaceGreaterEq
	case SurfaceGreater:
		return SurfaceLess
	case SurfaceGreaterEq:
		return SurfaceLessEq
	default:
		return s
	}
}
