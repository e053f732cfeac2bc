package types

// FamilyMask describes broad categories of primitive operands an operator
// accepts.
type FamilyMask uint32

const (
	FamilyNone FamilyMask = 0
	FamilyAny  FamilyMask = 1 << iota
	FamilyBool
	FamilySignedInt
	FamilyUnsignedInt
	FamilyFloat
)

const (
	FamilyIntegral = FamilySignedInt | FamilyUnsignedInt
	FamilyNumeric  = FamilyIntegral | FamilyFloat
)

// BinaryResult describes how to derive the result type for a primitive
// binary operator.
type BinaryResult uint8

const (
	BinaryResultUnknown BinaryResult = iota
	BinaryResultLeft
	BinaryResultBool
	BinaryResultNumeric
)

// BinaryFlags annotate special handling for binary operators.
type BinaryFlags uint16

const (
	BinaryFlagNone       BinaryFlags = 0
	BinaryFlagAssignment BinaryFlags = 1 << iota
	BinaryFlagShortCircuit
	BinaryFlagCommutative
)

// BinarySpec lists operand families and expected result for an operation.
type BinarySpec struct {
	Left   FamilyMask
	Right  FamilyMask
	Result BinaryResult
	Flags  BinaryFlags
}

// UnarySpec describes operand expectations for unary operators.
type UnarySpec struct {
	Operand FamilyMask
	Result  BinaryResult
}

var binarySpecTable = map[Surface][]BinarySpec{
	SurfaceAdd:        {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric, Flags: BinaryFlagCommutative}},
	SurfaceSub:        {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric}},
	SurfaceMul:        {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric, Flags: BinaryFlagCommutative}},
	SurfaceDiv:        {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric}},
	SurfaceMod:        {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric}},
	SurfacePow:        {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric}},
	SurfaceBitAnd:     {{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultNumeric, Flags: BinaryFlagCommutative}},
	SurfaceBitOr:      {{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultNumeric, Flags: BinaryFlagCommutative}},
	SurfaceBitXor:     {{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultNumeric, Flags: BinaryFlagCommutative}},
	SurfaceShl:        {{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft}},
	SurfaceShr:        {{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft}},
	SurfaceLogicalAnd: {{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool, Flags: BinaryFlagShortCircuit}},
	SurfaceLogicalOr:  {{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool, Flags: BinaryFlagShortCircuit}},
	SurfaceEq: {
		{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultBool, Flags: BinaryFlagCommutative},
		{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool, Flags: BinaryFlagCommutative},
	},
	SurfaceNotEq: {
		{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultBool, Flags: BinaryFlagCommutative},
		{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool, Flags: BinaryFlagCommutative},
	},
	SurfaceLess:      {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultBool}},
	SurfaceLessEq:    {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultBool}},
	SurfaceGreater:   {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultBool}},
	SurfaceGreaterEq: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultBool}},
	SurfaceAssign: {
		{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagAssignment},
		{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultLeft, Flags: BinaryFlagAssignment},
	},
	SurfaceAddAssign: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
	SurfaceSubAssign: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
	SurfaceMulAssign: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
	SurfaceDivAssign: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
	SurfaceModAssign: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
	SurfacePowAssign: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
	SurfaceAndAssign: {{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
	SurfaceOrAssign:  {{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
	SurfaceXorAssign: {{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
	SurfaceShlAssign: {{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
	SurfaceShrAssign: {{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagAssignment}},
}

var unarySpecTable = map[Surface]UnarySpec{
	SurfaceNeg:     {Operand: FamilyNumeric, Result: BinaryResultLeft},
	SurfaceCom:     {Operand: FamilyIntegral, Result: BinaryResultLeft},
	SurfaceNot:     {Operand: FamilyBool, Result: BinaryResultBool},
	SurfacePreInc:  {Operand: FamilyNumeric, Result: BinaryResultLeft},
	SurfacePreDec:  {Operand: FamilyNumeric, Result: BinaryResultLeft},
	SurfacePostInc: {Operand: FamilyNumeric, Result: BinaryResultLeft},
	SurfacePostDec: {Operand: FamilyNumeric, Result: BinaryResultLeft},
}

// BinarySpecs returns operand rules for the given operator.
func BinarySpecs(op Surface) []BinarySpec {
	return binarySpecTable[op]
}

// UnarySpecFor returns operand/result hints for unary operators.
func UnarySpecFor(op Surface) (UnarySpec, bool) {
	spec, ok := unarySpecTable[op]
	return spec, ok
}

// FamilyOf classifies a primitive key. Non-primitives report FamilyNone.
func FamilyOf(key TypeKey) FamilyMask {
	if key == BoolKey {
		return FamilyBool
	}
	p, ok := Primitive(key)
	if !ok || !p.Numeric {
		return FamilyNone
	}
	switch {
	case p.Float:
		return FamilyFloat
	case p.Signed:
		return FamilySignedInt
	default:
		return FamilyUnsignedInt
	}
}

// Accepts reports whether mask admits the family f.
func (m FamilyMask) Accepts(f FamilyMask) bool {
	if f == FamilyNone {
		return false
	}
	return m&FamilyAny != 0 || m&f != 0
}
