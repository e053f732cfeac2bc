package conv

import "anvil/internal/types"

// primitiveCost[from][to] is the cost of converting between numeric
// primitives. Every primitive conversion is implicit; the cost encodes
// preference:
//
//	same type                 0
//	widening (same sign)      1
//	narrowing (same sign)     2
//	signed <-> unsigned       2
//	integer -> float/double   1, or 2 from a 64-bit integer
//	float -> double           1
//	double -> float           2
//	float/double -> integer   3
var primitiveCost = buildPrimitiveCosts()

func buildPrimitiveCosts() [types.PrimCount][types.PrimCount]uint8 {
	var table [types.PrimCount][types.PrimCount]uint8
	for _, from := range types.Primitives {
		if !from.Numeric {
			continue
		}
		for _, to := range types.Primitives {
			if !to.Numeric {
				continue
			}
			table[from.Kind][to.Kind] = primitiveRule(from, to)
		}
	}
	return table
}

func primitiveRule(from, to types.PrimInfo) uint8 {
	switch {
	case from.Kind == to.Kind:
		return 0
	case from.Float && to.Float:
		if to.Size > from.Size {
			return 1
		}
		return 2
	case from.Float:
		return 3
	case to.Float:
		if from.Size == 8 {
			return 2
		}
		return 1
	case from.Signed != to.Signed:
		return 2
	case to.Size > from.Size:
		return 1
	default:
		return 2
	}
}

// PrimitiveCost returns the table cost between two numeric primitives.
func PrimitiveCost(from, to types.TypeKey) (uint32, bool) {
	fk, ok := types.NumericKind(from)
	if !ok {
		return 0, false
	}
	tk, ok := types.NumericKind(to)
	if !ok {
		return 0, false
	}
	return uint32(primitiveCost[fk][tk]), true
}
