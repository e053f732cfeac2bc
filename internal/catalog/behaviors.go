package catalog

import (
	"maps"
	"slices"

	"anvil/internal/types"
)

// Behaviors indexes the special members of a class: constructors and
// operator methods. Values are function keys.
type Behaviors struct {
	Constructors []types.TypeKey
	Operators    map[types.Operator][]types.TypeKey
}

// Operator returns the methods implementing op, in registration order.
func (b *Behaviors) Operator(op types.Operator) []types.TypeKey {
	if b.Operators == nil {
		return nil
	}
	return b.Operators[op]
}

func (b *Behaviors) addOperator(op types.Operator, fn types.TypeKey) {
	if b.Operators == nil {
		b.Operators = make(map[types.Operator][]types.TypeKey)
	}
	b.Operators[op] = append(b.Operators[op], fn)
}

func (b Behaviors) clone() Behaviors {
	out := Behaviors{Constructors: slices.Clone(b.Constructors)}
	if b.Operators != nil {
		out.Operators = maps.Clone(b.Operators)
		for op, keys := range out.Operators {
			out.Operators[op] = slices.Clone(keys)
		}
	}
	return out
}
