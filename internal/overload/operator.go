package overload

import (
	"errors"

	"anvil/internal/catalog"
	"anvil/internal/conv"
	"anvil/internal/diag"
	"anvil/internal/semerr"
	"anvil/internal/types"
)

// Operand names which side of a binary expression supplies the method.
type Operand uint8

const (
	OperandNone Operand = iota // primitive operator, no method
	OperandLeft
	OperandRight
)

// Via tells the code generator how the operator is carried out.
type Via uint8

const (
	ViaPrimitive Via = iota
	ViaDirect        // the named operator method
	ViaEquals        // opEquals, possibly negated
	ViaCmp           // opCmp compared against zero
)

// OperatorMatch is the outcome of operator resolution.
//
// For ViaCmp the method result is compared against zero with Compare,
// which is already mirrored when the method lives on the right operand.
// For ViaPrimitive, Common is the type both operands are converted to.
type OperatorMatch struct {
	Function types.TypeKey
	Operand  Operand
	Via      Via
	Negate   bool
	Compare  types.Surface
	Result   types.TypeRef
	Common   types.TypeRef
	Plans    []conv.Plan
}

var boolRef = types.Simple(types.BoolKey)

// ResolveBinary resolves left op right.
//
// The left operand's forward method is tried first, then the right
// operand's reverse method; a match never mixes the two. == and != go
// through opEquals; ordering operators go through opCmp. Primitive
// operands are checked against the operator family table.
func (r *Resolver) ResolveBinary(op types.Surface, left, right types.TypeRef) (OperatorMatch, error) {
	if left.IsError() || right.IsError() {
		return OperatorMatch{Result: types.ErrorRef}, nil
	}
	switch {
	case op.IsEquality():
		if m, ok, err := r.comparison(types.OpEquals, left, right); ok || err != nil {
			m.Via = ViaEquals
			m.Negate = op == types.SurfaceNotEq
			m.Result = boolRef
			return m, err
		}
	case op.IsOrdering():
		if m, ok, err := r.comparison(types.OpCmp, left, right); ok || err != nil {
			m.Via = ViaCmp
			m.Compare = op
			if m.Operand == OperandRight {
				m.Compare = op.Mirror()
			}
			m.Result = boolRef
			return m, err
		}
	default:
		if binding, ok := op.Binding(); ok {
			if m, ok, err := r.methodOperator(binding.Forward, left, right, OperandLeft); ok || err != nil {
				return m, err
			}
			if binding.Reverse != types.OpNone {
				if m, ok, err := r.methodOperator(binding.Reverse, right, left, OperandRight); ok || err != nil {
					return m, err
				}
			}
		}
	}
	return r.primitiveBinary(op, left, right)
}

// comparison tries the comparison method on the left operand, then on
// the right with the operands swapped.
func (r *Resolver) comparison(method types.Operator, left, right types.TypeRef) (OperatorMatch, bool, error) {
	if m, ok, err := r.methodOperator(method, left, right, OperandLeft); ok || err != nil {
		return m, ok, err
	}
	return r.methodOperator(method, right, left, OperandRight)
}

// methodOperator resolves obj.method(arg). A missing or non-viable method
// reports ok=false so the caller can try the next form; ambiguity is an
// error.
func (r *Resolver) methodOperator(method types.Operator, obj, arg types.TypeRef, side Operand) (OperatorMatch, bool, error) {
	if !r.isClass(obj.Base) {
		return OperatorMatch{}, false, nil
	}
	keys := r.constFilter(obj, r.cat.OperatorMethods(obj.Base, method))
	if len(keys) == 0 {
		return OperatorMatch{}, false, nil
	}
	m, err := r.Resolve(keys, []types.TypeRef{arg})
	if err != nil {
		if errors.Is(err, semerr.ErrNoViableOverload) {
			return OperatorMatch{}, false, nil
		}
		return OperatorMatch{}, false, err
	}
	return OperatorMatch{
		Function: m.Function,
		Operand:  side,
		Via:      ViaDirect,
		Result:   r.returnOf(m.Function),
		Plans:    m.Plans,
	}, true, nil
}

func (r *Resolver) primitiveBinary(op types.Surface, left, right types.TypeRef) (OperatorMatch, error) {
	lk, rk := r.underlying(left.Base), r.underlying(right.Base)
	lf, rf := types.FamilyOf(lk), types.FamilyOf(rk)
	if !left.IsHandle && !right.IsHandle {
		for _, spec := range types.BinarySpecs(op) {
			if !spec.Left.Accepts(lf) || !spec.Right.Accepts(rf) {
				continue
			}
			return r.primitiveMatch(spec, left, lk, rk)
		}
	}
	return OperatorMatch{}, semerr.New(semerr.NoViableOverload, op.String(),
		r.cat.RefString(left), r.cat.RefString(right)).WithCode(diag.SemaInvalidOperands)
}

func (r *Resolver) primitiveMatch(spec types.BinarySpec, left types.TypeRef, lk, rk types.TypeKey) (OperatorMatch, error) {
	m := OperatorMatch{Via: ViaPrimitive}
	if spec.Flags&types.BinaryFlagAssignment != 0 {
		// the right side converts to the left; the left keeps its type
		plan, ok := r.chk.CanConvert(types.Simple(rk), types.Simple(lk))
		if !ok {
			return OperatorMatch{}, semerr.New(semerr.InvalidConversion, r.cat.TypeName(rk), r.cat.TypeName(lk))
		}
		m.Common = types.Simple(lk)
		m.Plans = []conv.Plan{{Kind: conv.KindIdentity, Implicit: true}, plan}
		m.Result = types.Simple(left.Base)
		return m, nil
	}

	common := commonNumeric(lk, rk)
	m.Common = types.Simple(common)
	lp, _ := r.chk.CanConvert(types.Simple(lk), m.Common)
	rp, _ := r.chk.CanConvert(types.Simple(rk), m.Common)
	m.Plans = []conv.Plan{lp, rp}
	switch spec.Result {
	case types.BinaryResultBool:
		m.Result = boolRef
	case types.BinaryResultLeft:
		m.Result = types.Simple(lk)
		m.Common = types.Simple(lk)
		m.Plans = []conv.Plan{{Kind: conv.KindIdentity, Implicit: true}, {Kind: conv.KindIdentity, Implicit: true}}
	default:
		m.Result = m.Common
	}
	return m, nil
}

// commonNumeric picks the operand type the other converts to more
// cheaply. Ties keep the left type.
func commonNumeric(lk, rk types.TypeKey) types.TypeKey {
	if lk == rk {
		return lk
	}
	toRight, okR := conv.PrimitiveCost(lk, rk)
	toLeft, okL := conv.PrimitiveCost(rk, lk)
	if !okR || !okL {
		return lk
	}
	if toRight < toLeft {
		return rk
	}
	return lk
}

// ResolveUnary resolves a prefix or postfix operator.
func (r *Resolver) ResolveUnary(op types.Surface, operand types.TypeRef) (OperatorMatch, error) {
	if operand.IsError() {
		return OperatorMatch{Result: types.ErrorRef}, nil
	}
	if binding, ok := op.Binding(); ok && r.isClass(operand.Base) {
		keys := r.constFilter(operand, r.cat.OperatorMethods(operand.Base, binding.Forward))
		if len(keys) > 0 {
			m, err := r.Resolve(keys, nil)
			if err != nil {
				return OperatorMatch{}, err
			}
			return OperatorMatch{
				Function: m.Function,
				Operand:  OperandLeft,
				Via:      ViaDirect,
				Result:   r.returnOf(m.Function),
			}, nil
		}
	}
	spec, ok := types.UnarySpecFor(op)
	base := r.underlying(operand.Base)
	if !ok || operand.IsHandle || !spec.Operand.Accepts(types.FamilyOf(base)) {
		return OperatorMatch{}, semerr.New(semerr.NoViableOverload, op.String(), r.cat.RefString(operand)).
			WithCode(diag.SemaInvalidOperands)
	}
	m := OperatorMatch{Via: ViaPrimitive, Common: types.Simple(base)}
	if spec.Result == types.BinaryResultBool {
		m.Result = boolRef
	} else {
		m.Result = types.Simple(base)
	}
	return m, nil
}

// ResolveIndex resolves obj[args...] through opIndex.
func (r *Resolver) ResolveIndex(obj types.TypeRef, args []types.TypeRef) (OperatorMatch, error) {
	if obj.IsError() {
		return OperatorMatch{Result: types.ErrorRef}, nil
	}
	keys := r.constFilter(obj, r.cat.OperatorMethods(obj.Base, types.OpIndex))
	if len(keys) == 0 {
		return OperatorMatch{}, semerr.New(semerr.NoViableOverload, r.cat.TypeName(obj.Base)+"::opIndex").
			WithCode(diag.SemaInvalidOperands)
	}
	m, err := r.Resolve(keys, args)
	if err != nil {
		return OperatorMatch{}, err
	}
	return OperatorMatch{
		Function: m.Function,
		Operand:  OperandLeft,
		Via:      ViaDirect,
		Result:   r.returnOf(m.Function),
		Plans:    m.Plans,
	}, nil
}

func (r *Resolver) isClass(key types.TypeKey) bool {
	e, ok := r.cat.Get(key)
	return ok && e.Kind == catalog.KindClass
}

// underlying maps an enum to its integer type.
func (r *Resolver) underlying(key types.TypeKey) types.TypeKey {
	if e, ok := r.cat.Get(key); ok && e.Kind == catalog.KindEnum {
		return e.Enum.Underlying
	}
	return key
}

func (r *Resolver) returnOf(fn types.TypeKey) types.TypeRef {
	if f, ok := r.cat.Function(fn); ok {
		return f.Return
	}
	return types.ErrorRef
}
