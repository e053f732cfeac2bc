package conv

import (
	"testing"

	"anvil/internal/catalog"
	"anvil/internal/types"
)

type fixture struct {
	cat     *catalog.Catalog
	chk     *Checker
	base    types.TypeKey
	derived types.TypeKey
	iface   types.TypeKey
	str     types.TypeKey
	color   types.TypeKey
	wrapper types.TypeKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := catalog.New()
	f := &fixture{cat: cat, chk: NewChecker(cat)}
	var err error
	if f.iface, err = cat.RegisterInterface(nil, "IDrawable", catalog.InterfaceInfo{}); err != nil {
		t.Fatalf("interface: %v", err)
	}
	if f.base, err = cat.RegisterClass(nil, "Base", catalog.ClassInfo{Interfaces: []types.TypeKey{f.iface}}); err != nil {
		t.Fatalf("base: %v", err)
	}
	if f.derived, err = cat.RegisterClass(nil, "Derived", catalog.ClassInfo{Base: f.base}); err != nil {
		t.Fatalf("derived: %v", err)
	}
	if f.str, err = cat.RegisterClass(nil, "string", catalog.ClassInfo{ValueType: true}); err != nil {
		t.Fatalf("string: %v", err)
	}
	if f.color, err = cat.RegisterEnum(nil, "Color", catalog.EnumInfo{
		Underlying: types.IntKey,
		Values:     []catalog.EnumValue{{Name: "Red", Value: 0}, {Name: "Green", Value: 1}},
	}); err != nil {
		t.Fatalf("enum: %v", err)
	}
	if f.wrapper, err = cat.RegisterClass(nil, "Wrapper", catalog.ClassInfo{ValueType: true}); err != nil {
		t.Fatalf("wrapper: %v", err)
	}
	return f
}

func (f *fixture) addFunc(t *testing.T, fn *catalog.Function) types.TypeKey {
	t.Helper()
	key, err := f.cat.RegisterFunction(fn)
	if err != nil {
		t.Fatalf("register %s: %v", fn.Name, err)
	}
	return key
}

func TestIdentityForEveryPrimitive(t *testing.T) {
	f := newFixture(t)
	for _, p := range types.Primitives {
		plan, ok := f.chk.CanConvert(types.Simple(p.Key), types.Simple(p.Key))
		if !ok || !plan.IsIdentity() || plan.Cost != 0 {
			t.Fatalf("%s -> %s: got %v, %v", p.Name, p.Name, plan, ok)
		}
	}
}

func TestConstOnlyValueDifferenceIsIdentity(t *testing.T) {
	f := newFixture(t)
	from := types.TypeRef{Base: types.IntKey, IsConst: true}
	plan, ok := f.chk.CanConvert(from, types.Simple(types.IntKey))
	if !ok || !plan.IsIdentity() {
		t.Fatalf("const int -> int: got %v, %v", plan, ok)
	}
	ref := types.Simple(types.IntKey).WithRef(types.RefIn)
	if plan, ok := f.chk.CanConvert(types.Simple(types.IntKey), ref); !ok || !plan.IsIdentity() {
		t.Fatalf("reference mode must not matter: %v, %v", plan, ok)
	}
}

func TestPrimitiveCostsPreferCloserTypes(t *testing.T) {
	f := newFixture(t)
	double := types.Simple(types.DoubleKey)
	toFloat, ok := f.chk.CanConvert(double, types.Simple(types.FloatKey))
	if !ok {
		t.Fatalf("double -> float must be implicit")
	}
	toInt, ok := f.chk.CanConvert(double, types.Simple(types.IntKey))
	if !ok {
		t.Fatalf("double -> int must be implicit")
	}
	if toFloat.Cost >= toInt.Cost {
		t.Fatalf("double->float (%d) must be cheaper than double->int (%d)", toFloat.Cost, toInt.Cost)
	}

	cases := []struct {
		from, to types.TypeKey
		cost     uint32
	}{
		{types.Int8Key, types.IntKey, 1},
		{types.IntKey, types.Int8Key, 2},
		{types.IntKey, types.UintKey, 2},
		{types.IntKey, types.FloatKey, 1},
		{types.Int64Key, types.DoubleKey, 2},
		{types.FloatKey, types.DoubleKey, 1},
		{types.DoubleKey, types.FloatKey, 2},
		{types.FloatKey, types.IntKey, 3},
	}
	for _, tc := range cases {
		plan, ok := f.chk.CanConvert(types.Simple(tc.from), types.Simple(tc.to))
		if !ok || plan.Kind != KindPrimitive || plan.Cost != tc.cost {
			t.Fatalf("%v -> %v: got %v, %v; want cost %d", tc.from, tc.to, plan, ok, tc.cost)
		}
	}
	if _, ok := f.chk.CanConvert(types.Simple(types.BoolKey), types.Simple(types.IntKey)); ok {
		t.Fatalf("bool -> int must not convert")
	}
}

func TestHandleHierarchyIsAsymmetric(t *testing.T) {
	f := newFixture(t)
	plan, ok := f.chk.CanConvert(types.Handle(f.derived), types.Handle(f.base))
	if !ok || plan.Kind != KindDerivedToBase || plan.Cost != CostDerivedToBase {
		t.Fatalf("Derived@ -> Base@: got %v, %v", plan, ok)
	}
	if _, ok := f.chk.CanConvert(types.Handle(f.base), types.Handle(f.derived)); ok {
		t.Fatalf("Base@ -> Derived@ must not convert implicitly")
	}
	plan, ok = f.chk.CanConvert(types.Handle(f.derived), types.Handle(f.iface))
	if !ok || plan.Kind != KindClassToInterface || plan.Cost != CostClassToInterface {
		t.Fatalf("Derived@ -> IDrawable@ through base: got %v, %v", plan, ok)
	}
	plan, ok = f.chk.CanConvert(types.Handle(f.derived), types.ConstHandle(f.base))
	if !ok || plan.Cost != CostDerivedToBase+CostAddConst {
		t.Fatalf("adding const composes: got %v, %v", plan, ok)
	}
}

func TestConstHandleRules(t *testing.T) {
	f := newFixture(t)
	plan, ok := f.chk.CanConvert(types.Handle(f.base), types.ConstHandle(f.base))
	if !ok || plan.Kind != KindHandleToConst || plan.Cost != CostAddConst {
		t.Fatalf("Base@ -> const Base@: got %v, %v", plan, ok)
	}
	if _, ok := f.chk.CanConvert(types.ConstHandle(f.base), types.Handle(f.base)); ok {
		t.Fatalf("dropping const must not be implicit")
	}
	plan, ok = f.chk.CanConvertExplicit(types.ConstHandle(f.base), types.Handle(f.base))
	if !ok || plan.Implicit || plan.Kind != KindConstCast || plan.Cost < ExplicitCost {
		t.Fatalf("explicit const cast: got %v, %v", plan, ok)
	}
}

func TestNullAnyAndError(t *testing.T) {
	f := newFixture(t)
	null := types.Simple(types.NullKey)
	plan, ok := f.chk.CanConvert(null, types.Handle(f.base))
	if !ok || plan.Kind != KindNullToHandle || plan.Cost != CostNullToHandle {
		t.Fatalf("null -> Base@: got %v, %v", plan, ok)
	}
	if _, ok := f.chk.CanConvert(null, types.Simple(types.IntKey)); ok {
		t.Fatalf("null -> int must fail")
	}
	if plan, ok := f.chk.CanConvert(types.Simple(types.IntKey), types.Simple(types.AnyKey)); !ok || plan.Cost != 0 {
		t.Fatalf("int -> ?: got %v, %v", plan, ok)
	}
	for _, other := range []types.TypeRef{types.Simple(types.IntKey), types.Handle(f.base), null} {
		if plan, ok := f.chk.CanConvert(types.ErrorRef, other); !ok || plan.Cost != 0 {
			t.Fatalf("error -> %v must be free", other)
		}
		if plan, ok := f.chk.CanConvert(other, types.ErrorRef); !ok || plan.Cost != 0 {
			t.Fatalf("%v -> error must be free", other)
		}
	}
}

func TestValueToHandle(t *testing.T) {
	f := newFixture(t)
	plan, ok := f.chk.CanConvert(types.Simple(f.base), types.Handle(f.base))
	if !ok || plan.Kind != KindValueToHandle || plan.Cost != CostValueToHandle {
		t.Fatalf("Base -> Base@: got %v, %v", plan, ok)
	}
	if _, ok := f.chk.CanConvert(types.Simple(types.IntKey), types.Handle(types.IntKey)); ok {
		t.Fatalf("primitives have no handles")
	}
}

func TestEnumConversions(t *testing.T) {
	f := newFixture(t)
	color := types.Simple(f.color)
	plan, ok := f.chk.CanConvert(color, types.Simple(types.IntKey))
	if !ok || plan.Kind != KindEnumToInteger || plan.Cost != CostEnum {
		t.Fatalf("Color -> int: got %v, %v", plan, ok)
	}
	plan, ok = f.chk.CanConvert(types.Simple(types.IntKey), color)
	if !ok || plan.Cost != CostEnum {
		t.Fatalf("int -> Color: got %v, %v", plan, ok)
	}
	plan, ok = f.chk.CanConvert(color, types.Simple(types.DoubleKey))
	if !ok || plan.Cost != CostEnum+1 {
		t.Fatalf("Color -> double: got %v, %v", plan, ok)
	}
}

func TestUserDefinedConversions(t *testing.T) {
	f := newFixture(t)
	implicitCtor := f.addFunc(t, &catalog.Function{
		Name: "Wrapper", Owner: f.wrapper, Traits: catalog.Traits{Constructor: true},
		Params: []catalog.Param{{Type: types.Simple(types.IntKey)}},
	})
	explicitCtor := f.addFunc(t, &catalog.Function{
		Name: "Wrapper", Owner: f.wrapper, Traits: catalog.Traits{Constructor: true, Explicit: true},
		Params: []catalog.Param{{Type: types.Simple(f.str)}},
	})
	toInt := f.addFunc(t, &catalog.Function{
		Name: "opImplConv", Owner: f.wrapper, Traits: catalog.Traits{Const: true},
		Return: types.Simple(types.IntKey),
	})
	toStr := f.addFunc(t, &catalog.Function{
		Name: "opConv", Owner: f.wrapper, Return: types.Simple(f.str),
	})

	plan, ok := f.chk.CanConvert(types.Simple(types.IntKey), types.Simple(f.wrapper))
	if !ok || plan.Kind != KindConstructor || plan.Function != implicitCtor || plan.Cost != CostUserImplicit {
		t.Fatalf("int -> Wrapper: got %v, %v", plan, ok)
	}
	if _, ok := f.chk.CanConvert(types.Simple(f.str), types.Simple(f.wrapper)); ok {
		t.Fatalf("explicit constructor must not convert implicitly")
	}
	plan, ok = f.chk.CanConvertExplicit(types.Simple(f.str), types.Simple(f.wrapper))
	if !ok || plan.Function != explicitCtor || plan.Implicit || plan.Cost < ExplicitCost {
		t.Fatalf("explicit string -> Wrapper: got %v, %v", plan, ok)
	}

	plan, ok = f.chk.CanConvert(types.TypeRef{Base: f.wrapper, IsConst: true}, types.Simple(types.IntKey))
	if !ok || plan.Kind != KindImplicitConvMethod || plan.Function != toInt {
		t.Fatalf("const Wrapper -> int via const opImplConv: got %v, %v", plan, ok)
	}
	if _, ok := f.chk.CanConvert(types.Simple(f.wrapper), types.Simple(f.str)); ok {
		t.Fatalf("opConv must not convert implicitly")
	}
	plan, ok = f.chk.CanConvertExplicit(types.Simple(f.wrapper), types.Simple(f.str))
	if !ok || plan.Kind != KindExplicitConvMethod || plan.Function != toStr {
		t.Fatalf("explicit Wrapper -> string: got %v, %v", plan, ok)
	}
	if _, ok := f.chk.CanConvertExplicit(types.TypeRef{Base: f.wrapper, IsConst: true}, types.Simple(f.str)); ok {
		t.Fatalf("non-const opConv must not apply to a const object")
	}
}

func TestImplicitCastToHandle(t *testing.T) {
	f := newFixture(t)
	cast := f.addFunc(t, &catalog.Function{
		Name: "opImplCast", Owner: f.wrapper, Return: types.Handle(f.base),
	})
	plan, ok := f.chk.CanConvert(types.Handle(f.wrapper), types.Handle(f.base))
	if !ok || plan.Kind != KindImplicitCastMethod || plan.Function != cast {
		t.Fatalf("Wrapper@ -> Base@ via opImplCast: got %v, %v", plan, ok)
	}
}

func TestFuncdefHandleIsIdentity(t *testing.T) {
	f := newFixture(t)
	cb, err := f.cat.RegisterFuncdef(nil, "Callback", catalog.FuncdefInfo{Return: types.Simple(types.VoidKey)})
	if err != nil {
		t.Fatalf("funcdef: %v", err)
	}
	plan, ok := f.chk.CanConvert(types.Simple(cb), types.Handle(cb))
	if !ok || !plan.IsIdentity() {
		t.Fatalf("Callback -> Callback@: got %v, %v", plan, ok)
	}
}

func TestExactMatch(t *testing.T) {
	if !ExactMatch(types.Simple(types.IntKey), types.Simple(types.IntKey).WithRef(types.RefIn)) {
		t.Fatalf("reference mode must not affect exact match")
	}
	if ExactMatch(types.Handle(types.IntKey), types.ConstHandle(types.IntKey)) {
		t.Fatalf("handle-to-const differs")
	}
}
