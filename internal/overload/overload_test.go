package overload

import (
	"errors"
	"strings"
	"testing"

	"anvil/internal/catalog"
	"anvil/internal/conv"
	"anvil/internal/semerr"
	"anvil/internal/types"
)

func newResolver() (*catalog.Catalog, *Resolver) {
	cat := catalog.New()
	return cat, NewResolver(cat, conv.NewChecker(cat))
}

func register(t *testing.T, cat *catalog.Catalog, fn *catalog.Function) types.TypeKey {
	t.Helper()
	key, err := cat.RegisterFunction(fn)
	if err != nil {
		t.Fatalf("register %s: %v", fn.Name, err)
	}
	return key
}

func params(refs ...types.TypeRef) []catalog.Param {
	out := make([]catalog.Param, len(refs))
	for i, r := range refs {
		out[i] = catalog.Param{Type: r}
	}
	return out
}

var (
	intRef    = types.Simple(types.IntKey)
	floatRef  = types.Simple(types.FloatKey)
	doubleRef = types.Simple(types.DoubleKey)
)

func TestExactMatchWins(t *testing.T) {
	cat, r := newResolver()
	fInt := register(t, cat, &catalog.Function{Name: "f", Params: params(intRef)})
	register(t, cat, &catalog.Function{Name: "f", Params: params(floatRef)})

	m, err := r.Resolve(cat.Overloads("f"), []types.TypeRef{intRef})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.Function != fInt || m.Cost != 0 {
		t.Fatalf("expected f(int) at cost 0, got %v cost %d", m.Function, m.Cost)
	}
}

func TestErrorArgumentIsNotRanked(t *testing.T) {
	cat, r := newResolver()
	register(t, cat, &catalog.Function{Name: "f", Params: params(intRef)})
	register(t, cat, &catalog.Function{Name: "f", Params: params(floatRef)})

	_, err := r.Resolve(cat.Overloads("f"), []types.TypeRef{intRef})
	if err != nil {
		t.Fatalf("plain call: %v", err)
	}
	_, err = r.Resolve(cat.Overloads("f"), []types.TypeRef{types.ErrorRef})
	if !errors.Is(err, ErrErrorArgument) {
		t.Fatalf("error-typed argument must not rank candidates, got %v", err)
	}
	if errors.Is(err, semerr.ErrAmbiguousOverload) {
		t.Fatalf("error-typed argument reported as ambiguity")
	}
	if _, err := r.ResolveMethod(types.ErrorRef, "length", nil); !errors.Is(err, ErrErrorArgument) {
		t.Fatalf("error-typed object: got %v", err)
	}
}

func TestPromotionPrefersFloat(t *testing.T) {
	cat, r := newResolver()
	register(t, cat, &catalog.Function{Name: "f", Params: params(intRef)})
	fFloat := register(t, cat, &catalog.Function{Name: "f", Params: params(floatRef)})

	m, err := r.Resolve(cat.Overloads("f"), []types.TypeRef{doubleRef})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.Function != fFloat {
		t.Fatalf("double argument should pick f(float)")
	}
	if len(m.Plans) != 1 || m.Plans[0].Kind != conv.KindPrimitive {
		t.Fatalf("unexpected plans %v", m.Plans)
	}
}

func TestAmbiguityNamesBothCandidates(t *testing.T) {
	cat, r := newResolver()
	register(t, cat, &catalog.Function{Name: "f", Params: params(intRef, floatRef)})
	register(t, cat, &catalog.Function{Name: "f", Params: params(floatRef, intRef)})

	_, err := r.Resolve(cat.Overloads("f"), []types.TypeRef{intRef, intRef})
	if !errors.Is(err, semerr.ErrAmbiguousOverload) {
		t.Fatalf("expected AmbiguousOverload, got %v", err)
	}
	var se *semerr.Error
	if !errors.As(err, &se) || len(se.Candidates) != 2 {
		t.Fatalf("ambiguity must name both candidates: %v", err)
	}
	if se.Candidates[0] == se.Candidates[1] {
		t.Fatalf("candidates must differ: %v", se.Candidates)
	}
}

func TestExplicitOnlyConversionIsNotViable(t *testing.T) {
	cat, r := newResolver()
	wrapper, err := cat.RegisterClass(nil, "Wrapper", catalog.ClassInfo{ValueType: true})
	if err != nil {
		t.Fatalf("class: %v", err)
	}
	register(t, cat, &catalog.Function{
		Name: "Wrapper", Owner: wrapper, Params: params(intRef),
		Traits: catalog.Traits{Constructor: true, Explicit: true},
	})
	register(t, cat, &catalog.Function{Name: "take", Params: params(types.Simple(wrapper))})

	_, err = r.Resolve(cat.Overloads("take"), []types.TypeRef{intRef})
	if !errors.Is(err, semerr.ErrNoViableOverload) {
		t.Fatalf("expected NoViableOverload, got %v", err)
	}
	if !strings.Contains(err.Error(), "take") {
		t.Fatalf("error must name the function: %v", err)
	}
}

func TestArityWindowAndVariadic(t *testing.T) {
	cat, r := newResolver()
	withDefault := register(t, cat, &catalog.Function{
		Name:   "g",
		Params: []catalog.Param{{Type: intRef}, {Type: intRef, HasDefault: true}},
	})
	printKey := register(t, cat, &catalog.Function{
		Name:   "print",
		Params: params(types.Simple(types.AnyKey)),
		Traits: catalog.Traits{Variadic: true},
	})

	for _, n := range []int{1, 2} {
		args := make([]types.TypeRef, n)
		for i := range args {
			args[i] = intRef
		}
		m, err := r.Resolve(cat.Overloads("g"), args)
		if err != nil || m.Function != withDefault {
			t.Fatalf("g with %d args: %v", n, err)
		}
	}
	if _, err := r.Resolve(cat.Overloads("g"), []types.TypeRef{intRef, intRef, intRef}); err == nil {
		t.Fatalf("three args must exceed g's window")
	}
	m, err := r.Resolve(cat.Overloads("print"), []types.TypeRef{intRef, doubleRef, types.Simple(types.BoolKey)})
	if err != nil || m.Function != printKey || m.Cost != 0 {
		t.Fatalf("variadic print: %v %v", m, err)
	}
}

func TestStableOrderOnDistinctCosts(t *testing.T) {
	cat, r := newResolver()
	register(t, cat, &catalog.Function{Name: "h", Params: params(types.Simple(types.Int8Key))})
	h64 := register(t, cat, &catalog.Function{Name: "h", Params: params(types.Simple(types.Int64Key))})

	m, err := r.Resolve(cat.Overloads("h"), []types.TypeRef{intRef})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.Function != h64 || m.Cost != 1 {
		t.Fatalf("widening should beat narrowing, got cost %d", m.Cost)
	}
}

type vecFixture struct {
	cat  *catalog.Catalog
	r    *Resolver
	vec  types.TypeKey
	add  types.TypeKey
	mulR types.TypeKey
	eq   types.TypeKey
	cmp  types.TypeKey
	idx  types.TypeKey
	neg  types.TypeKey
}

func newVecFixture(t *testing.T) *vecFixture {
	t.Helper()
	cat, r := newResolver()
	vec, err := cat.RegisterClass(nil, "vec2", catalog.ClassInfo{ValueType: true})
	if err != nil {
		t.Fatalf("class: %v", err)
	}
	v := types.Simple(vec)
	f := &vecFixture{cat: cat, r: r, vec: vec}
	f.add = register(t, cat, &catalog.Function{Name: "opAdd", Owner: vec, Params: params(v), Return: v, Traits: catalog.Traits{Const: true}})
	f.mulR = register(t, cat, &catalog.Function{Name: "opMul_r", Owner: vec, Params: params(floatRef), Return: v, Traits: catalog.Traits{Const: true}})
	f.eq = register(t, cat, &catalog.Function{Name: "opEquals", Owner: vec, Params: params(v), Return: boolRef, Traits: catalog.Traits{Const: true}})
	f.cmp = register(t, cat, &catalog.Function{Name: "opCmp", Owner: vec, Params: params(floatRef), Return: intRef, Traits: catalog.Traits{Const: true}})
	f.idx = register(t, cat, &catalog.Function{Name: "opIndex", Owner: vec, Params: params(types.Simple(types.UintKey)), Return: floatRef})
	f.neg = register(t, cat, &catalog.Function{Name: "opNeg", Owner: vec, Return: v, Traits: catalog.Traits{Const: true}})
	return f
}

func TestBinaryForwardThenReverse(t *testing.T) {
	f := newVecFixture(t)
	v := types.Simple(f.vec)

	m, err := f.r.ResolveBinary(types.SurfaceAdd, v, v)
	if err != nil || m.Function != f.add || m.Operand != OperandLeft || m.Via != ViaDirect {
		t.Fatalf("vec2 + vec2: %+v %v", m, err)
	}
	m, err = f.r.ResolveBinary(types.SurfaceMul, floatRef, v)
	if err != nil || m.Function != f.mulR || m.Operand != OperandRight {
		t.Fatalf("float * vec2 must use opMul_r on the right: %+v %v", m, err)
	}
	if _, err := f.r.ResolveBinary(types.SurfaceSub, v, v); err == nil {
		t.Fatalf("vec2 - vec2 has no method and is not primitive")
	}
}

func TestEqualityAndOrderingFallbacks(t *testing.T) {
	f := newVecFixture(t)
	v := types.Simple(f.vec)

	m, err := f.r.ResolveBinary(types.SurfaceNotEq, v, v)
	if err != nil || m.Function != f.eq || m.Via != ViaEquals || !m.Negate || m.Result != boolRef {
		t.Fatalf("vec2 != vec2: %+v %v", m, err)
	}
	m, err = f.r.ResolveBinary(types.SurfaceLess, v, floatRef)
	if err != nil || m.Function != f.cmp || m.Via != ViaCmp || m.Compare != types.SurfaceLess {
		t.Fatalf("vec2 < float: %+v %v", m, err)
	}
	m, err = f.r.ResolveBinary(types.SurfaceLess, floatRef, v)
	if err != nil || m.Operand != OperandRight || m.Compare != types.SurfaceGreater {
		t.Fatalf("float < vec2 must mirror to >: %+v %v", m, err)
	}
}

func TestUnaryAndIndex(t *testing.T) {
	f := newVecFixture(t)
	v := types.Simple(f.vec)

	m, err := f.r.ResolveUnary(types.SurfaceNeg, v)
	if err != nil || m.Function != f.neg {
		t.Fatalf("-vec2: %+v %v", m, err)
	}
	m, err = f.r.ResolveIndex(v, []types.TypeRef{intRef})
	if err != nil || m.Function != f.idx || m.Result != floatRef {
		t.Fatalf("vec2[int]: %+v %v", m, err)
	}
	constVec := types.TypeRef{Base: f.vec, IsConst: true}
	if _, err := f.r.ResolveIndex(constVec, []types.TypeRef{intRef}); err == nil {
		t.Fatalf("non-const opIndex must not apply to a const object")
	}
}

func TestPrimitiveOperators(t *testing.T) {
	_, r := newResolver()
	m, err := r.ResolveBinary(types.SurfaceAdd, intRef, doubleRef)
	if err != nil || m.Via != ViaPrimitive || m.Result != doubleRef {
		t.Fatalf("int + double: %+v %v", m, err)
	}
	m, err = r.ResolveBinary(types.SurfaceLess, intRef, floatRef)
	if err != nil || m.Result != boolRef {
		t.Fatalf("int < float: %+v %v", m, err)
	}
	m, err = r.ResolveBinary(types.SurfaceShl, types.Simple(types.Int8Key), intRef)
	if err != nil || m.Result != types.Simple(types.Int8Key) {
		t.Fatalf("int8 << int keeps the left type: %+v %v", m, err)
	}
	if _, err := r.ResolveBinary(types.SurfaceBitAnd, floatRef, intRef); err == nil {
		t.Fatalf("float & int must be rejected")
	}
	if _, err := r.ResolveBinary(types.SurfaceLogicalAnd, intRef, intRef); err == nil {
		t.Fatalf("&& needs bool operands")
	}
	m, err = r.ResolveUnary(types.SurfaceNot, boolRef)
	if err != nil || m.Result != boolRef {
		t.Fatalf("!bool: %+v %v", m, err)
	}
	m, err = r.ResolveBinary(types.SurfaceAdd, types.ErrorRef, intRef)
	if err != nil || !m.Result.IsError() {
		t.Fatalf("error operands must not cascade: %+v %v", m, err)
	}
}

func TestResolveMethodRespectsConst(t *testing.T) {
	cat, r := newResolver()
	cls, _ := cat.RegisterClass(nil, "Counter", catalog.ClassInfo{})
	get := register(t, cat, &catalog.Function{Name: "get", Owner: cls, Return: intRef, Traits: catalog.Traits{Const: true}})
	register(t, cat, &catalog.Function{Name: "bump", Owner: cls})

	m, err := r.ResolveMethod(types.ConstHandle(cls), "get", nil)
	if err != nil || m.Function != get {
		t.Fatalf("const get: %v", err)
	}
	if _, err := r.ResolveMethod(types.ConstHandle(cls), "bump", nil); err == nil {
		t.Fatalf("bump is not const")
	}
}

func TestMutableObjectPrefersNonConstTwin(t *testing.T) {
	cat, r := newResolver()
	cls, _ := cat.RegisterClass(nil, "buffer", catalog.ClassInfo{})
	u := types.Simple(types.UintKey)
	mut := register(t, cat, &catalog.Function{Name: "opIndex", Owner: cls, Params: params(u), Return: intRef.WithRef(types.RefInOut)})
	ro := register(t, cat, &catalog.Function{Name: "opIndex", Owner: cls, Params: params(u), Return: intRef, Traits: catalog.Traits{Const: true}})

	m, err := r.ResolveIndex(types.Handle(cls), []types.TypeRef{u})
	if err != nil || m.Function != mut {
		t.Fatalf("mutable object: %+v %v", m, err)
	}
	m, err = r.ResolveIndex(types.ConstHandle(cls), []types.TypeRef{u})
	if err != nil || m.Function != ro {
		t.Fatalf("read-only object: %+v %v", m, err)
	}
}
