package resolve

import (
	"errors"
	"testing"

	"anvil/internal/catalog"
	"anvil/internal/conv"
	"anvil/internal/instantiate"
	"anvil/internal/semerr"
	"anvil/internal/types"
)

type fixture struct {
	cat   *catalog.Catalog
	r     *Resolver
	array types.TypeKey
	slotT types.TypeKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := catalog.New()
	array, err := cat.RegisterClass(nil, "array", catalog.ClassInfo{})
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	slot, err := cat.RegisterTemplateParam(array, "T")
	if err != nil {
		t.Fatalf("slot: %v", err)
	}
	cat.SetValidator(array, func(info catalog.TemplateInfo) catalog.Verdict {
		if info.Args[0].Base == types.VoidKey {
			return catalog.Reject("void elements")
		}
		return catalog.Accept()
	})
	in := instantiate.New(cat, conv.NewChecker(cat))
	return &fixture{cat: cat, r: NewResolver(cat, in), array: array, slotT: slot}
}

func (f *fixture) class(t *testing.T, ns []string, name string) types.TypeKey {
	t.Helper()
	key, err := f.cat.RegisterClass(ns, name, catalog.ClassInfo{})
	if err != nil {
		t.Fatalf("class %s: %v", name, err)
	}
	return key
}

func TestResolvePrimitivesAndAliases(t *testing.T) {
	f := newFixture(t)
	ref, err := f.r.Resolve(Simple("int32"), Context{})
	if err != nil || ref != types.Simple(types.IntKey) {
		t.Fatalf("int32: %v %v", ref, err)
	}
	ref, err = f.r.Resolve(&TypeExpr{Name: "double", Const: true, Ref: types.RefIn}, Context{})
	if err != nil || !ref.IsConst || ref.Ref != types.RefIn || ref.Base != types.DoubleKey {
		t.Fatalf("const double &in: %v %v", ref, err)
	}
}

func TestNamespaceChainInnermostFirst(t *testing.T) {
	f := newFixture(t)
	outer := f.class(t, []string{"game"}, "Item")
	inner := f.class(t, []string{"game", "ui"}, "Item")
	global := f.class(t, nil, "Item")

	ctx := Context{Namespace: []string{"game", "ui"}}
	ref, err := f.r.Resolve(Simple("Item"), ctx)
	if err != nil || ref.Base != inner {
		t.Fatalf("innermost namespace must win: %v", err)
	}
	ref, _ = f.r.Resolve(Simple("Item"), Context{Namespace: []string{"game"}})
	if ref.Base != outer {
		t.Fatalf("game::Item expected")
	}
	ref, _ = f.r.Resolve(Simple("Item"), Context{})
	if ref.Base != global {
		t.Fatalf("global Item expected")
	}
	ref, _ = f.r.Resolve(&TypeExpr{Absolute: true, Name: "Item"}, ctx)
	if ref.Base != global {
		t.Fatalf("::Item must skip the namespace chain")
	}
	ref, err = f.r.Resolve(&TypeExpr{Scope: []string{"ui"}, Name: "Item"}, Context{Namespace: []string{"game"}})
	if err != nil || ref.Base != inner {
		t.Fatalf("ui::Item relative to game: %v", err)
	}
}

func TestImportsAfterNamespaceChain(t *testing.T) {
	f := newFixture(t)
	lib := f.class(t, []string{"lib"}, "Vec")
	ctx := Context{Namespace: []string{"app"}, Imports: [][]string{{"lib"}}}
	ref, err := f.r.Resolve(Simple("Vec"), ctx)
	if err != nil || ref.Base != lib {
		t.Fatalf("imported Vec: %v", err)
	}
	local := f.class(t, []string{"app"}, "Vec")
	ref, _ = f.r.Resolve(Simple("Vec"), ctx)
	if ref.Base != local {
		t.Fatalf("enclosing namespace must shadow imports")
	}
}

func TestUnknownTypeYieldsErrorRef(t *testing.T) {
	f := newFixture(t)
	ref, err := f.r.Resolve(Simple("Missing"), Context{})
	if !errors.Is(err, semerr.ErrUnknownType) || !ref.IsError() {
		t.Fatalf("expected UnknownType and the error sentinel, got %v %v", ref, err)
	}
	ref, err = f.r.Resolve(&TypeExpr{Name: "array", Args: []*TypeExpr{Simple("Missing")}}, Context{})
	if !errors.Is(err, semerr.ErrUnknownType) || !ref.IsError() {
		t.Fatalf("unknown argument must propagate: %v", err)
	}
}

func TestTemplateArgumentsInstantiate(t *testing.T) {
	f := newFixture(t)
	obj := f.class(t, nil, "Obj")
	expr := &TypeExpr{
		Name:     "array",
		Args:     []*TypeExpr{{Name: "Obj", Suffixes: []Suffix{{Kind: SuffixHandle}}}},
		Suffixes: []Suffix{{Kind: SuffixHandle}},
	}
	ref, err := f.r.Resolve(expr, Context{})
	if err != nil {
		t.Fatalf("array<Obj@>@: %v", err)
	}
	want, ok := f.cat.CachedInstance(f.array, []types.TypeRef{types.Handle(obj)})
	if !ok || ref.Base != want || !ref.IsHandle {
		t.Fatalf("unexpected ref %s", f.cat.RefString(ref))
	}
	again, _ := f.r.Resolve(expr, Context{})
	if again != ref {
		t.Fatalf("resolution must be deterministic")
	}

	_, err = f.r.Resolve(&TypeExpr{Name: "array", Args: []*TypeExpr{Simple("void")}}, Context{})
	if !errors.Is(err, semerr.ErrTemplateValidationRejected) {
		t.Fatalf("validator rejection must surface, got %v", err)
	}
	if _, err := f.r.Resolve(&TypeExpr{Name: "Obj", Args: []*TypeExpr{Simple("int")}}, Context{}); err == nil {
		t.Fatalf("Obj is not a template")
	}
	if _, err := f.r.Resolve(Simple("array"), Context{}); err == nil {
		t.Fatalf("bare template outside its declaration must fail")
	}
}

func TestArraySugarAndSuffixes(t *testing.T) {
	f := newFixture(t)
	ref, err := f.r.Resolve(&TypeExpr{Name: "int", Suffixes: []Suffix{{Kind: SuffixArray}}}, Context{})
	if err != nil {
		t.Fatalf("int[]: %v", err)
	}
	want, _ := f.cat.CachedInstance(f.array, []types.TypeRef{types.Simple(types.IntKey)})
	if ref.Base != want {
		t.Fatalf("int[] must be array<int>")
	}

	obj := f.class(t, nil, "Obj")
	ref, err = f.r.Resolve(&TypeExpr{Name: "Obj", Const: true, Suffixes: []Suffix{{Kind: SuffixHandle, Const: true}}}, Context{})
	if err != nil || !ref.IsHandle || !ref.IsHandleToConst || !ref.IsConst || ref.Base != obj {
		t.Fatalf("const Obj@ const: %s %v", f.cat.RefString(ref), err)
	}
	if _, err := f.r.Resolve(&TypeExpr{Name: "int", Suffixes: []Suffix{{Kind: SuffixHandle}}}, Context{}); err == nil {
		t.Fatalf("int@ must be rejected")
	}
	if _, err := f.r.Resolve(&TypeExpr{Name: "Obj", Suffixes: []Suffix{{Kind: SuffixHandle}, {Kind: SuffixHandle}}}, Context{}); err == nil {
		t.Fatalf("Obj@@ must be rejected")
	}
}

func TestTemplateParameterScope(t *testing.T) {
	f := newFixture(t)
	f.class(t, nil, "T") // a global type named like the parameter
	ctx := Context{TemplateScopes: []TemplateScope{{Owner: "array", Params: []string{"T"}}}}
	ref, err := f.r.Resolve(&TypeExpr{Name: "T", Suffixes: []Suffix{{Kind: SuffixHandle}}}, ctx)
	if err != nil || ref.Base != f.slotT {
		t.Fatalf("T inside array<T> must be the parameter slot: %v", err)
	}
	ref, err = f.r.Resolve(Simple("array"), ctx)
	if err != nil || ref.Base != f.array {
		t.Fatalf("bare array inside its own declaration: %v", err)
	}
}

func TestFunctionsLookup(t *testing.T) {
	f := newFixture(t)
	key, err := f.cat.RegisterFunction(&catalog.Function{Name: "spawn", Namespace: []string{"game"}})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	set := f.r.Functions(nil, "spawn", Context{Namespace: []string{"game", "ai"}})
	if len(set) != 1 || set[0] != key {
		t.Fatalf("spawn must be found through the namespace chain: %v", set)
	}
	if set := f.r.Functions(nil, "spawn", Context{}); len(set) != 0 {
		t.Fatalf("spawn is not global")
	}
}
