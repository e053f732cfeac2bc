package instantiate

import (
	"errors"
	"sync"
	"testing"

	"anvil/internal/catalog"
	"anvil/internal/conv"
	"anvil/internal/semerr"
	"anvil/internal/testkit"
	"anvil/internal/types"
)

type arrayFixture struct {
	cat   *catalog.Catalog
	in    *Instantiator
	array types.TypeKey
	slotT types.TypeKey
}

// newArrayFixture registers array<T> with a length method, an opIndex
// returning T& and an opAssign taking the template itself.
func newArrayFixture(t *testing.T, opts ...Option) *arrayFixture {
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
	mustFn(t, cat, &catalog.Function{Name: "length", Owner: array, Return: types.Simple(types.UintKey), Traits: catalog.Traits{Const: true}})
	mustFn(t, cat, &catalog.Function{
		Name: "opIndex", Owner: array,
		Params: []catalog.Param{{Type: types.Simple(types.UintKey)}},
		Return: types.Simple(slot).WithRef(types.RefInOut),
	})
	mustFn(t, cat, &catalog.Function{
		Name: "opAssign", Owner: array,
		Params: []catalog.Param{{Type: types.TypeRef{Base: array, IsConst: true, Ref: types.RefIn}}},
		Return: types.Handle(array),
	})
	return &arrayFixture{cat: cat, in: New(cat, conv.NewChecker(cat), opts...), array: array, slotT: slot}
}

func mustFn(t *testing.T, cat *catalog.Catalog, fn *catalog.Function) types.TypeKey {
	t.Helper()
	key, err := cat.RegisterFunction(fn)
	if err != nil {
		t.Fatalf("register %s: %v", fn.Name, err)
	}
	return key
}

func TestInstantiateSubstitutesMembers(t *testing.T) {
	f := newArrayFixture(t)
	key, err := f.in.Instantiate(f.array, []types.TypeRef{types.Simple(types.FloatKey)})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	e, ok := f.cat.Get(key)
	if !ok || !e.IsInstance() || e.Name != "array<float>" {
		t.Fatalf("unexpected instance entry %+v", e)
	}
	idx := f.cat.Methods(key, "opIndex")
	if len(idx) != 1 {
		t.Fatalf("opIndex not published on the instance")
	}
	fn, _ := f.cat.Function(idx[0])
	if fn.Return.Base != types.FloatKey || fn.Return.Ref != types.RefInOut || fn.Owner != key {
		t.Fatalf("opIndex not substituted: %+v", fn.Return)
	}
	assign := f.cat.OperatorMethods(key, types.OpAssign)
	if len(assign) != 1 {
		t.Fatalf("opAssign behaviour missing")
	}
	fn, _ = f.cat.Function(assign[0])
	if fn.Params[0].Type.Base != key || fn.Return.Base != key {
		t.Fatalf("self reference must resolve to the instance key")
	}
}

func TestInstantiateIsCached(t *testing.T) {
	f := newArrayFixture(t)
	args := []types.TypeRef{types.Simple(types.IntKey)}
	k1, err := f.in.Instantiate(f.array, args)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	k2, err := f.in.Instantiate(f.array, args)
	if err != nil || k1 != k2 {
		t.Fatalf("second request must hit the cache: %v %v %v", k1, k2, err)
	}
	if cached, ok := f.cat.CachedInstance(f.array, args); !ok || cached != k1 {
		t.Fatalf("cache entry missing")
	}
	k3, err := f.in.Instantiate(f.array, []types.TypeRef{types.Handle(types.IntKey)})
	if err != nil {
		t.Fatalf("handle arg: %v", err)
	}
	if k3 == k1 {
		t.Fatalf("array<int@> must differ from array<int>")
	}
}

func TestConcurrentRequestsAgree(t *testing.T) {
	f := newArrayFixture(t)
	args := []types.TypeRef{types.Simple(types.DoubleKey)}
	const workers = 32
	keys := make([]types.TypeKey, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := f.in.Instantiate(f.array, args)
			if err != nil {
				t.Errorf("instantiate: %v", err)
			}
			keys[i] = k
		}(i)
	}
	wg.Wait()
	for _, k := range keys {
		if k != keys[0] {
			t.Fatalf("all callers must observe one key")
		}
	}
	if n := len(f.cat.Methods(keys[0], "length")); n != 1 {
		t.Fatalf("instance methods published %d times", n)
	}
}

func TestHostPreCachedInstanceWins(t *testing.T) {
	f := newArrayFixture(t)
	special, err := f.cat.RegisterClass(nil, "IntArray", catalog.ClassInfo{})
	if err != nil {
		t.Fatalf("special: %v", err)
	}
	args := []types.TypeRef{types.Simple(types.IntKey)}
	if err := f.cat.CacheTemplateInstance(f.array, args, special); err != nil {
		t.Fatalf("pre-cache: %v", err)
	}
	key, err := f.in.Instantiate(f.array, args)
	if err != nil || key != special {
		t.Fatalf("pre-registered instance must be returned: %v %v", key, err)
	}
}

func TestValidatorRejectionLeavesNoCacheEntry(t *testing.T) {
	f := newArrayFixture(t)
	f.cat.SetValidator(f.array, func(info catalog.TemplateInfo) catalog.Verdict {
		if info.Args[0].Base == types.VoidKey {
			return catalog.Reject("array of void")
		}
		if info.Args[0].IsHandle {
			return catalog.AcceptWithFlag()
		}
		return catalog.Accept()
	})
	args := []types.TypeRef{types.Simple(types.VoidKey)}
	_, err := f.in.Instantiate(f.array, args)
	if !errors.Is(err, semerr.ErrTemplateValidationRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if _, ok := f.cat.CachedInstance(f.array, args); ok {
		t.Fatalf("rejected instance must not be cached")
	}

	obj, _ := f.cat.RegisterClass(nil, "Obj", catalog.ClassInfo{})
	key, err := f.in.Instantiate(f.array, []types.TypeRef{types.Handle(obj)})
	if err != nil {
		t.Fatalf("handle instance: %v", err)
	}
	e, _ := f.cat.Get(key)
	if !e.Class.NeedsGC {
		t.Fatalf("AcceptWithFlag must mark the instance")
	}
}

func TestArityAndUnknownTemplate(t *testing.T) {
	f := newArrayFixture(t)
	_, err := f.in.Instantiate(f.array, []types.TypeRef{types.Simple(types.IntKey), types.Simple(types.IntKey)})
	if !errors.Is(err, semerr.ErrTemplateValidationRejected) {
		t.Fatalf("wrong arity must be rejected, got %v", err)
	}
	_, err = f.in.Instantiate(types.FromName("nope"), []types.TypeRef{types.Simple(types.IntKey)})
	if !semerr.IsFatal(err) {
		t.Fatalf("unknown template must be fatal, got %v", err)
	}
	_, err = f.in.Instantiate(types.IntKey, []types.TypeRef{types.Simple(types.IntKey)})
	if err == nil || semerr.IsFatal(err) {
		t.Fatalf("non-template must be a user error, got %v", err)
	}
}

func TestNestedInstanceThroughDependentReturn(t *testing.T) {
	f := newArrayFixture(t)
	dict, err := f.cat.RegisterClass(nil, "dictionary", catalog.ClassInfo{})
	if err != nil {
		t.Fatalf("dictionary: %v", err)
	}
	k, _ := f.cat.RegisterTemplateParam(dict, "K")
	if _, err := f.cat.RegisterTemplateParam(dict, "V"); err != nil {
		t.Fatalf("V: %v", err)
	}
	arrayOfK, err := f.in.Instantiate(f.array, []types.TypeRef{types.Simple(k)})
	if err != nil {
		t.Fatalf("array<K>: %v", err)
	}
	mustFn(t, f.cat, &catalog.Function{Name: "getKeys", Owner: dict, Return: types.Handle(arrayOfK), Traits: catalog.Traits{Const: true}})

	inst, err := f.in.Instantiate(dict, []types.TypeRef{types.Simple(types.Int64Key), types.Simple(types.DoubleKey)})
	if err != nil {
		t.Fatalf("dictionary<int64,double>: %v", err)
	}
	getKeys := f.cat.Methods(inst, "getKeys")
	if len(getKeys) != 1 {
		t.Fatalf("getKeys missing on instance")
	}
	fn, _ := f.cat.Function(getKeys[0])
	want, ok := f.cat.CachedInstance(f.array, []types.TypeRef{types.Simple(types.Int64Key)})
	if !ok {
		t.Fatalf("array<int64> must be instantiated as a side effect")
	}
	if fn.Return.Base != want || !fn.Return.IsHandle {
		t.Fatalf("getKeys must return array<int64>@, got %s", f.cat.RefString(fn.Return))
	}
}

func TestUnboundedNestingIsFatal(t *testing.T) {
	f := newArrayFixture(t, WithMaxDepth(8))
	node, _ := f.cat.RegisterClass(nil, "Node", catalog.ClassInfo{})
	slot, _ := f.cat.RegisterTemplateParam(node, "T")
	inner, err := f.in.Instantiate(node, []types.TypeRef{types.Simple(slot)})
	if err != nil {
		t.Fatalf("Node<T>: %v", err)
	}
	outer, err := f.in.Instantiate(node, []types.TypeRef{types.Handle(inner)})
	if err != nil {
		t.Fatalf("Node<Node<T>@>: %v", err)
	}
	if err := f.cat.AddField(node, catalog.Field{Name: "next", Type: types.Handle(outer)}); err != nil {
		t.Fatalf("field: %v", err)
	}

	args := []types.TypeRef{types.Simple(types.IntKey)}
	_, err = f.in.Instantiate(node, args)
	if !errors.Is(err, semerr.ErrCircularTemplateInstantiation) || !semerr.IsFatal(err) {
		t.Fatalf("expected fatal circular instantiation, got %v", err)
	}
	if _, ok := f.cat.CachedInstance(node, args); ok {
		t.Fatalf("failed instance must not be cached")
	}
}

func TestSelfReferenceThroughField(t *testing.T) {
	f := newArrayFixture(t)
	list, _ := f.cat.RegisterClass(nil, "List", catalog.ClassInfo{})
	if _, err := f.cat.RegisterTemplateParam(list, "T"); err != nil {
		t.Fatalf("slot: %v", err)
	}
	if err := f.cat.AddField(list, catalog.Field{Name: "next", Type: types.Handle(list)}); err != nil {
		t.Fatalf("field: %v", err)
	}
	key, err := f.in.Instantiate(list, []types.TypeRef{types.Simple(types.IntKey)})
	if err != nil {
		t.Fatalf("List<int>: %v", err)
	}
	e, _ := f.cat.Get(key)
	if len(e.Class.Fields) != 1 || e.Class.Fields[0].Type.Base != key {
		t.Fatalf("List<int>::next must point at List<int>")
	}
}

func TestIfHandleThenConst(t *testing.T) {
	for _, on := range []bool{true, false} {
		f := newArrayFixture(t, WithIfHandleThenConst(on))
		box, _ := f.cat.RegisterClass(nil, "Box", catalog.ClassInfo{})
		slot, _ := f.cat.RegisterTemplateParam(box, "T")
		mustFn(t, f.cat, &catalog.Function{
			Name: "set", Owner: box,
			Params: []catalog.Param{{Type: types.TypeRef{Base: slot, IsConst: true, Ref: types.RefIn}}},
		})
		obj, _ := f.cat.RegisterClass(nil, "Obj", catalog.ClassInfo{})
		inst, err := f.in.Instantiate(box, []types.TypeRef{types.Handle(obj)})
		if err != nil {
			t.Fatalf("Box<Obj@>: %v", err)
		}
		fn, _ := f.cat.Function(f.cat.Methods(inst, "set")[0])
		p := fn.Params[0].Type
		if !p.IsHandle || !p.IsConst || p.IsHandleToConst != on {
			t.Fatalf("handle-then-const=%v: got %s", on, f.cat.RefString(p))
		}
	}
}

func TestInstantiateFunction(t *testing.T) {
	f := newArrayFixture(t)
	maxFn := &catalog.Function{Name: "max", Traits: catalog.Traits{Template: true}}
	slot, err := f.cat.RegisterTemplateParamSlot(types.NoKey, "max", 0, "T")
	if err != nil {
		t.Fatalf("slot: %v", err)
	}
	maxFn.TemplateParams = []types.TypeKey{slot}
	maxFn.Params = []catalog.Param{{Type: types.Simple(slot)}, {Type: types.Simple(slot)}}
	maxFn.Return = types.Simple(slot)
	tmpl := mustFn(t, f.cat, maxFn)

	args := []types.TypeRef{types.Simple(types.FloatKey)}
	key, err := f.in.InstantiateFunction(tmpl, args)
	if err != nil {
		t.Fatalf("max<float>: %v", err)
	}
	fn, ok := f.cat.Function(key)
	if !ok || fn.Return.Base != types.FloatKey || fn.Params[1].Type.Base != types.FloatKey || fn.Template != tmpl {
		t.Fatalf("max<float> not substituted: %+v", fn)
	}
	again, err := f.in.InstantiateFunction(tmpl, args)
	if err != nil || again != key {
		t.Fatalf("function instances must be cached")
	}
	if set := f.cat.Overloads("max<float>"); len(set) != 1 || set[0] != key {
		t.Fatalf("instance must live in its own overload set: %v", set)
	}
}

// newMutualFixture registers Box<T> { Node<T> n; picky<T> p; } and
// Node<T> { Box<T>@ owner; }. picky rejects every concrete argument
// until the returned switch is flipped.
func newMutualFixture(t *testing.T) (f *arrayFixture, box, node types.TypeKey, allow *bool) {
	t.Helper()
	f = newArrayFixture(t)
	box, _ = f.cat.RegisterClass(nil, "Box", catalog.ClassInfo{})
	boxT, _ := f.cat.RegisterTemplateParam(box, "T")
	node, _ = f.cat.RegisterClass(nil, "Node", catalog.ClassInfo{})
	nodeT, _ := f.cat.RegisterTemplateParam(node, "T")
	picky, _ := f.cat.RegisterClass(nil, "picky", catalog.ClassInfo{})
	if _, err := f.cat.RegisterTemplateParam(picky, "T"); err != nil {
		t.Fatalf("picky slot: %v", err)
	}
	allow = new(bool)
	f.cat.SetValidator(picky, func(catalog.TemplateInfo) catalog.Verdict {
		if *allow {
			return catalog.Accept()
		}
		return catalog.Reject("no")
	})

	instantiate := func(tmpl, arg types.TypeKey) types.TypeKey {
		k, err := f.in.Instantiate(tmpl, []types.TypeRef{types.Simple(arg)})
		if err != nil {
			t.Fatalf("dependent instance: %v", err)
		}
		return k
	}
	boxOfNodeT := instantiate(box, nodeT)
	if err := f.cat.AddField(node, catalog.Field{Name: "owner", Type: types.Handle(boxOfNodeT)}); err != nil {
		t.Fatalf("owner: %v", err)
	}
	nodeOfBoxT := instantiate(node, boxT)
	pickyOfBoxT := instantiate(picky, boxT)
	if err := f.cat.AddField(box, catalog.Field{Name: "n", Type: types.Simple(nodeOfBoxT)}); err != nil {
		t.Fatalf("n: %v", err)
	}
	if err := f.cat.AddField(box, catalog.Field{Name: "p", Type: types.Simple(pickyOfBoxT)}); err != nil {
		t.Fatalf("p: %v", err)
	}
	return f, box, node, allow
}

func TestFailedBuildCommitsNothing(t *testing.T) {
	f, box, node, _ := newMutualFixture(t)
	args := []types.TypeRef{types.Simple(types.IntKey)}

	_, err := f.in.Instantiate(box, args)
	if !errors.Is(err, semerr.ErrTemplateValidationRejected) {
		t.Fatalf("expected rejection of picky<int>, got %v", err)
	}
	if _, ok := f.cat.CachedInstance(box, args); ok {
		t.Fatalf("Box<int> must not be cached")
	}
	if _, ok := f.cat.CachedInstance(node, args); ok {
		t.Fatalf("Node<int> was built for the failed Box<int> and must not be cached")
	}
	if f.cat.Has(catalog.InstanceKey(node, args)) {
		t.Fatalf("Node<int> entry leaked into the catalog")
	}
	if err := testkit.CheckCatalogInvariants(f.cat); err != nil {
		t.Fatalf("catalog left inconsistent: %v", err)
	}
}

func TestMutualInstancesCommitTogether(t *testing.T) {
	f, box, node, allow := newMutualFixture(t)
	*allow = true
	args := []types.TypeRef{types.Simple(types.IntKey)}

	boxInt, err := f.in.Instantiate(box, args)
	if err != nil {
		t.Fatalf("Box<int>: %v", err)
	}
	nodeInt, ok := f.cat.CachedInstance(node, args)
	if !ok {
		t.Fatalf("Node<int> must be committed with Box<int>")
	}
	e, _ := f.cat.Get(nodeInt)
	if len(e.Class.Fields) != 1 || e.Class.Fields[0].Type.Base != boxInt || !e.Class.Fields[0].Type.IsHandle {
		t.Fatalf("Node<int>::owner must be Box<int>@, got %+v", e.Class.Fields)
	}
	if err := testkit.CheckCatalogInvariants(f.cat); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}
