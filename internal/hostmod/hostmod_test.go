package hostmod

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"anvil/internal/catalog"
	"anvil/internal/conv"
	"anvil/internal/instantiate"
	"anvil/internal/overload"
	"anvil/internal/semerr"
	"anvil/internal/testkit"
	"anvil/internal/types"
)

type fixture struct {
	cat *catalog.Catalog
	in  *instantiate.Instantiator
	res *overload.Resolver
}

func newFixture(t *testing.T, modules ...Module) *fixture {
	t.Helper()
	cat := catalog.New()
	chk := conv.NewChecker(cat)
	f := &fixture{cat: cat, in: instantiate.New(cat, chk), res: overload.NewResolver(cat, chk)}
	require.NoError(t, Install(Host{Catalog: cat, Templates: f.in}, modules...))
	require.NoError(t, testkit.CheckCatalogInvariants(cat))
	return f
}

func (f *fixture) key(t *testing.T, name string) types.TypeKey {
	t.Helper()
	e, ok := f.cat.GetByName(name)
	require.True(t, ok, "%s not registered", name)
	return e.Key
}

func TestStdDictionaryKeysAreNestedArrays(t *testing.T) {
	f := newFixture(t, Std())
	str := types.Simple(f.key(t, "string"))

	dict, err := f.in.Instantiate(f.key(t, "dictionary"), []types.TypeRef{str, intRef})
	require.NoError(t, err)

	getKeys := f.cat.Methods(dict, "getKeys")
	require.Len(t, getKeys, 1)
	fn, ok := f.cat.Function(getKeys[0])
	require.True(t, ok)

	arrayOfString, ok := f.cat.CachedInstance(f.key(t, "array"), []types.TypeRef{str})
	require.True(t, ok, "array<string> must be built as a side effect")
	require.Equal(t, types.Handle(arrayOfString), fn.Return)

	e, _ := f.cat.Get(dict)
	require.False(t, e.Class.NeedsGC)
}

func TestStdDictionaryRejectsUnhashableKeys(t *testing.T) {
	f := newFixture(t, Std())
	dict := f.key(t, "dictionary")
	plain, err := f.cat.RegisterClass(nil, "Plain", catalog.ClassInfo{})
	require.NoError(t, err)
	hashed, err := f.cat.RegisterClass(nil, "Hashed", catalog.ClassInfo{})
	require.NoError(t, err)
	_, err = f.cat.RegisterFunction(&catalog.Function{Name: "opHash", Owner: hashed, Return: uint64Ref, Traits: catalog.Traits{Const: true}})
	require.NoError(t, err)

	for _, k := range []types.TypeRef{types.Simple(plain), types.Handle(hashed)} {
		_, err := f.in.Instantiate(dict, []types.TypeRef{k, intRef})
		require.ErrorIs(t, err, semerr.ErrTemplateValidationRejected, f.cat.RefString(k))
		_, cached := f.cat.CachedInstance(dict, []types.TypeRef{k, intRef})
		require.False(t, cached)
	}

	inst, err := f.in.Instantiate(dict, []types.TypeRef{types.Simple(hashed), types.Handle(plain)})
	require.NoError(t, err)
	e, _ := f.cat.Get(inst)
	require.True(t, e.Class.NeedsGC, "handle values need collection")
}

func TestStdStringOperators(t *testing.T) {
	f := newFixture(t, Std())
	str := types.Simple(f.key(t, "string"))

	m, err := f.res.ResolveBinary(types.SurfaceAdd, intRef, str)
	require.NoError(t, err)
	require.Equal(t, overload.OperandRight, m.Operand)
	require.Equal(t, str, m.Result)

	m, err = f.res.ResolveBinary(types.SurfaceLessEq, str, str)
	require.NoError(t, err)
	require.Equal(t, overload.ViaCmp, m.Via)

	sub, err := f.res.ResolveMethod(str, "substr", nil)
	require.NoError(t, err, "substr has defaults for every parameter")
	fn, _ := f.cat.Function(sub.Function)
	require.Equal(t, str, fn.Return)

	_, err = f.res.ResolveBinary(types.SurfaceSub, str, str)
	require.Error(t, err)
}

func TestSpecializedIntArrayIsCached(t *testing.T) {
	f := newFixture(t, Std(), SpecializedIntArray())
	array := f.key(t, "array")

	key, err := f.in.Instantiate(array, []types.TypeRef{intRef})
	require.NoError(t, err)
	require.Equal(t, f.key(t, "array<int>"), key)
	require.Len(t, f.cat.Methods(key, "sum"), 1)

	other, err := f.in.Instantiate(array, []types.TypeRef{floatRef})
	require.NoError(t, err)
	require.NotEqual(t, key, other)
	require.Empty(t, f.cat.Methods(other, "sum"))
}

func TestSpecializedIntArrayNeedsStd(t *testing.T) {
	cat := catalog.New()
	err := Install(Host{Catalog: cat}, SpecializedIntArray())
	require.Error(t, err)
	require.Contains(t, err.Error(), "install intarray")
}

func TestMathOverloadsAndClamp(t *testing.T) {
	f := newFixture(t, Math())

	m, err := f.res.Resolve(f.cat.Overloads("abs"), []types.TypeRef{floatRef})
	require.NoError(t, err)
	fn, _ := f.cat.Function(m.Function)
	require.Equal(t, floatRef, fn.Return)
	require.Zero(t, m.Cost)

	m, err = f.res.Resolve(f.cat.Overloads("max"), []types.TypeRef{int64Ref, int64Ref})
	require.NoError(t, err)
	fn, _ = f.cat.Function(m.Function)
	require.Equal(t, int64Ref, fn.Return)

	clamp := f.cat.Overloads("clamp")
	require.Len(t, clamp, 1)
	inst, err := f.in.InstantiateFunction(clamp[0], []types.TypeRef{doubleRef})
	require.NoError(t, err)
	fn, _ = f.cat.Function(inst)
	require.Equal(t, doubleRef, fn.Return)
}

func TestIOAcceptsAnything(t *testing.T) {
	f := newFixture(t, Std(), IO())
	str := types.Simple(f.key(t, "string"))

	_, err := f.res.Resolve(f.cat.Overloads("print"), []types.TypeRef{str})
	require.NoError(t, err)
	_, err = f.res.Resolve(f.cat.Overloads("println"), []types.TypeRef{intRef, str, types.Handle(f.key(t, "array"))})
	require.NoError(t, err)
	_, err = f.res.Resolve(f.cat.Overloads("print"), []types.TypeRef{intRef, intRef})
	require.Error(t, err)
}

func TestInstallTwiceReportsDuplicate(t *testing.T) {
	f := newFixture(t, IO())
	err := Install(Host{Catalog: f.cat, Templates: f.in}, IO())
	require.Error(t, err)
	require.True(t, errors.Is(err, semerr.ErrDuplicateDefinition))
}
