package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"anvil/internal/catalog"
	"anvil/internal/diag"
	"anvil/internal/hostmod"
	"anvil/internal/observ"
	"anvil/internal/resolve"
	"anvil/internal/semerr"
	"anvil/internal/source"
	"anvil/internal/types"
)

var (
	intRef   = types.Simple(types.IntKey)
	floatRef = types.Simple(types.FloatKey)
)

func TestUnknownTypeIsCollectedAndDoesNotCascade(t *testing.T) {
	eng := NewEngine()
	u := eng.NewUnit("main", 16)
	defer u.Close()

	bad := u.ResolveType(&resolve.TypeExpr{Name: "Missing"}, resolve.Context{})
	require.True(t, bad.IsError())
	require.NoError(t, u.Err())
	require.Equal(t, 1, u.Diagnostics().Len())
	require.Equal(t, diag.ResUnknownType, u.Diagnostics().Items()[0].Code)

	// the sentinel converts silently so no second diagnostic appears
	plan, ok := u.CanConvert(bad, intRef)
	require.True(t, ok)
	require.Zero(t, plan.Cost)

	good := u.ResolveType(resolve.Simple("float"), resolve.Context{})
	require.Equal(t, floatRef, good)
	require.Equal(t, 1, u.Diagnostics().Len())
}

func TestErrorArgumentDoesNotCascadeIntoCalls(t *testing.T) {
	eng := NewEngine()
	u := eng.NewUnit("main", 16)
	defer u.Close()
	u.RegisterFunction(&catalog.Function{Name: "f", Params: []catalog.Param{{Type: intRef}}})
	u.RegisterFunction(&catalog.Function{Name: "f", Params: []catalog.Param{{Type: floatRef}}})
	require.Zero(t, u.Diagnostics().Len())

	bad := u.ResolveType(&resolve.TypeExpr{Name: "Missing"}, resolve.Context{})
	require.True(t, bad.IsError())
	require.Equal(t, 1, u.Diagnostics().Len())

	_, ok := u.ResolveOverload("f", []types.TypeRef{bad}, resolve.Context{})
	require.False(t, ok)
	_, ok = u.ResolveMethod(bad, "length", nil)
	require.False(t, ok)
	require.NoError(t, u.Err())
	require.Equal(t, 1, u.Diagnostics().Len(), "only the unknown type may be reported")
	require.Equal(t, diag.ResUnknownType, u.Diagnostics().Items()[0].Code)
}

func TestAmbiguityDiagnosticNamesCandidates(t *testing.T) {
	eng := NewEngine()
	u := eng.NewUnit("main", 16)
	u.RegisterFunction(&catalog.Function{Name: "f", Params: []catalog.Param{{Type: intRef}, {Type: floatRef}}})
	u.RegisterFunction(&catalog.Function{Name: "f", Params: []catalog.Param{{Type: floatRef}, {Type: intRef}}})
	require.Zero(t, u.Diagnostics().Len())

	_, ok := u.ResolveOverload("f", []types.TypeRef{intRef, intRef}, resolve.Context{})
	require.False(t, ok)
	items := u.Diagnostics().Items()
	require.Len(t, items, 1)
	require.Equal(t, diag.SemaAmbiguousOverload, items[0].Code)
	require.Len(t, items[0].Notes, 2)
}

func TestQualifiedOverloadLookup(t *testing.T) {
	eng := NewEngine()
	u := eng.NewUnit("main", 16)
	key := u.RegisterFunction(&catalog.Function{Name: "spawn", Namespace: []string{"game"}, Params: []catalog.Param{{Type: intRef}}})

	m, ok := u.ResolveOverload("game::spawn", []types.TypeRef{intRef}, resolve.Context{})
	require.True(t, ok)
	require.Equal(t, key, m.Function)

	m, ok = u.ResolveOverload("spawn", []types.TypeRef{types.Simple(types.Int8Key)}, resolve.Context{Namespace: []string{"game"}})
	require.True(t, ok)
	require.Equal(t, key, m.Function)
	require.EqualValues(t, 1, m.Cost)

	_, ok = u.ResolveOverload("nothing", nil, resolve.Context{})
	require.False(t, ok)
	require.Equal(t, diag.SemaNoOverload, u.Diagnostics().Items()[0].Code)
}

func TestFatalErrorStopsUnit(t *testing.T) {
	eng := NewEngine()
	u := eng.NewUnit("main", 16)

	key := u.Instantiate(types.FromName("never_registered"), []types.TypeRef{intRef})
	require.Equal(t, types.ErrorKey, key)
	require.Error(t, u.Err())
	require.True(t, semerr.IsFatal(u.Err()))
	require.Zero(t, u.Diagnostics().Len(), "fatal errors are not collected")

	ref := u.ResolveType(resolve.Simple("int"), resolve.Context{})
	require.True(t, ref.IsError(), "a stopped unit answers with the sentinel")
}

func TestRegistrationErrorsAccumulate(t *testing.T) {
	eng := NewEngine()
	u := eng.NewUnit("host", 16)
	u.RegisterClass(nil, "Obj", catalog.ClassInfo{})
	u.RegisterClass(nil, "Obj", catalog.ClassInfo{})
	u.RegisterFunction(&catalog.Function{Name: "m", Owner: types.FromName("Ghost")})
	require.Equal(t, 2, u.Diagnostics().Len())
	require.NoError(t, u.Err())
	codes := []diag.Code{u.Diagnostics().Items()[0].Code, u.Diagnostics().Items()[1].Code}
	require.Contains(t, codes, diag.RegDuplicateDefinition)
	require.Contains(t, codes, diag.RegUnknownOwner)
}

func TestOperatorsAndTemplates(t *testing.T) {
	eng := NewEngine()
	u := eng.NewUnit("main", 16)
	arr, slots := u.RegisterTemplate(nil, "array", catalog.ClassInfo{}, "T")
	require.Len(t, slots, 1)
	u.RegisterFunction(&catalog.Function{
		Name: "opIndex", Owner: arr,
		Params: []catalog.Param{{Type: types.Simple(types.UintKey)}},
		Return: types.Simple(slots[0]).WithRef(types.RefInOut),
	})

	ref := u.ResolveType(&resolve.TypeExpr{Name: "float", Suffixes: []resolve.Suffix{{Kind: resolve.SuffixArray}}}, resolve.Context{})
	require.False(t, ref.IsError())

	m, ok := u.ResolveIndex(ref, []types.TypeRef{intRef})
	require.True(t, ok)
	require.Equal(t, types.FloatKey, m.Result.Base)

	om, ok := u.ResolveOperator(types.SurfaceAdd, intRef, floatRef)
	require.True(t, ok)
	require.Equal(t, floatRef, om.Result)

	om, ok = u.ResolveOperator(types.SurfaceNeg, floatRef, types.TypeRef{})
	require.True(t, ok)
	require.Equal(t, floatRef, om.Result)

	_, ok = u.ResolveOperator(types.SurfaceAdd, ref, intRef)
	require.False(t, ok)
	require.Equal(t, diag.SemaInvalidOperands, u.Diagnostics().Items()[0].Code)

	require.NotZero(t, eng.Counters().Get(observ.CounterResolve))
	require.NotZero(t, eng.Counters().Get(observ.CounterInstanceMiss))
}

func TestConvertReportsExplicitOnly(t *testing.T) {
	eng := NewEngine()
	u := eng.NewUnit("main", 16)
	base := u.RegisterClass(nil, "Base", catalog.ClassInfo{})

	_, ok := u.Convert(types.ConstHandle(base), types.Handle(base), source.NoSpan)
	require.False(t, ok)
	require.Equal(t, diag.SemaExplicitConversion, u.Diagnostics().Items()[0].Code)

	_, ok = u.Convert(intRef, types.Handle(base), source.NoSpan)
	require.False(t, ok)
	require.Equal(t, diag.SemaInvalidConversion, u.Diagnostics().Items()[1].Code)
}

func TestInstalledModulesResolve(t *testing.T) {
	eng := NewEngine()
	require.NoError(t, eng.Install(hostmod.Std(), hostmod.SpecializedIntArray(), hostmod.IO()))
	u := eng.NewUnit("main", 16)

	ints := u.ResolveType(&resolve.TypeExpr{Name: "int", Suffixes: []resolve.Suffix{{Kind: resolve.SuffixArray}}}, resolve.Context{})
	e, ok := eng.Catalog().GetByName("array<int>")
	require.True(t, ok)
	require.Equal(t, e.Key, ints.Base)

	m, ok := u.ResolveMethod(ints, "sum", nil)
	require.True(t, ok)
	require.NotZero(t, m.Function)

	_, ok = u.ResolveOverload("print", []types.TypeRef{ints}, resolve.Context{})
	require.True(t, ok)
	require.Zero(t, u.Diagnostics().Len())
}
