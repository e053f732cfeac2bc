package catalog

import (
	"anvil/internal/types"
)

// ImplKind is the closed set of function implementations.
type ImplKind uint8

const (
	ImplNative ImplKind = iota
	ImplScript
	ImplAbstract
	ImplExternal
)

func (k ImplKind) String() string {
	switch k {
	case ImplNative:
		return "native"
	case ImplScript:
		return "script"
	case ImplAbstract:
		return "abstract"
	case ImplExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Impl tells the back end where the body lives. Unit names the script
// unit for ImplScript and the providing module for ImplExternal; Symbol is
// the host symbol for ImplNative.
type Impl struct {
	Kind   ImplKind
	Unit   string
	Symbol string
}

// Traits are per-function flags.
type Traits struct {
	Const       bool // method does not mutate its object
	Property    bool // get_/set_ accessor
	Template    bool // has its own template parameters
	Explicit    bool // constructor or conversion usable only explicitly
	Variadic    bool // trailing arguments are matched against "?"
	Constructor bool
}

// Param is one formal parameter.
type Param struct {
	Name       string
	Type       types.TypeRef
	HasDefault bool
}

// Function is a free function, method, constructor or operator method.
type Function struct {
	Key       types.TypeKey
	Name      string
	Namespace []string
	Params    []Param
	Return    types.TypeRef
	Owner     types.TypeKey // NoKey for free functions
	Traits    Traits
	Impl      Impl

	// TemplateParams are the function's own slots, never the owner's.
	TemplateParams []types.TypeKey
	// Template and TemplateArgs are set on template function instances.
	Template     types.TypeKey
	TemplateArgs []types.TypeRef
}

// ParamKeys returns the identity keys of the parameter types.
func (f *Function) ParamKeys() []types.TypeKey {
	refs := make([]types.TypeRef, len(f.Params))
	for i, p := range f.Params {
		refs[i] = p.Type
	}
	return types.ArgKeys(refs)
}

// ComputeKey derives the identity key from owner, name and parameters.
func (f *Function) ComputeKey() types.TypeKey {
	params := f.ParamKeys()
	switch {
	case f.Traits.Constructor:
		return types.FromConstructor(f.Owner, params)
	case f.Owner.IsValid():
		return types.FromMethod(f.Owner, f.Name, params, f.Traits.Const)
	default:
		return types.FromFunction(types.Qualify(f.Namespace, f.Name), params)
	}
}

// RequiredParams counts parameters before the first trailing default.
func (f *Function) RequiredParams() int {
	n := len(f.Params)
	for n > 0 && f.Params[n-1].HasDefault {
		n--
	}
	return n
}

// IsMethod reports whether f belongs to a type.
func (f *Function) IsMethod() bool { return f.Owner.IsValid() }

// Operator reports the operator f implements, if its name is one.
func (f *Function) Operator() (types.Operator, bool) {
	if !f.Owner.IsValid() {
		return types.OpNone, false
	}
	return types.OperatorFromMethodName(f.Name)
}

func (f *Function) clone() *Function {
	cp := *f
	cp.Namespace = append([]string(nil), f.Namespace...)
	cp.Params = append([]Param(nil), f.Params...)
	cp.TemplateParams = append([]types.TypeKey(nil), f.TemplateParams...)
	cp.TemplateArgs = append([]types.TypeRef(nil), f.TemplateArgs...)
	return &cp
}
