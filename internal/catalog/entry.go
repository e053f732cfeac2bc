package catalog

import (
	"slices"

	"anvil/internal/types"
)

// Kind tags the variant held by an Entry.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPrimitive
	KindClass
	KindInterface
	KindEnum
	KindFuncdef
	KindTemplateParam
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindFuncdef:
		return "funcdef"
	case KindTemplateParam:
		return "template-param"
	default:
		return "invalid"
	}
}

// Entry is one type known to the catalog. Exactly one of the info
// pointers matching Kind is set. Entries returned by the catalog are
// shared and must be treated as read-only; updates replace the whole
// entry.
type Entry struct {
	Key       types.TypeKey
	Kind      Kind
	Name      string
	Namespace []string

	Class     *ClassInfo
	Interface *InterfaceInfo
	Enum      *EnumInfo
	Funcdef   *FuncdefInfo
	Param     *TemplateParamInfo
}

// QualifiedName returns "ns::Name".
func (e *Entry) QualifiedName() string {
	return types.Qualify(e.Namespace, e.Name)
}

// IsTemplate reports whether e is a template definition (has parameter
// slots and is not itself an instance).
func (e *Entry) IsTemplate() bool {
	return e.Kind == KindClass && len(e.Class.TemplateParams) > 0 && !e.Class.Template.IsValid()
}

// IsInstance reports whether e was produced from a template.
func (e *Entry) IsInstance() bool {
	return e.Kind == KindClass && e.Class.Template.IsValid()
}

// IsObject reports class or interface, the kinds that may be held by handle.
func (e *Entry) IsObject() bool {
	return e.Kind == KindClass || e.Kind == KindInterface
}

// ClassInfo describes a class, a template definition or a template instance.
type ClassInfo struct {
	Base       types.TypeKey
	Interfaces []types.TypeKey
	Behaviors  Behaviors
	Methods    []types.TypeKey // function keys, including operator methods
	Fields     []Field
	Properties []Property

	// TemplateParams are the slot keys of a template definition.
	TemplateParams []types.TypeKey
	// Template and TemplateArgs are set on instances.
	Template     types.TypeKey
	TemplateArgs []types.TypeRef

	ValueType bool
	NeedsGC   bool
}

// Field is a data member.
type Field struct {
	Name string
	Type types.TypeRef
}

// Property is an accessor pair exposed as a member.
type Property struct {
	Name   string
	Type   types.TypeRef
	Getter types.TypeKey
	Setter types.TypeKey
}

// InterfaceInfo lists method signatures and base interfaces.
type InterfaceInfo struct {
	Bases   []types.TypeKey
	Methods []types.TypeKey
}

// EnumValue is one named constant.
type EnumValue struct {
	Name  string
	Value int64
}

// EnumInfo keeps values in declaration order.
type EnumInfo struct {
	Underlying types.TypeKey // defaults to int
	Values     []EnumValue
}

// Lookup returns the value named name.
func (e *EnumInfo) Lookup(name string) (int64, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// FuncdefInfo is a function-pointer type.
type FuncdefInfo struct {
	Params []Param
	Return types.TypeRef
}

// TemplateParamInfo describes a parameter slot, keyed as "owner::T".
type TemplateParamInfo struct {
	Owner types.TypeKey
	Index uint8
	Name  string
}

func (e *Entry) clone() *Entry {
	cp := *e
	cp.Namespace = slices.Clone(e.Namespace)
	if e.Class != nil {
		ci := *e.Class
		ci.Interfaces = slices.Clone(ci.Interfaces)
		ci.Methods = slices.Clone(ci.Methods)
		ci.Fields = slices.Clone(ci.Fields)
		ci.Properties = slices.Clone(ci.Properties)
		ci.TemplateParams = slices.Clone(ci.TemplateParams)
		ci.TemplateArgs = slices.Clone(ci.TemplateArgs)
		ci.Behaviors = ci.Behaviors.clone()
		cp.Class = &ci
	}
	if e.Interface != nil {
		ii := *e.Interface
		ii.Bases = slices.Clone(ii.Bases)
		ii.Methods = slices.Clone(ii.Methods)
		cp.Interface = &ii
	}
	if e.Enum != nil {
		ei := *e.Enum
		ei.Values = slices.Clone(ei.Values)
		cp.Enum = &ei
	}
	if e.Funcdef != nil {
		fi := *e.Funcdef
		fi.Params = slices.Clone(fi.Params)
		cp.Funcdef = &fi
	}
	if e.Param != nil {
		pi := *e.Param
		cp.Param = &pi
	}
	return &cp
}
