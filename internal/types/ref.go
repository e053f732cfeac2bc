package types

// RefMode describes how a parameter binds to its argument.
type RefMode uint8

const (
	RefNone RefMode = iota
	RefIn
	RefOut
	RefInOut
)

func (m RefMode) String() string {
	switch m {
	case RefIn:
		return "&in"
	case RefOut:
		return "&out"
	case RefInOut:
		return "&inout"
	default:
		return ""
	}
}

// TypeRef is a TypeKey plus modifiers. It is small and copied by value;
// two refs are equal iff all fields match.
type TypeRef struct {
	Base            TypeKey
	IsConst         bool // const value, or const handle when IsHandle
	IsHandle        bool
	IsHandleToConst bool // the object behind the handle is read-only
	Ref             RefMode
}

// Simple describes a plain value of base.
func Simple(base TypeKey) TypeRef { return TypeRef{Base: base} }

// Handle describes base@.
func Handle(base TypeKey) TypeRef { return TypeRef{Base: base, IsHandle: true} }

// ConstHandle describes const base@.
func ConstHandle(base TypeKey) TypeRef {
	return TypeRef{Base: base, IsHandle: true, IsHandleToConst: true}
}

// IsError reports whether r is the error sentinel.
func (r TypeRef) IsError() bool { return r.Base == ErrorKey }

// Unqualified drops const and reference modifiers, keeping handle-ness.
func (r TypeRef) Unqualified() TypeRef {
	return TypeRef{Base: r.Base, IsHandle: r.IsHandle}
}

// WithRef returns a copy of r using mode.
func (r TypeRef) WithRef(mode RefMode) TypeRef {
	r.Ref = mode
	return r
}

// ArgKey is the identity a TypeRef contributes to a template instance key.
// A plain value contributes its base key so that array<int> is keyed by
// (array, int); handles and const qualifiers are mixed in so that
// array<Foo@> and array<Foo> stay distinct. Reference modes do not apply to
// template arguments and are ignored.
func ArgKey(r TypeRef) TypeKey {
	var bits uint64
	if r.IsConst {
		bits |= 0x1
	}
	if r.IsHandle {
		bits |= 0x2
	}
	if r.IsHandleToConst {
		bits |= 0x4
	}
	if bits == 0 {
		return r.Base
	}
	return TypeKey(uint64(r.Base)*mixSep + (mixModifier ^ bits))
}

// ArgKeys maps ArgKey over refs.
func ArgKeys(refs []TypeRef) []TypeKey {
	if len(refs) == 0 {
		return nil
	}
	out := make([]TypeKey, len(refs))
	for i, r := range refs {
		out[i] = ArgKey(r)
	}
	return out
}
