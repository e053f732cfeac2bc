package resolve

import (
	"strings"

	"anvil/internal/source"
	"anvil/internal/types"
)

// SuffixKind is a postfix modifier of a type expression.
type SuffixKind uint8

const (
	SuffixHandle SuffixKind = iota + 1 // @
	SuffixArray                        // []
)

// Suffix is one postfix modifier; Const marks "@ const" and "[] const".
type Suffix struct {
	Kind  SuffixKind
	Const bool
}

// TypeExpr is a syntactic type reference as produced by a front end:
//
//	const ns::dictionary<string, Obj@>@ const &in
//
// Const is the leading qualifier and binds to the innermost type.
type TypeExpr struct {
	Span     source.Span
	Absolute bool     // leading "::"
	Scope    []string // "ns" in ns::Name
	Name     string
	Args     []*TypeExpr
	Const    bool
	Suffixes []Suffix
	Ref      types.RefMode
}

// Simple returns an expression naming a single unscoped type.
func Simple(name string) *TypeExpr { return &TypeExpr{Name: name} }

// QualifiedName joins scope and name with "::".
func (e *TypeExpr) QualifiedName() string {
	return types.Qualify(e.Scope, e.Name)
}

// String renders e back to source form.
func (e *TypeExpr) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *TypeExpr) write(b *strings.Builder) {
	if e == nil {
		b.WriteString("<nil>")
		return
	}
	if e.Const {
		b.WriteString("const ")
	}
	if e.Absolute {
		b.WriteString("::")
	}
	b.WriteString(e.QualifiedName())
	if len(e.Args) > 0 {
		b.WriteByte('<')
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.write(b)
		}
		b.WriteByte('>')
	}
	for _, s := range e.Suffixes {
		switch s.Kind {
		case SuffixHandle:
			b.WriteByte('@')
		case SuffixArray:
			b.WriteString("[]")
		}
		if s.Const {
			b.WriteString(" const")
		}
	}
	if e.Ref != types.RefNone {
		b.WriteByte(' ')
		b.WriteString(e.Ref.String())
	}
}

// TemplateScope makes the parameters of the template Owner (qualified
// name) visible by their bare names.
type TemplateScope struct {
	Owner  string
	Params []string
}

// Context is the ambient lookup state at the point of reference.
type Context struct {
	Namespace      []string   // enclosing namespace, outermost first
	Imports        [][]string // imported namespaces, in import order
	TemplateScopes []TemplateScope
}
