package catalog

import (
	"strings"

	"anvil/internal/types"
)

// TypeName renders key for messages: qualified names for named entries,
// "array<int>" for instances, the hex key for unknown keys.
func (c *Catalog) TypeName(key types.TypeKey) string {
	e, ok := c.Get(key)
	if !ok {
		return key.String()
	}
	return e.QualifiedName()
}

// RefString renders r the way it would be written in source:
// "const Foo@", "Foo@ const", "int &in".
func (c *Catalog) RefString(r types.TypeRef) string {
	var b strings.Builder
	if r.IsHandleToConst || (r.IsConst && !r.IsHandle) {
		b.WriteString("const ")
	}
	b.WriteString(c.TypeName(r.Base))
	if r.IsHandle {
		b.WriteByte('@')
		if r.IsConst {
			b.WriteString(" const")
		}
	}
	if r.Ref != types.RefNone {
		b.WriteByte(' ')
		b.WriteString(r.Ref.String())
	}
	return b.String()
}

// Signature renders fn as "ret Owner::name(params) const".
func (c *Catalog) Signature(fn *Function) string {
	var b strings.Builder
	if !fn.Traits.Constructor {
		b.WriteString(c.RefString(fn.Return))
		b.WriteByte(' ')
	}
	if fn.Owner.IsValid() {
		b.WriteString(c.TypeName(fn.Owner))
		b.WriteString("::")
	} else if len(fn.Namespace) > 0 {
		b.WriteString(strings.Join(fn.Namespace, "::"))
		b.WriteString("::")
	}
	b.WriteString(fn.Name)
	b.WriteByte('(')
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.RefString(p.Type))
		if p.HasDefault {
			b.WriteString(" = ...")
		}
	}
	if fn.Traits.Variadic {
		if len(fn.Params) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	b.WriteByte(')')
	if fn.Traits.Const {
		b.WriteString(" const")
	}
	return b.String()
}

// SignatureOf renders the function key, or the key itself when unknown.
func (c *Catalog) SignatureOf(key types.TypeKey) string {
	fn, ok := c.Function(key)
	if !ok {
		return key.String()
	}
	return c.Signature(fn)
}
