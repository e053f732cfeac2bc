package hostmod

import (
	"anvil/internal/catalog"
	"anvil/internal/types"
)

// Math declares overloaded numeric helpers and the clamp<T> template.
func Math() Module {
	return funcModule{name: "math", install: installMath}
}

func installMath(b *builder) {
	signed := []types.TypeRef{intRef, int64Ref, floatRef, doubleRef}
	for _, t := range signed {
		b.free("abs", t, val(t))
	}
	for _, t := range []types.TypeRef{intRef, int64Ref, uintRef, uint64Ref, floatRef, doubleRef} {
		b.free("min", t, val(t), val(t))
		b.free("max", t, val(t), val(t))
	}
	for _, t := range []types.TypeRef{floatRef, doubleRef} {
		b.free("sqrt", t, val(t))
		b.free("floor", t, val(t))
		b.free("ceil", t, val(t))
		b.free("pow", t, val(t), val(t))
	}
	installClamp(b)
}

func installClamp(b *builder) {
	if b.err != nil {
		return
	}
	slot, err := b.host.Catalog.RegisterTemplateParamSlot(types.NoKey, "clamp", 0, "T")
	if err != nil {
		b.fail(err)
		return
	}
	t := types.Simple(slot)
	b.fn(&catalog.Function{
		Name:           "clamp",
		Params:         []catalog.Param{in(t), in(t), in(t)},
		Return:         t,
		Traits:         catalog.Traits{Template: true},
		TemplateParams: []types.TypeKey{slot},
	})
}
