package hostmod

import (
	"anvil/internal/catalog"
	"anvil/internal/types"
)

// IO declares print and println, which accept any value.
func IO() Module {
	return funcModule{name: "io", install: installIO}
}

func installIO(b *builder) {
	anything := catalog.Param{Type: types.TypeRef{Base: types.AnyKey, IsConst: true, Ref: types.RefIn}}
	b.free("print", voidRef, anything)
	b.fn(&catalog.Function{
		Name:   "println",
		Params: []catalog.Param{anything},
		Return: voidRef,
		Traits: catalog.Traits{Variadic: true},
	})
}
