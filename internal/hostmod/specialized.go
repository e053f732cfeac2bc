package hostmod

import (
	"errors"

	"anvil/internal/catalog"
	"anvil/internal/types"
)

// SpecializedIntArray registers a hand-written array<int> and caches it
// as the instance of array<int>, so the instantiator never builds one.
// Std must be installed first.
func SpecializedIntArray() Module {
	return funcModule{name: "intarray", install: installIntArray}
}

func installIntArray(b *builder) {
	arr, ok := b.host.Catalog.GetByName("array")
	if !ok || !arr.IsTemplate() {
		b.fail(errors.New("array template is not registered"))
		return
	}
	args := []types.TypeRef{intRef}
	if _, cached := b.host.Catalog.CachedInstance(arr.Key, args); cached {
		b.fail(errors.New("array<int> is already instantiated"))
		return
	}
	cls := b.class("array<int>", catalog.ClassInfo{Template: arr.Key, TemplateArgs: args})
	self := types.Simple(cls)

	b.ctor(cls, false)
	b.ctor(cls, true, val(uintRef))
	b.method(cls, "opAssign", self.WithRef(types.RefInOut), false, in(self))
	b.method(cls, "opEquals", boolRef, true, in(self))
	b.method(cls, "opIndex", intRef.WithRef(types.RefInOut), false, val(uintRef))
	b.method(cls, "opIndex", intRef, true, val(uintRef))
	b.method(cls, "length", uintRef, true)
	b.method(cls, "isEmpty", boolRef, true)
	b.method(cls, "insertLast", voidRef, false, val(intRef))
	b.method(cls, "removeAt", voidRef, false, val(uintRef))
	b.method(cls, "resize", voidRef, false, val(uintRef))
	b.method(cls, "find", intRef, true, val(intRef))
	b.method(cls, "sortAsc", voidRef, false)
	b.method(cls, "sum", int64Ref, true)
	if b.err != nil {
		return
	}
	b.fail(b.host.Catalog.CacheTemplateInstance(arr.Key, args, cls))
}
