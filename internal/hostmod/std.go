package hostmod

import (
	"anvil/internal/catalog"
	"anvil/internal/types"
)

// Std declares string, array<T> and dictionary<K,V>.
func Std() Module {
	return funcModule{name: "std", install: installStd}
}

func installStd(b *builder) {
	str := installString(b)
	arr := installArray(b)
	installDictionary(b, arr)

	s := types.Simple(str)
	b.free("formatInt", s, val(int64Ref), withDefault(named("options", in(s))))
	b.free("formatFloat", s, val(doubleRef), withDefault(named("options", in(s))))
	b.free("parseInt", int64Ref, in(s))
	b.free("parseFloat", doubleRef, in(s))
}

func installString(b *builder) types.TypeKey {
	str := b.class("string", catalog.ClassInfo{ValueType: true})
	s := types.Simple(str)
	sRef := s.WithRef(types.RefInOut)

	b.ctor(str, false)
	b.ctor(str, false, in(s))

	b.method(str, "opAssign", sRef, false, in(s))
	b.method(str, "opAddAssign", sRef, false, in(s))
	b.method(str, "opAdd", s, true, in(s))
	for _, prim := range []types.TypeRef{intRef, int64Ref, uintRef, uint64Ref, floatRef, doubleRef, boolRef} {
		b.method(str, "opAdd", s, true, val(prim))
		b.method(str, "opAdd_r", s, true, val(prim))
	}
	b.method(str, "opEquals", boolRef, true, in(s))
	b.method(str, "opCmp", intRef, true, in(s))
	b.method(str, "opIndex", types.Simple(types.Uint8Key).WithRef(types.RefInOut), false, val(uintRef))
	b.method(str, "opIndex", types.Simple(types.Uint8Key), true, val(uintRef))
	b.method(str, "length", uintRef, true)
	b.method(str, "isEmpty", boolRef, true)
	b.method(str, "substr", s, true, named("start", withDefault(val(uintRef))), named("count", withDefault(val(intRef))))
	b.method(str, "findFirst", intRef, true, in(s), named("start", withDefault(val(uintRef))))
	return str
}

func installArray(b *builder) types.TypeKey {
	arr := b.class("array", catalog.ClassInfo{})
	elem := b.param(arr, "T")
	if b.err != nil {
		return types.NoKey
	}
	b.host.Catalog.SetValidator(arr, collectableElements)

	t := types.Simple(elem)
	self := types.Simple(arr)
	constT := t
	constT.IsConst = true

	b.ctor(arr, false)
	b.ctor(arr, true, val(uintRef))
	b.method(arr, "opAssign", self.WithRef(types.RefInOut), false, in(self))
	b.method(arr, "opEquals", boolRef, true, in(self))
	b.method(arr, "opIndex", t.WithRef(types.RefInOut), false, val(uintRef))
	b.method(arr, "opIndex", constT.WithRef(types.RefInOut), true, val(uintRef))
	b.method(arr, "length", uintRef, true)
	b.method(arr, "isEmpty", boolRef, true)
	b.method(arr, "insertLast", voidRef, false, in(t))
	b.method(arr, "insertAt", voidRef, false, val(uintRef), in(t))
	b.method(arr, "removeAt", voidRef, false, val(uintRef))
	b.method(arr, "removeLast", voidRef, false)
	b.method(arr, "resize", voidRef, false, val(uintRef))
	b.method(arr, "reverse", voidRef, false)
	b.method(arr, "find", intRef, true, in(t))
	b.method(arr, "find", intRef, true, val(uintRef), in(t))
	return arr
}

func installDictionary(b *builder, arr types.TypeKey) {
	dict := b.class("dictionary", catalog.ClassInfo{})
	k := b.param(dict, "K")
	v := b.param(dict, "V")
	if b.err != nil {
		return
	}
	b.host.Catalog.SetValidator(dict, hashableKeys)

	kt, vt := types.Simple(k), types.Simple(v)
	keys := b.instance(arr, kt)

	b.ctor(dict, false)
	b.method(dict, "set", voidRef, false, in(kt), in(vt))
	b.method(dict, "get", boolRef, true, in(kt), catalog.Param{Type: vt.WithRef(types.RefOut)})
	b.method(dict, "opIndex", vt.WithRef(types.RefInOut), false, in(kt))
	b.method(dict, "exists", boolRef, true, in(kt))
	b.method(dict, "delete", boolRef, false, in(kt))
	b.method(dict, "deleteAll", voidRef, false)
	b.method(dict, "getSize", uintRef, true)
	b.method(dict, "isEmpty", boolRef, true)
	b.method(dict, "getKeys", types.Handle(keys), true)
}

// Validator returns a built-in template validator by name: "collectable"
// flags containers of references for garbage collection and
// "hashable-keys" additionally rejects unhashable first arguments.
func Validator(name string) (catalog.Validator, bool) {
	switch name {
	case "collectable":
		return collectableElements, true
	case "hashable-keys":
		return hashableKeys, true
	}
	return nil, false
}

// collectableElements accepts every element type and flags containers of
// handles or reference classes for garbage collection.
func collectableElements(info catalog.TemplateInfo) catalog.Verdict {
	for _, a := range info.Args {
		if holdsReference(info, a) {
			return catalog.AcceptWithFlag()
		}
	}
	return catalog.Accept()
}

// hashableKeys rejects dictionary keys that cannot be hashed.
func hashableKeys(info catalog.TemplateInfo) catalog.Verdict {
	key := info.Args[0]
	if key.IsHandle {
		return catalog.Reject("dictionary keys cannot be handles")
	}
	if !hashable(info, key.Base) {
		return catalog.Reject(info.Catalog.TypeName(key.Base) + " is not hashable")
	}
	rest := info
	rest.Args = info.Args[1:]
	return collectableElements(rest)
}

// hashable covers primitives, enums, string and classes with opHash.
func hashable(info catalog.TemplateInfo, key types.TypeKey) bool {
	if types.FamilyOf(key) != types.FamilyNone {
		return true
	}
	e, ok := info.Entry(key)
	if !ok {
		return false
	}
	switch e.Kind {
	case catalog.KindEnum:
		return true
	case catalog.KindClass:
		if e.QualifiedName() == "string" {
			return true
		}
		return info.Catalog != nil && len(info.Catalog.Methods(key, "opHash")) > 0
	}
	return false
}

func holdsReference(info catalog.TemplateInfo, r types.TypeRef) bool {
	if r.IsHandle {
		return true
	}
	e, ok := info.Entry(r.Base)
	return ok && e.Kind == catalog.KindClass && !e.Class.ValueType
}
