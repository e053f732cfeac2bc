package engine

import (
	"anvil/internal/catalog"
	"anvil/internal/source"
	"anvil/internal/types"
)

// The registration pass-throughs below report failures into the unit's
// diagnostics and return types.NoKey, so a host can register a whole
// module and inspect every problem at once.

// RegisterClass registers a class.
func (u *Unit) RegisterClass(namespace []string, name string, info catalog.ClassInfo) types.TypeKey {
	key, err := u.eng.cat.RegisterClass(namespace, name, info)
	u.report(err, source.NoSpan)
	return key
}

// RegisterTemplate registers a class template with the given parameter
// names and returns the template key and its slot keys.
func (u *Unit) RegisterTemplate(namespace []string, name string, info catalog.ClassInfo, params ...string) (types.TypeKey, []types.TypeKey) {
	key, err := u.eng.cat.RegisterClass(namespace, name, info)
	if err != nil {
		u.report(err, source.NoSpan)
		return types.NoKey, nil
	}
	slots := make([]types.TypeKey, 0, len(params))
	for _, p := range params {
		slot, err := u.eng.cat.RegisterTemplateParam(key, p)
		if err != nil {
			u.report(err, source.NoSpan)
			return key, slots
		}
		slots = append(slots, slot)
	}
	return key, slots
}

// RegisterInterface registers an interface.
func (u *Unit) RegisterInterface(namespace []string, name string, info catalog.InterfaceInfo) types.TypeKey {
	key, err := u.eng.cat.RegisterInterface(namespace, name, info)
	u.report(err, source.NoSpan)
	return key
}

// RegisterEnum registers an enum.
func (u *Unit) RegisterEnum(namespace []string, name string, info catalog.EnumInfo) types.TypeKey {
	key, err := u.eng.cat.RegisterEnum(namespace, name, info)
	u.report(err, source.NoSpan)
	return key
}

// RegisterFuncdef registers a function-pointer type.
func (u *Unit) RegisterFuncdef(namespace []string, name string, info catalog.FuncdefInfo) types.TypeKey {
	key, err := u.eng.cat.RegisterFuncdef(namespace, name, info)
	u.report(err, source.NoSpan)
	return key
}

// RegisterFunction registers a function, method or constructor.
func (u *Unit) RegisterFunction(fn *catalog.Function) types.TypeKey {
	key, err := u.eng.cat.RegisterFunction(fn)
	u.report(err, source.NoSpan)
	return key
}

// SetBase sets the base class of class.
func (u *Unit) SetBase(class, base types.TypeKey) {
	u.report(u.eng.cat.SetBase(class, base), source.NoSpan)
}

// AddInterface declares that class implements iface.
func (u *Unit) AddInterface(class, iface types.TypeKey) {
	u.report(u.eng.cat.AddInterface(class, iface), source.NoSpan)
}

// AddField appends a data member.
func (u *Unit) AddField(class types.TypeKey, f catalog.Field) {
	u.report(u.eng.cat.AddField(class, f), source.NoSpan)
}
