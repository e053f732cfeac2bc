// Package hostmod installs native modules into a catalog: the types and
// functions a host application exposes to scripts.
package hostmod

import (
	"fmt"

	"anvil/internal/catalog"
	"anvil/internal/types"
)

// Instantiator builds template instances while a module installs, e.g.
// the dependent array<K> returned by dictionary::getKeys.
type Instantiator interface {
	Instantiate(template types.TypeKey, args []types.TypeRef) (types.TypeKey, error)
}

// Host is what a module installs into.
type Host struct {
	Catalog   *catalog.Catalog
	Templates Instantiator
}

// Module is a named set of native declarations.
type Module interface {
	Name() string
	Install(h Host) error
}

// Install installs modules in order and stops at the first failure.
func Install(h Host, modules ...Module) error {
	for _, m := range modules {
		if err := m.Install(h); err != nil {
			return fmt.Errorf("install %s: %w", m.Name(), err)
		}
	}
	return nil
}

// funcModule adapts an install function to Module.
type funcModule struct {
	name    string
	install func(b *builder)
}

func (m funcModule) Name() string { return m.name }

func (m funcModule) Install(h Host) error {
	b := &builder{host: h, module: m.name}
	m.install(b)
	return b.err
}

// builder registers declarations and keeps the first error. Every method
// is a no-op once err is set.
type builder struct {
	host   Host
	module string
	err    error
}

func (b *builder) fail(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func (b *builder) class(name string, info catalog.ClassInfo) types.TypeKey {
	if b.err != nil {
		return types.NoKey
	}
	key, err := b.host.Catalog.RegisterClass(nil, name, info)
	b.fail(err)
	return key
}

func (b *builder) param(owner types.TypeKey, name string) types.TypeKey {
	if b.err != nil {
		return types.NoKey
	}
	key, err := b.host.Catalog.RegisterTemplateParam(owner, name)
	b.fail(err)
	return key
}

func (b *builder) instance(template types.TypeKey, args ...types.TypeRef) types.TypeKey {
	if b.err != nil {
		return types.NoKey
	}
	if b.host.Templates == nil {
		b.fail(fmt.Errorf("%s needs a template instantiator", b.module))
		return types.NoKey
	}
	key, err := b.host.Templates.Instantiate(template, args)
	b.fail(err)
	return key
}

func (b *builder) fn(f *catalog.Function) types.TypeKey {
	if b.err != nil {
		return types.NoKey
	}
	if f.Impl.Symbol == "" {
		f.Impl = catalog.Impl{Kind: catalog.ImplNative, Unit: b.module, Symbol: b.module + "." + f.Name}
	}
	key, err := b.host.Catalog.RegisterFunction(f)
	b.fail(err)
	return key
}

// method registers a method of owner.
func (b *builder) method(owner types.TypeKey, name string, ret types.TypeRef, konst bool, ps ...catalog.Param) types.TypeKey {
	return b.fn(&catalog.Function{Name: name, Owner: owner, Params: ps, Return: ret, Traits: catalog.Traits{Const: konst}})
}

func (b *builder) ctor(owner types.TypeKey, explicit bool, ps ...catalog.Param) types.TypeKey {
	return b.fn(&catalog.Function{Owner: owner, Params: ps, Traits: catalog.Traits{Constructor: true, Explicit: explicit}})
}

// free registers a global function.
func (b *builder) free(name string, ret types.TypeRef, ps ...catalog.Param) types.TypeKey {
	return b.fn(&catalog.Function{Name: name, Params: ps, Return: ret})
}

func in(t types.TypeRef) catalog.Param {
	t.IsConst = true
	return catalog.Param{Type: t.WithRef(types.RefIn)}
}

func val(t types.TypeRef) catalog.Param { return catalog.Param{Type: t} }

func named(name string, p catalog.Param) catalog.Param {
	p.Name = name
	return p
}

func withDefault(p catalog.Param) catalog.Param {
	p.HasDefault = true
	return p
}

var (
	voidRef   = types.Simple(types.VoidKey)
	boolRef   = types.Simple(types.BoolKey)
	intRef    = types.Simple(types.IntKey)
	int64Ref  = types.Simple(types.Int64Key)
	uintRef   = types.Simple(types.UintKey)
	uint64Ref = types.Simple(types.Uint64Key)
	floatRef  = types.Simple(types.FloatKey)
	doubleRef = types.Simple(types.DoubleKey)
)

var registry = map[string]func() Module{
	"std":      Std,
	"math":     Math,
	"io":       IO,
	"intarray": SpecializedIntArray,
}

// ByName returns the built-in module called name.
func ByName(name string) (Module, bool) {
	ctor, ok := registry[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Names lists the built-in module names in install order.
func Names() []string {
	return []string{"std", "math", "io", "intarray"}
}
