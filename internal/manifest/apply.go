package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"anvil/internal/catalog"
	"anvil/internal/diag"
	"anvil/internal/engine"
	"anvil/internal/hostmod"
	"anvil/internal/resolve"
	"anvil/internal/source"
	"anvil/internal/typeparse"
	"anvil/internal/types"
)

// Apply registers the declarations of m through u. Type names are
// registered first so members may refer to any type in the file. Problems
// are reported into the unit's diagnostics; Apply stops early only when a
// fatal error ends the unit.
func Apply(u *engine.Unit, m *Manifest) {
	a := &applier{u: u, m: m, cat: u.Catalog(), ns: m.namespace()}
	a.modules()
	a.shells()
	a.funcdefs()
	for i := range m.Classes {
		if u.Stopped() {
			return
		}
		a.classMembers(i)
	}
	a.functions()
}

type applier struct {
	u   *engine.Unit
	m   *Manifest
	cat *catalog.Catalog
	ns  []string

	// classKeys maps declaration index to the registered key.
	classKeys []types.TypeKey
}

func (a *applier) fail(format string, args ...any) {
	a.u.Report(&Error{Path: a.m.Path, code: diag.RegInvalidDeclaration, Msg: fmt.Sprintf(format, args...)}, source.NoSpan)
}

func (a *applier) reportIn(what string, err error) {
	if err != nil {
		a.u.Report(fmt.Errorf("%s: %s: %w", a.m.Path, what, err), source.NoSpan)
	}
}

func (a *applier) modules() {
	for _, name := range a.m.Modules {
		mod, ok := hostmod.ByName(name)
		if !ok {
			a.u.Report(&Error{Path: a.m.Path, code: diag.ManLoadError, Msg: "unknown module " + strconv.Quote(name)}, source.NoSpan)
			continue
		}
		a.reportIn("module "+name, a.u.Engine().Install(mod))
	}
}

// qualify places a declared name ("Vec" or "math::Vec") in the manifest
// namespace.
func (a *applier) qualify(name string) ([]string, string) {
	scope := splitScope(name)
	if len(scope) == 0 {
		return nil, ""
	}
	ns := append(append([]string(nil), a.ns...), scope[:len(scope)-1]...)
	return ns, scope[len(scope)-1]
}

func (a *applier) shells() {
	a.classKeys = make([]types.TypeKey, len(a.m.Classes))
	for i := range a.m.Classes {
		c := &a.m.Classes[i]
		ns, name := a.qualify(c.Name)
		if name == "" {
			a.fail("class %d has no name", i)
			continue
		}
		key, _ := a.u.RegisterTemplate(ns, name, catalog.ClassInfo{ValueType: c.Value}, c.Template...)
		a.classKeys[i] = key
		if c.Validator == "" || !key.IsValid() {
			continue
		}
		v, ok := hostmod.Validator(c.Validator)
		if !ok {
			a.fail("class %s: unknown validator %q", c.Name, c.Validator)
			continue
		}
		a.cat.SetValidator(key, v)
	}
	for i := range a.m.Interfaces {
		a.iface(&a.m.Interfaces[i])
	}
	for i := range a.m.Enums {
		a.enum(&a.m.Enums[i])
	}
}

func (a *applier) iface(in *Interface) {
	ns, name := a.qualify(in.Name)
	if name == "" {
		a.fail("interface without a name")
		return
	}
	ctx := a.ctx(ns, "", nil)
	info := catalog.InterfaceInfo{}
	for _, b := range in.Bases {
		if ref, ok := a.typeOf(b, ctx); ok {
			info.Bases = append(info.Bases, ref.Base)
		}
	}
	key := a.u.RegisterInterface(ns, name, info)
	if !key.IsValid() {
		return
	}
	for _, decl := range in.Methods {
		a.member(key, types.Qualify(ns, name), decl, ctx, false)
	}
}

func (a *applier) enum(e *Enum) {
	ns, name := a.qualify(e.Name)
	if name == "" {
		a.fail("enum without a name")
		return
	}
	info := catalog.EnumInfo{Underlying: types.IntKey}
	if e.Underlying != "" {
		if ref, ok := a.typeOf(e.Underlying, a.ctx(ns, "", nil)); ok {
			info.Underlying = ref.Base
		}
	}
	var next int64
	for _, v := range e.Values {
		label, value, hasValue := strings.Cut(v, "=")
		label = strings.TrimSpace(label)
		if hasValue {
			n, err := strconv.ParseInt(strings.TrimSpace(value), 0, 64)
			if err != nil {
				a.fail("enum %s: value %q: %v", e.Name, v, err)
				continue
			}
			next = n
		}
		info.Values = append(info.Values, catalog.EnumValue{Name: label, Value: next})
		next++
	}
	a.u.RegisterEnum(ns, name, info)
}

func (a *applier) funcdefs() {
	for _, text := range a.m.Funcdefs {
		d, err := typeparse.ParseFunction(text)
		if err != nil {
			a.u.Report(err, source.NoSpan)
			continue
		}
		ns := append(append([]string(nil), a.ns...), d.Scope...)
		ctx := a.ctx(ns, "", nil)
		info := catalog.FuncdefInfo{Return: types.Simple(types.VoidKey)}
		if d.Return != nil {
			info.Return, _ = a.resolve(d.Return, ctx)
		}
		info.Params = a.params(d, ctx)
		a.u.RegisterFuncdef(ns, d.Name, info)
	}
}

func (a *applier) classMembers(idx int) {
	c := &a.m.Classes[idx]
	key := a.classKeys[idx]
	if !key.IsValid() {
		return
	}
	ns, name := a.qualify(c.Name)
	qualified := types.Qualify(ns, name)
	ctx := a.ctx(ns, qualified, c.Template)

	if c.Base != "" {
		if ref, ok := a.typeOf(c.Base, ctx); ok {
			a.u.SetBase(key, ref.Base)
		}
	}
	for _, iface := range c.Implements {
		if ref, ok := a.typeOf(iface, ctx); ok {
			a.u.AddInterface(key, ref.Base)
		}
	}
	for _, text := range c.Fields {
		p, err := typeparse.ParseProperty(text)
		if err != nil {
			a.u.Report(err, source.NoSpan)
			continue
		}
		if ref, ok := a.resolve(p.Type, ctx); ok {
			a.u.AddField(key, catalog.Field{Name: p.Name, Type: ref})
		}
	}
	for _, decl := range c.Constructors {
		a.member(key, qualified, decl, ctx, true)
	}
	for _, decl := range c.Methods {
		a.member(key, qualified, decl, ctx, false)
	}
	for _, text := range c.Properties {
		a.property(key, text, ctx)
	}
}

// property binds "type name" to the get_name/set_name accessors declared
// among the methods.
func (a *applier) property(owner types.TypeKey, text string, ctx resolve.Context) {
	p, err := typeparse.ParseProperty(text)
	if err != nil {
		a.u.Report(err, source.NoSpan)
		return
	}
	ref, ok := a.resolve(p.Type, ctx)
	if !ok {
		return
	}
	prop := catalog.Property{Name: p.Name, Type: ref}
	if getters := a.cat.Methods(owner, "get_"+p.Name); len(getters) > 0 {
		prop.Getter = getters[0]
	}
	if setters := a.cat.Methods(owner, "set_"+p.Name); len(setters) > 0 {
		prop.Setter = setters[0]
	}
	if !prop.Getter.IsValid() && !prop.Setter.IsValid() {
		a.fail("property %s has neither get_%s nor set_%s", p.Name, p.Name, p.Name)
		return
	}
	a.reportIn("property "+p.Name, a.cat.AddProperty(owner, prop))
}

func (a *applier) member(owner types.TypeKey, ownerName, text string, ctx resolve.Context, ctor bool) {
	d, err := typeparse.ParseFunction(text)
	if err != nil {
		a.u.Report(err, source.NoSpan)
		return
	}
	if len(d.Scope) > 0 {
		a.fail("%s: member %q must not be qualified", ownerName, text)
		return
	}
	if ctor != d.IsConstructor() {
		want := "method"
		if ctor {
			want = "constructor"
		}
		a.fail("%s: %q is not a %s", ownerName, text, want)
		return
	}
	_, bare := types.SplitQualified(ownerName)
	if ctor && d.Name != bare {
		a.fail("%s: constructor must be named %s", ownerName, bare)
		return
	}
	fn := a.function(d, ctx, ownerName+"::"+d.Name)
	if fn == nil {
		return
	}
	fn.Owner = owner
	fn.Traits.Constructor = ctor
	if e, ok := a.cat.Get(owner); ok && e.Kind == catalog.KindInterface {
		fn.Impl.Kind = catalog.ImplAbstract
	}
	a.u.RegisterFunction(fn)
}

func (a *applier) functions() {
	for _, text := range a.m.Functions {
		if a.u.Stopped() {
			return
		}
		d, err := typeparse.ParseFunction(text)
		if err != nil {
			a.u.Report(err, source.NoSpan)
			continue
		}
		if d.IsConstructor() {
			a.fail("function %q has no return type", text)
			continue
		}
		ns := append(append([]string(nil), a.ns...), d.Scope...)
		fn := a.function(d, a.ctx(ns, "", nil), types.Qualify(ns, d.Name))
		if fn == nil {
			continue
		}
		fn.Namespace = ns
		a.u.RegisterFunction(fn)
	}
}

// function builds the catalog form of d. Template parameters of d are
// registered as slots of qualified.
func (a *applier) function(d *typeparse.FuncDecl, ctx resolve.Context, qualified string) *catalog.Function {
	fn := &catalog.Function{
		Name: d.Name,
		Traits: catalog.Traits{
			Const:    d.Const,
			Explicit: d.Explicit,
			Property: d.Property,
			Variadic: d.Variadic,
			Template: len(d.TemplateParams) > 0,
		},
		Impl:   catalog.Impl{Kind: catalog.ImplExternal, Unit: a.m.Path, Symbol: qualified},
		Return: types.Simple(types.VoidKey),
	}
	if fn.Traits.Template {
		for i, p := range d.TemplateParams {
			slot := catalog.TemplateParamKey(qualified, p)
			if !a.cat.Has(slot) {
				var err error
				slot, err = a.cat.RegisterTemplateParamSlot(types.NoKey, qualified, i, p)
				if err != nil {
					a.reportIn(qualified, err)
					return nil
				}
			}
			fn.TemplateParams = append(fn.TemplateParams, slot)
		}
		ctx.TemplateScopes = append(ctx.TemplateScopes, resolve.TemplateScope{Owner: qualified, Params: d.TemplateParams})
	}
	if d.Return != nil {
		ret, ok := a.resolve(d.Return, ctx)
		if !ok {
			return nil
		}
		fn.Return = ret
	}
	fn.Params = a.params(d, ctx)
	if len(fn.Params) != len(d.Params) {
		return nil
	}
	return fn
}

func (a *applier) params(d *typeparse.FuncDecl, ctx resolve.Context) []catalog.Param {
	out := make([]catalog.Param, 0, len(d.Params))
	for _, p := range d.Params {
		ref, ok := a.resolve(p.Type, ctx)
		if !ok {
			continue
		}
		out = append(out, catalog.Param{Name: p.Name, Type: ref, HasDefault: p.HasDefault()})
	}
	return out
}

// typeOf parses and resolves type text.
func (a *applier) typeOf(text string, ctx resolve.Context) (types.TypeRef, bool) {
	expr, err := typeparse.ParseType(text)
	if err != nil {
		a.u.Report(err, source.NoSpan)
		return types.ErrorRef, false
	}
	return a.resolve(expr, ctx)
}

func (a *applier) resolve(expr *resolve.TypeExpr, ctx resolve.Context) (types.TypeRef, bool) {
	ref := a.u.ResolveType(expr, ctx)
	return ref, !ref.IsError()
}

// ctx is the lookup context inside namespace ns, optionally within the
// template owner with parameters params.
func (a *applier) ctx(ns []string, owner string, params []string) resolve.Context {
	ctx := a.m.Context()
	ctx.Namespace = ns
	if len(params) > 0 {
		ctx.TemplateScopes = []resolve.TemplateScope{{Owner: owner, Params: params}}
	}
	return ctx
}
