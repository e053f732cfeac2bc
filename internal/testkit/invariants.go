// Package testkit holds consistency checks shared by package tests.
package testkit

import (
	"errors"
	"fmt"

	"anvil/internal/catalog"
	"anvil/internal/types"
)

// CheckCatalogInvariants verifies the cross references of a catalog:
//  1. every key an entry or function mentions resolves
//  2. methods listed on a class or interface name it as their owner
//  3. instance cache targets are instances of the cached template
//  4. template parameter slots point back at an owner that lists them
//
// All violations are returned joined.
func CheckCatalogInvariants(cat *catalog.Catalog) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	typeExists := func(where string, k types.TypeKey) {
		if k.IsValid() && !types.IsSentinel(k) && !cat.Has(k) {
			fail("%s: unknown type %s", where, k)
		}
	}
	ownedMethods := func(where string, owner types.TypeKey, keys []types.TypeKey) {
		for _, k := range keys {
			fn, ok := cat.Function(k)
			if !ok {
				fail("%s: unknown function %s", where, k)
				continue
			}
			if fn.Owner != owner {
				fail("%s: method %s is owned by %s", where, fn.Name, cat.TypeName(fn.Owner))
			}
		}
	}

	cat.Range(func(e *catalog.Entry) bool {
		name := e.QualifiedName()
		switch e.Kind {
		case catalog.KindClass:
			c := e.Class
			typeExists(name+" base", c.Base)
			for _, i := range c.Interfaces {
				typeExists(name+" interface", i)
			}
			for _, f := range c.Fields {
				typeExists(name+"."+f.Name, f.Type.Base)
			}
			ownedMethods(name, e.Key, c.Methods)
			typeExists(name+" template", c.Template)
			for _, a := range c.TemplateArgs {
				typeExists(name+" argument", a.Base)
			}
		case catalog.KindInterface:
			for _, b := range e.Interface.Bases {
				typeExists(name+" base", b)
			}
			ownedMethods(name, e.Key, e.Interface.Methods)
		case catalog.KindTemplateParam:
			owner, ok := cat.Get(e.Param.Owner)
			if !ok {
				// slots of template functions have no owning entry
				break
			}
			if owner.Kind == catalog.KindClass && !containsKey(owner.Class.TemplateParams, e.Key) {
				fail("%s: not listed by %s", name, owner.QualifiedName())
			}
		}
		return true
	})

	cat.RangeFunctions(func(fn *catalog.Function) bool {
		where := cat.Signature(fn)
		typeExists(where+" return", fn.Return.Base)
		for _, p := range fn.Params {
			typeExists(where+" parameter "+p.Name, p.Type.Base)
		}
		typeExists(where+" owner", fn.Owner)
		return true
	})

	for _, r := range cat.Instances() {
		if fn, ok := cat.Function(r.Instance); ok {
			if !fn.Template.IsValid() || catalog.InstanceKey(fn.Template, fn.TemplateArgs) != r.Candidate {
				fail("instance cache %s: %s is not its function instance", r.Candidate, fn.Name)
			}
			continue
		}
		inst, ok := cat.Get(r.Instance)
		if !ok {
			fail("instance cache %s: unknown instance %s", r.Candidate, r.Instance)
			continue
		}
		if !inst.IsInstance() {
			fail("instance cache %s: %s is not a template instance", r.Candidate, inst.QualifiedName())
			continue
		}
		if want := catalog.InstanceKey(inst.Class.Template, inst.Class.TemplateArgs); want != r.Candidate {
			fail("instance cache %s: %s was built from other arguments", r.Candidate, inst.QualifiedName())
		}
	}
	return errors.Join(errs...)
}

func containsKey(keys []types.TypeKey, k types.TypeKey) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}
