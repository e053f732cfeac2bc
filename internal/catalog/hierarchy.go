package catalog

import "anvil/internal/types"

// maxHierarchyDepth bounds base-chain walks so a corrupted (cyclic) base
// link cannot hang a query.
const maxHierarchyDepth = 256

// DerivationDistance returns how many base-class steps lead from derived
// to base. It reports false when base is not an ancestor.
func (c *Catalog) DerivationDistance(derived, base types.TypeKey) (int, bool) {
	key := derived
	for depth := 0; key.IsValid() && depth < maxHierarchyDepth; depth++ {
		if key == base {
			return depth, true
		}
		e, ok := c.Get(key)
		if !ok || e.Kind != KindClass {
			return 0, false
		}
		key = e.Class.Base
	}
	return 0, false
}

// Implements reports whether class (or one of its bases) implements iface,
// directly or through interface inheritance. An interface implements
// itself and its base interfaces.
func (c *Catalog) Implements(class, iface types.TypeKey) bool {
	visited := make(map[types.TypeKey]bool)
	var walkIface func(types.TypeKey) bool
	walkIface = func(k types.TypeKey) bool {
		if k == iface {
			return true
		}
		if visited[k] {
			return false
		}
		visited[k] = true
		e, ok := c.Get(k)
		if !ok || e.Kind != KindInterface {
			return false
		}
		for _, b := range e.Interface.Bases {
			if walkIface(b) {
				return true
			}
		}
		return false
	}

	e, ok := c.Get(class)
	if !ok {
		return false
	}
	if e.Kind == KindInterface {
		return class != iface && walkIface(class)
	}
	key := class
	for depth := 0; key.IsValid() && depth < maxHierarchyDepth; depth++ {
		e, ok := c.Get(key)
		if !ok || e.Kind != KindClass {
			return false
		}
		for _, i := range e.Class.Interfaces {
			if walkIface(i) {
				return true
			}
		}
		key = e.Class.Base
	}
	return false
}
