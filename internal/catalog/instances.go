package catalog

import (
	"sort"

	"anvil/internal/diag"
	"anvil/internal/semerr"
	"anvil/internal/trace"
	"anvil/internal/types"
)

// InstanceKey is the cache key of template instantiated with args.
func InstanceKey(template types.TypeKey, args []types.TypeRef) types.TypeKey {
	return types.FromTemplateInstance(template, types.ArgKeys(args))
}

// CacheTemplateInstance maps (template, args) to an instance the host has
// already registered, e.g. a hand-optimised array<int>. Later
// instantiations with the same arguments return instance unchanged.
func (c *Catalog) CacheTemplateInstance(template types.TypeKey, args []types.TypeRef, instance types.TypeKey) error {
	if !c.Has(template) {
		return semerr.New(semerr.UnknownType, template.String()).WithCode(diag.FatalUnknownTemplate)
	}
	if !c.Has(instance) {
		return semerr.New(semerr.UnknownType, instance.String())
	}
	candidate := InstanceKey(template, args)

	c.instMu.Lock()
	defer c.instMu.Unlock()
	if prev, ok := c.instances[candidate]; ok && prev != instance {
		return semerr.Newf(semerr.DuplicateDefinition, []string{c.TypeName(template)},
			"instance already cached as %s", c.TypeName(prev))
	}
	c.instances[candidate] = instance
	return nil
}

// CachedInstance returns the instance cached for (template, args).
func (c *Catalog) CachedInstance(template types.TypeKey, args []types.TypeRef) (types.TypeKey, bool) {
	return c.CachedInstanceByKey(InstanceKey(template, args))
}

// CachedInstanceByKey looks the cache up by a precomputed InstanceKey.
func (c *Catalog) CachedInstanceByKey(candidate types.TypeKey) (types.TypeKey, bool) {
	c.instMu.RLock()
	k, ok := c.instances[candidate]
	c.instMu.RUnlock()
	return k, ok
}

// Pending is one instance built but not yet visible. Type instances set
// Entry and list their member functions in Functions; the functions are
// indexed on Entry at commit the same way RegisterFunction indexes
// methods, so Entry carries no method or behaviour lists of its own.
// Function instances leave Entry nil and give one function plus the
// overload set it joins.
type Pending struct {
	Candidate types.TypeKey
	Entry     *Entry
	Functions []*Function
	SetName   string
}

func (p *Pending) key() types.TypeKey {
	if p.Entry != nil {
		return p.Entry.Key
	}
	return p.Functions[0].Key
}

func (p *Pending) name() string {
	if p.Entry != nil {
		return p.Entry.Name
	}
	return p.SetName
}

// CommitInstances publishes a group of instances built together, such
// as a template instance and the nested instances its members refer to.
// Either every instance of the group becomes visible in one step or none
// does. Members another caller committed first are skipped, and
// committed counts the ones this call wrote.
func (c *Catalog) CommitInstances(group []Pending) (committed int, err error) {
	c.instMu.Lock()
	defer c.instMu.Unlock()
	c.typesMu.Lock()
	defer c.typesMu.Unlock()
	c.funcsMu.Lock()
	defer c.funcsMu.Unlock()

	todo := make([]*Pending, 0, len(group))
	for i := range group {
		p := &group[i]
		if p.Entry == nil && len(p.Functions) != 1 {
			return 0, semerr.Newf(semerr.InvariantViolation, []string{p.SetName},
				"function instance carries %d functions", len(p.Functions)).WithCode(diag.FatalCorruptCatalog)
		}
		if prev, ok := c.instances[p.Candidate]; ok {
			if prev != p.key() {
				return 0, semerr.Newf(semerr.InvariantViolation, []string{p.name()},
					"instance already cached as %s", c.typeNameLocked(prev)).WithCode(diag.FatalCorruptCatalog)
			}
			continue
		}
		if err := c.checkCollisionsLocked(p); err != nil {
			return 0, err
		}
		todo = append(todo, p)
	}

	for _, p := range todo {
		if p.Entry == nil {
			fn := p.Functions[0]
			c.functions[fn.Key] = fn
			c.overloads[p.SetName] = append(c.overloads[p.SetName], fn.Key)
		} else {
			setPrefix := p.Entry.QualifiedName() + "::"
			for _, f := range p.Functions {
				attachMember(p.Entry, f)
				c.functions[f.Key] = f
				if !f.Traits.Constructor {
					c.overloads[setPrefix+f.Name] = append(c.overloads[setPrefix+f.Name], f.Key)
				}
			}
			c.entries[p.Entry.Key] = p.Entry
		}
		c.instances[p.Candidate] = p.key()
		trace.Point(c.tracer, trace.ScopeNode, "commit-instance", p.name(), 0)
	}
	return len(todo), nil
}

func (c *Catalog) checkCollisionsLocked(p *Pending) error {
	if p.Entry != nil {
		if _, exists := c.entries[p.Entry.Key]; exists {
			return semerr.Newf(semerr.InvariantViolation, []string{p.Entry.Name},
				"instance key collides with an existing entry").WithCode(diag.FatalCorruptCatalog)
		}
	}
	for _, f := range p.Functions {
		if _, exists := c.functions[f.Key]; exists {
			return semerr.Newf(semerr.InvariantViolation, []string{p.name() + "::" + f.Name},
				"instance function key collides with an existing function").WithCode(diag.FatalCorruptCatalog)
		}
	}
	return nil
}

func (c *Catalog) typeNameLocked(key types.TypeKey) string {
	if e, ok := c.entries[key]; ok {
		return e.QualifiedName()
	}
	return key.String()
}

// CommitInstance publishes a single type instance. If another caller
// committed the same candidate first, nothing is written and the
// winner's key is returned with won=false.
func (c *Catalog) CommitInstance(candidate types.TypeKey, entry *Entry, fns []*Function) (key types.TypeKey, won bool, err error) {
	n, err := c.CommitInstances([]Pending{{Candidate: candidate, Entry: entry, Functions: fns}})
	if err != nil {
		return types.NoKey, false, err
	}
	key, _ = c.CachedInstanceByKey(candidate)
	return key, n == 1, nil
}

// InstanceRecord is one cache mapping.
type InstanceRecord struct {
	Candidate types.TypeKey
	Instance  types.TypeKey
}

// Instances lists every cache mapping ordered by candidate key.
func (c *Catalog) Instances() []InstanceRecord {
	c.instMu.RLock()
	out := make([]InstanceRecord, 0, len(c.instances))
	for cand, inst := range c.instances {
		out = append(out, InstanceRecord{Candidate: cand, Instance: inst})
	}
	c.instMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Candidate < out[j].Candidate })
	return out
}
