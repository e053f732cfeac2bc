// Package catalog is the single authoritative store of every type and
// function known to a compilation session.
//
// Entries live in flat key→entry maps; every cross-reference is a
// types.TypeKey or types.TypeRef, so cyclic type graphs need no pointers
// between entries. Three independent RWMutexes guard the type index, the
// function index and the template instance cache. Lock order, when more
// than one is held, is instances → types → functions.
package catalog

import (
	"slices"
	"sort"
	"strings"
	"sync"

	"fortio.org/safecast"

	"anvil/internal/diag"
	"anvil/internal/semerr"
	"anvil/internal/trace"
	"anvil/internal/types"
)

// Catalog stores entries, functions and template instances.
type Catalog struct {
	typesMu sync.RWMutex
	entries map[types.TypeKey]*Entry

	funcsMu   sync.RWMutex
	functions map[types.TypeKey]*Function
	overloads map[string][]types.TypeKey

	instMu     sync.RWMutex
	instances  map[types.TypeKey]types.TypeKey
	validators map[types.TypeKey]Validator

	tracer trace.Tracer
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithTracer emits node-level events for registrations and commits.
func WithTracer(t trace.Tracer) Option {
	return func(c *Catalog) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New returns a catalog with the built-in primitives and the null, ? and
// error sentinels pre-registered under their well-known keys.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		entries:    make(map[types.TypeKey]*Entry, 64),
		functions:  make(map[types.TypeKey]*Function, 64),
		overloads:  make(map[string][]types.TypeKey, 64),
		instances:  make(map[types.TypeKey]types.TypeKey),
		validators: make(map[types.TypeKey]Validator),
		tracer:     trace.Nop,
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, p := range types.Primitives {
		c.entries[p.Key] = &Entry{Key: p.Key, Kind: KindPrimitive, Name: p.Name}
	}
	for _, s := range []struct {
		key  types.TypeKey
		name string
	}{{types.NullKey, "null"}, {types.AnyKey, "?"}, {types.ErrorKey, "<error>"}} {
		c.entries[s.key] = &Entry{Key: s.key, Kind: KindPrimitive, Name: s.name}
	}
	return c
}

// Register adds e. An entry whose key is unset gets FromName of its
// qualified name. A key that is already present is a DuplicateDefinition.
func (c *Catalog) Register(e *Entry) error {
	if e == nil || e.Kind == KindInvalid {
		return semerr.New(semerr.InvariantViolation).WithCode(diag.RegInvalidDeclaration)
	}
	if !e.Key.IsValid() {
		e.Key = types.FromName(e.QualifiedName())
	}
	if err := checkInfo(e); err != nil {
		return err
	}

	c.typesMu.Lock()
	if _, exists := c.entries[e.Key]; exists {
		c.typesMu.Unlock()
		return semerr.New(semerr.DuplicateDefinition, e.QualifiedName())
	}
	c.entries[e.Key] = e
	c.typesMu.Unlock()

	trace.Point(c.tracer, trace.ScopeNode, "register", e.Kind.String()+" "+e.QualifiedName(), 0)
	return nil
}

func checkInfo(e *Entry) error {
	ok := true
	switch e.Kind {
	case KindClass:
		ok = e.Class != nil
	case KindInterface:
		ok = e.Interface != nil
	case KindEnum:
		ok = e.Enum != nil
	case KindFuncdef:
		ok = e.Funcdef != nil
	case KindTemplateParam:
		ok = e.Param != nil
	}
	if !ok {
		return semerr.Newf(semerr.InvariantViolation, []string{e.QualifiedName()},
			"%s entry without %s info", e.Kind, e.Kind).WithCode(diag.RegInvalidDeclaration)
	}
	return nil
}

// RegisterPrimitive adds a host-defined primitive type.
func (c *Catalog) RegisterPrimitive(name string) (types.TypeKey, error) {
	e := &Entry{Kind: KindPrimitive, Name: name}
	if err := c.Register(e); err != nil {
		return types.NoKey, err
	}
	return e.Key, nil
}

// RegisterClass adds a class shell or full class. Members can be added
// later with RegisterFunction.
func (c *Catalog) RegisterClass(namespace []string, name string, info ClassInfo) (types.TypeKey, error) {
	e := &Entry{Kind: KindClass, Name: name, Namespace: slices.Clone(namespace), Class: &info}
	if err := c.Register(e); err != nil {
		return types.NoKey, err
	}
	return e.Key, nil
}

// RegisterInterface adds an interface.
func (c *Catalog) RegisterInterface(namespace []string, name string, info InterfaceInfo) (types.TypeKey, error) {
	e := &Entry{Kind: KindInterface, Name: name, Namespace: slices.Clone(namespace), Interface: &info}
	if err := c.Register(e); err != nil {
		return types.NoKey, err
	}
	return e.Key, nil
}

// RegisterEnum adds an enum. The underlying type defaults to int.
func (c *Catalog) RegisterEnum(namespace []string, name string, info EnumInfo) (types.TypeKey, error) {
	if !info.Underlying.IsValid() {
		info.Underlying = types.IntKey
	}
	if _, ok := types.NumericKind(info.Underlying); !ok {
		return types.NoKey, semerr.Newf(semerr.InvalidConversion, []string{name},
			"enum underlying type must be an integer").WithCode(diag.RegInvalidDeclaration)
	}
	e := &Entry{Kind: KindEnum, Name: name, Namespace: slices.Clone(namespace), Enum: &info}
	if err := c.Register(e); err != nil {
		return types.NoKey, err
	}
	return e.Key, nil
}

// RegisterFuncdef adds a function-pointer type.
func (c *Catalog) RegisterFuncdef(namespace []string, name string, info FuncdefInfo) (types.TypeKey, error) {
	e := &Entry{Kind: KindFuncdef, Name: name, Namespace: slices.Clone(namespace), Funcdef: &info}
	if err := c.Register(e); err != nil {
		return types.NoKey, err
	}
	return e.Key, nil
}

// TemplateParamKey is the key of slot name on the entity ownerQualified.
func TemplateParamKey(ownerQualified, name string) types.TypeKey {
	return types.FromName(ownerQualified + "::" + name)
}

// RegisterTemplateParamSlot registers a parameter slot "owner::name".
// It does not touch the owner; see RegisterTemplateParam for classes.
func (c *Catalog) RegisterTemplateParamSlot(owner types.TypeKey, ownerQualified string, index int, name string) (types.TypeKey, error) {
	idx, err := safecast.Conv[uint8](index)
	if err != nil {
		return types.NoKey, semerr.Newf(semerr.InvariantViolation, []string{ownerQualified},
			"template parameter index %d out of range", index).WithCode(diag.RegInvalidDeclaration)
	}
	ns, ownerName := types.SplitQualified(ownerQualified)
	e := &Entry{
		Key:       TemplateParamKey(ownerQualified, name),
		Kind:      KindTemplateParam,
		Name:      name,
		Namespace: append(slices.Clone(ns), ownerName),
		Param:     &TemplateParamInfo{Owner: owner, Index: idx, Name: name},
	}
	if err := c.Register(e); err != nil {
		return types.NoKey, err
	}
	return e.Key, nil
}

// RegisterTemplateParam appends a parameter slot to the class template
// owner and returns the slot key.
func (c *Catalog) RegisterTemplateParam(owner types.TypeKey, name string) (types.TypeKey, error) {
	ownerEntry, ok := c.Get(owner)
	if !ok || ownerEntry.Kind != KindClass {
		return types.NoKey, semerr.New(semerr.UnknownType, owner.String()).WithCode(diag.RegUnknownOwner)
	}
	index := len(ownerEntry.Class.TemplateParams)
	slot, err := c.RegisterTemplateParamSlot(owner, ownerEntry.QualifiedName(), index, name)
	if err != nil {
		return types.NoKey, err
	}
	err = c.update(owner, func(e *Entry) {
		e.Class.TemplateParams = append(e.Class.TemplateParams, slot)
	})
	return slot, err
}

// update applies fn to a copy of the entry and publishes the copy.
func (c *Catalog) update(key types.TypeKey, fn func(*Entry)) error {
	c.typesMu.Lock()
	defer c.typesMu.Unlock()
	cur, ok := c.entries[key]
	if !ok {
		return semerr.New(semerr.UnknownType, key.String()).WithCode(diag.RegUnknownOwner)
	}
	next := cur.clone()
	fn(next)
	c.entries[key] = next
	return nil
}

// AddInterface records that class implements iface.
func (c *Catalog) AddInterface(class, iface types.TypeKey) error {
	return c.update(class, func(e *Entry) {
		if e.Class != nil && !slices.Contains(e.Class.Interfaces, iface) {
			e.Class.Interfaces = append(e.Class.Interfaces, iface)
		}
	})
}

// SetBase sets the base class of class.
func (c *Catalog) SetBase(class, base types.TypeKey) error {
	return c.update(class, func(e *Entry) {
		if e.Class != nil {
			e.Class.Base = base
		}
	})
}

// AddField appends a data member to class.
func (c *Catalog) AddField(class types.TypeKey, f Field) error {
	return c.update(class, func(e *Entry) {
		if e.Class != nil {
			e.Class.Fields = append(e.Class.Fields, f)
		}
	})
}

// AddProperty appends an accessor property to class.
func (c *Catalog) AddProperty(class types.TypeKey, p Property) error {
	return c.update(class, func(e *Entry) {
		if e.Class != nil {
			e.Class.Properties = append(e.Class.Properties, p)
		}
	})
}

// Get returns the entry for key.
func (c *Catalog) Get(key types.TypeKey) (*Entry, bool) {
	c.typesMu.RLock()
	e, ok := c.entries[key]
	c.typesMu.RUnlock()
	return e, ok
}

// GetByName looks an entry up by its qualified name. Primitive aliases
// (int32, uint32) are accepted.
func (c *Catalog) GetByName(qualified string) (*Entry, bool) {
	if alias, ok := types.Aliases[qualified]; ok {
		qualified = alias
	}
	return c.Get(types.FromName(qualified))
}

// Has reports whether key is registered.
func (c *Catalog) Has(key types.TypeKey) bool {
	_, ok := c.Get(key)
	return ok
}

// Len returns the number of type entries.
func (c *Catalog) Len() int {
	c.typesMu.RLock()
	defer c.typesMu.RUnlock()
	return len(c.entries)
}

// Range calls fn for every entry in qualified-name order until fn
// returns false.
func (c *Catalog) Range(fn func(*Entry) bool) {
	c.typesMu.RLock()
	list := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		list = append(list, e)
	}
	c.typesMu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		ni, nj := list[i].QualifiedName(), list[j].QualifiedName()
		if ni != nj {
			return ni < nj
		}
		return list[i].Key < list[j].Key
	})
	for _, e := range list {
		if !fn(e) {
			return
		}
	}
}

// RegisterFunction adds f to its overload set. Methods, operator methods
// and constructors are also indexed on their owner. A missing return type
// is void. A function whose identity key already exists is a
// DuplicateDefinition.
func (c *Catalog) RegisterFunction(f *Function) (types.TypeKey, error) {
	if f == nil {
		return types.NoKey, semerr.New(semerr.InvariantViolation).WithCode(diag.RegInvalidDeclaration)
	}
	var owner *Entry
	if f.Owner.IsValid() {
		var ok bool
		owner, ok = c.Get(f.Owner)
		if !ok || !owner.IsObject() {
			return types.NoKey, semerr.New(semerr.UnknownType, f.Owner.String()).WithCode(diag.RegUnknownOwner)
		}
	}
	if !f.Return.Base.IsValid() {
		f.Return = types.Simple(types.VoidKey)
	}
	if !f.Key.IsValid() {
		f.Key = f.ComputeKey()
	}
	setName := c.overloadName(f, owner)

	c.funcsMu.Lock()
	if _, exists := c.functions[f.Key]; exists {
		c.funcsMu.Unlock()
		return types.NoKey, semerr.New(semerr.DuplicateDefinition, setName).WithCode(diag.RegDuplicateFunction)
	}
	c.functions[f.Key] = f
	if !f.Traits.Constructor {
		c.overloads[setName] = append(c.overloads[setName], f.Key)
	}
	c.funcsMu.Unlock()

	if owner != nil {
		if err := c.update(f.Owner, func(e *Entry) { attachMember(e, f) }); err != nil {
			return types.NoKey, err
		}
	}
	trace.Point(c.tracer, trace.ScopeNode, "register", "function "+setName, 0)
	return f.Key, nil
}

func attachMember(e *Entry, f *Function) {
	switch e.Kind {
	case KindInterface:
		e.Interface.Methods = append(e.Interface.Methods, f.Key)
	case KindClass:
		if f.Traits.Constructor {
			e.Class.Behaviors.Constructors = append(e.Class.Behaviors.Constructors, f.Key)
			return
		}
		e.Class.Methods = append(e.Class.Methods, f.Key)
		if op, ok := f.Operator(); ok {
			e.Class.Behaviors.addOperator(op, f.Key)
		}
	}
}

func (c *Catalog) overloadName(f *Function, owner *Entry) string {
	if owner != nil {
		return owner.QualifiedName() + "::" + f.Name
	}
	return types.Qualify(f.Namespace, f.Name)
}

// Function returns the function for key.
func (c *Catalog) Function(key types.TypeKey) (*Function, bool) {
	c.funcsMu.RLock()
	f, ok := c.functions[key]
	c.funcsMu.RUnlock()
	return f, ok
}

// Overloads returns the overload set registered under qualified, in
// registration order. Methods are registered under "Owner::name".
func (c *Catalog) Overloads(qualified string) []types.TypeKey {
	c.funcsMu.RLock()
	defer c.funcsMu.RUnlock()
	return slices.Clone(c.overloads[qualified])
}

// FunctionCount returns the number of registered functions.
func (c *Catalog) FunctionCount() int {
	c.funcsMu.RLock()
	defer c.funcsMu.RUnlock()
	return len(c.functions)
}

// RangeFunctions calls fn for every function ordered by key.
func (c *Catalog) RangeFunctions(fn func(*Function) bool) {
	c.funcsMu.RLock()
	list := make([]*Function, 0, len(c.functions))
	for _, f := range c.functions {
		list = append(list, f)
	}
	c.funcsMu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	for _, f := range list {
		if !fn(f) {
			return
		}
	}
}

// Methods returns methods called name visible on owner: the owner's own
// overloads first, then inherited ones not hidden by an identical
// signature. For interfaces the base interfaces are searched.
func (c *Catalog) Methods(owner types.TypeKey, name string) []types.TypeKey {
	var out []types.TypeKey
	seen := make(map[string]bool)
	visited := make(map[types.TypeKey]bool)
	queue := []types.TypeKey{owner}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		if visited[key] {
			continue
		}
		visited[key] = true
		e, ok := c.Get(key)
		if !ok {
			continue
		}
		for _, fk := range c.Overloads(e.QualifiedName() + "::" + name) {
			f, ok := c.Function(fk)
			if !ok {
				continue
			}
			sig := signatureKey(f)
			if seen[sig] {
				continue
			}
			seen[sig] = true
			out = append(out, fk)
		}
		switch e.Kind {
		case KindClass:
			if e.Class.Base.IsValid() {
				queue = append(queue, e.Class.Base)
			}
		case KindInterface:
			queue = append(queue, e.Interface.Bases...)
		}
	}
	return out
}

func signatureKey(f *Function) string {
	var b strings.Builder
	for _, k := range f.ParamKeys() {
		b.WriteString(k.String())
		b.WriteByte(',')
	}
	if f.Traits.Const {
		b.WriteString("const")
	}
	return b.String()
}

// Constructors returns the constructor keys of class.
func (c *Catalog) Constructors(class types.TypeKey) []types.TypeKey {
	e, ok := c.Get(class)
	if !ok || e.Kind != KindClass {
		return nil
	}
	return slices.Clone(e.Class.Behaviors.Constructors)
}

// OperatorMethods returns the methods implementing op on owner, walking
// base classes when the owner has none of its own.
func (c *Catalog) OperatorMethods(owner types.TypeKey, op types.Operator) []types.TypeKey {
	for guard := 0; owner.IsValid() && guard < maxHierarchyDepth; guard++ {
		e, ok := c.Get(owner)
		if !ok || e.Kind != KindClass {
			return nil
		}
		if keys := e.Class.Behaviors.Operator(op); len(keys) > 0 {
			return slices.Clone(keys)
		}
		owner = e.Class.Base
	}
	return nil
}
