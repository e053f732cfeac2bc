// Package instantiate produces concrete instances of class and function
// templates and writes them back into the catalog.
//
// Instances are keyed by catalog.InstanceKey(template, args), so the same
// request always yields the same key. Concurrent identical top-level
// requests share one build through singleflight; nested instantiations
// triggered while substituting run inside the outer build. A type that
// refers to itself through its members resolves to its own in-progress
// key. Everything one request builds is committed as a group once the
// whole build succeeded, so a failure deep inside leaves the catalog
// untouched. Nesting deeper than the configured limit is a fatal
// CircularTemplateInstantiation.
package instantiate

import (
	"slices"
	"strings"

	"golang.org/x/sync/singleflight"

	"anvil/internal/catalog"
	"anvil/internal/conv"
	"anvil/internal/diag"
	"anvil/internal/observ"
	"anvil/internal/semerr"
	"anvil/internal/trace"
	"anvil/internal/types"
)

// DefaultMaxDepth bounds nested instantiation.
const DefaultMaxDepth = 64

// Instantiator builds template instances.
type Instantiator struct {
	cat               *catalog.Catalog
	chk               *conv.Checker
	maxDepth          int
	ifHandleThenConst bool
	tracer            trace.Tracer
	counters          *observ.Counters

	group singleflight.Group
}

// Option configures an Instantiator.
type Option func(*Instantiator)

// WithMaxDepth sets the nesting limit. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(in *Instantiator) {
		if n > 0 {
			in.maxDepth = n
		}
	}
}

// WithIfHandleThenConst controls whether "const T" with a handle argument
// also makes the referenced object const.
func WithIfHandleThenConst(on bool) Option {
	return func(in *Instantiator) { in.ifHandleThenConst = on }
}

// WithTracer emits a unit-level span per top-level instantiation.
func WithTracer(t trace.Tracer) Option {
	return func(in *Instantiator) {
		if t != nil {
			in.tracer = t
		}
	}
}

// WithCounters records cache hits, misses and lost commit races.
func WithCounters(cs *observ.Counters) Option {
	return func(in *Instantiator) { in.counters = cs }
}

// New returns an Instantiator writing into cat. Validators reach chk
// through TemplateInfo.Convertible.
func New(cat *catalog.Catalog, chk *conv.Checker, opts ...Option) *Instantiator {
	in := &Instantiator{
		cat:               cat,
		chk:               chk,
		maxDepth:          DefaultMaxDepth,
		ifHandleThenConst: true,
		tracer:            trace.Nop,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Checker returns the conversion checker the instantiator was built with.
func (in *Instantiator) Checker() *conv.Checker { return in.chk }

// state is private to one top-level build. pending collects the
// instances built so far in dependency order; built indexes it by
// candidate.
type state struct {
	inProgress map[types.TypeKey]bool
	built      map[types.TypeKey]*catalog.Entry
	pending    []catalog.Pending
	depth      int
}

func newState() *state {
	return &state{
		inProgress: make(map[types.TypeKey]bool),
		built:      make(map[types.TypeKey]*catalog.Entry),
	}
}

func (st *state) add(p catalog.Pending) {
	st.pending = append(st.pending, p)
	st.built[p.Candidate] = p.Entry
}

// commit publishes everything st built.
func (in *Instantiator) commit(st *state) error {
	if len(st.pending) == 0 {
		return nil
	}
	n, err := in.cat.CommitInstances(st.pending)
	if err != nil {
		return err
	}
	if lost := len(st.pending) - n; lost > 0 {
		in.counters.Add(observ.CounterInstanceLost, uint64(lost))
	}
	return nil
}

// Instantiate returns the instance of the class template for args,
// building and committing it when it is not cached yet.
func (in *Instantiator) Instantiate(template types.TypeKey, args []types.TypeRef) (types.TypeKey, error) {
	candidate := catalog.InstanceKey(template, args)
	if key, ok := in.cat.CachedInstanceByKey(candidate); ok {
		in.counters.Add(observ.CounterInstanceHit, 1)
		return key, nil
	}
	span := trace.Begin(in.tracer, trace.ScopeUnit, "instantiate", 0)
	v, err, _ := in.group.Do(candidate.String(), func() (any, error) {
		st := newState()
		key, err := in.build(st, template, args)
		if err != nil {
			return types.ErrorKey, err
		}
		return key, in.commit(st)
	})
	span.End(in.displayName(template, args))
	if err != nil {
		return types.ErrorKey, err
	}
	return v.(types.TypeKey), nil
}

// build does the work for one (template, args) pair, recursively.
func (in *Instantiator) build(st *state, template types.TypeKey, args []types.TypeRef) (types.TypeKey, error) {
	candidate := catalog.InstanceKey(template, args)
	if key, ok := in.cat.CachedInstanceByKey(candidate); ok {
		in.counters.Add(observ.CounterInstanceHit, 1)
		return key, nil
	}
	if _, done := st.built[candidate]; done || st.inProgress[candidate] {
		return candidate, nil
	}
	in.counters.Add(observ.CounterInstanceMiss, 1)

	tmpl, ok := in.cat.Get(template)
	if !ok {
		return types.ErrorKey, semerr.Newf(semerr.InvariantViolation, []string{template.String()},
			"instance references an unregistered template").WithCode(diag.FatalUnknownTemplate)
	}
	if !tmpl.IsTemplate() {
		return types.ErrorKey, semerr.Newf(semerr.UnknownType, []string{tmpl.QualifiedName()},
			"not a template").WithCode(diag.ResNotATemplate)
	}
	name := in.displayName(template, args)
	if len(args) != len(tmpl.Class.TemplateParams) {
		return types.ErrorKey, semerr.Newf(semerr.TemplateValidationRejected, []string{name},
			"expects %d template arguments, got %d", len(tmpl.Class.TemplateParams), len(args)).
			WithCode(diag.ResTemplateArity)
	}
	for _, a := range args {
		if a.IsError() {
			return types.ErrorKey, nil
		}
	}
	if st.depth >= in.maxDepth {
		return types.ErrorKey, semerr.Newf(semerr.CircularTemplateInstantiation, []string{name},
			"nesting exceeds %d levels", in.maxDepth)
	}

	verdict, err := in.validate(st, template, name, args)
	if err != nil {
		return types.ErrorKey, err
	}

	st.inProgress[candidate] = true
	st.depth++
	defer func() {
		delete(st.inProgress, candidate)
		st.depth--
	}()

	entry, fns, err := in.buildClass(st, tmpl, candidate, args, verdict)
	if err != nil {
		return types.ErrorKey, err
	}
	st.add(catalog.Pending{Candidate: candidate, Entry: entry, Functions: fns})
	return candidate, nil
}

// validate runs the template's validator. Instances whose arguments are
// still template parameters (array<T> inside another template's
// declaration) are not validated.
func (in *Instantiator) validate(st *state, template types.TypeKey, name string, args []types.TypeRef) (catalog.Verdict, error) {
	if in.dependent(args) {
		return catalog.Accept(), nil
	}
	v, ok := in.cat.ValidatorFor(template)
	if !ok {
		return catalog.Accept(), nil
	}
	verdict := v(catalog.TemplateInfo{
		Template:    template,
		Name:        name,
		Args:        slices.Clone(args),
		Catalog:     in.cat,
		Building:    st.built,
		Convertible: in.convertible,
	})
	if verdict.Rejected() {
		return verdict, semerr.Newf(semerr.TemplateValidationRejected, []string{name}, "%s", verdict.Msg)
	}
	return verdict, nil
}

func (in *Instantiator) convertible(from, to types.TypeRef) bool {
	if in.chk == nil {
		return false
	}
	_, ok := in.chk.CanConvert(from, to)
	return ok
}

func (in *Instantiator) dependent(args []types.TypeRef) bool {
	for _, a := range args {
		e, ok := in.cat.Get(a.Base)
		if !ok {
			continue
		}
		if e.Kind == catalog.KindTemplateParam {
			return true
		}
		if e.IsInstance() && in.dependent(e.Class.TemplateArgs) {
			return true
		}
	}
	return false
}

func (in *Instantiator) buildClass(st *state, tmpl *catalog.Entry, candidate types.TypeKey, args []types.TypeRef, verdict catalog.Verdict) (*catalog.Entry, []*catalog.Function, error) {
	src := tmpl.Class
	s := newSubst(in, st, tmpl.Key, candidate, src.TemplateParams, args)

	info := &catalog.ClassInfo{
		Template:     tmpl.Key,
		TemplateArgs: slices.Clone(args),
		ValueType:    src.ValueType,
		NeedsGC:      src.NeedsGC || verdict.NeedsGC(),
	}
	var err error
	if info.Base, err = s.Key(src.Base); err != nil {
		return nil, nil, err
	}
	for _, iface := range src.Interfaces {
		k, err := s.Key(iface)
		if err != nil {
			return nil, nil, err
		}
		info.Interfaces = append(info.Interfaces, k)
	}
	for _, f := range src.Fields {
		t, err := s.Ref(f.Type)
		if err != nil {
			return nil, nil, err
		}
		info.Fields = append(info.Fields, catalog.Field{Name: f.Name, Type: t})
	}

	memberKeys := slices.Concat(src.Behaviors.Constructors, src.Methods)
	renamed := make(map[types.TypeKey]types.TypeKey, len(memberKeys))
	fns := make([]*catalog.Function, 0, len(memberKeys))
	for _, mk := range memberKeys {
		fn, ok := in.cat.Function(mk)
		if !ok {
			return nil, nil, semerr.Newf(semerr.InvariantViolation, []string{tmpl.QualifiedName()},
				"template member %s is not registered", mk).WithCode(diag.FatalCorruptCatalog)
		}
		out, err := s.Function(fn, candidate)
		if err != nil {
			return nil, nil, err
		}
		renamed[mk] = out.Key
		fns = append(fns, out)
	}
	for _, p := range src.Properties {
		t, err := s.Ref(p.Type)
		if err != nil {
			return nil, nil, err
		}
		info.Properties = append(info.Properties, catalog.Property{
			Name:   p.Name,
			Type:   t,
			Getter: renamed[p.Getter],
			Setter: renamed[p.Setter],
		})
	}

	entry := &catalog.Entry{
		Key:       candidate,
		Kind:      catalog.KindClass,
		Name:      tmpl.Name + "<" + in.argList(args) + ">",
		Namespace: slices.Clone(tmpl.Namespace),
		Class:     info,
	}
	return entry, fns, nil
}

// InstantiateFunction returns the instance of the template function fn
// for args. Function instances get their own overload set, "name<args>",
// so they never compete with the template or with plain overloads.
func (in *Instantiator) InstantiateFunction(fn types.TypeKey, args []types.TypeRef) (types.TypeKey, error) {
	candidate := catalog.InstanceKey(fn, args)
	if key, ok := in.cat.CachedInstanceByKey(candidate); ok {
		in.counters.Add(observ.CounterInstanceHit, 1)
		return key, nil
	}
	v, err, _ := in.group.Do(candidate.String(), func() (any, error) {
		st := newState()
		key, err := in.buildFunction(st, fn, args)
		if err != nil {
			return types.ErrorKey, err
		}
		return key, in.commit(st)
	})
	if err != nil {
		return types.ErrorKey, err
	}
	return v.(types.TypeKey), nil
}

func (in *Instantiator) buildFunction(st *state, key types.TypeKey, args []types.TypeRef) (types.TypeKey, error) {
	candidate := catalog.InstanceKey(key, args)
	if k, ok := in.cat.CachedInstanceByKey(candidate); ok {
		return k, nil
	}
	in.counters.Add(observ.CounterInstanceMiss, 1)

	fn, ok := in.cat.Function(key)
	if !ok {
		return types.ErrorKey, semerr.Newf(semerr.InvariantViolation, []string{key.String()},
			"instance references an unregistered template function").WithCode(diag.FatalUnknownTemplate)
	}
	base := types.Qualify(fn.Namespace, fn.Name)
	if fn.Owner.IsValid() {
		base = in.cat.TypeName(fn.Owner) + "::" + fn.Name
	}
	if len(fn.TemplateParams) == 0 {
		return types.ErrorKey, semerr.Newf(semerr.UnknownType, []string{base}, "not a template").
			WithCode(diag.ResNotATemplate)
	}
	name := base + "<" + in.argList(args) + ">"
	if len(args) != len(fn.TemplateParams) {
		return types.ErrorKey, semerr.Newf(semerr.TemplateValidationRejected, []string{name},
			"expects %d template arguments, got %d", len(fn.TemplateParams), len(args)).
			WithCode(diag.ResTemplateArity)
	}
	if _, err := in.validate(st, key, name, args); err != nil {
		return types.ErrorKey, err
	}

	st.inProgress[candidate] = true
	st.depth++
	s := newSubst(in, st, types.NoKey, types.NoKey, fn.TemplateParams, args)
	out, err := s.Function(fn, fn.Owner)
	st.depth--
	delete(st.inProgress, candidate)
	if err != nil {
		return types.ErrorKey, err
	}
	out.Key = candidate
	out.Traits.Template = false
	out.TemplateParams = nil
	out.Template = key
	out.TemplateArgs = slices.Clone(args)

	st.add(catalog.Pending{Candidate: candidate, Functions: []*catalog.Function{out}, SetName: name})
	return candidate, nil
}

func (in *Instantiator) displayName(template types.TypeKey, args []types.TypeRef) string {
	return in.cat.TypeName(template) + "<" + in.argList(args) + ">"
}

func (in *Instantiator) argList(args []types.TypeRef) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = in.cat.RefString(a)
	}
	return strings.Join(parts, ", ")
}
