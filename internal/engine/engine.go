// Package engine wires the catalog, conversion checker, resolvers and
// template instantiator into one session object.
//
// An Engine is shared by every compilation unit and is safe for
// concurrent use. A Unit belongs to one goroutine: it collects non-fatal
// errors as diagnostics and stops at the first fatal one.
package engine

import (
	"anvil/internal/catalog"
	"anvil/internal/conv"
	"anvil/internal/hostmod"
	"anvil/internal/instantiate"
	"anvil/internal/observ"
	"anvil/internal/overload"
	"anvil/internal/resolve"
	"anvil/internal/trace"
)

// Engine owns the shared semantic state.
type Engine struct {
	cat      *catalog.Catalog
	chk      *conv.Checker
	inst     *instantiate.Instantiator
	types    *resolve.Resolver
	calls    *overload.Resolver
	tracer   trace.Tracer
	counters *observ.Counters
}

type config struct {
	cat       *catalog.Catalog
	tracer    trace.Tracer
	counters  *observ.Counters
	instOpts  []instantiate.Option
	arrayName string
}

// Option configures NewEngine.
type Option func(*config)

// WithTracer routes engine events to t.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) { c.tracer = t }
}

// WithCatalog starts from an existing catalog instead of a fresh one.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *config) { c.cat = cat }
}

// WithCounters records engine counters into cs.
func WithCounters(cs *observ.Counters) Option {
	return func(c *config) { c.counters = cs }
}

// WithInstantiatorOptions forwards options to the template instantiator.
func WithInstantiatorOptions(opts ...instantiate.Option) Option {
	return func(c *config) { c.instOpts = append(c.instOpts, opts...) }
}

// WithArrayTemplate names the template behind "T[]".
func WithArrayTemplate(qualified string) Option {
	return func(c *config) { c.arrayName = qualified }
}

// NewEngine builds an engine. Without WithCatalog a fresh catalog with
// only the built-in primitives is used.
func NewEngine(opts ...Option) *Engine {
	cfg := config{tracer: trace.Nop, arrayName: resolve.DefaultArrayTemplate}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracer == nil {
		cfg.tracer = trace.Nop
	}
	if cfg.counters == nil {
		cfg.counters = observ.DefaultCounters()
	}
	if cfg.cat == nil {
		cfg.cat = catalog.New(catalog.WithTracer(cfg.tracer))
	}

	e := &Engine{cat: cfg.cat, tracer: cfg.tracer, counters: cfg.counters}
	e.chk = conv.NewChecker(e.cat, conv.WithCounters(e.counters))
	instOpts := append([]instantiate.Option{
		instantiate.WithTracer(e.tracer),
		instantiate.WithCounters(e.counters),
	}, cfg.instOpts...)
	e.inst = instantiate.New(e.cat, e.chk, instOpts...)
	e.types = resolve.NewResolver(e.cat, e.inst,
		resolve.WithArrayTemplate(cfg.arrayName),
		resolve.WithCounters(e.counters))
	e.calls = overload.NewResolver(e.cat, e.chk, overload.WithCounters(e.counters))
	return e
}

// Catalog returns the shared catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Checker returns the conversion checker.
func (e *Engine) Checker() *conv.Checker { return e.chk }

// Instantiator returns the template instantiator.
func (e *Engine) Instantiator() *instantiate.Instantiator { return e.inst }

// Types returns the type resolver.
func (e *Engine) Types() *resolve.Resolver { return e.types }

// Calls returns the overload resolver.
func (e *Engine) Calls() *overload.Resolver { return e.calls }

// Counters returns the engine counters.
func (e *Engine) Counters() *observ.Counters { return e.counters }

// Tracer returns the engine tracer.
func (e *Engine) Tracer() trace.Tracer { return e.tracer }

// Install installs native modules into the shared catalog.
func (e *Engine) Install(modules ...hostmod.Module) error {
	return hostmod.Install(hostmod.Host{Catalog: e.cat, Templates: e.inst}, modules...)
}
