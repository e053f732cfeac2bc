package engine

import (
	"errors"

	"anvil/internal/catalog"
	"anvil/internal/conv"
	"anvil/internal/diag"
	"anvil/internal/overload"
	"anvil/internal/resolve"
	"anvil/internal/semerr"
	"anvil/internal/source"
	"anvil/internal/trace"
	"anvil/internal/types"
)

// Unit is one compilation unit's view of the engine.
type Unit struct {
	eng  *Engine
	name string
	bag  *diag.Bag
	rep  diag.Reporter
	err  error
	span *trace.Span
}

// NewUnit starts a unit whose diagnostics are capped at maxDiagnostics.
func (e *Engine) NewUnit(name string, maxDiagnostics int) *Unit {
	bag := diag.NewBag(maxDiagnostics)
	return &Unit{
		eng:  e,
		name: name,
		bag:  bag,
		rep:  diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		span: trace.Begin(e.tracer, trace.ScopeUnit, "unit", 0).WithExtra("unit", name),
	}
}

// Engine returns the engine the unit belongs to.
func (u *Unit) Engine() *Engine { return u.eng }

// Stopped reports whether a fatal error ended the unit.
func (u *Unit) Stopped() bool { return u.err != nil }

// Name returns the unit name.
func (u *Unit) Name() string { return u.name }

// Diagnostics returns the collected diagnostics.
func (u *Unit) Diagnostics() *diag.Bag { return u.bag }

// Err returns the fatal error that stopped the unit, if any.
func (u *Unit) Err() error { return u.err }

// Close ends the unit's trace span.
func (u *Unit) Close() {
	u.span.End(u.name)
}

// coded is implemented by errors outside semerr that know their
// diagnostic code.
type coded interface {
	Code() diag.Code
}

// Report files err at the given location. Fatal errors stop the unit and
// are not collected. Failures caused by an error-typed operand are
// dropped: their cause was reported already.
func (u *Unit) Report(err error, at source.Span) {
	u.report(err, at)
}

func (u *Unit) report(err error, at source.Span) {
	if err == nil || errors.Is(err, overload.ErrErrorArgument) {
		return
	}
	if semerr.IsFatal(err) {
		if u.err == nil {
			u.err = err
		}
		return
	}
	code := diag.UnknownCode
	var (
		se *semerr.Error
		ce coded
	)
	switch {
	case errors.As(err, &se):
		code = se.DiagCode()
	case errors.As(err, &ce):
		code = ce.Code()
	}
	b := diag.ReportError(u.rep, code, at, err.Error())
	if se != nil {
		for _, c := range se.Candidates {
			b.WithNote(source.NoSpan, "candidate: "+c)
		}
	}
	b.Emit()
}

func (u *Unit) stopped() bool { return u.err != nil }

// ResolveType resolves expr. Failures are reported and yield the error
// sentinel.
func (u *Unit) ResolveType(expr *resolve.TypeExpr, ctx resolve.Context) types.TypeRef {
	if u.stopped() {
		return types.ErrorRef
	}
	ref, err := u.eng.types.Resolve(expr, ctx)
	if err != nil {
		var at source.Span
		if expr != nil {
			at = expr.Span
		}
		u.report(err, at)
		return types.ErrorRef
	}
	return ref
}

// CanConvert reports the implicit plan from from to to. Nothing is
// reported: a missing conversion is an answer, not an error.
func (u *Unit) CanConvert(from, to types.TypeRef) (conv.Plan, bool) {
	return u.eng.chk.CanConvert(from, to)
}

// CanConvertExplicit also considers explicit-only plans.
func (u *Unit) CanConvertExplicit(from, to types.TypeRef) (conv.Plan, bool) {
	return u.eng.chk.CanConvertExplicit(from, to)
}

// Convert checks an implicit conversion the caller requires and reports
// InvalidConversion when there is none.
func (u *Unit) Convert(from, to types.TypeRef, at source.Span) (conv.Plan, bool) {
	plan, ok := u.eng.chk.CanConvert(from, to)
	if ok {
		return plan, true
	}
	c := u.eng.cat
	err := semerr.Newf(semerr.InvalidConversion, []string{c.RefString(from), c.RefString(to)},
		"no implicit conversion")
	if _, explicit := u.eng.chk.CanConvertExplicit(from, to); explicit {
		err = err.WithCode(diag.SemaExplicitConversion)
		err.Msg = "conversion requires an explicit cast"
	}
	u.report(err, at)
	return conv.Plan{}, false
}

// ResolveOverload resolves a call to the possibly qualified function
// name ("ns::f") from ctx.
func (u *Unit) ResolveOverload(name string, args []types.TypeRef, ctx resolve.Context) (overload.Match, bool) {
	if u.stopped() {
		return overload.Match{}, false
	}
	scope, bare := types.SplitQualified(name)
	keys := u.eng.types.Functions(scope, bare, ctx)
	if len(keys) == 0 {
		u.report(semerr.New(semerr.NoViableOverload, name).WithCode(diag.SemaNoOverload), source.NoSpan)
		return overload.Match{}, false
	}
	return u.ResolveCandidates(keys, args)
}

// ResolveCandidates picks among an explicit candidate list.
func (u *Unit) ResolveCandidates(keys []types.TypeKey, args []types.TypeRef) (overload.Match, bool) {
	if u.stopped() {
		return overload.Match{}, false
	}
	m, err := u.eng.calls.Resolve(keys, args)
	if err != nil {
		u.report(err, source.NoSpan)
		return overload.Match{}, false
	}
	return m, true
}

// ResolveMethod resolves obj.name(args).
func (u *Unit) ResolveMethod(obj types.TypeRef, name string, args []types.TypeRef) (overload.Match, bool) {
	if u.stopped() {
		return overload.Match{}, false
	}
	m, err := u.eng.calls.ResolveMethod(obj, name, args)
	if err != nil {
		u.report(err, source.NoSpan)
		return overload.Match{}, false
	}
	return m, true
}

// ResolveConstructor resolves construction of class from args.
func (u *Unit) ResolveConstructor(class types.TypeKey, args []types.TypeRef) (overload.Match, bool) {
	if u.stopped() {
		return overload.Match{}, false
	}
	m, err := u.eng.calls.ResolveConstructor(class, args)
	if err != nil {
		u.report(err, source.NoSpan)
		return overload.Match{}, false
	}
	return m, true
}

// ResolveOperator resolves a binary operator, or a unary one when right
// is the zero TypeRef and op is unary.
func (u *Unit) ResolveOperator(op types.Surface, left, right types.TypeRef) (overload.OperatorMatch, bool) {
	if u.stopped() {
		return overload.OperatorMatch{Result: types.ErrorRef}, false
	}
	var (
		m   overload.OperatorMatch
		err error
	)
	if op.IsUnary() {
		m, err = u.eng.calls.ResolveUnary(op, left)
	} else {
		m, err = u.eng.calls.ResolveBinary(op, left, right)
	}
	if err != nil {
		u.report(err, source.NoSpan)
		return overload.OperatorMatch{Result: types.ErrorRef}, false
	}
	return m, true
}

// ResolveIndex resolves obj[args].
func (u *Unit) ResolveIndex(obj types.TypeRef, args []types.TypeRef) (overload.OperatorMatch, bool) {
	if u.stopped() {
		return overload.OperatorMatch{Result: types.ErrorRef}, false
	}
	m, err := u.eng.calls.ResolveIndex(obj, args)
	if err != nil {
		u.report(err, source.NoSpan)
		return overload.OperatorMatch{Result: types.ErrorRef}, false
	}
	return m, true
}

// Instantiate instantiates a class template directly.
func (u *Unit) Instantiate(template types.TypeKey, args []types.TypeRef) types.TypeKey {
	if u.stopped() {
		return types.ErrorKey
	}
	key, err := u.eng.inst.Instantiate(template, args)
	if err != nil {
		u.report(err, source.NoSpan)
		return types.ErrorKey
	}
	return key
}

// InstantiateFunction instantiates a template function.
func (u *Unit) InstantiateFunction(fn types.TypeKey, args []types.TypeRef) types.TypeKey {
	if u.stopped() {
		return types.ErrorKey
	}
	key, err := u.eng.inst.InstantiateFunction(fn, args)
	if err != nil {
		u.report(err, source.NoSpan)
		return types.ErrorKey
	}
	return key
}

// Catalog is a shortcut to the engine catalog.
func (u *Unit) Catalog() *catalog.Catalog { return u.eng.cat }
