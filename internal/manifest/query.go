package manifest

import (
	"errors"
	"fmt"
	"strings"

	"anvil/internal/diag"
	"anvil/internal/engine"
	"anvil/internal/resolve"
	"anvil/internal/semerr"
	"anvil/internal/source"
	"anvil/internal/typeparse"
	"anvil/internal/types"
)

// Result is the outcome of one query.
type Result struct {
	Index int
	Kind  string
	Got   string
	Cost  uint32
	Err   error
	Pass  bool
}

// MismatchError reports a query whose answer differs from its
// expectation.
type MismatchError struct {
	Path  string
	Index int
	Kind  string
	Want  string
	Got   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: query %d (%s): want %s, got %s", e.Path, e.Index, e.Kind, e.Want, e.Got)
}

// Code is the diagnostic code of e.
func (e *MismatchError) Code() diag.Code { return diag.SemaQueryMismatch }

// Run evaluates the queries of m against the unit's engine. Answers come
// straight from the components, so an expected failure is not reported;
// a mismatch is reported as a SemaQueryMismatch diagnostic. A fatal error
// stops the unit and the remaining queries.
func Run(u *engine.Unit, m *Manifest) []Result {
	r := &runner{u: u, eng: u.Engine(), path: m.Path, ctx: m.Context()}
	results := make([]Result, 0, len(m.Queries))
	for i := range m.Queries {
		if u.Stopped() {
			break
		}
		q := &m.Queries[i]
		res := r.run(q)
		res.Index, res.Kind = i, q.Kind
		if semerr.IsFatal(res.Err) {
			u.Report(res.Err, source.NoSpan)
			results = append(results, res)
			break
		}
		res.Pass = r.check(q, &res)
		results = append(results, res)
	}
	return results
}

type runner struct {
	u    *engine.Unit
	eng  *engine.Engine
	path string
	ctx  resolve.Context
}

func (r *runner) run(q *Query) Result {
	switch q.Kind {
	case "resolve":
		ref, err := r.typeOf(q.Type)
		return r.refResult(ref, 0, err)
	case "convert":
		return r.convert(q)
	case "overload":
		args, err := r.types(q.Args)
		if err != nil {
			return Result{Err: err}
		}
		scope, name := types.SplitQualified(q.Name)
		keys := r.eng.Types().Functions(scope, name, r.ctx)
		if len(keys) == 0 {
			return Result{Err: semerr.New(semerr.NoViableOverload, q.Name)}
		}
		m, err := r.eng.Calls().Resolve(keys, args)
		return r.fnResult(m.Function, m.Cost, err)
	case "method":
		obj, err := r.typeOf(q.Object)
		if err != nil {
			return Result{Err: err}
		}
		args, err := r.types(q.Args)
		if err != nil {
			return Result{Err: err}
		}
		m, err := r.eng.Calls().ResolveMethod(obj, q.Name, args)
		return r.fnResult(m.Function, m.Cost, err)
	case "constructor":
		obj, err := r.typeOf(q.Object)
		if err != nil {
			return Result{Err: err}
		}
		args, err := r.types(q.Args)
		if err != nil {
			return Result{Err: err}
		}
		m, err := r.eng.Calls().ResolveConstructor(obj.Base, args)
		return r.fnResult(m.Function, m.Cost, err)
	case "operator":
		return r.operator(q)
	case "index":
		obj, err := r.typeOf(q.Object)
		if err != nil {
			return Result{Err: err}
		}
		args, err := r.types(q.Args)
		if err != nil {
			return Result{Err: err}
		}
		m, err := r.eng.Calls().ResolveIndex(obj, args)
		return r.refResult(m.Result, 0, err)
	}
	return Result{Err: &Error{Path: r.path, code: diag.ManInvalidQuery, Msg: fmt.Sprintf("unknown query kind %q", q.Kind)}}
}

func (r *runner) convert(q *Query) Result {
	from, err := r.typeOf(q.From)
	if err != nil {
		return Result{Err: err}
	}
	to, err := r.typeOf(q.To)
	if err != nil {
		return Result{Err: err}
	}
	chk := r.eng.Checker()
	check := chk.CanConvert
	if q.Explicit {
		check = chk.CanConvertExplicit
	}
	plan, ok := check(from, to)
	if !ok {
		return Result{Got: "none"}
	}
	return Result{Got: plan.Kind.String(), Cost: plan.Cost}
}

func (r *runner) operator(q *Query) Result {
	op, ok := types.ParseSurface(q.Op)
	if !ok {
		return Result{Err: &Error{Path: r.path, code: diag.ManInvalidQuery, Msg: fmt.Sprintf("unknown operator %q", q.Op)}}
	}
	left, err := r.typeOf(q.Left)
	if err != nil {
		return Result{Err: err}
	}
	if op.IsUnary() {
		m, err := r.eng.Calls().ResolveUnary(op, left)
		return r.refResult(m.Result, 0, err)
	}
	right, err := r.typeOf(q.Right)
	if err != nil {
		return Result{Err: err}
	}
	m, err := r.eng.Calls().ResolveBinary(op, left, right)
	return r.refResult(m.Result, 0, err)
}

func (r *runner) typeOf(text string) (types.TypeRef, error) {
	expr, err := typeparse.ParseType(text)
	if err != nil {
		return types.ErrorRef, err
	}
	return r.eng.Types().Resolve(expr, r.ctx)
}

func (r *runner) types(texts []string) ([]types.TypeRef, error) {
	out := make([]types.TypeRef, len(texts))
	for i, t := range texts {
		ref, err := r.typeOf(t)
		if err != nil {
			return nil, err
		}
		out[i] = ref
	}
	return out, nil
}

func (r *runner) refResult(ref types.TypeRef, cost uint32, err error) Result {
	if err != nil {
		return Result{Err: err}
	}
	return Result{Got: r.eng.Catalog().RefString(ref), Cost: cost}
}

func (r *runner) fnResult(fn types.TypeKey, cost uint32, err error) Result {
	if err != nil {
		return Result{Err: err}
	}
	return Result{Got: r.eng.Catalog().SignatureOf(fn), Cost: cost}
}

// check compares res with the expectation of q and reports a mismatch.
func (r *runner) check(q *Query, res *Result) bool {
	want, got := r.expectation(q), r.answer(q, res)
	if want == got {
		return true
	}
	r.u.Report(&MismatchError{Path: r.path, Index: res.Index, Kind: q.Kind, Want: want, Got: got}, source.NoSpan)
	return false
}

func (r *runner) expectation(q *Query) string {
	var parts []string
	switch {
	case q.Error != "":
		parts = append(parts, "error "+q.Error)
	case q.Expect != "":
		parts = append(parts, q.Expect)
	default:
		parts = append(parts, "success")
	}
	if q.Cost != nil {
		parts = append(parts, fmt.Sprintf("cost %d", *q.Cost))
	}
	return strings.Join(parts, ", ")
}

// answer renders res in the same shape as the expectation of q so the two
// can be compared as strings.
func (r *runner) answer(q *Query, res *Result) string {
	var parts []string
	switch {
	case res.Err != nil && q.Error != "":
		parts = append(parts, "error "+errorKind(res.Err))
	case res.Err != nil:
		parts = append(parts, "error "+errorKind(res.Err)+" ("+res.Err.Error()+")")
	case q.Expect != "" || q.Error != "":
		parts = append(parts, res.Got)
	default:
		parts = append(parts, "success")
	}
	if q.Cost != nil {
		parts = append(parts, fmt.Sprintf("cost %d", res.Cost))
	}
	return strings.Join(parts, ", ")
}

func errorKind(err error) string {
	if k := semerr.KindOf(err); k != semerr.KindUnknown {
		return k.String()
	}
	var se *typeparse.SyntaxError
	if errors.As(err, &se) {
		return "syntax"
	}
	return "invalid query"
}
