package diag

import "anvil/internal/source"

// Reporter receives diagnostics as a phase produces them.
type Reporter interface {
	Report(d Diagnostic)
}

// ReportBuilder collects notes before handing the diagnostic to a Reporter.
type ReportBuilder struct {
	to   Reporter
	d    Diagnostic
	sent bool
}

// Report starts a diagnostic of the given severity.
func Report(r Reporter, sev Severity, code Code, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{to: r, d: Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary}}
}

// ReportError starts an error diagnostic.
func ReportError(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return Report(r, SevError, code, primary, msg)
}

func (b *ReportBuilder) WithNote(sp source.Span, msg string) *ReportBuilder {
	if b != nil {
		b.d.Notes = append(b.d.Notes, Note{Span: sp, Msg: msg})
	}
	return b
}

// Emit forwards the diagnostic. Later calls do nothing.
func (b *ReportBuilder) Emit() {
	if b == nil || b.sent {
		return
	}
	b.sent = true
	if b.to != nil {
		b.to.Report(b.d)
	}
}

// BagReporter appends to Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag != nil {
		r.Bag.Add(d)
	}
}

type dedupKey struct {
	code    Code
	primary source.Span
	msg     string
}

// DedupReporter forwards each distinct code, span and message once. An
// unknown type named by many declarations of one manifest is reported a
// single time.
type DedupReporter struct {
	next       Reporter
	seen       map[dedupKey]struct{}
	suppressed int
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(d Diagnostic) {
	key := dedupKey{code: d.Code, primary: d.Primary, msg: d.Message}
	if _, dup := r.seen[key]; dup {
		r.suppressed++
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(d)
	}
}

// Suppressed counts the duplicates dropped so far.
func (r *DedupReporter) Suppressed() int { return r.suppressed }
