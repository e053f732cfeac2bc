// Package semerr defines the error values produced by the catalog,
// resolvers and instantiator.
//
// Every error carries the offending names and, for overload failures, the
// candidate list so a host can render a precise message. errors.Is matches
// on Kind, so callers can test against the exported sentinels:
//
//	if errors.Is(err, semerr.ErrAmbiguousOverload) { ... }
//
// Fatal errors mark a corrupted registration sequence and stop the
// compilation unit; all other kinds are collected as diagnostics.
package semerr

import (
	"errors"
	"fmt"
	"strings"

	"anvil/internal/diag"
)

// Kind classifies an Error.
type Kind uint8

const (
	KindUnknown Kind = iota
	UnknownType
	DuplicateDefinition
	InvalidConversion
	NoViableOverload
	AmbiguousOverload
	TemplateValidationRejected
	CircularTemplateInstantiation
	// InvariantViolation covers catalog corruption such as an instance
	// naming a template key that was never registered.
	InvariantViolation
)

var kindNames = [...]string{
	KindUnknown:                   "unknown",
	UnknownType:                   "unknown type",
	DuplicateDefinition:           "duplicate definition",
	InvalidConversion:             "invalid conversion",
	NoViableOverload:              "no viable overload",
	AmbiguousOverload:             "ambiguous overload",
	TemplateValidationRejected:    "template validation rejected",
	CircularTemplateInstantiation: "circular template instantiation",
	InvariantViolation:            "catalog invariant violated",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsFatal reports kinds that abort the compilation unit.
func (k Kind) IsFatal() bool {
	return k == CircularTemplateInstantiation || k == InvariantViolation
}

// Error is the error type of the semantic core.
type Error struct {
	Kind       Kind
	Names      []string // offending type or function names
	Candidates []string // overload candidates, in declaration order
	Msg        string   // extra detail, e.g. a validator's rejection text
	Code       diag.Code
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if len(e.Names) > 0 {
		b.WriteString(" '")
		b.WriteString(strings.Join(e.Names, "', '"))
		b.WriteString("'")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Candidates) > 0 {
		b.WriteString(" (candidates: ")
		b.WriteString(strings.Join(e.Candidates, "; "))
		b.WriteString(")")
	}
	return b.String()
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// IsFatal reports whether e aborts the compilation unit.
func (e *Error) IsFatal() bool { return e.Kind.IsFatal() }

// DiagCode returns the diagnostic code for e, defaulting by kind.
func (e *Error) DiagCode() diag.Code {
	if e.Code != diag.UnknownCode {
		return e.Code
	}
	switch e.Kind {
	case UnknownType:
		return diag.ResUnknownType
	case DuplicateDefinition:
		return diag.RegDuplicateDefinition
	case InvalidConversion:
		return diag.SemaInvalidConversion
	case NoViableOverload:
		return diag.SemaNoOverload
	case AmbiguousOverload:
		return diag.SemaAmbiguousOverload
	case TemplateValidationRejected:
		return diag.ResTemplateValidationRejected
	case CircularTemplateInstantiation:
		return diag.FatalCircularInstantiation
	case InvariantViolation:
		return diag.FatalCorruptCatalog
	}
	return diag.UnknownCode
}

// Sentinels for errors.Is.
var (
	ErrUnknownType                   = &Error{Kind: UnknownType}
	ErrDuplicateDefinition           = &Error{Kind: DuplicateDefinition}
	ErrInvalidConversion             = &Error{Kind: InvalidConversion}
	ErrNoViableOverload              = &Error{Kind: NoViableOverload}
	ErrAmbiguousOverload             = &Error{Kind: AmbiguousOverload}
	ErrTemplateValidationRejected    = &Error{Kind: TemplateValidationRejected}
	ErrCircularTemplateInstantiation = &Error{Kind: CircularTemplateInstantiation}
	ErrInvariantViolation            = &Error{Kind: InvariantViolation}
)

// New builds an Error of kind naming names.
func New(kind Kind, names ...string) *Error {
	return &Error{Kind: kind, Names: names}
}

// Newf builds an Error with a formatted detail message.
func Newf(kind Kind, names []string, format string, args ...any) *Error {
	return &Error{Kind: kind, Names: names, Msg: fmt.Sprintf(format, args...)}
}

// WithCode overrides the diagnostic code.
func (e *Error) WithCode(code diag.Code) *Error {
	e.Code = code
	return e
}

// WithCandidates attaches the candidate list.
func (e *Error) WithCandidates(candidates ...string) *Error {
	e.Candidates = candidates
	return e
}

// IsFatal reports whether err (or anything it wraps) is a fatal *Error.
func IsFatal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsFatal()
}

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
