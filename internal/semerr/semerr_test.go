package semerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"anvil/internal/diag"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(AmbiguousOverload, "f").WithCandidates("f(int, float)", "f(float, int)")
	wrapped := fmt.Errorf("resolving call: %w", err)
	if !errors.Is(wrapped, ErrAmbiguousOverload) {
		t.Fatalf("wrapped error must match its kind sentinel")
	}
	if errors.Is(wrapped, ErrNoViableOverload) {
		t.Fatalf("different kinds must not match")
	}
	msg := err.Error()
	if !strings.Contains(msg, "f(int, float)") || !strings.Contains(msg, "f(float, int)") {
		t.Fatalf("ambiguity must name both candidates: %s", msg)
	}
}

func TestFatalKinds(t *testing.T) {
	if !IsFatal(fmt.Errorf("x: %w", New(CircularTemplateInstantiation, "node<T>"))) {
		t.Fatalf("recursion limit must be fatal")
	}
	if IsFatal(New(UnknownType, "Foo")) || IsFatal(errors.New("plain")) {
		t.Fatalf("ordinary errors are not fatal")
	}
	if KindOf(New(InvariantViolation)) != InvariantViolation || KindOf(nil) != KindUnknown {
		t.Fatalf("KindOf mismatch")
	}
}

func TestDiagCodes(t *testing.T) {
	tests := []struct {
		kind Kind
		want diag.Code
	}{
		{UnknownType, diag.ResUnknownType},
		{DuplicateDefinition, diag.RegDuplicateDefinition},
		{NoViableOverload, diag.SemaNoOverload},
		{TemplateValidationRejected, diag.ResTemplateValidationRejected},
		{CircularTemplateInstantiation, diag.FatalCircularInstantiation},
	}
	for _, tt := range tests {
		if got := New(tt.kind).DiagCode(); got != tt.want {
			t.Fatalf("%s: want %v, got %v", tt.kind, tt.want, got)
		}
	}
	if New(UnknownType).WithCode(diag.ResNotATemplate).DiagCode() != diag.ResNotATemplate {
		t.Fatalf("explicit code must win")
	}
	e := Newf(TemplateValidationRejected, []string{"dictionary"}, "key type %s is not hashable", "Blob")
	if !strings.HasSuffix(e.Error(), "key type Blob is not hashable") {
		t.Fatalf("unexpected message %q", e.Error())
	}
}
