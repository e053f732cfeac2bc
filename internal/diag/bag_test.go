package diag

import (
	"strings"
	"testing"

	"anvil/internal/source"
)

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	for i := 0; i < 3; i++ {
		b.Add(NewError(ResUnknownType, source.Span{}, "unknown"))
	}
	if b.Len() != 2 {
		t.Fatalf("bag must stop at its limit, got %d", b.Len())
	}
	if !b.HasErrors() {
		t.Fatalf("expected errors")
	}
	if NewBag(-1).Cap() != 0 || NewBag(1<<20).Cap() != ^uint16(0) {
		t.Fatalf("limit must be clamped")
	}
}

func TestBagSortDedup(t *testing.T) {
	b := NewBag(10)
	b.Add(NewError(SemaNoOverload, source.Span{File: 1, Start: 5, End: 6}, "b"))
	b.Add(New(SevWarning, SemaInfo, source.Span{File: 1, Start: 1, End: 2}, "a"))
	b.Add(NewError(SemaNoOverload, source.Span{File: 1, Start: 5, End: 6}, "b"))
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("dedup kept %d items", b.Len())
	}
	b.Sort()
	if b.Items()[0].Message != "a" {
		t.Fatalf("sort must order by start offset")
	}
	b.Filter(func(d Diagnostic) bool { return d.Severity == SevError })
	if b.Len() != 1 {
		t.Fatalf("filter left %d items", b.Len())
	}
}

func TestBagMergeGrows(t *testing.T) {
	a, b := NewBag(1), NewBag(2)
	a.Add(NewError(ResUnknownType, source.Span{}, "x"))
	b.Add(NewError(ResUnknownType, source.Span{}, "y"))
	b.Add(NewError(ResUnknownType, source.Span{}, "z"))
	a.Merge(b)
	if a.Len() != 3 {
		t.Fatalf("merge must raise the limit, got %d items", a.Len())
	}
}

func TestReporterAndFormat(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("q.toml", []byte("x\nresolve = 'Foo'\n"))
	bag := NewBag(8)
	rep := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{File: id, Start: 2, End: 9}
	ReportError(rep, ResUnknownType, sp, "unknown type 'Foo'").
		WithNote(sp, "searched namespace 'game'").
		Emit()
	ReportError(rep, ResUnknownType, sp, "unknown type 'Foo'").Emit()
	if bag.Len() != 1 || rep.Suppressed() != 1 {
		t.Fatalf("dedup reporter forwarded %d diagnostics, suppressed %d", bag.Len(), rep.Suppressed())
	}
	got := FormatShort(bag.Items(), fs, true)
	want := "error RES2001 q.toml:2:1 unknown type 'Foo'\nnote RES2001 q.toml:2:1 searched namespace 'game'"
	if got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
	if !strings.HasPrefix(ResUnknownType.String(), "[RES2001]") {
		t.Fatalf("unexpected code string %q", ResUnknownType.String())
	}
}
