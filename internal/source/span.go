package source

import "fmt"

// Span is a half-open byte range [Start, End) inside one file of a FileSet.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// NoSpan is used for diagnostics that have no source location, such as
// registrations performed by host modules.
var NoSpan = Span{}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover grows s to include other. Spans from different files are not merged.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Shift moves s right by n bytes; used to place a span produced for a
// substring back into its enclosing file.
func (s Span) Shift(n uint32) Span {
	return Span{File: s.File, Start: s.Start + n, End: s.End + n}
}
