package diag

import (
	"fmt"
	"sort"
	"strings"

	"anvil/internal/source"
)

type shortDiagnostic struct {
	Severity string
	Code     string
	Position string
	Message  string
}

// FormatShort renders diagnostics one per line as
// "<severity> <ID> <path:line:col> <message>", sorted by position.
// Notes follow their diagnostic when includeNotes is set.
func FormatShort(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	rendered := make([]shortDiagnostic, 0, len(diags))
	for _, d := range diags {
		rendered = append(rendered, shortDiagnostic{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Position: position(fs, d.Primary),
			Message:  sanitizeMessage(d.Message),
		})
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			rendered = append(rendered, shortDiagnostic{
				Severity: "note",
				Code:     d.Code.ID(),
				Position: position(fs, n.Span),
				Message:  sanitizeMessage(n.Msg),
			})
		}
	}
	if !includeNotes {
		sort.SliceStable(rendered, func(i, j int) bool {
			if rendered[i].Position != rendered[j].Position {
				return rendered[i].Position < rendered[j].Position
			}
			return rendered[i].Code < rendered[j].Code
		})
	}

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s %s", d.Severity, d.Code, d.Position, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func position(fs *source.FileSet, sp source.Span) string {
	if fs == nil {
		return "<none>"
	}
	return fs.Position(sp)
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
