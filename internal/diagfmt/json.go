// Package diagfmt renders check results for machines.
package diagfmt

import (
	"encoding/json"
	"io"

	"anvil/internal/diag"
	"anvil/internal/manifest"
	"anvil/internal/source"
)

// LocationJSON is a span rendered for JSON. File is empty for
// diagnostics without a source location.
type LocationJSON struct {
	File      string `json:"file,omitempty"`
	StartByte uint32 `json:"start_byte,omitempty"`
	EndByte   uint32 `json:"end_byte,omitempty"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
}

// NoteJSON is one diagnostic note.
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON is one diagnostic.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// QueryJSON is one query outcome.
type QueryJSON struct {
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Got   string `json:"got,omitempty"`
	Cost  uint32 `json:"cost,omitempty"`
	Error string `json:"error,omitempty"`
	Pass  bool   `json:"pass"`
}

// FileJSON groups everything reported for one manifest.
type FileJSON struct {
	Path        string           `json:"path"`
	Fatal       string           `json:"fatal,omitempty"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Queries     []QueryJSON      `json:"queries"`
}

// Output is the root object.
type Output struct {
	Files  []FileJSON `json:"files"`
	Failed bool       `json:"failed"`
}

// File is the input for one manifest.
type File struct {
	Path        string
	Fatal       error
	Diagnostics *diag.Bag
	Queries     []manifest.Result
}

// Opts controls JSON output.
type Opts struct {
	IncludeNotes bool
	// Max caps diagnostics per file; zero keeps all.
	Max int
}

func makeLocation(span source.Span, fs *source.FileSet) LocationJSON {
	if fs == nil || span.File == 0 {
		return LocationJSON{}
	}
	f := fs.Get(span.File)
	if f == nil {
		return LocationJSON{}
	}
	start, _ := fs.Resolve(span)
	return LocationJSON{
		File:      f.Path,
		StartByte: span.Start,
		EndByte:   span.End,
		StartLine: start.Line,
		StartCol:  start.Col,
	}
}

// Build assembles the output without serialising it.
func Build(files []File, fs *source.FileSet, opts Opts) Output {
	out := Output{Files: make([]FileJSON, 0, len(files))}
	for _, f := range files {
		fj := FileJSON{Path: f.Path, Diagnostics: []DiagnosticJSON{}, Queries: []QueryJSON{}}
		if f.Fatal != nil {
			fj.Fatal = f.Fatal.Error()
			out.Failed = true
		}
		if f.Diagnostics != nil {
			items := f.Diagnostics.Items()
			if opts.Max > 0 && opts.Max < len(items) {
				items = items[:opts.Max]
			}
			for _, d := range items {
				dj := DiagnosticJSON{
					Severity: d.Severity.String(),
					Code:     d.Code.ID(),
					Message:  d.Message,
					Location: makeLocation(d.Primary, fs),
				}
				if opts.IncludeNotes {
					for _, n := range d.Notes {
						dj.Notes = append(dj.Notes, NoteJSON{Message: n.Msg, Location: makeLocation(n.Span, fs)})
					}
				}
				fj.Diagnostics = append(fj.Diagnostics, dj)
			}
			out.Failed = out.Failed || f.Diagnostics.HasErrors()
		}
		for _, q := range f.Queries {
			qj := QueryJSON{Index: q.Index, Kind: q.Kind, Got: q.Got, Cost: q.Cost, Pass: q.Pass}
			if q.Err != nil {
				qj.Error = q.Err.Error()
			}
			out.Failed = out.Failed || !q.Pass
			fj.Queries = append(fj.Queries, qj)
		}
		out.Files = append(out.Files, fj)
	}
	return out
}

// JSON writes the indented output to w.
func JSON(w io.Writer, files []File, fs *source.FileSet, opts Opts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(files, fs, opts))
}
