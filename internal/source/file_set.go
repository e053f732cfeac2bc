package source

import (
	"fmt"
	"os"
	"sync"

	"fortio.org/safecast"
)

// FileID indexes a FileSet. ID 0 is the reserved empty file.
type FileID uint32

// FileFlags records how a file's content was obtained.
type FileFlags uint8

const (
	FileVirtual        FileFlags = 1 << iota // added from memory
	FileHadBOM                               // a UTF-8 BOM was stripped
	FileNormalizedCRLF                       // \r\n line endings were rewritten
)

// File is one entry of a FileSet. Lines holds the offset of every '\n'.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	Lines   []uint32
	Flags   FileFlags
}

// LineCol is a 1-based position.
type LineCol struct {
	Line uint32
	Col  uint32
}

// FileSet holds every manifest and inline type expression a session has
// read. File 0 is a reserved empty file so that the zero Span is valid.
// Safe for concurrent use: query units add their inline expressions while
// other units resolve spans.
type FileSet struct {
	mu    sync.RWMutex
	files []File
	index map[string]FileID
}

// NewFileSet creates a FileSet with the reserved empty file.
func NewFileSet() *FileSet {
	return &FileSet{
		files: []File{{ID: 0, Path: "<none>", Flags: FileVirtual}},
		index: make(map[string]FileID),
	}
}

// Add stores content under path and returns a new FileID. A later Add with
// the same path shadows the earlier one for GetLatest.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("file set overflow: %w", err))
	}
	id := FileID(n)
	normalized := normalizePath(path)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    normalized,
		Content: content,
		Lines:   lineOffsets(content),
		Flags:   flags,
	})
	fs.index[normalized] = id
	return id
}

// Load reads a file from disk, normalizes CRLF/BOM, and calls Add.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content, flags := cleanContent(content)
	return fs.Add(path, content, flags), nil
}

// AddVirtual adds in-memory content with the FileVirtual flag.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Get returns the file for id, or nil when id is out of range.
func (fs *FileSet) Get(id FileID) *File {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if int(id) >= len(fs.files) {
		return nil
	}
	f := fs.files[id]
	return &f
}

// GetLatest returns the latest file ID for the given path, if it exists.
func (fs *FileSet) GetLatest(path string) (FileID, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	id, ok := fs.index[normalizePath(path)]
	return id, ok
}

// Resolve converts a span into line and column positions.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fs.Get(span.File)
	if f == nil {
		return LineCol{Line: 1, Col: 1}, LineCol{Line: 1, Col: 1}
	}
	return f.lineCol(span.Start), f.lineCol(span.End)
}

// Position renders span as "path:line:col".
func (fs *FileSet) Position(span Span) string {
	f := fs.Get(span.File)
	if f == nil || span.File == 0 {
		return "<none>"
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", f.Path, start.Line, start.Col)
}

// Snippet returns the text covered by span, clamped to the file bounds.
func (f *File) Snippet(span Span) string {
	n := uint32(len(f.Content)) // #nosec G115 -- bounded by Add
	start, end := span.Start, span.End
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return string(f.Content[start:end])
}
