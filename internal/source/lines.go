package source

import (
	"bytes"
	"path/filepath"
	"sort"

	"fortio.org/safecast"
)

var (
	bom  = []byte{0xEF, 0xBB, 0xBF}
	crlf = []byte("\r\n")
)

// cleanContent strips a leading BOM and rewrites \r\n to \n. A lone \r is
// kept.
func cleanContent(content []byte) ([]byte, FileFlags) {
	var flags FileFlags
	if rest, ok := bytes.CutPrefix(content, bom); ok {
		content = rest
		flags |= FileHadBOM
	}
	if bytes.Contains(content, crlf) {
		content = bytes.ReplaceAll(content, crlf, []byte{'\n'})
		flags |= FileNormalizedCRLF
	}
	return content, flags
}

func lineOffsets(content []byte) []uint32 {
	var out []uint32
	for i, b := range content {
		if b != '\n' {
			continue
		}
		off, err := safecast.Conv[uint32](i)
		if err != nil {
			break
		}
		out = append(out, off)
	}
	return out
}

func (f *File) lineCol(off uint32) LineCol {
	// line is the number of newlines strictly before off
	line := sort.Search(len(f.Lines), func(i int) bool { return f.Lines[i] >= off })
	start := uint32(0)
	if line > 0 {
		start = f.Lines[line-1] + 1
	}
	return LineCol{Line: uint32(line) + 1, Col: off - start + 1} // #nosec G115 -- line <= len(Lines)
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
