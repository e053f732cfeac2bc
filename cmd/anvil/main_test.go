package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"anvil/internal/typeparse"
)

func TestCollectFilesExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.toml", "a.toml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	extra := filepath.Join(t.TempDir(), "x.toml")
	if err := os.WriteFile(extra, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	files, err := collectFiles([]string{extra, dir})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{extra, filepath.Join(dir, "a.toml"), filepath.Join(dir, "b.toml")}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("got %v, want %v", files, want)
		}
	}
	if _, err := collectFiles([]string{t.TempDir()}); err == nil {
		t.Fatalf("expected an error for an empty directory")
	}
}

func TestReadUIMode(t *testing.T) {
	if m, err := readUIMode(" ON "); err != nil || m != uiModeOn {
		t.Fatalf("got %q %v", m, err)
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestIndent(t *testing.T) {
	if got := indent("a\nb"); got != "  a\n  b" {
		t.Fatalf("got %q", got)
	}
	if got := indent(""); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestPrintFuncDecl(t *testing.T) {
	d, err := typeparse.ParseFunction("int game::clamp<T>(int v, int lo = 0) const")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var buf bytes.Buffer
	printFuncDecl(&buf, d)
	want := "return:   int\n" +
		"name:     game::clamp<T>\n" +
		"param 0:  int v\n" +
		"param 1:  int lo = 0\n" +
		"traits:   const\n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}
