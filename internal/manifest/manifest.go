// Package manifest reads TOML declaration and query files.
//
// A declaration manifest describes host types the way a host application
// would register them:
//
//	modules   = ["std"]
//	namespace = "game"
//	functions = ["Unit@ spawn(const string &in kind)"]
//
//	[[class]]
//	name         = "Unit"
//	fields       = ["float hp"]
//	methods      = ["void hit(float amount)"]
//	constructors = ["Unit(const string &in)"]
//
// A query manifest lists [[query]] tables evaluated against the engine
// by Run. One file may carry both.
package manifest

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"anvil/internal/diag"
	"anvil/internal/resolve"
	"anvil/internal/types"
)

// Manifest is one decoded file.
type Manifest struct {
	Path string `toml:"-"`

	Modules   []string `toml:"modules"`
	Namespace string   `toml:"namespace"`
	Imports   []string `toml:"imports"`
	Functions []string `toml:"functions"`
	Funcdefs  []string `toml:"funcdefs"`

	Classes    []Class     `toml:"class"`
	Interfaces []Interface `toml:"interface"`
	Enums      []Enum      `toml:"enum"`
	Queries    []Query     `toml:"query"`
}

// Class declares a class or, with Template set, a class template.
type Class struct {
	Name         string   `toml:"name"`
	Template     []string `toml:"template"`
	Value        bool     `toml:"value"`
	Base         string   `toml:"base"`
	Implements   []string `toml:"implements"`
	Fields       []string `toml:"fields"`
	Properties   []string `toml:"properties"`
	Methods      []string `toml:"methods"`
	Constructors []string `toml:"constructors"`
	Validator    string   `toml:"validator"`
}

// Interface declares an interface. Bases must be declared earlier.
type Interface struct {
	Name    string   `toml:"name"`
	Bases   []string `toml:"bases"`
	Methods []string `toml:"methods"`
}

// Enum declares an enum. Values are "Name" or "Name = 5"; unnumbered
// values continue from the previous one.
type Enum struct {
	Name       string   `toml:"name"`
	Underlying string   `toml:"underlying"`
	Values     []string `toml:"values"`
}

// Query is one check evaluated by Run. Kind selects which fields apply:
//
//	resolve      type
//	convert      from, to, explicit
//	overload     name, args
//	method       object, name, args
//	constructor  object, args
//	operator     op, left, right
//	index        object, args
//
// Expect is compared with the rendered answer; Error, when set, names the
// error kind the query must fail with.
type Query struct {
	Kind     string   `toml:"kind"`
	Type     string   `toml:"type"`
	From     string   `toml:"from"`
	To       string   `toml:"to"`
	Explicit bool     `toml:"explicit"`
	Name     string   `toml:"name"`
	Object   string   `toml:"object"`
	Op       string   `toml:"op"`
	Left     string   `toml:"left"`
	Right    string   `toml:"right"`
	Args     []string `toml:"args"`
	Expect   string   `toml:"expect"`
	Cost     *int64   `toml:"cost"`
	Error    string   `toml:"error"`
}

// Error is a manifest load or content error.
type Error struct {
	Path string
	code diag.Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Code is the diagnostic code of e.
func (e *Error) Code() diag.Code { return e.code }

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, code: diag.ManLoadError, Msg: "failed to read", Err: err}
	}
	return Decode(path, data)
}

// Decode decodes data as the manifest named path. Keys that match no
// field are an error so typos do not silently drop declarations.
func Decode(path string, data []byte) (*Manifest, error) {
	var m Manifest
	meta, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, &Error{Path: path, code: diag.ManLoadError, Msg: "failed to parse TOML", Err: err}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, &Error{Path: path, code: diag.ManUndecodedKey, Msg: "unknown keys " + strings.Join(keys, ", ")}
	}
	m.Path = path
	return &m, nil
}

// Context is the lookup context of the manifest's top level.
func (m *Manifest) Context() resolve.Context {
	ctx := resolve.Context{Namespace: m.namespace()}
	for _, imp := range m.Imports {
		ctx.Imports = append(ctx.Imports, splitScope(imp))
	}
	return ctx
}

func (m *Manifest) namespace() []string {
	return splitScope(m.Namespace)
}

// splitScope turns "a::b" into ["a", "b"]; an empty string is no scope.
func splitScope(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	ns, name := types.SplitQualified(s)
	return append(ns, name)
}
