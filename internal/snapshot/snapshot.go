// Package snapshot exports a sorted inventory of a catalog for dumps and
// golden comparisons.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"anvil/internal/catalog"
	"anvil/internal/types"
)

// Schema is bumped whenever the record layout changes.
const Schema uint16 = 1

// Snapshot is the full inventory.
type Snapshot struct {
	Schema    uint16           `json:"schema" msgpack:"schema"`
	Types     []TypeRecord     `json:"types" msgpack:"types"`
	Functions []FunctionRecord `json:"functions" msgpack:"functions"`
	Instances []InstanceRecord `json:"instances" msgpack:"instances"`
}

// TypeRecord describes one catalog entry.
type TypeRecord struct {
	Key        string   `json:"key" msgpack:"key"`
	Kind       string   `json:"kind" msgpack:"kind"`
	Name       string   `json:"name" msgpack:"name"`
	Base       string   `json:"base,omitempty" msgpack:"base,omitempty"`
	Interfaces []string `json:"interfaces,omitempty" msgpack:"interfaces,omitempty"`
	Params     []string `json:"params,omitempty" msgpack:"params,omitempty"`
	Template   string   `json:"template,omitempty" msgpack:"template,omitempty"`
	Args       []string `json:"args,omitempty" msgpack:"args,omitempty"`
	Fields     []string `json:"fields,omitempty" msgpack:"fields,omitempty"`
	Values     []string `json:"values,omitempty" msgpack:"values,omitempty"`
	Value      bool     `json:"value,omitempty" msgpack:"value,omitempty"`
	NeedsGC    bool     `json:"gc,omitempty" msgpack:"gc,omitempty"`
}

// FunctionRecord describes one function.
type FunctionRecord struct {
	Key       string `json:"key" msgpack:"key"`
	Signature string `json:"signature" msgpack:"signature"`
	Owner     string `json:"owner,omitempty" msgpack:"owner,omitempty"`
	Impl      string `json:"impl" msgpack:"impl"`
	Symbol    string `json:"symbol,omitempty" msgpack:"symbol,omitempty"`
}

// InstanceRecord maps a template instantiation key to the instance.
type InstanceRecord struct {
	Key      string `json:"key" msgpack:"key"`
	Instance string `json:"instance" msgpack:"instance"`
}

// Take builds a snapshot of cat. Types are ordered by qualified name,
// functions by key.
func Take(cat *catalog.Catalog) *Snapshot {
	snap := &Snapshot{Schema: Schema}
	cat.Range(func(e *catalog.Entry) bool {
		snap.Types = append(snap.Types, typeRecord(cat, e))
		return true
	})
	cat.RangeFunctions(func(fn *catalog.Function) bool {
		rec := FunctionRecord{
			Key:       fn.Key.String(),
			Signature: cat.Signature(fn),
			Impl:      fn.Impl.Kind.String(),
			Symbol:    fn.Impl.Symbol,
		}
		if fn.Owner.IsValid() {
			rec.Owner = cat.TypeName(fn.Owner)
		}
		snap.Functions = append(snap.Functions, rec)
		return true
	})
	for _, r := range cat.Instances() {
		snap.Instances = append(snap.Instances, InstanceRecord{
			Key:      r.Candidate.String(),
			Instance: cat.TypeName(r.Instance),
		})
	}
	return snap
}

func typeRecord(cat *catalog.Catalog, e *catalog.Entry) TypeRecord {
	rec := TypeRecord{
		Key:  e.Key.String(),
		Kind: e.Kind.String(),
		Name: e.QualifiedName(),
	}
	switch e.Kind {
	case catalog.KindClass:
		c := e.Class
		if c.Base.IsValid() {
			rec.Base = cat.TypeName(c.Base)
		}
		rec.Interfaces = names(cat, c.Interfaces)
		rec.Params = names(cat, c.TemplateParams)
		if c.Template.IsValid() {
			rec.Template = cat.TypeName(c.Template)
		}
		for _, a := range c.TemplateArgs {
			rec.Args = append(rec.Args, cat.RefString(a))
		}
		for _, f := range c.Fields {
			rec.Fields = append(rec.Fields, cat.RefString(f.Type)+" "+f.Name)
		}
		rec.Value = c.ValueType
		rec.NeedsGC = c.NeedsGC
	case catalog.KindInterface:
		rec.Interfaces = names(cat, e.Interface.Bases)
	case catalog.KindEnum:
		for _, v := range e.Enum.Values {
			rec.Values = append(rec.Values, fmt.Sprintf("%s = %d", v.Name, v.Value))
		}
	}
	return rec
}

func names(cat *catalog.Catalog, keys []types.TypeKey) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = cat.TypeName(k)
	}
	return out
}

// Format selects the encoding.
type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

// ParseFormat accepts "json" and "msgpack".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	default:
		return FormatJSON, fmt.Errorf("unknown snapshot format %q", s)
	}
}

// Encode writes snap to w.
func Encode(w io.Writer, snap *Snapshot, format Format) error {
	switch format {
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(snap)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
}

// Decode reads a snapshot and rejects foreign schema versions.
func Decode(r io.Reader, format Format) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error
	switch format {
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(snap)
	default:
		err = json.NewDecoder(r).Decode(snap)
	}
	if err != nil {
		return nil, err
	}
	if snap.Schema != Schema {
		return nil, fmt.Errorf("snapshot schema %d, want %d", snap.Schema, Schema)
	}
	return snap, nil
}

// WriteFile encodes snap into path through a temporary file so readers
// never observe a partial snapshot.
func WriteFile(path string, snap *Snapshot, format Format) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := Encode(f, snap, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
