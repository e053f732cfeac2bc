package catalog

import "anvil/internal/types"

// VerdictKind is the closed result set of a template validator.
type VerdictKind uint8

const (
	VerdictAccept VerdictKind = iota
	VerdictReject
	// VerdictAcceptWithFlag accepts and marks the instance as needing
	// garbage collection.
	VerdictAcceptWithFlag
)

// Verdict is returned by a Validator.
type Verdict struct {
	Kind VerdictKind
	Msg  string
}

func Accept() Verdict            { return Verdict{Kind: VerdictAccept} }
func AcceptWithFlag() Verdict    { return Verdict{Kind: VerdictAcceptWithFlag} }
func Reject(msg string) Verdict  { return Verdict{Kind: VerdictReject, Msg: msg} }
func (v Verdict) Rejected() bool { return v.Kind == VerdictReject }
func (v Verdict) NeedsGC() bool  { return v.Kind == VerdictAcceptWithFlag }

// TemplateInfo is passed to a Validator. Catalog is available for
// read-only inspection of the arguments; Building holds instances built
// by the same request that are not committed yet. Convertible reports
// implicit convertibility and may be nil when no checker is attached.
type TemplateInfo struct {
	Template    types.TypeKey
	Name        string
	Args        []types.TypeRef
	Catalog     *Catalog
	Building    map[types.TypeKey]*Entry
	Convertible func(from, to types.TypeRef) bool
}

// Entry looks key up in the catalog, then among the uncommitted
// instances. Uncommitted class entries list no methods yet.
func (t TemplateInfo) Entry(key types.TypeKey) (*Entry, bool) {
	if t.Catalog != nil {
		if e, ok := t.Catalog.Get(key); ok {
			return e, true
		}
	}
	e, ok := t.Building[key]
	return e, ok && e != nil
}

// Validator decides whether a template may be instantiated with Args.
type Validator func(TemplateInfo) Verdict

// SetValidator registers v for template, replacing any previous one.
func (c *Catalog) SetValidator(template types.TypeKey, v Validator) {
	c.instMu.Lock()
	defer c.instMu.Unlock()
	if v == nil {
		delete(c.validators, template)
		return
	}
	c.validators[template] = v
}

// ValidatorFor returns the validator registered for template.
func (c *Catalog) ValidatorFor(template types.TypeKey) (Validator, bool) {
	c.instMu.RLock()
	defer c.instMu.RUnlock()
	v, ok := c.validators[template]
	return v, ok
}
