package diag

// Severity orders diagnostics from informational to fatal for the unit.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	// SevError marks the unit as failed; processing still continues.
	SevError
)

// String returns the lowercase label used in every output format.
func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}
