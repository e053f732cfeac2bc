// Package diag holds the diagnostics produced while registering
// declarations and answering queries.
//
// A Diagnostic carries a Severity, a Code with a stable "[RES2001]" form,
// a message naming the types or candidates involved, the primary span of
// the manifest entry and optional notes (one per overload candidate, for
// example).
//
// Phases emit through a Reporter. Engine units wrap a BagReporter in a
// DedupReporter so a repeated problem is reported once, and the Bag caps
// how many diagnostics a unit keeps. Fatal errors never reach a Bag: they
// stop the unit and are returned as errors.
//
// The package does no IO. FormatShort renders diagnostics for the CLI and
// tests; diagfmt produces JSON.
package diag
