// Package trace records what the engine and the check pipeline are doing.
//
// Tracing is off by default. The CLI enables it with:
//
//	anvil check --trace=- --trace-level=detail decls.toml queries.toml
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when disabled
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events for dumping after a fatal error
//   - MultiTracer: fans out to several tracers
//
// # Scopes
//
//   - ScopeDriver: one CLI command
//   - ScopePass: pipeline stages (load, register, query)
//   - ScopeUnit: one compilation unit
//   - ScopeNode: single resolutions and template instantiations
//
// Levels map onto scopes: phase shows driver and pass events, detail adds
// unit events, debug adds node events.
//
//	span := trace.Begin(t, trace.ScopeNode, "instantiate", parentID)
//	defer span.End("")
package trace
