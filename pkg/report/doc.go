// Package report persists resolution runs to a SQLite-backed audit store.
//
// Each run is stored as one row in runs plus one row per target in
// target_results, with the resolved configuration, validation errors, and
// per-field provenance serialized as JSON. The store is append-oriented:
// runs are written once, after the engine finishes, and read back for
// inspection and audit.
package report
