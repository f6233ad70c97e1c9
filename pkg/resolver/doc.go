// Package resolver runs the full resolution pipeline for a set of targets:
// scope collection, precedence-ordered deep merge, and schema validation,
// producing a Run report with one result per target.
//
// A run is all-or-nothing per target but not per run: a target that fails
// validation is reported with its accumulated errors while the remaining
// targets still resolve. Structural problems with the registered inputs
// (duplicate scope documents, unknown group references, an unsealed
// registry) abort the entire run instead, because every target's output
// would be suspect.
//
// Targets are resolved concurrently by a bounded worker pool; the report
// is ordered by target name regardless of completion order.
package resolver
