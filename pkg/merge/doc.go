// Package merge implements the Precedence Merger: it folds the ordered
// scope documents of one target into a single MergedVariableSet with a
// provenance record for every leaf path.
//
// Merging applies deep-merge semantics: nested mappings combine key by key
// with the higher-precedence scope winning per key, while sequences,
// scalars, and mismatched kinds are replaced wholesale. The merger is a
// pure structural transform; the only failures it can surface are the
// registry's structural errors.
package merge
