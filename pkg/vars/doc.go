// Package vars implements the generic value model shared by every stage of
// the Strata resolution pipeline. A Value is a closed tagged union over the
// shapes produced by structured-data loaders (YAML/JSON-like): null, bool,
// int, float, string, sequence, and mapping.
//
// Values are immutable by convention: the registry, merger, and validator
// never mutate a Value in place, and Clone produces fully independent copies
// where isolation is required. Mapping keys are always walked in sorted
// order so that every observable traversal is deterministic.
package vars
