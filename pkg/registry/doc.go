// Package registry implements the Source Registry: the precedence-ranked,
// run-immutable index of variable documents that feeds the merger.
//
// A registry is populated single-threaded (Register, AddGroup), then sealed.
// Seal verifies the group graph (parent references, cycles) and flips the
// registry into read-only mode; after that any number of goroutines may call
// ScopesFor concurrently. Registering into a sealed registry, or querying an
// unsealed one, is a programming error and is rejected.
package registry
