// Package schema implements the Schema Validator/Coercer: it walks a
// FieldSpec tree against a target's MergedVariableSet and produces either a
// fully typed ResolvedConfiguration or an ordered list of ValidationErrors.
//
// Resolution is all-or-nothing per target. Child errors are collected, not
// short-circuited, so one validation pass reports every problem at once:
// it is cheaper to fix five errors from one report than to re-run five
// times. Cross-kind coercion is permitted only along the defined safe
// conversions; a coercion failure is always reported, never downgraded to
// a default.
package schema
