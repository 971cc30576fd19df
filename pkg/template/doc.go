// Package template materializes parameterized patches against
// component state.
//
// A template patch carries a string with {i} placeholders and an
// ordered binding list. Materialization resolves each binding from
// state, applies its optional transform, substitutes placeholders,
// and produces a concrete patch the DOM applier can execute. Loop
// templates expand an array-valued state slot into one Create patch
// per element.
//
// Transforms come from a fixed whitelist; anything else logs a
// warning and passes the value through unchanged. Missing bindings
// render as the empty string with a warning. Neither case aborts the
// batch.
package template
