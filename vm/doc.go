// Package vm implements the morph object model.
//
// This package contains:
//   - NaN-boxed value representation and interned property names
//   - Shapes (hidden classes) with shared property tables and transitions
//   - Object layout: inline and overflow slots, dense and sparse arrays
//   - Kind-based property dispatch with ES5 attribute semantics
//   - Per-site inline caches for property reads and writes
package vm
