// Package conserve checks that a remap conserved the transported quantity.
//
// Given a weight matrix, the source field before the remap and the
// destination field written by the coupled run, the verifier reconstructs
// the destination field with a sparse matrix-vector product and compares
// global sums:
//
//	rel = |Σ reconstructed − Σ dest| / |Σ dest|
//
// Conservative remapping preserves the integral, not pointwise values, so a
// per-cell norm would be wrong whenever grids or masks differ.
//
// # Errors
//
// Failures carry a Kind so callers can tell "bad input" (KindIO, KindShape)
// from "cannot evaluate" (KindDegenerate). A remap that did not conserve is
// a normal Report; compare it with Check.
//
// # Concurrency
//
// Nothing here holds package-level mutable state. Each call opens and closes
// its own files, so independent verifications may run in parallel.
package conserve
