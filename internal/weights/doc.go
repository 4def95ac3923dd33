// Package weights loads sparse remapping weight matrices.
//
// A weight file holds three parallel sequences (destination index, source
// index, weight). Matrix regroups them by destination index with a stable
// counting sort, so applying the matrix is a single pass over rows and the
// order of floating-point accumulation inside a row is the file order.
//
// # Index origin
//
// SCRIP and ESMF files are one-based; triplet files written by other tools
// are often zero-based. The origin is never assumed silently:
//
//   - an index equal to 0 proves zero-based indices;
//   - an index equal to the declared grid size proves one-based indices;
//   - without a declared size, an index equal to the length of the field the
//     matrix is applied to (Options.DestHint, Options.SrcHint) does the same;
//   - with neither, the layout convention is used and a warning is logged.
//
// An explicit origin that contradicts the data is an error.
package weights
