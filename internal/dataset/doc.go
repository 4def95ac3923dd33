// Package dataset provides a narrow, read-only view of self-describing array
// files for the conservation verifier.
//
// The verifier's numerical code never touches a file format directly. It
// opens a path through an Opener, lists variables, and reads one variable at
// a time:
//
//	ds, err := dataset.OpenNetCDF("rmp_cort_to_momt_CONSERV_FRACNNEI.nc")
//	if err != nil {
//	    return err
//	}
//	defer ds.Close()
//
//	v, err := ds.Read("remap_matrix")
//
// # Formats
//
// OpenNetCDF reads netCDF classic files (CDF-1 and CDF-2 offsets) using
// github.com/ctessum/cdf. All numeric external types are widened to float64
// on read; index variables are recovered with Variable.Ints, which rejects
// non-integral values.
//
// Memory is an in-memory Dataset for programmatic callers and tests.
//
// # Masks
//
// A variable that declares _FillValue or missing_value produces a Field with a
// validity mask: cells holding the fill value are invalid and excluded from
// sums, matching how masked arrays behave in the tools that write these files.
package dataset
