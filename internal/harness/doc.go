// Package harness runs conservation scenarios: declarative YAML files that
// name a weight file, a source field and a destination field already on
// disk, plus the outcome the verification is expected to reach.
//
// # Scenario Format
//
//	name: core2_to_mom_one_deg
//	description: "CORE2 -> MOM one degree conservative remap"
//	resolution: one_deg
//	weights: rmp_cort_to_momt_CONSERV_FRACNNEI.nc
//	src: src_field.nc
//	dest: dest_field.nc
//	index_origin: auto
//	tolerance: 1e-9
//	expect: conserved
//	assertions:
//	  - type: relative_error_below
//	    value: 1e-12
//	  - type: layout
//	    equals: scrip
//
// Relative paths resolve against the scenario file's directory. Scenarios
// are decoded strictly (unknown fields are errors) and then validated
// against an embedded CUE schema.
//
// # Expectations
//
// expect is one of conserved, violated, io_error, shape_mismatch or
// degenerate. A scenario passes when the verification reaches that outcome
// and every assertion holds.
//
// # Assertion Types
//
//   - relative_error_below: relative error < value
//   - relative_error_above: relative error >= value
//   - layout: weight file convention equals the given name
//   - origin: resolved index origin equals zero or one
//   - nnz: number of stored weights equals count
//   - empty_rows: number of destination cells without weights equals count
//
// # Golden Snapshots
//
// Snapshot renders a result as canonical JSON with every float as its exact
// decimal string, so a golden file changes only when a bit of the result
// changes. File paths are left out so fixtures can live anywhere.
package harness
