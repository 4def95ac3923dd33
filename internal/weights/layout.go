package weights

import (
	"fmt"

	"github.com/roach88/remapcheck/internal/dataset"
)

// Layout names the variables and dimensions of a weight file convention.
type Layout struct {
	Name string

	Dest   string
	Src    string
	Weight string

	// DestSize and SrcSize name the grid-size dimensions; empty when the
	// convention does not declare them.
	DestSize string
	SrcSize  string

	// DefaultOrigin is used when the indices carry no evidence of their base.
	DefaultOrigin Origin
}

var (
	// LayoutSCRIP is the SCRIP / OASIS rmp_* convention.
	LayoutSCRIP = Layout{
		Name:          "scrip",
		Dest:          "dst_address",
		Src:           "src_address",
		Weight:        "remap_matrix",
		DestSize:      "dst_grid_size",
		SrcSize:       "src_grid_size",
		DefaultOrigin: OriginOne,
	}

	// LayoutESMF is the ESMF_RegridWeightGen convention.
	LayoutESMF = Layout{
		Name:          "esmf",
		Dest:          "row",
		Src:           "col",
		Weight:        "S",
		DestSize:      "n_b",
		SrcSize:       "n_a",
		DefaultOrigin: OriginOne,
	}

	// LayoutGeneric is a plain triplet file.
	LayoutGeneric = Layout{
		Name:          "generic",
		Dest:          "destination_index",
		Src:           "source_index",
		Weight:        "weight",
		DefaultOrigin: OriginZero,
	}
)

// Layouts lists the known conventions in detection order.
var Layouts = []Layout{LayoutSCRIP, LayoutESMF, LayoutGeneric}

// LayoutByName returns a known layout.
func LayoutByName(name string) (Layout, error) {
	for _, l := range Layouts {
		if l.Name == name {
			return l, nil
		}
	}
	return Layout{}, fmt.Errorf("unknown weight layout %q", name)
}

// DetectLayout returns the first known layout whose three variables are all
// present in ds.
func DetectLayout(ds dataset.Dataset) (Layout, error) {
	for _, l := range Layouts {
		if dataset.HasVariables(ds, l.Dest, l.Src, l.Weight) {
			return l, nil
		}
	}
	return Layout{}, &Error{
		Code:    ErrCodeLayout,
		Message: fmt.Sprintf("no known weight layout matches variables %v", ds.Variables()),
	}
}
