package weights

import (
	"fmt"
	"strings"
)

// Origin is the index base used by a weight file.
type Origin int

const (
	// OriginAuto infers the base from the indices and declared grid sizes.
	OriginAuto Origin = iota
	// OriginZero means indices start at 0.
	OriginZero
	// OriginOne means indices start at 1 (SCRIP and ESMF convention).
	OriginOne
)

func (o Origin) String() string {
	switch o {
	case OriginZero:
		return "zero"
	case OriginOne:
		return "one"
	default:
		return "auto"
	}
}

// ParseOrigin accepts "auto", "zero"/"0" and "one"/"1".
func ParseOrigin(s string) (Origin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return OriginAuto, nil
	case "zero", "0":
		return OriginZero, nil
	case "one", "1":
		return OriginOne, nil
	default:
		return OriginAuto, fmt.Errorf("invalid index origin %q: must be auto, zero or one", s)
	}
}

// extent summarizes one index space before normalization.
type extent struct {
	min, max int
	size     int // declared size, 0 if unknown
	hint     int // length of the field on this grid, 0 if unknown
}

func scan(idx []int, declared, hint int) extent {
	e := extent{size: declared, hint: hint}
	for i, v := range idx {
		if i == 0 || v < e.min {
			e.min = v
		}
		if i == 0 || v > e.max {
			e.max = v
		}
	}
	return e
}

// atSize reports whether the extent references its grid size, which is only
// possible for one-based indices. A declared size wins over the field length.
func (e extent) atSize() bool {
	n := e.size
	if n == 0 {
		n = e.hint
	}
	return n > 0 && e.max == n
}

// resolveOrigin decides the index base. ambiguous is true when the data
// carries no evidence either way and fallback was used.
func resolveOrigin(want, fallback Origin, dest, src extent) (o Origin, ambiguous bool, err error) {
	if dest.min < 0 || src.min < 0 {
		return OriginAuto, false, &Error{
			Code:    ErrCodeIndexRange,
			Message: fmt.Sprintf("negative index (destination min %d, source min %d)", dest.min, src.min),
		}
	}

	zeroSeen := dest.min == 0 || src.min == 0
	sizeSeen := dest.atSize() || src.atSize()

	switch want {
	case OriginZero:
		if sizeSeen {
			return OriginAuto, false, &Error{
				Code:    ErrCodeOrigin,
				Message: "zero-based indices reference the grid size",
			}
		}
		return OriginZero, false, nil
	case OriginOne:
		if zeroSeen {
			return OriginAuto, false, &Error{
				Code:    ErrCodeOrigin,
				Message: "one-based indices contain 0",
			}
		}
		return OriginOne, false, nil
	}

	switch {
	case zeroSeen && sizeSeen:
		return OriginAuto, false, &Error{
			Code:    ErrCodeOrigin,
			Message: "indices contain both 0 and the grid size",
		}
	case zeroSeen:
		return OriginZero, false, nil
	case sizeSeen:
		return OriginOne, false, nil
	default:
		return fallback, true, nil
	}
}
