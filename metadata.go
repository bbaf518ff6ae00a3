// Package cmaqgrid maps CMAQ (Community Multiscale Air Quality) grid metadata
// onto projection-plane coordinates, map projections and grid cell indices.
package cmaqgrid

import (
	"errors"
	"fmt"
	"math"
)

// IOAPI GDTYP projection codes.
const (
	LatLon      = 1 // geographic lon/lat, no planar grid
	Lambert     = 2 // Lambert conformal conic
	PolarStereo = 6 // north polar stereographic
)

// DefaultRadius is the spherical earth radius (metres) CMAQ and WRF assume.
const DefaultRadius = 6370000.0

var (
	// ErrUnsupportedProjection is returned for GDTYP codes other than Lambert and PolarStereo.
	ErrUnsupportedProjection = errors.New("unsupported projection")

	// ErrInputLengthMismatch is returned when paired coordinate slices differ in length.
	ErrInputLengthMismatch = errors.New("input length mismatch")

	// ErrInvalidMetadata is returned for grid or projection parameters that describe no usable grid.
	ErrInvalidMetadata = errors.New("invalid grid metadata")

	// ErrOutsideDomain is returned by single-point lookups that fall outside the grid.
	ErrOutsideDomain = errors.New("point outside grid domain")
)

// GridMetadata holds the IOAPI global attributes describing a CMAQ grid.
// XORIG/YORIG locate the lower-left corner of cell (0,0) in projection metres.
type GridMetadata struct {
	GDTYP        int
	XORIG, YORIG float64
	XCELL, YCELL float64
	NCOLS, NROWS int
	XCENT, YCENT float64 // projection centre, degrees
	P_ALP, P_BET float64 // LCC standard parallels; P_BET is lat_ts for polar stereo
}

// Validate checks the grid geometry. It does not check GDTYP; operations that
// need a planar grid report ErrUnsupportedProjection themselves.
func (md GridMetadata) Validate() error {
	if md.NCOLS < 1 || md.NROWS < 1 {
		return fmt.Errorf("%w: NCOLS=%d NROWS=%d, both must be >= 1", ErrInvalidMetadata, md.NCOLS, md.NROWS)
	}
	if !(md.XCELL > 0) || !(md.YCELL > 0) {
		return fmt.Errorf("%w: XCELL=%g YCELL=%g, both must be > 0", ErrInvalidMetadata, md.XCELL, md.YCELL)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"XORIG", md.XORIG}, {"YORIG", md.YORIG},
		{"XCELL", md.XCELL}, {"YCELL", md.YCELL},
		{"XCENT", md.XCENT}, {"YCENT", md.YCENT},
		{"P_ALP", md.P_ALP}, {"P_BET", md.P_BET},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite (%g)", ErrInvalidMetadata, f.name, f.v)
		}
	}
	return nil
}

func (md GridMetadata) planar() error {
	if md.GDTYP == LatLon {
		return fmt.Errorf("%w: GDTYP=%d is a lat-lon grid with no planar X/Y cells", ErrUnsupportedProjection, md.GDTYP)
	}
	return nil
}
