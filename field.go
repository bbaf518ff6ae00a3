package cmaqgrid

import (
	"fmt"
	"math"
)

// Field is one 2-D layer of a CMAQ variable on a Grid.
// Values are stored row-major: Vals[j*NCOLS + i].
type Field struct {
	Grid *Grid
	Name string
	Vals []float64
}

// NewField checks that vals covers every cell of g.
func NewField(g *Grid, name string, vals []float64) (*Field, error) {
	md := g.Metadata()
	// int64 so NCOLS*NROWS cannot overflow on 32-bit platforms.
	want := int64(md.NCOLS) * int64(md.NROWS)
	if int64(len(vals)) != want {
		return nil, fmt.Errorf("field %q: %d values, expected %d (%dx%d)", name, len(vals), want, md.NCOLS, md.NROWS)
	}
	return &Field{Grid: g, Name: name, Vals: vals}, nil
}

// At returns the value of cell (i, j), NaN if the index is outside the grid.
func (f *Field) At(i, j int) float64 {
	md := f.Grid.Metadata()
	if i < 0 || i >= md.NCOLS || j < 0 || j >= md.NROWS {
		return math.NaN()
	}
	return f.Vals[j*md.NCOLS+i]
}

// Lookup returns the nearest-cell value at (lon°E, lat°N). Points outside the
// domain return NaN and an error wrapping ErrOutsideDomain.
func (f *Field) Lookup(lon, lat float64) (float64, error) {
	i, j, ok, err := f.Grid.LL2IJPoint(lon, lat)
	if err != nil {
		return math.NaN(), err
	}
	if !ok {
		return math.NaN(), fmt.Errorf("%w: (%g, %g)", ErrOutsideDomain, lon, lat)
	}
	return f.At(i, j), nil
}
