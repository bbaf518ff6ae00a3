package cmaqgrid

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// geometry is the derived cell geometry LL2IJ searches. It is read-only once
// built and shared between grids with equal metadata.
type geometry struct {
	xc, yc                 []float64
	xmin, xmax, ymin, ymax float64
}

// geometryCache is keyed by metadata value, so a different record can never
// see another record's arrays.
var geometryCache = func() *lru.Cache[GridMetadata, *geometry] {
	c, err := lru.New[GridMetadata, *geometry](64)
	if err != nil {
		panic(err)
	}
	return c
}()

func (g *Grid) geometry() *geometry {
	if geo, ok := geometryCache.Get(g.md); ok {
		return geo
	}
	geo := newGeometry(g)
	geometryCache.Add(g.md, geo)
	return geo
}

// newGeometry must only be called for planar grids.
func newGeometry(g *Grid) *geometry {
	xc, yc, _ := g.XYCenters()
	xk, yk, _ := g.XYCorners()
	return &geometry{
		xc:   xc,
		yc:   yc,
		xmin: mat.Min(xk),
		xmax: mat.Max(xk),
		ymin: mat.Min(yk),
		ymax: mat.Max(yk),
	}
}

// contains reports whether (x, y) lies in the closed corner bounding box.
func (geo *geometry) contains(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	return x >= geo.xmin && x <= geo.xmax && y >= geo.ymin && y <= geo.ymax
}

// index returns the nearest-centre column and row for (x, y), or NoIndex for
// both when the point is outside the domain. There is no half-cell check: any
// point inside the box maps to its nearest centre on each axis.
func (geo *geometry) index(x, y float64) (i, j int) {
	if !geo.contains(x, y) {
		return NoIndex, NoIndex
	}
	return nearest(geo.xc, x), nearest(geo.yc, y)
}

// nearest returns the first index of the value in vs closest to v.
func nearest(vs []float64, v float64) int {
	d := make([]float64, len(vs))
	for k, c := range vs {
		d[k] = math.Abs(c - v)
	}
	return floats.MinIdx(d)
}
