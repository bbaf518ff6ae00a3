package cmaqgrid

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NoIndex marks a grid index for a point outside the domain.
const NoIndex = -1

// Grid wraps immutable CMAQ grid metadata and provides coordinate services.
// A Grid is safe for concurrent use.
type Grid struct {
	md     GridMetadata
	radius float64
	log    *slog.Logger
}

// Option configures a Grid.
type Option func(*Grid)

// WithLogger sets the logger used to report failed preconditions.
func WithLogger(l *slog.Logger) Option {
	return func(g *Grid) {
		if l != nil {
			g.log = l
		}
	}
}

// WithRadius sets the earth radius (metres) used by the transform methods.
func WithRadius(r float64) Option {
	return func(g *Grid) { g.radius = r }
}

// New validates md and returns a Grid over a copy of it.
func New(md GridMetadata, opts ...Option) (*Grid, error) {
	if err := md.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{
		md:     md,
		radius: DefaultRadius,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(g)
	}
	if math.IsNaN(g.radius) || math.IsInf(g.radius, 0) || g.radius <= 0 {
		return nil, fmt.Errorf("%w: earth radius %g must be finite and > 0", ErrInvalidMetadata, g.radius)
	}
	return g, nil
}

// Metadata returns the wrapped metadata.
func (g *Grid) Metadata() GridMetadata { return g.md }

// XYCenters returns the cell-centre coordinates (metres) along each axis,
// len NCOLS and NROWS.
func (g *Grid) XYCenters() (x, y []float64, err error) {
	if err := g.planar("XYCenters"); err != nil {
		return nil, nil, err
	}
	x = centers(g.md.XORIG, g.md.XCELL, g.md.NCOLS)
	y = centers(g.md.YORIG, g.md.YCELL, g.md.NROWS)
	return x, y, nil
}

// XYCorners returns the cell-corner mesh: two (NROWS+1)×(NCOLS+1) matrices with
// x[row][col] = Xedges[col] and y[row][col] = Yedges[row].
func (g *Grid) XYCorners() (x, y *mat.Dense, err error) {
	if err := g.planar("XYCorners"); err != nil {
		return nil, nil, err
	}
	xe := edges(g.md.XORIG, g.md.XCELL, g.md.NCOLS)
	ye := edges(g.md.YORIG, g.md.YCELL, g.md.NROWS)
	x, y = meshgrid(xe, ye)
	return x, y, nil
}

// Projection builds the grid's map projection for the given earth radius.
// It is rebuilt on every call; the caller should Close it when done.
func (g *Grid) Projection(radius float64) (*Projection, error) {
	p, err := NewProjection(g.md, radius)
	if err != nil {
		g.log.Warn("cannot build CMAQ projection", slog.Int("gdtyp", g.md.GDTYP), slog.Float64("radius", radius), slog.Any("error", err))
		return nil, err
	}
	return p, nil
}

// LL2XY transforms lon/lat degrees to projection metres. Points the projection
// cannot represent come back as NaN.
func (g *Grid) LL2XY(lons, lats []float64) (x, y []float64, err error) {
	p, err := g.transformer("LL2XY", lons, lats)
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()
	return g.apply(p.Forward, lons, lats)
}

// XY2LL transforms projection metres to lon/lat degrees. Points the projection
// cannot represent come back as NaN.
func (g *Grid) XY2LL(x, y []float64) (lons, lats []float64, err error) {
	p, err := g.transformer("XY2LL", x, y)
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()
	return g.apply(p.Inverse, x, y)
}

// LL2IJ returns the column (i) and row (j) indices of the cells whose centres
// are nearest each lon/lat point. Points outside the corner bounding box get
// NoIndex for both. Ties resolve to the lower index.
func (g *Grid) LL2IJ(lons, lats []float64) (i, j []int, err error) {
	p, err := g.transformer("LL2IJ", lons, lats)
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()
	xs, ys, err := g.apply(p.Forward, lons, lats)
	if err != nil {
		return nil, nil, err
	}
	geo := g.geometry()
	i = make([]int, len(xs))
	j = make([]int, len(ys))
	for k := range xs {
		i[k], j[k] = geo.index(xs[k], ys[k])
	}
	return i, j, nil
}

// LL2IJPoint is LL2IJ for a single point; ok is false outside the domain.
func (g *Grid) LL2IJPoint(lon, lat float64) (i, j int, ok bool, err error) {
	is, js, err := g.LL2IJ([]float64{lon}, []float64{lat})
	if err != nil {
		return NoIndex, NoIndex, false, err
	}
	return is[0], js[0], is[0] != NoIndex, nil
}

func (g *Grid) planar(op string) error {
	if err := g.md.planar(); err != nil {
		g.log.Warn("cannot use "+op+" with lat-lon projection", slog.Int("gdtyp", g.md.GDTYP))
		return err
	}
	return nil
}

// transformer checks the shared preconditions of the point transforms and
// builds the projection at the grid's radius.
func (g *Grid) transformer(op string, a, b []float64) (*Projection, error) {
	if err := g.planar(op); err != nil {
		return nil, err
	}
	if len(a) != len(b) {
		g.log.Warn(op+": coordinate slices differ in length", slog.Int("na", len(a)), slog.Int("nb", len(b)))
		return nil, fmt.Errorf("%w: %s got %d and %d points", ErrInputLengthMismatch, op, len(a), len(b))
	}
	return g.Projection(g.radius)
}

func (g *Grid) apply(f func(u, v float64) (float64, float64, error), us, vs []float64) (a, b []float64, err error) {
	a = make([]float64, len(us))
	b = make([]float64, len(vs))
	for k := range us {
		var terr error
		a[k], b[k], terr = f(us[k], vs[k])
		if terr != nil {
			g.log.Debug("point not transformable", slog.Int("index", k), slog.Any("error", terr))
			a[k], b[k] = math.NaN(), math.NaN()
		}
	}
	return a, b, nil
}

// centers returns n values orig+cell/2, orig+3cell/2, ... ending before orig+n*cell.
func centers(orig, cell float64, n int) []float64 {
	c := make([]float64, n)
	if n == 1 {
		c[0] = orig + cell/2
		return c
	}
	return floats.Span(c, orig+cell/2, orig+cell*(float64(n)-0.5))
}

// edges returns the n+1 cell boundaries orig ... orig+n*cell inclusive.
func edges(orig, cell float64, n int) []float64 {
	return floats.Span(make([]float64, n+1), orig, orig+cell*float64(n))
}

func meshgrid(xe, ye []float64) (x, y *mat.Dense) {
	rows, cols := len(ye), len(xe)
	x = mat.NewDense(rows, cols, nil)
	y = mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		x.SetRow(r, xe)
		for c := 0; c < cols; c++ {
			y.Set(r, c, ye[r])
		}
	}
	return x, y
}
