package cmaqgrid

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/ctessum/geom/proj"
	libproj "github.com/pebbe/proj/v5"
)

// Projection is a CMAQ map projection on a spherical earth. Forward maps
// geographic lon/lat degrees to projection metres; Inverse maps back.
// Lambert grids run on geom/proj; polar stereographic grids run on libproj and
// hold a PROJ context until Close.
type Projection struct {
	gdtyp  int
	radius float64
	def    string
	fwd    proj.Transformer
	inv    proj.Transformer
	ctx    *libproj.Context
}

// NewProjection builds the projection described by md with the given earth
// radius in metres. Only Lambert (2) and PolarStereo (6) grids are supported.
func NewProjection(md GridMetadata, radius float64) (*Projection, error) {
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius <= 0 {
		return nil, fmt.Errorf("%w: earth radius %g must be finite and > 0", ErrInvalidMetadata, radius)
	}
	p := &Projection{gdtyp: md.GDTYP, radius: radius}
	switch md.GDTYP {
	case Lambert:
		// n = 0 when the standard parallels mirror each other across the
		// equator; there is no cone to project onto.
		if math.Abs(md.P_ALP+md.P_BET) < 1e-10 {
			return nil, fmt.Errorf("%w: standard parallels P_ALP=%g and P_BET=%g give a degenerate cone", ErrInvalidMetadata, md.P_ALP, md.P_BET)
		}
		p.def = fmt.Sprintf("+proj=lcc +lat_1=%s +lat_2=%s +lat_0=%s +lon_0=%s +a=%s +b=%s +units=m +no_defs",
			ff(md.P_ALP), ff(md.P_BET), ff(md.YCENT), ff(md.XCENT), ff(radius), ff(radius))
		if err := p.fromDefinition(); err != nil {
			return nil, err
		}
	case PolarStereo:
		if !(md.P_BET > -90 && md.P_BET <= 90) {
			return nil, fmt.Errorf("%w: true-scale latitude P_BET=%g outside (-90, 90]", ErrInvalidMetadata, md.P_BET)
		}
		p.def = fmt.Sprintf("+proj=stere +lat_0=90 +lat_ts=%s +lon_0=%s +a=%s +b=%s +units=m +no_defs",
			ff(md.P_BET), ff(md.XCENT), ff(radius), ff(radius))
		if err := p.fromPROJ(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: GDTYP=%d; only Lambert conformal conic (GDTYP=2) and north polar stereographic (GDTYP=6) are implemented",
			ErrUnsupportedProjection, md.GDTYP)
	}
	return p, nil
}

// fromDefinition wires p.fwd/p.inv through the geom/proj engine, pairing the
// projected definition with a lon/lat system on the same sphere.
func (p *Projection) fromDefinition() error {
	projected, err := proj.Parse(p.def)
	if err != nil {
		return fmt.Errorf("parse %q: %w", p.def, err)
	}
	geographic, err := proj.Parse(fmt.Sprintf("+proj=longlat +a=%s +b=%s +no_defs", ff(p.radius), ff(p.radius)))
	if err != nil {
		return fmt.Errorf("parse longlat: %w", err)
	}
	if p.fwd, err = geographic.NewTransform(projected); err != nil {
		return fmt.Errorf("forward transform: %w", err)
	}
	if p.inv, err = projected.NewTransform(geographic); err != nil {
		return fmt.Errorf("inverse transform: %w", err)
	}
	return nil
}

// fromPROJ wires p.fwd/p.inv through libproj for definitions geom/proj does
// not register. A PROJ context is not safe for concurrent use, so calls are
// serialised.
func (p *Projection) fromPROJ() error {
	ctx := libproj.NewContext()
	pj, err := ctx.Create(p.def)
	if err != nil {
		ctx.Close()
		return fmt.Errorf("create %q: %w", p.def, err)
	}
	p.ctx = ctx

	var mu sync.Mutex
	trans := func(dir libproj.Direction, u, v float64) (float64, float64, error) {
		mu.Lock()
		defer mu.Unlock()
		u2, v2, _, _, err := pj.Trans(dir, u, v, 0, 0)
		if err != nil {
			return 0, 0, err
		}
		if math.IsInf(u2, 0) || math.IsInf(v2, 0) {
			return 0, 0, fmt.Errorf("%s: (%g, %g) outside projection domain", p.def, u, v)
		}
		return u2, v2, nil
	}
	p.fwd = func(lon, lat float64) (float64, float64, error) {
		return trans(libproj.Fwd, libproj.DegToRad(lon), libproj.DegToRad(lat))
	}
	p.inv = func(x, y float64) (float64, float64, error) {
		lam, phi, err := trans(libproj.Inv, x, y)
		if err != nil {
			return 0, 0, err
		}
		return libproj.RadToDeg(lam), libproj.RadToDeg(phi), nil
	}
	return nil
}

// Close releases the PROJ context behind a polar stereographic projection.
// It is a no-op for Lambert projections and safe to call more than once.
func (p *Projection) Close() {
	if p.ctx != nil {
		p.ctx.Close()
		p.ctx = nil
	}
}

// GDTYP returns the IOAPI projection code.
func (p *Projection) GDTYP() int { return p.gdtyp }

// Radius returns the earth radius in metres.
func (p *Projection) Radius() float64 { return p.radius }

// String returns the PROJ.4 style definition of the projection.
func (p *Projection) String() string { return p.def }

// Forward maps (lon°E, lat°N) to projection metres.
func (p *Projection) Forward(lon, lat float64) (x, y float64, err error) {
	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return math.NaN(), math.NaN(), fmt.Errorf("invalid lon/lat (%g, %g)", lon, lat)
	}
	x, y, err = p.fwd(lon, lat)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return x, y, nil
}

// Inverse maps projection metres to (lon°E, lat°N), lon in [-180, 180].
func (p *Projection) Inverse(x, y float64) (lon, lat float64, err error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return math.NaN(), math.NaN(), fmt.Errorf("invalid x/y (%g, %g)", x, y)
	}
	lon, lat, err = p.inv(x, y)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return NormLon(lon), lat, nil
}

// NormLon wraps a longitude into [-180, 180]. 0-360 inputs map to signed degrees.
func NormLon(lon float64) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return lon
	}
	if lon > 180 || lon < -180 {
		lon = math.Mod(lon, 360)
		if lon > 180 {
			lon -= 360
		} else if lon < -180 {
			lon += 360
		}
	}
	return lon
}

// ff formats v without an exponent, as PROJ strings conventionally are.
func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
