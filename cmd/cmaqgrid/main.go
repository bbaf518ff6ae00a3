// Command cmaqgrid answers grid and projection questions about a CMAQ domain.
//
// Usage:
//
//	cmaqgrid [flags] <op> [args...]
//
// Examples:
//
//	cmaqgrid -file CCTM_ACONC.nc proj
//	cmaqgrid -file CCTM_ACONC.nc centers
//	cmaqgrid -file CCTM_ACONC.nc ll2ij -106.19 39.54 -104.98 39.74
//	cmaqgrid -file CCTM_ACONC.nc xy2ll 0 0
//	cmaqgrid -file CCTM_ACONC.nc -var O3 -tstep 12 value -104.98 39.74
//	cmaqgrid -json -file CCTM_ACONC.nc ll2xy -104.98 39.74
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/geal-ai/cmaqgrid"
	"github.com/geal-ai/cmaqgrid/internal/config"
	"github.com/geal-ai/cmaqgrid/ioapi"
)

// pointResult is one transformed point in JSON output.
type pointResult struct {
	In  [2]float64 `json:"in"`
	Out [2]any     `json:"out"`
}

// jsonOutput is the top-level JSON response.
type jsonOutput struct {
	Op         string         `json:"op"`
	Projection string         `json:"projection,omitempty"`
	Grid       any            `json:"grid,omitempty"`
	Points     []pointResult  `json:"points,omitempty"`
	Arrays     map[string]any `json:"arrays,omitempty"`
}

func main() {
	cfgDir := flag.String("config", "", "Directory holding cmaqgrid.yaml (default: working directory)")
	file := flag.String("file", "", "CMAQ IOAPI netCDF file to read grid metadata from")
	radius := flag.Float64("radius", 0, "Earth radius in metres (default: config value, 6370000)")
	varName := flag.String("var", "", "Variable to sample for the value op, e.g. O3")
	tstep := flag.Int("tstep", 0, "Time step index for the value op")
	layer := flag.Int("layer", 0, "Layer index for the value op")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (default: config value)")
	asJSON := flag.Bool("json", false, "Output results as JSON")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*cfgDir)
	if err != nil {
		fatalf("%v", err)
	}
	if *file != "" {
		cfg.File = *file
	}
	if *radius != 0 {
		cfg.Radius = *radius
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}
	lvl, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "error: an operation is required")
		usage()
		os.Exit(2)
	}
	op := flag.Arg(0)

	md, err := loadMetadata(cfg)
	if err != nil {
		fatalf("%v", err)
	}
	logger.Debug("grid metadata", slog.Any("metadata", md), slog.String("source", sourceName(cfg)))

	g, err := cmaqgrid.New(md, cmaqgrid.WithLogger(logger), cmaqgrid.WithRadius(cfg.Radius))
	if err != nil {
		fatalf("%v", err)
	}

	args := flag.Args()[1:]
	var out jsonOutput
	switch op {
	case "proj":
		out, err = runProj(g, cfg.Radius)
	case "centers":
		out, err = runCenters(g)
	case "corners":
		out, err = runCorners(g)
	case "ll2xy", "xy2ll", "ll2ij":
		out, err = runPoints(g, op, args)
	case "value":
		out, err = runValue(g, cfg.File, *varName, *tstep, *layer, args)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown operation %q\n", op)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatalf("%s: %v", op, err)
	}

	if *asJSON {
		emitJSON(out)
	} else {
		printText(out)
	}
}

func loadMetadata(cfg *config.Config) (cmaqgrid.GridMetadata, error) {
	if cfg.File != "" {
		return ioapi.ReadMetadata(cfg.File)
	}
	if cfg.Grid != nil {
		return *cfg.Grid, nil
	}
	return cmaqgrid.GridMetadata{}, fmt.Errorf("no grid: pass -file or set a grid section in cmaqgrid.yaml")
}

func sourceName(cfg *config.Config) string {
	if cfg.File != "" {
		return cfg.File
	}
	return "config"
}

func runProj(g *cmaqgrid.Grid, radius float64) (jsonOutput, error) {
	p, err := g.Projection(radius)
	if err != nil {
		return jsonOutput{}, err
	}
	defer p.Close()
	return jsonOutput{Op: "proj", Projection: p.String(), Grid: g.Metadata()}, nil
}

func runCenters(g *cmaqgrid.Grid) (jsonOutput, error) {
	x, y, err := g.XYCenters()
	if err != nil {
		return jsonOutput{}, err
	}
	return jsonOutput{Op: "centers", Arrays: map[string]any{"x": x, "y": y}}, nil
}

func runCorners(g *cmaqgrid.Grid) (jsonOutput, error) {
	x, y, err := g.XYCorners()
	if err != nil {
		return jsonOutput{}, err
	}
	return jsonOutput{Op: "corners", Arrays: map[string]any{"x": rows(x), "y": rows(y)}}, nil
}

func rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func runPoints(g *cmaqgrid.Grid, op string, args []string) (jsonOutput, error) {
	a, b, err := parsePairs(args)
	if err != nil {
		return jsonOutput{}, err
	}
	out := jsonOutput{Op: op, Points: make([]pointResult, len(a))}
	switch op {
	case "ll2xy", "xy2ll":
		f := g.LL2XY
		if op == "xy2ll" {
			f = g.XY2LL
		}
		u, v, err := f(a, b)
		if err != nil {
			return jsonOutput{}, err
		}
		for k := range a {
			out.Points[k] = pointResult{In: [2]float64{a[k], b[k]}, Out: [2]any{jsonFloat(u[k]), jsonFloat(v[k])}}
		}
	case "ll2ij":
		i, j, err := g.LL2IJ(a, b)
		if err != nil {
			return jsonOutput{}, err
		}
		for k := range a {
			res := pointResult{In: [2]float64{a[k], b[k]}}
			if i[k] != cmaqgrid.NoIndex {
				res.Out = [2]any{i[k], j[k]}
			}
			out.Points[k] = res
		}
	}
	return out, nil
}

func runValue(g *cmaqgrid.Grid, file, varName string, tstep, layer int, args []string) (jsonOutput, error) {
	if file == "" || varName == "" {
		return jsonOutput{}, fmt.Errorf("value needs -file and -var")
	}
	lons, lats, err := parsePairs(args)
	if err != nil {
		return jsonOutput{}, err
	}
	field, err := ioapi.ReadLayer(file, g, varName, tstep, layer)
	if err != nil {
		return jsonOutput{}, err
	}
	out := jsonOutput{Op: "value", Points: make([]pointResult, len(lons))}
	for k := range lons {
		val, err := field.Lookup(lons[k], lats[k])
		if err != nil && !errors.Is(err, cmaqgrid.ErrOutsideDomain) {
			return jsonOutput{}, err
		}
		out.Points[k] = pointResult{In: [2]float64{lons[k], lats[k]}, Out: [2]any{varName, jsonFloat(val)}}
	}
	return out, nil
}

// parsePairs splits "a1 b1 a2 b2 ..." into two equal-length slices.
func parsePairs(args []string) (a, b []float64, err error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("at least one coordinate pair is required")
	}
	for k, s := range args {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid coordinate %q: %v", s, err)
		}
		if k%2 == 0 {
			a = append(a, v)
		} else {
			b = append(b, v)
		}
	}
	// An odd count reaches the grid as unequal slices and is reported as a
	// length mismatch there.
	return a, b, nil
}

// jsonFloat maps NaN to nil since JSON has no NaN.
func jsonFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// emitJSON writes jsonOutput to stdout as indented JSON.
func emitJSON(out jsonOutput) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatalf("json encode: %v", err)
	}
}

func printText(out jsonOutput) {
	switch out.Op {
	case "proj":
		fmt.Printf("  %s\n", out.Projection)
	case "centers", "corners":
		for _, k := range []string{"x", "y"} {
			fmt.Printf("  %s: %v\n", k, out.Arrays[k])
		}
	default:
		for _, p := range out.Points {
			if p.Out[0] == nil && p.Out[1] == nil {
				fmt.Printf("  %12.4f %12.4f  →  (outside domain)\n", p.In[0], p.In[1])
				continue
			}
			fmt.Printf("  %12.4f %12.4f  →  %v %v\n", p.In[0], p.In[1], orNA(p.Out[0]), orNA(p.Out[1]))
		}
	}
}

func orNA(v any) any {
	if v == nil {
		return "NA"
	}
	return v
}

func usage() {
	fmt.Fprintln(os.Stderr, `cmaqgrid — CMAQ grid coordinates, projections and cell lookup

Usage:
  cmaqgrid [flags] <op> [args...]

Operations:
  proj                     print the grid's map projection
  centers                  print cell-centre X and Y coordinates (m)
  corners                  print the cell-corner mesh (m)
  ll2xy <lon> <lat> ...    lon/lat degrees → projection metres
  xy2ll <x> <y> ...        projection metres → lon/lat degrees
  ll2ij <lon> <lat> ...    lon/lat degrees → zero-based column, row
  value <lon> <lat> ...    nearest-cell value of -var

Flags:`)
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, `
Environment:
  CMAQGRID_RADIUS, CMAQGRID_LOG_LEVEL, CMAQGRID_FILE override cmaqgrid.yaml.`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
