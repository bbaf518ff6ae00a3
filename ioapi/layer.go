package ioapi

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/geal-ai/cmaqgrid"
)

// ReadLayer reads one (TSTEP, LAY) slab of a (TSTEP, LAY, ROW, COL) variable
// and returns it as a Field on g.
func ReadLayer(path string, g *cmaqgrid.Grid, variable string, tstep, layer int) (*cmaqgrid.Field, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()

	vg, err := nc.GetVarGetter(variable)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", variable, err)
	}
	vals, err := readSlab(vg, tstep, layer)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", variable, err)
	}
	return cmaqgrid.NewField(g, variable, vals)
}

// readSlab fetches only the requested time step, then flattens the layer
// row-major.
func readSlab(vg api.VarGetter, tstep, layer int) ([]float64, error) {
	if dims := vg.Dimensions(); len(dims) != 4 {
		return nil, fmt.Errorf("expected 4 dimensions (TSTEP, LAY, ROW, COL), got %v", dims)
	}
	if tstep < 0 || int64(tstep) >= vg.Len() {
		return nil, fmt.Errorf("time step %d out of range [0, %d)", tstep, vg.Len())
	}
	raw, err := vg.GetSlice(int64(tstep), int64(tstep)+1)
	if err != nil {
		return nil, err
	}
	return flattenLayer(raw, layer)
}

func flattenLayer(raw interface{}, layer int) ([]float64, error) {
	switch v := raw.(type) {
	case [][][][]float32:
		if len(v) != 1 || layer < 0 || layer >= len(v[0]) {
			return nil, fmt.Errorf("layer %d out of range", layer)
		}
		var out []float64
		for _, row := range v[0][layer] {
			for _, x := range row {
				out = append(out, float64(x))
			}
		}
		return out, nil
	case [][][][]float64:
		if len(v) != 1 || layer < 0 || layer >= len(v[0]) {
			return nil, fmt.Errorf("layer %d out of range", layer)
		}
		var out []float64
		for _, row := range v[0][layer] {
			out = append(out, row...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported variable type %T", raw)
	}
}
