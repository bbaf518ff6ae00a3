// Package ioapi reads CMAQ grid metadata and variable layers from Models-3
// IOAPI netCDF files.
package ioapi

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/geal-ai/cmaqgrid"
)

// ReadMetadata opens an IOAPI file and decodes its grid description.
func ReadMetadata(path string) (cmaqgrid.GridMetadata, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return cmaqgrid.GridMetadata{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()

	md, err := MetadataFromAttributes(nc.Attributes())
	if err != nil {
		return cmaqgrid.GridMetadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return md, nil
}

// MetadataFromAttributes decodes the IOAPI global attributes in am.
func MetadataFromAttributes(am api.AttributeMap) (cmaqgrid.GridMetadata, error) {
	var md cmaqgrid.GridMetadata
	ints := []struct {
		name string
		dst  *int
	}{
		{"GDTYP", &md.GDTYP},
		{"NCOLS", &md.NCOLS},
		{"NROWS", &md.NROWS},
	}
	for _, a := range ints {
		v, err := attrFloat(am, a.name)
		if err != nil {
			return cmaqgrid.GridMetadata{}, err
		}
		if v != float64(int(v)) {
			return cmaqgrid.GridMetadata{}, fmt.Errorf("attribute %s: %g is not an integer", a.name, v)
		}
		*a.dst = int(v)
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{"XORIG", &md.XORIG},
		{"YORIG", &md.YORIG},
		{"XCELL", &md.XCELL},
		{"YCELL", &md.YCELL},
		{"XCENT", &md.XCENT},
		{"YCENT", &md.YCENT},
		{"P_ALP", &md.P_ALP},
		{"P_BET", &md.P_BET},
	}
	for _, a := range floats {
		v, err := attrFloat(am, a.name)
		if err != nil {
			return cmaqgrid.GridMetadata{}, err
		}
		*a.dst = v
	}
	return md, nil
}

// attrFloat reads a numeric scalar attribute. The reader hands back either a
// scalar or a one-element slice depending on how the file was written.
func attrFloat(am api.AttributeMap, name string) (float64, error) {
	raw, ok := am.Get(name)
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	switch v := raw.(type) {
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case []int16:
		if len(v) == 1 {
			return float64(v[0]), nil
		}
	case []int32:
		if len(v) == 1 {
			return float64(v[0]), nil
		}
	case []int64:
		if len(v) == 1 {
			return float64(v[0]), nil
		}
	case []float32:
		if len(v) == 1 {
			return float64(v[0]), nil
		}
	case []float64:
		if len(v) == 1 {
			return v[0], nil
		}
	default:
		return 0, fmt.Errorf("attribute %s: unsupported type %T", name, raw)
	}
	return 0, fmt.Errorf("attribute %s: expected a single value, got %v", name, raw)
}
