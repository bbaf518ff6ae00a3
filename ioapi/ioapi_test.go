package ioapi

import (
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geal-ai/cmaqgrid"
)

// attrs is an in-memory api.AttributeMap.
type attrs map[string]interface{}

func (a attrs) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	return keys
}

func (a attrs) Get(key string) (interface{}, bool) {
	v, ok := a[key]
	return v, ok
}

func (a attrs) GetType(string) (string, bool)   { return "", false }
func (a attrs) GetGoType(string) (string, bool) { return "", false }

var _ api.AttributeMap = attrs{}

// conusAttrs mirrors the global attributes of a CMAQ 12US1 output file, as
// written by IOAPI: integers as int32 and grid scalars as float64.
func conusAttrs() attrs {
	return attrs{
		"IOAPI_VERSION": "ioapi-3.2",
		"GDTYP":         int32(2),
		"P_ALP":         float64(33),
		"P_BET":         float64(45),
		"P_GAM":         float64(-97),
		"XCENT":         float64(-97),
		"YCENT":         float64(40),
		"XORIG":         float64(-2556000),
		"YORIG":         float64(-1728000),
		"XCELL":         float64(12000),
		"YCELL":         float64(12000),
		"NCOLS":         int32(459),
		"NROWS":         int32(299),
		"NLAYS":         int32(35),
	}
}

func TestMetadataFromAttributes(t *testing.T) {
	md, err := MetadataFromAttributes(conusAttrs())
	require.NoError(t, err)
	assert.Equal(t, cmaqgrid.GridMetadata{
		GDTYP: cmaqgrid.Lambert,
		XORIG: -2556000, YORIG: -1728000,
		XCELL: 12000, YCELL: 12000,
		NCOLS: 459, NROWS: 299,
		XCENT: -97, YCENT: 40,
		P_ALP: 33, P_BET: 45,
	}, md)
}

func TestMetadataFromAttributesSliceValues(t *testing.T) {
	a := conusAttrs()
	a["GDTYP"] = []int32{6}
	a["P_BET"] = []float64{60}
	a["XCELL"] = []float32{36000}
	a["NCOLS"] = int16(100)
	a["NROWS"] = []int64{80}
	a["YCELL"] = float32(36000)

	md, err := MetadataFromAttributes(a)
	require.NoError(t, err)
	assert.Equal(t, cmaqgrid.PolarStereo, md.GDTYP)
	assert.Equal(t, 60.0, md.P_BET)
	assert.Equal(t, 36000.0, md.XCELL)
	assert.Equal(t, 36000.0, md.YCELL)
	assert.Equal(t, 100, md.NCOLS)
	assert.Equal(t, 80, md.NROWS)
}

func TestMetadataFromAttributesErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(attrs)
		want string
	}{
		{"missing", func(a attrs) { delete(a, "XORIG") }, "missing attribute XORIG"},
		{"string", func(a attrs) { a["XCELL"] = "12km" }, "attribute XCELL: unsupported type string"},
		{"multi-valued", func(a attrs) { a["P_ALP"] = []float64{33, 45} }, "attribute P_ALP: expected a single value"},
		{"empty", func(a attrs) { a["NCOLS"] = []int32{} }, "attribute NCOLS: expected a single value"},
		{"fractional int", func(a attrs) { a["NROWS"] = float64(299.5) }, "attribute NROWS: 299.5 is not an integer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := conusAttrs()
			tc.edit(a)
			_, err := MetadataFromAttributes(a)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestReadMetadataMissingFile(t *testing.T) {
	_, err := ReadMetadata("testdata/does-not-exist.nc")
	assert.ErrorContains(t, err, "open testdata/does-not-exist.nc")
}
