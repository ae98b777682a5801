package catalog

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
)

func featureCollectionWithProps(t *testing.T, props map[string]interface{}) *geojson.FeatureCollection {
	t.Helper()
	f := geojson.NewFeature(orb.Point{0, 0})
	f.Properties = geojson.Properties(props)
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"environment", "environment"},
		{"Environment", "environment"},
		{"  TRANSPORTATION  ", "transportation"},
		{"public-safety", "public-safety"},
		{"nonsense", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCategory(tt.in), "input %q", tt.in)
	}
}

func TestBBoxValidate(t *testing.T) {
	assert.NoError(t, BBox{West: -10, South: -5, East: 10, North: 5}.Validate())
	assert.NoError(t, BBox{West: 1, South: 2, East: 1, North: 2}.Validate(), "degenerate point box is valid")

	assert.ErrorIs(t, BBox{West: 10, South: 0, East: -10, North: 5}.Validate(), ErrInvalidBBox)
	assert.ErrorIs(t, BBox{West: 0, South: 5, East: 10, North: -5}.Validate(), ErrInvalidBBox)
}

func TestDatasetListHelpers(t *testing.T) {
	d := &Dataset{
		Tags:          "parks, recreation ,,green",
		GeometryTypes: "Point,Polygon",
		BBoxWest:      -1, BBoxSouth: -2, BBoxEast: 3, BBoxNorth: 4,
	}

	assert.Equal(t, []string{"parks", "recreation", "green"}, d.TagList())
	assert.Equal(t, []string{"Point", "Polygon"}, d.GeometryTypeList())
	assert.Equal(t, BBox{West: -1, South: -2, East: 3, North: 4}, d.BBox())

	empty := &Dataset{}
	assert.Empty(t, empty.TagList())
	assert.Empty(t, empty.GeometryTypeList())
}

func TestInferSchemaFromService(t *testing.T) {
	// inferSchema is exercised indirectly via CreateDataset; the unit cases
	// live here next to the type.
	fc := featureCollectionWithProps(t, map[string]interface{}{
		"count":  3.0,
		"ratio":  0.5,
		"active": true,
		"name":   "x",
	})

	fields := inferSchema(fc)
	byName := map[string]string{}
	for _, f := range fields {
		byName[f.Name] = f.Type
	}

	assert.Equal(t, "integer", byName["count"])
	assert.Equal(t, "number", byName["ratio"])
	assert.Equal(t, "boolean", byName["active"])
	assert.Equal(t, "string", byName["name"])
}
