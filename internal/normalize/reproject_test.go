package normalize

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReprojectPassthrough(t *testing.T) {
	r := NewMercatorReprojector()

	for _, crs := range []string{"", "EPSG:4326", "epsg:4326", "WGS84", "CRS84", "OGC:CRS84", " wgs84 "} {
		fc := geojson.NewFeatureCollection()
		fc.Append(pointFeature(-122.4, 37.8, nil))

		out, err := r.Reproject(fc, crs)
		require.NoError(t, err, "crs %q", crs)
		assert.Equal(t, orb.Point{-122.4, 37.8}, out.Features[0].Geometry)
	}
}

func TestReprojectWebMercator(t *testing.T) {
	r := NewMercatorReprojector()

	wgs := orb.Point{-122.4, 37.8}
	merc := project.Point(wgs, project.WGS84.ToMercator)

	for _, crs := range []string{"EPSG:3857", "epsg:3857", "EPSG:900913", "EPSG:102100"} {
		fc := geojson.NewFeatureCollection()
		fc.Append(pointFeature(merc[0], merc[1], nil))

		out, err := r.Reproject(fc, crs)
		require.NoError(t, err, "crs %q", crs)

		got, ok := out.Features[0].Geometry.(orb.Point)
		require.True(t, ok)
		assert.InDelta(t, wgs[0], got[0], 1e-6)
		assert.InDelta(t, wgs[1], got[1], 1e-6)
	}
}

func TestReprojectUnsupportedCRS(t *testing.T) {
	r := NewMercatorReprojector()
	fc := geojson.NewFeatureCollection()
	fc.Append(pointFeature(0, 0, nil))

	_, err := r.Reproject(fc, "EPSG:27700")
	require.Error(t, err)
	ne, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeReprojectionFailed, ne.Code)
}

func TestReprojectSkipsNilGeometry(t *testing.T) {
	r := NewMercatorReprojector()
	fc := geojson.NewFeatureCollection()
	fc.Append(&geojson.Feature{})
	fc.Append(pointFeature(0, 0, nil))

	out, err := r.Reproject(fc, "EPSG:3857")
	require.NoError(t, err)
	assert.Nil(t, out.Features[0].Geometry)
	assert.Equal(t, orb.Point{0, 0}, out.Features[1].Geometry)
}
