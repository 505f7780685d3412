package reproject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoproc/surfobs/raster/mem"
)

const roiFeatureJSON = `{
	"type": "Feature",
	"geometry": {
		"type": "Polygon",
		"coordinates": [[[10.0, 45.0], [10.6, 45.0], [10.6, 45.4], [10.0, 45.4], [10.0, 45.0]]]
	},
	"properties": {}
}`

const roiPolygonJSON = `{
	"type": "Polygon",
	"coordinates": [[[-58.0, -34.0], [-57.5, -34.0], [-57.5, -33.6], [-58.0, -33.6], [-58.0, -34.0]]]
}`

func TestFromRegionOfInterestDerivesUTMZone(t *testing.T) {
	engine := mem.NewEngine()

	r, err := FromRegionOfInterest(engine, roiFeatureJSON, "", "", 60.0)
	require.NoError(t, err)
	// lon ~10.3 falls in UTM zone 32, northern hemisphere
	assert.Equal(t, "EPSG:32632", r.DestinationSRS())
	assert.Equal(t, wgs84, r.boundsSRS)
	assert.Equal(t, []float64{10.0, 45.0, 10.6, 45.4}, r.bounds)
	assert.Equal(t, 60.0, r.xRes)
}

func TestFromRegionOfInterestSouthernHemisphere(t *testing.T) {
	engine := mem.NewEngine()

	r, err := FromRegionOfInterest(engine, roiPolygonJSON, "", "", 30.0)
	require.NoError(t, err)
	// lon ~-57.75 falls in UTM zone 21, southern hemisphere
	assert.Equal(t, "EPSG:32721", r.DestinationSRS())
}

func TestFromRegionOfInterestExplicitDestination(t *testing.T) {
	engine := mem.NewEngine()

	r, err := FromRegionOfInterest(engine, roiFeatureJSON, "", "EPSG:3577", 25.0)
	require.NoError(t, err)
	assert.Equal(t, "EPSG:3577", r.DestinationSRS())
	assert.Equal(t, "EPSG:3577", r.boundsSRS, "roi grid defaults to the destination grid")
}

func TestFromRegionOfInterestWGS84ROIKeepsUTMDerivation(t *testing.T) {
	engine := mem.NewEngine()

	r, err := FromRegionOfInterest(engine, roiFeatureJSON, wgs84, "", 60.0)
	require.NoError(t, err)
	assert.Equal(t, "EPSG:32632", r.DestinationSRS())
}

func TestFromRegionOfInterestProjectedROIWithoutDestination(t *testing.T) {
	engine := mem.NewEngine()

	_, err := FromRegionOfInterest(engine, roiFeatureJSON, "EPSG:3577", "", 60.0)
	require.Error(t, err)
	var confErr *ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestFromRegionOfInterestRejectsNonPolygon(t *testing.T) {
	engine := mem.NewEngine()

	tests := []struct {
		name string
		roi  string
	}{
		{"point geometry", `{"type": "Feature", "geometry": {"type": "Point", "coordinates": [10.0, 45.0]}}`},
		{"not geojson", `not json at all`},
		{"empty object", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromRegionOfInterest(engine, tt.roi, "", "", 60.0)
			require.Error(t, err)
			var confErr *ConfigurationError
			assert.ErrorAs(t, err, &confErr)
		})
	}
}

func TestUTMSRSFor(t *testing.T) {
	tests := []struct {
		lon, lat float64
		want     string
	}{
		{10.3, 45.0, "EPSG:32632"},
		{-57.75, -33.8, "EPSG:32721"},
		{0.0, 0.0, "EPSG:32631"},
		{-180.0, 10.0, "EPSG:32601"},
		{179.9, -10.0, "EPSG:32760"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, utmSRSFor(tt.lon, tt.lat), "lon %v lat %v", tt.lon, tt.lat)
	}
}
