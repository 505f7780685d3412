package reproject

import (
	"encoding/json"
	"fmt"
	"math"

	geo "github.com/nci/geometry"

	"github.com/eoproc/surfobs/raster"
)

const wgs84 = "EPSG:4326"

// FromRegionOfInterest derives the target grid from a GeoJSON region of
// interest and a spatial resolution. When the ROI is geographic and no
// destination grid is named, the matching UTM zone is used; a projected
// ROI without an explicit destination grid is ambiguous and rejected.
func FromRegionOfInterest(engine raster.Engine, roiJSON string, roiGrid string,
	destinationGrid string, spatialResolution float64) (*Reprojection, error) {
	polygon, err := parseROI(roiJSON)
	if err != nil {
		return nil, err
	}
	bounds, centerX, centerY := polygonBounds(polygon)

	roiSRS := roiGrid
	destinationSRS := destinationGrid
	switch {
	case len(roiSRS) == 0 && len(destinationSRS) == 0:
		roiSRS = wgs84
		destinationSRS = utmSRSFor(centerX, centerY)
	case len(roiSRS) == 0:
		roiSRS = destinationSRS
	case len(destinationSRS) == 0:
		if roiSRS != wgs84 {
			return nil, &ConfigurationError{
				Msg: fmt.Sprintf("cannot derive destination grid for roi grid %s, please specify a destination grid", roiSRS)}
		}
		destinationSRS = utmSRSFor(centerX, centerY)
	}

	return New(engine, bounds, spatialResolution, spatialResolution, destinationSRS, roiSRS, "")
}

func parseROI(roiJSON string) (*geo.Polygon, error) {
	var feature geo.Feature
	if err := json.Unmarshal([]byte(roiJSON), &feature); err == nil {
		if polygon, ok := feature.Geometry.(*geo.Polygon); ok {
			return polygon, nil
		}
	}
	var polygon geo.Polygon
	if err := json.Unmarshal([]byte(roiJSON), &polygon); err == nil && len(polygon) > 0 {
		return &polygon, nil
	}
	return nil, &ConfigurationError{Msg: "region of interest is not a GeoJSON polygon"}
}

func polygonBounds(polygon *geo.Polygon) ([]float64, float64, float64) {
	ring := (*polygon)[0]
	xMin, yMin := math.Inf(1), math.Inf(1)
	xMax, yMax := math.Inf(-1), math.Inf(-1)
	var sumX, sumY float64
	for _, coord := range ring {
		x, y := coord.X, coord.Y
		xMin = math.Min(xMin, x)
		yMin = math.Min(yMin, y)
		xMax = math.Max(xMax, x)
		yMax = math.Max(yMax, y)
		sumX += x
		sumY += y
	}
	n := float64(len(ring))
	return []float64{xMin, yMin, xMax, yMax}, sumX / n, sumY / n
}

// utmSRSFor returns the EPSG code of the UTM zone containing the given
// WGS84 coordinate.
func utmSRSFor(lon, lat float64) string {
	zone := int(1 + (lon+180.0)/6.0)
	if zone < 1 {
		zone = 1
	} else if zone > 60 {
		zone = 60
	}
	if lat >= 0 {
		return fmt.Sprintf("EPSG:%d", 32600+zone)
	}
	return fmt.Sprintf("EPSG:%d", 32700+zone)
}
