// Package reproject warps rasters onto a fixed analysis grid and picks
// the resampling algorithm from the source/destination sampling density.
package reproject

import (
	"fmt"
	"math"

	"github.com/eoproc/surfobs/raster"
	"github.com/eoproc/surfobs/utils"
)

// ConfigurationError signals an ambiguous or missing spatial-reference /
// bounds configuration.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("reprojection configuration error: %s", e.Msg)
}

const (
	ResampleBilinear = "bilinear"
	ResampleAverage  = "average"
)

// Reprojection wraps the raster engine with a fixed target grid. It is
// immutable once constructed and reused across many warp calls.
type Reprojection struct {
	engine         raster.Engine
	bounds         []float64
	xRes           float64
	yRes           float64
	destinationSRS string
	boundsSRS      string
	resamplingMode string
}

// New builds a Reprojection for the given target grid. boundsSRS
// defaults to destinationSRS; resamplingMode is auto-selected per warp
// when left empty.
func New(engine raster.Engine, bounds []float64, xRes, yRes float64,
	destinationSRS, boundsSRS, resamplingMode string) (*Reprojection, error) {
	if len(bounds) != 4 {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("bounds must contain xmin, ymin, xmax, ymax; got %d values", len(bounds))}
	}
	if xRes <= 0 || yRes <= 0 {
		return nil, &ConfigurationError{Msg: "resolutions must be positive"}
	}
	if len(destinationSRS) == 0 {
		return nil, &ConfigurationError{Msg: "no destination spatial reference given"}
	}
	if len(boundsSRS) == 0 {
		boundsSRS = destinationSRS
	}
	return &Reprojection{
		engine:         engine,
		bounds:         bounds,
		xRes:           xRes,
		yRes:           yRes,
		destinationSRS: destinationSRS,
		boundsSRS:      boundsSRS,
		resamplingMode: resamplingMode,
	}, nil
}

// FromGridConfig builds a Reprojection from the configured analysis grid.
func FromGridConfig(engine raster.Engine, grid *utils.GridConfig) (*Reprojection, error) {
	return New(engine, grid.Bounds, grid.XRes, grid.YRes,
		grid.DestinationCRS, grid.BoundsCRS, grid.ResamplingMode)
}

func (r *Reprojection) DestinationSRS() string {
	return r.destinationSRS
}

// ResamplingFor reports the algorithm a warp of the dataset will use,
// either the configured mode or the auto-selected one.
func (r *Reprojection) ResamplingFor(dataset raster.Dataset) (string, error) {
	if len(r.resamplingMode) > 0 {
		return r.resamplingMode, nil
	}
	mode, err := r.selectResampling(dataset)
	if err != nil {
		return "", err
	}
	utils.Log.Debugf("auto-selected %s resampling for warp onto %v", mode, r.bounds)
	return mode, nil
}

// Reproject warps the dataset into the target grid, producing an
// in-memory result with the destination spatial reference, bounds and
// resolution baked in.
func (r *Reprojection) Reproject(dataset raster.Dataset) (raster.Dataset, error) {
	mode, err := r.ResamplingFor(dataset)
	if err != nil {
		return nil, err
	}
	return r.engine.Warp(dataset, &raster.WarpOptions{
		OutputBounds: r.bounds,
		XRes:         r.xRes,
		YRes:         r.yRes,
		DstSRS:       r.destinationSRS,
		BoundsSRS:    r.boundsSRS,
		ResampleAlg:  mode,
	})
}

// ReprojectPath opens the raster at path and reprojects it.
func (r *Reprojection) ReprojectPath(path string) (raster.Dataset, error) {
	dataset, err := r.engine.Open(path)
	if err != nil {
		return nil, err
	}
	defer dataset.Close()
	return r.Reproject(dataset)
}

// selectResampling compares scale-free sampling densities of the source
// and destination grids over the target bounds: a denser destination
// means up-sampling, which wants a smooth interpolator, otherwise the
// values are aggregated down.
func (r *Reprojection) selectResampling(dataset raster.Dataset) (string, error) {
	up, err := r.needToSampleUp(dataset)
	if err != nil {
		return "", err
	}
	if up {
		return ResampleBilinear, nil
	}
	return ResampleAverage, nil
}

func (r *Reprojection) needToSampleUp(dataset raster.Dataset) (bool, error) {
	sourceSRS := dataset.Projection()
	boundsInSource, err := r.engine.TransformCoordinates(r.boundsSRS, sourceSRS, r.bounds)
	if err != nil {
		return false, err
	}
	gt := dataset.GeoTransform()
	sourceMeasure := distMeasure(boundsInSource, gt.XRes(), gt.YRes())

	boundsInDest, err := r.engine.TransformCoordinates(r.boundsSRS, r.destinationSRS, r.bounds)
	if err != nil {
		return false, err
	}
	destMeasure := distMeasure(boundsInDest, r.xRes, r.yRes)
	return destMeasure > sourceMeasure, nil
}

// distMeasure is not suited for computing actual geographic distances.
// It only ranks how many cells each grid spends on the same bounds.
func distMeasure(coords []float64, xRes, yRes float64) float64 {
	xDist := math.Abs(coords[0] - coords[2])
	yDist := math.Abs(coords[1] - coords[3])
	return (xDist / xRes) * (yDist / yRes)
}
