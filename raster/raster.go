// Package raster defines the capability boundary to the raster I/O and
// warp engine. The core never decodes pixels or executes warp kernels
// itself; it talks to an Engine.
package raster

import "fmt"

// GeoTransform is the usual six-parameter affine transform:
// x origin, x pixel width, row rotation, y origin, column rotation,
// y pixel height (negative for north-up rasters).
type GeoTransform [6]float64

func (gt GeoTransform) XRes() float64 {
	return gt[1]
}

func (gt GeoTransform) YRes() float64 {
	return -gt[5]
}

// Dataset is one opened raster.
type Dataset interface {
	// GeoTransform returns the dataset's affine georeferencing.
	GeoTransform() GeoTransform
	// Projection returns the dataset's spatial reference as a
	// definition string (WKT or EPSG:nnnn).
	Projection() string
	RasterXSize() int
	RasterYSize() int
	RasterCount() int
	// ReadBand reads one whole band, 1-based, row-major.
	ReadBand(band int) ([]float64, error)
	Close()
}

// WarpOptions configure one warp call. Bounds are xmin, ymin, xmax, ymax
// in BoundsSRS (DstSRS when BoundsSRS is empty).
type WarpOptions struct {
	OutputBounds []float64
	XRes         float64
	YRes         float64
	DstSRS       string
	BoundsSRS    string
	ResampleAlg  string
}

// Engine opens rasters, reports their georeferencing and performs
// coordinate transforms and resampled warps.
type Engine interface {
	Open(path string) (Dataset, error)
	// Warp resamples src into a new in-memory dataset per opts.
	Warp(src Dataset, opts *WarpOptions) (Dataset, error)
	// BuildVRT writes a virtual mosaic referencing the input rasters.
	BuildVRT(vrtPath string, inputs []string) error
	// TransformCoordinates maps [x1, y1, x2, y2, ...] from the source
	// to the target spatial reference.
	TransformCoordinates(srcSRS, dstSRS string, coords []float64) ([]float64, error)
}

// InvalidDatasetError signals unreadable or malformed raster input.
type InvalidDatasetError struct {
	Path   string
	Reason string
}

func (e *InvalidDatasetError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("invalid dataset %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("invalid dataset: %s", e.Reason)
}
