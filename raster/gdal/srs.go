package gdal

// #include "gdal.h"
// #include "ogr_srs_api.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"unsafe"
)

func newSpatialReference(def string) (C.OGRSpatialReferenceH, error) {
	hSRS := C.OSRNewSpatialReference(nil)
	defC := C.CString(def)
	defer C.free(unsafe.Pointer(defC))
	if C.OSRSetFromUserInput(hSRS, defC) != C.OGRERR_NONE {
		C.OSRDestroySpatialReference(hSRS)
		return nil, fmt.Errorf("unrecognised spatial reference: %s", def)
	}
	// keep x,y ordering regardless of the authority's axis definition
	C.OSRSetAxisMappingStrategy(hSRS, C.OAMS_TRADITIONAL_GIS_ORDER)
	return hSRS, nil
}

// TransformCoordinates maps coordinate pairs [x1, y1, x2, y2, ...] from
// srcSRS into dstSRS.
func (e *Engine) TransformCoordinates(srcSRS, dstSRS string, coords []float64) ([]float64, error) {
	if len(coords)%2 != 0 {
		return nil, fmt.Errorf("coordinates must come in x,y pairs; got %d values", len(coords))
	}

	hSrc, err := newSpatialReference(srcSRS)
	if err != nil {
		return nil, err
	}
	defer C.OSRDestroySpatialReference(hSrc)

	hDst, err := newSpatialReference(dstSRS)
	if err != nil {
		return nil, err
	}
	defer C.OSRDestroySpatialReference(hDst)

	hCT := C.OCTNewCoordinateTransformation(hSrc, hDst)
	if hCT == nil {
		return nil, fmt.Errorf("no coordinate transformation from %s to %s", srcSRS, dstSRS)
	}
	defer C.OCTDestroyCoordinateTransformation(hCT)

	n := len(coords) / 2
	xs := make([]C.double, n)
	ys := make([]C.double, n)
	for i := 0; i < n; i++ {
		xs[i] = C.double(coords[i*2])
		ys[i] = C.double(coords[i*2+1])
	}
	if C.OCTTransform(hCT, C.int(n), &xs[0], &ys[0], nil) == 0 {
		return nil, fmt.Errorf("coordinate transformation from %s to %s failed", srcSRS, dstSRS)
	}

	out := make([]float64, len(coords))
	for i := 0; i < n; i++ {
		out[i*2] = float64(xs[i])
		out[i*2+1] = float64(ys[i])
	}
	return out, nil
}
