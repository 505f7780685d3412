// Package gdal implements the raster engine on top of GDAL via cgo.
package gdal

// #include "gdal.h"
// #include "ogr_srs_api.h"
// #include "cpl_conv.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/eoproc/surfobs/raster"
)

type Engine struct{}

func NewEngine() *Engine {
	InitGdal()
	return &Engine{}
}

type gdalDataset struct {
	hDS  C.GDALDatasetH
	path string
}

func (e *Engine) Open(path string) (raster.Dataset, error) {
	pathC := C.CString(path)
	defer C.free(unsafe.Pointer(pathC))

	hDS := C.GDALOpenEx(pathC, C.GDAL_OF_READONLY|C.GDAL_OF_VERBOSE_ERROR, nil, nil, nil)
	if hDS == nil {
		return nil, &raster.InvalidDatasetError{Path: path, Reason: "GDAL could not open dataset"}
	}
	return &gdalDataset{hDS: hDS, path: path}, nil
}

func (d *gdalDataset) GeoTransform() raster.GeoTransform {
	var gt raster.GeoTransform
	var cGT [6]C.double
	C.GDALGetGeoTransform(d.hDS, &cGT[0])
	for i := 0; i < 6; i++ {
		gt[i] = float64(cGT[i])
	}
	return gt
}

func (d *gdalDataset) Projection() string {
	return C.GoString(C.GDALGetProjectionRef(d.hDS))
}

func (d *gdalDataset) RasterXSize() int {
	return int(C.GDALGetRasterXSize(d.hDS))
}

func (d *gdalDataset) RasterYSize() int {
	return int(C.GDALGetRasterYSize(d.hDS))
}

func (d *gdalDataset) RasterCount() int {
	return int(C.GDALGetRasterCount(d.hDS))
}

func (d *gdalDataset) ReadBand(band int) ([]float64, error) {
	if band < 1 || band > d.RasterCount() {
		return nil, fmt.Errorf("band %d out of range, dataset %s has %d bands", band, d.path, d.RasterCount())
	}
	hBand := C.GDALGetRasterBand(d.hDS, C.int(band))
	if hBand == nil {
		return nil, &raster.InvalidDatasetError{Path: d.path, Reason: fmt.Sprintf("failed to get band %d", band)}
	}

	xSize := d.RasterXSize()
	ySize := d.RasterYSize()
	out := make([]float64, xSize*ySize)
	gerr := C.GDALRasterIO(hBand, C.GF_Read, 0, 0, C.int(xSize), C.int(ySize),
		unsafe.Pointer(&out[0]), C.int(xSize), C.int(ySize), C.GDT_Float64, 0, 0)
	if gerr != C.CE_None {
		return nil, &raster.InvalidDatasetError{Path: d.path, Reason: fmt.Sprintf("raster io failed on band %d", band)}
	}
	return out, nil
}

func (d *gdalDataset) Close() {
	if d.hDS != nil {
		C.GDALClose(d.hDS)
		d.hDS = nil
	}
}
