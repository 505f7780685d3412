package gdal

// #include "gdal.h"
// #include "gdal_utils.h"
// #include "cpl_string.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"strconv"
	"unsafe"

	"github.com/eoproc/surfobs/raster"
)

func buildStringList(args []string) **C.char {
	var list **C.char
	for _, arg := range args {
		argC := C.CString(arg)
		list = C.CSLAddString(list, argC)
		C.free(unsafe.Pointer(argC))
	}
	return list
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Warp resamples src into an in-memory dataset. This is the same
// operation the gdalwarp utility performs with -te/-tr/-t_srs/-r.
func (e *Engine) Warp(src raster.Dataset, opts *raster.WarpOptions) (raster.Dataset, error) {
	srcDS, ok := src.(*gdalDataset)
	if !ok {
		return nil, fmt.Errorf("gdal engine can only warp gdal datasets")
	}

	args := []string{"-of", "MEM"}
	if len(opts.OutputBounds) == 4 {
		args = append(args, "-te",
			formatFloat(opts.OutputBounds[0]), formatFloat(opts.OutputBounds[1]),
			formatFloat(opts.OutputBounds[2]), formatFloat(opts.OutputBounds[3]))
	}
	if len(opts.BoundsSRS) > 0 {
		args = append(args, "-te_srs", opts.BoundsSRS)
	}
	if opts.XRes > 0 && opts.YRes > 0 {
		args = append(args, "-tr", formatFloat(opts.XRes), formatFloat(opts.YRes))
	}
	if len(opts.DstSRS) > 0 {
		args = append(args, "-t_srs", opts.DstSRS)
	}
	if len(opts.ResampleAlg) > 0 {
		args = append(args, "-r", opts.ResampleAlg)
	}

	argList := buildStringList(args)
	defer C.CSLDestroy(argList)

	warpOptions := C.GDALWarpAppOptionsNew(argList, nil)
	if warpOptions == nil {
		return nil, fmt.Errorf("invalid warp options: %v", args)
	}
	defer C.GDALWarpAppOptionsFree(warpOptions)

	emptyC := C.CString("")
	defer C.free(unsafe.Pointer(emptyC))

	srcHandles := []C.GDALDatasetH{srcDS.hDS}
	var usageError C.int
	hDstDS := C.GDALWarp(emptyC, nil, 1, &srcHandles[0], warpOptions, &usageError)
	if hDstDS == nil {
		return nil, &raster.InvalidDatasetError{Path: srcDS.path, Reason: "warp operation failed"}
	}
	return &gdalDataset{hDS: hDstDS, path: srcDS.path}, nil
}

// BuildVRT writes a virtual mosaic referencing the input rasters without
// copying pixel data.
func (e *Engine) BuildVRT(vrtPath string, inputs []string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input datasets for VRT %s", vrtPath)
	}

	srcList := buildStringList(inputs)
	defer C.CSLDestroy(srcList)

	vrtPathC := C.CString(vrtPath)
	defer C.free(unsafe.Pointer(vrtPathC))

	var usageError C.int
	hVRT := C.GDALBuildVRT(vrtPathC, C.int(len(inputs)), nil, srcList, nil, &usageError)
	if hVRT == nil {
		return fmt.Errorf("failed to build VRT %s from %d inputs", vrtPath, len(inputs))
	}
	// closing flushes the VRT XML to disk
	C.GDALClose(hVRT)
	return nil
}
