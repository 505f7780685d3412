// Package mem provides a pure in-memory raster engine. It backs the unit
// tests so the core packages can be exercised without a GDAL build, the
// same way the upstream tests skip work that needs external services.
package mem

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"sync"

	"github.com/eoproc/surfobs/raster"
)

// Dataset is a fully materialised raster grid.
type Dataset struct {
	Proj  string
	GT    raster.GeoTransform
	XSize int
	YSize int
	Bands [][]float64
}

func NewDataset(proj string, gt raster.GeoTransform, xSize, ySize int, bands [][]float64) *Dataset {
	return &Dataset{Proj: proj, GT: gt, XSize: xSize, YSize: ySize, Bands: bands}
}

func (d *Dataset) GeoTransform() raster.GeoTransform { return d.GT }
func (d *Dataset) Projection() string                { return d.Proj }
func (d *Dataset) RasterXSize() int                  { return d.XSize }
func (d *Dataset) RasterYSize() int                  { return d.YSize }
func (d *Dataset) RasterCount() int                  { return len(d.Bands) }
func (d *Dataset) Close()                            {}

func (d *Dataset) ReadBand(band int) ([]float64, error) {
	if band < 1 || band > len(d.Bands) {
		return nil, fmt.Errorf("band %d out of range, dataset has %d bands", band, len(d.Bands))
	}
	out := make([]float64, len(d.Bands[band-1]))
	copy(out, d.Bands[band-1])
	return out, nil
}

// PointTransform maps one coordinate pair between spatial references.
type PointTransform func(x, y float64) (float64, float64)

// Engine resolves paths against registered datasets and performs planar
// warps. Coordinate transforms between distinct spatial references must
// be registered explicitly.
type Engine struct {
	mu         sync.Mutex
	datasets   map[string]*Dataset
	transforms map[string]map[string]PointTransform
}

func NewEngine() *Engine {
	return &Engine{
		datasets:   make(map[string]*Dataset),
		transforms: make(map[string]map[string]PointTransform),
	}
}

func (e *Engine) AddDataset(path string, ds *Dataset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.datasets[path] = ds
}

func (e *Engine) RegisterTransform(srcSRS, dstSRS string, transform PointTransform) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.transforms[srcSRS]; !ok {
		e.transforms[srcSRS] = make(map[string]PointTransform)
	}
	e.transforms[srcSRS][dstSRS] = transform
}

func (e *Engine) pointTransform(srcSRS, dstSRS string) (PointTransform, error) {
	if srcSRS == dstSRS {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if byDst, ok := e.transforms[srcSRS]; ok {
		if transform, ok := byDst[dstSRS]; ok {
			return transform, nil
		}
	}
	return nil, fmt.Errorf("no coordinate transformation from %s to %s", srcSRS, dstSRS)
}

func (e *Engine) TransformCoordinates(srcSRS, dstSRS string, coords []float64) ([]float64, error) {
	if len(coords)%2 != 0 {
		return nil, fmt.Errorf("coordinates must come in x,y pairs; got %d values", len(coords))
	}
	transform, err := e.pointTransform(srcSRS, dstSRS)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(coords))
	for i := 0; i < len(coords); i += 2 {
		out[i], out[i+1] = transform(coords[i], coords[i+1])
	}
	return out, nil
}

type vrtFile struct {
	Inputs []string `json:"inputs"`
}

func (e *Engine) Open(path string) (raster.Dataset, error) {
	e.mu.Lock()
	ds, ok := e.datasets[path]
	e.mu.Unlock()
	if ok {
		return ds, nil
	}

	// virtual mosaics are persisted as a json list of their sources
	if _, err := os.Stat(path); err == nil {
		rawData, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, &raster.InvalidDatasetError{Path: path, Reason: err.Error()}
		}
		var vrt vrtFile
		if err := json.Unmarshal(rawData, &vrt); err != nil || len(vrt.Inputs) == 0 {
			return nil, &raster.InvalidDatasetError{Path: path, Reason: "not a recognised virtual mosaic"}
		}
		return e.openMosaic(path, vrt.Inputs)
	}
	return nil, &raster.InvalidDatasetError{Path: path, Reason: "no such dataset"}
}

func (e *Engine) BuildVRT(vrtPath string, inputs []string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input datasets for VRT %s", vrtPath)
	}
	for _, input := range inputs {
		if _, err := e.Open(input); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(&vrtFile{Inputs: inputs})
	if err != nil {
		return err
	}
	return ioutil.WriteFile(vrtPath, payload, 0644)
}

// openMosaic merges the inputs onto the first input's grid, painting the
// sources in order as BuildVRT does.
func (e *Engine) openMosaic(path string, inputs []string) (raster.Dataset, error) {
	first, err := e.Open(inputs[0])
	if err != nil {
		return nil, err
	}
	ref := first.(*Dataset)

	xMin, yMax := ref.GT[0], ref.GT[3]
	xMax := ref.GT[0] + float64(ref.XSize)*ref.GT[1]
	yMin := ref.GT[3] + float64(ref.YSize)*ref.GT[5]
	for _, input := range inputs[1:] {
		ds, err := e.Open(input)
		if err != nil {
			return nil, err
		}
		src := ds.(*Dataset)
		if src.Proj != ref.Proj {
			return nil, &raster.InvalidDatasetError{Path: input, Reason: "mosaic sources disagree on projection"}
		}
		xMin = math.Min(xMin, src.GT[0])
		yMax = math.Max(yMax, src.GT[3])
		xMax = math.Max(xMax, src.GT[0]+float64(src.XSize)*src.GT[1])
		yMin = math.Min(yMin, src.GT[3]+float64(src.YSize)*src.GT[5])
	}

	xSize := int(math.Round((xMax - xMin) / ref.GT.XRes()))
	ySize := int(math.Round((yMax - yMin) / ref.GT.YRes()))
	mosaic := &Dataset{
		Proj:  ref.Proj,
		GT:    raster.GeoTransform{xMin, ref.GT[1], 0, yMax, 0, ref.GT[5]},
		XSize: xSize,
		YSize: ySize,
		Bands: make([][]float64, ref.RasterCount()),
	}
	for b := range mosaic.Bands {
		mosaic.Bands[b] = make([]float64, xSize*ySize)
	}

	for _, input := range inputs {
		ds, _ := e.Open(input)
		src := ds.(*Dataset)
		colOff := int(math.Round((src.GT[0] - xMin) / ref.GT.XRes()))
		rowOff := int(math.Round((yMax - src.GT[3]) / ref.GT.YRes()))
		for b := 0; b < len(mosaic.Bands) && b < len(src.Bands); b++ {
			for row := 0; row < src.YSize; row++ {
				for col := 0; col < src.XSize; col++ {
					dstRow, dstCol := rowOff+row, colOff+col
					if dstRow < 0 || dstRow >= ySize || dstCol < 0 || dstCol >= xSize {
						continue
					}
					mosaic.Bands[b][dstRow*xSize+dstCol] = src.Bands[b][row*src.XSize+col]
				}
			}
		}
	}
	return mosaic, nil
}
