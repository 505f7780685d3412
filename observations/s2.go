package observations

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	sparse "github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/eoproc/surfobs/emulator"
	"github.com/eoproc/surfobs/metrics"
	"github.com/eoproc/surfobs/raster"
	"github.com/eoproc/surfobs/reproject"
	"github.com/eoproc/surfobs/utils"
)

// Canonical band files in retrieval order. The name→index mapping is
// immutable; the no-data table is per instance.
var s2BandNames = []string{
	"B02_sur.tif", "B03_sur.tif", "B04_sur.tif", "B05_sur.tif", "B06_sur.tif",
	"B07_sur.tif", "B08_sur.tif", "B8A_sur.tif", "B09_sur.tif", "B12_sur.tif",
	"B01_sur.tif", "B10_sur.tif", "B11_sur.tif",
}

// MSI band numbers with available emulators, by retrieval band index.
var s2EmulatorBandMap = []int{2, 3, 4, 5, 6, 7, 8, 9, 12, 13}

// Granule extraction reads the bands in sensor order.
var s2GranuleBandOrder = []string{
	"B01", "B02", "B03", "B04", "B05", "B06", "B07", "B08", "B8A", "B09", "B10", "B11", "B12",
}

// Reflectance-informative subset (indexes into s2GranuleBandOrder) that
// must be positive for a pixel to count as usable.
var s2PositivityBands = []int{1, 2, 3, 4, 5, 6, 7, 8}

const (
	s2ReflectanceScale    = 10000.0
	s2CloudProbThreshold  = 5.0
	s2GranuleUncertainty  = 0.005
	s2CloudMaskName       = "cloud.tif"
	s2SunAnglesName       = "SAA_SZA.tif"
	s2ViewAnglesName      = "VAA_VZA_B05.tif"
	s2UncertaintyFraction = 0.05
)

// S2Observations serves Sentinel-2 level-2 surface reflectance for one
// set of co-temporal file references. Geometry metadata is averaged
// across all references at construction; the instance then serves any
// number of band retrievals.
type S2Observations struct {
	engine        raster.Engine
	auxCtx        *utils.Context
	fileRefs      []utils.FileRef
	reprojection  *reproject.Reprojection
	dataType      string
	metadata      map[string]float64
	tileID        string
	bandEmulators *emulator.Emulator
	noDataValues  []float64
	mosaics       *mosaicCache
	metricsLogger metrics.Logger
}

func NewS2Observations(engine raster.Engine, auxCtx *utils.Context, fileRefs []utils.FileRef,
	reprojection *reproject.Reprojection, emulatorFolder string) (*S2Observations, error) {
	if len(fileRefs) == 0 {
		return nil, fmt.Errorf("no file references given")
	}
	dataType := GetValidType(fileRefs[0].Url)
	if len(dataType) == 0 {
		return nil, fmt.Errorf("unsupported product at %s", fileRefs[0].Url)
	}
	// all references of one instance must share one product type
	for _, fileRef := range fileRefs[1:] {
		if refType := GetValidType(fileRef.Url); refType != dataType {
			return nil, fmt.Errorf("mixed product types %s and %s in one file reference set", dataType, refType)
		}
	}

	var szaSum, saaSum, vzaSum, vaaSum float64
	var tileID string
	for _, fileRef := range fileRefs {
		metadataFile, err := findMetadataFile(fileRef.Url)
		if err != nil {
			return nil, err
		}
		angles, err := extractAnglesFromMetadataFile(metadataFile, auxCtx.Meta)
		if err != nil {
			return nil, err
		}
		szaSum += angles.SZA
		saaSum += angles.SAA
		vzaSum += angles.VZA
		vaaSum += angles.VAA
		if len(tileID) == 0 {
			tileID = angles.TileID
		}
	}
	n := float64(len(fileRefs))
	metadata := map[string]float64{
		"sza": szaSum / n,
		"saa": saaSum / n,
		"vza": vzaSum / n,
		"vaa": vaaSum / n,
	}

	obs := &S2Observations{
		engine:       engine,
		auxCtx:       auxCtx,
		fileRefs:     fileRefs,
		reprojection: reprojection,
		dataType:     dataType,
		metadata:     metadata,
		tileID:       tileID,
		noDataValues: make([]float64, len(s2BandNames)),
		mosaics:      newMosaicCache(engine),
	}
	obs.metricsLogger = auxCtx.Metrics

	if len(emulatorFolder) > 0 {
		selector := emulator.NewSelector(auxCtx.AuxDataProvider())
		archive, err := selector.Prepare(emulatorFolder,
			metadata["sza"], metadata["saa"], metadata["vza"], metadata["vaa"])
		if err != nil {
			return nil, err
		}
		obs.bandEmulators = archive
	}
	return obs, nil
}

// SetMetricsLogger overrides the context-supplied metrics logger for
// this instance.
func (s *S2Observations) SetMetricsLogger(logger metrics.Logger) {
	s.metricsLogger = logger
}

func (s *S2Observations) DataType() string {
	return s.dataType
}

func (s *S2Observations) TileID() string {
	return s.tileID
}

// BandsPerObservation reports the bands with emulator coverage.
func (s *S2Observations) BandsPerObservation() int {
	return len(s2EmulatorBandMap)
}

func (s *S2Observations) SetNoDataValue(bandIndex int, noDataValue float64) error {
	if bandIndex < 0 || bandIndex >= len(s.noDataValues) {
		return fmt.Errorf("invalid band index: %d", bandIndex)
	}
	s.noDataValues[bandIndex] = noDataValue
	return nil
}

func (s *S2Observations) SetNoDataValueByName(bandName string, noDataValue float64) error {
	for i, name := range s2BandNames {
		if name == bandName {
			return s.SetNoDataValue(i, noDataValue)
		}
	}
	return fmt.Errorf("unknown band name: %s", bandName)
}

// GetBandDataByName resolves the name through substring containment
// against the canonical band table, first match wins.
func (s *S2Observations) GetBandDataByName(bandName string, retrieveUncertainty bool) (*ObservationData, error) {
	for i, baseName := range s2BandNames {
		if strings.Contains(bandName, baseName) {
			return s.GetBandData(i, retrieveUncertainty)
		}
	}
	return nil, fmt.Errorf("no canonical band matches %s", bandName)
}

func (s *S2Observations) GetBandData(bandIndex int, retrieveUncertainty bool) (*ObservationData, error) {
	if bandIndex < 0 || bandIndex >= len(s2BandNames) {
		return nil, fmt.Errorf("invalid band index: %d", bandIndex)
	}
	bands, width, height, err := s.rawBands(s2BandNames[bandIndex])
	if err != nil {
		return nil, err
	}
	raw := bands[0]

	data := make([]float64, len(raw))
	mask := make([]bool, len(raw))
	for i, value := range raw {
		if value > 0 {
			mask[i] = true
			data[i] = value / s2ReflectanceScale
		} else {
			data[i] = s.noDataValues[bandIndex]
		}
	}

	var uncertainty mat.Matrix
	if retrieveUncertainty {
		uncertainty = reflectanceUncertainty(data, mask)
	}

	return &ObservationData{
		Observations: data,
		Width:        width,
		Height:       height,
		Uncertainty:  uncertainty,
		Mask:         mask,
		Metadata:     s.metadata,
		Emulator:     s.bandEmulator(bandIndex),
	}, nil
}

func (s *S2Observations) bandEmulator(bandIndex int) *emulator.BandEmulator {
	if s.bandEmulators == nil || bandIndex >= len(s2EmulatorBandMap) {
		return nil
	}
	return s.bandEmulators.Band(fmt.Sprintf("S2A_MSI_%02d", s2EmulatorBandMap[bandIndex]))
}

// reflectanceUncertainty builds the diagonal uncertainty matrix over the
// flattened pixel index space: valid pixels weigh 1/(0.05·r)², masked
// pixels contribute nothing.
func reflectanceUncertainty(data []float64, mask []bool) mat.Matrix {
	n := len(data)
	var rows, cols []int
	var values []float64
	for i, value := range data {
		if !mask[i] {
			continue
		}
		r := s2UncertaintyFraction * value
		rows = append(rows, i)
		cols = append(cols, i)
		values = append(values, 1.0/(r*r))
	}
	return sparse.NewCOO(n, n, rows, cols, values).ToCSR()
}

// rawDatasetForBand locates the band raster across the instance's file
// references, merging multi-file instances into a virtual mosaic.
func (s *S2Observations) rawDatasetForBand(bandName string) (raster.Dataset, bool, error) {
	if len(s.fileRefs) == 1 {
		path, err := findBandFile(s.fileRefs[0].Url, bandName)
		if err != nil {
			return nil, false, err
		}
		dataset, err := s.engine.Open(path)
		return dataset, false, err
	}

	var sources []string
	for _, fileRef := range s.fileRefs {
		path, err := findBandFile(fileRef.Url, bandName)
		if err == nil {
			sources = append(sources, path)
		}
	}
	if len(sources) == 0 {
		return nil, false, &utils.MissingResourceError{Resource: bandName, Location: s.fileRefs[0].Url}
	}

	vrtPath := vrtPathFor(s.fileRefs[0].Url, s.dataType, bandName, sources)
	artifact, err := s.mosaics.assure(vrtPath, sources)
	if err != nil {
		return nil, true, err
	}
	dataset, err := s.engine.Open(artifact)
	return dataset, true, err
}

func findBandFile(url, bandName string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(url, "*"+bandName+"*"))
	if err != nil || len(matches) == 0 {
		return "", &utils.MissingResourceError{Resource: bandName, Location: url}
	}
	return matches[0], nil
}

// rawBands opens the named band file, reprojects it when a target grid
// is configured and reads every band of the result.
func (s *S2Observations) rawBands(bandName string) ([][]float64, int, int, error) {
	start := time.Now()

	dataset, mosaic, err := s.rawDatasetForBand(bandName)
	if err != nil {
		return nil, 0, 0, err
	}
	var warpDuration time.Duration
	var warpResampling string
	if s.reprojection != nil {
		if s.metricsLogger != nil {
			warpResampling, err = s.reprojection.ResamplingFor(dataset)
			if err != nil {
				dataset.Close()
				return nil, 0, 0, err
			}
		}
		warpStart := time.Now()
		warped, err := s.reprojection.Reproject(dataset)
		warpDuration = time.Since(warpStart)
		dataset.Close()
		if err != nil {
			return nil, 0, 0, err
		}
		dataset = warped
	}
	defer dataset.Close()

	width, height := dataset.RasterXSize(), dataset.RasterYSize()
	bands := make([][]float64, dataset.RasterCount())
	for b := range bands {
		bands[b], err = dataset.ReadBand(b + 1)
		if err != nil {
			return nil, 0, 0, err
		}
	}

	if s.metricsLogger != nil {
		collector := metrics.NewMetricsCollector(s.metricsLogger)
		collector.Info.Product = s.tileID
		collector.Info.ReqDuration = time.Since(start)
		collector.Info.Read = &metrics.ReadInfo{
			Duration: time.Since(start) - warpDuration,
			Band:     bandName,
			NumFiles: len(s.fileRefs),
			Mosaic:   mosaic,
		}
		collector.Info.Warp = nil
		if s.reprojection != nil {
			collector.Info.Warp = &metrics.WarpInfo{
				Duration:    warpDuration,
				Resampling:  warpResampling,
				Destination: s.reprojection.DestinationSRS(),
			}
		}
		collector.Log()
	}
	return bands, width, height, nil
}

// ReadGranule extracts the whole scene for per-pixel geometry and
// uncertainty summarisation. A (nil, nil) return means no usable data.
func (s *S2Observations) ReadGranule() (*Granule, error) {
	cloudBands, width, height, err := s.rawBands(s2CloudMaskName)
	if err != nil {
		return nil, err
	}
	cloud := cloudBands[0]

	mask := make([]bool, len(cloud))
	usable := 0
	for i, probability := range cloud {
		if probability <= s2CloudProbThreshold {
			mask[i] = true
			usable++
		}
	}
	if usable == 0 {
		return nil, nil
	}

	reflectance := make([][]float64, len(s2GranuleBandOrder))
	uncertainty := make([][]float64, len(s2GranuleBandOrder))
	for b, band := range s2GranuleBandOrder {
		bands, w, h, err := s.rawBands(band + "_sur.tif")
		if err != nil {
			return nil, err
		}
		if w != width || h != height {
			return nil, fmt.Errorf("band %s shape %dx%d disagrees with cloud mask %dx%d", band, w, h, width, height)
		}
		reflectance[b] = bands[0]
		uncertainty[b] = make([]float64, len(bands[0]))
		for i := range reflectance[b] {
			reflectance[b][i] /= s2ReflectanceScale
			uncertainty[b][i] = s2GranuleUncertainty / s2ReflectanceScale
		}
	}

	// usable pixels must also be positive across the informative bands
	usable = 0
	for i := range mask {
		if !mask[i] {
			continue
		}
		positive := true
		for _, b := range s2PositivityBands {
			if reflectance[b][i] <= 0 {
				positive = false
				break
			}
		}
		mask[i] = positive
		if positive {
			usable++
		}
	}
	if usable == 0 {
		return nil, nil
	}

	bandUncertainty := make([]float64, len(s2GranuleBandOrder))
	for b := range reflectance {
		for i := range mask {
			if !mask[i] {
				reflectance[b][i] = math.NaN()
				uncertainty[b][i] = math.NaN()
			}
		}
		bandUncertainty[b] = nanMean(uncertainty[b])
	}

	sunBands, _, _, err := s.rawBands(s2SunAnglesName)
	if err != nil {
		return nil, err
	}
	viewBands, _, _, err := s.rawBands(s2ViewAnglesName)
	if err != nil {
		return nil, err
	}
	if len(sunBands) < 2 || len(viewBands) < 2 {
		return nil, fmt.Errorf("angle rasters must carry azimuth and zenith bands")
	}

	// angle rasters store centidegrees, azimuth first
	saa := mean(sunBands[0]) / 100.0
	sza := mean(sunBands[1]) / 100.0
	vaa := mean(viewBands[0]) / 100.0
	vza := mean(viewBands[1]) / 100.0

	return &Granule{
		Reflectance:        reflectance,
		Width:              width,
		Height:             height,
		Mask:               mask,
		CosSunZenith:       math.Cos(sza * math.Pi / 180.0),
		CosViewZenith:      math.Cos(vza * math.Pi / 180.0),
		CosRelativeAzimuth: math.Cos((vaa - saa) * math.Pi / 180.0),
		Uncertainty:        bandUncertainty,
	}, nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func nanMean(values []float64) float64 {
	var sum float64
	var count int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// S2ObservationsCreator is the registry entry for Sentinel-2 level-2
// products, both the granule-name and the AWS tile layouts.
type S2ObservationsCreator struct {
	engine raster.Engine
	auxCtx *utils.Context
}

func NewS2ObservationsCreator(engine raster.Engine, auxCtx *utils.Context) *S2ObservationsCreator {
	return &S2ObservationsCreator{engine: engine, auxCtx: auxCtx}
}

func (c *S2ObservationsCreator) Name() string {
	return "SENTINEL-2"
}

func (c *S2ObservationsCreator) CanRead(fileRefs []utils.FileRef) bool {
	if len(fileRefs) == 0 {
		return false
	}
	for _, fileRef := range fileRefs {
		dataType := GetValidType(fileRef.Url)
		if dataType != TypeS2L2 && dataType != TypeAWSS2L2 {
			return false
		}
	}
	return true
}

func (c *S2ObservationsCreator) CreateObservations(fileRefs []utils.FileRef,
	reprojection *reproject.Reprojection, emulatorFolder string) (ProductObservations, error) {
	return NewS2Observations(c.engine, c.auxCtx, fileRefs, reprojection, emulatorFolder)
}
