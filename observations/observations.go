// Package observations presents heterogeneous sensor products as one
// uniform, uncertainty-annotated reflectance observation contract.
package observations

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/eoproc/surfobs/emulator"
	"github.com/eoproc/surfobs/reproject"
	"github.com/eoproc/surfobs/utils"
)

// ObservationData is one band's worth of observations on the analysis
// grid. Observations is row-major with Width*Height values; Mask has
// the same shape and every masked-out pixel carries the band's no-data
// value. Produced fresh per retrieval call, never cached here.
type ObservationData struct {
	Observations []float64
	Width        int
	Height       int
	// Uncertainty is a sparse diagonal matrix over the flattened pixel
	// index space, nil when not requested.
	Uncertainty mat.Matrix
	Mask        []bool
	Metadata    map[string]float64
	Emulator    *emulator.BandEmulator
}

// Granule is the whole-scene extraction used for per-pixel geometry and
// uncertainty summarisation. Reflectance holds one flattened array per
// band; Uncertainty one scalar per band.
type Granule struct {
	Reflectance        [][]float64
	Width              int
	Height             int
	Mask               []bool
	CosSunZenith       float64
	CosViewZenith      float64
	CosRelativeAzimuth float64
	Uncertainty        []float64
}

// ProductObservations serves band data for one set of co-temporal file
// references of a single product type.
type ProductObservations interface {
	GetBandData(bandIndex int, retrieveUncertainty bool) (*ObservationData, error)
	GetBandDataByName(bandName string, retrieveUncertainty bool) (*ObservationData, error)
	BandsPerObservation() int
	DataType() string
	SetNoDataValue(bandIndex int, noDataValue float64) error
	SetNoDataValueByName(bandName string, noDataValue float64) error
	// ReadGranule returns (nil, nil) when no usable pixels exist; that
	// is an explicit no-data signal, not a fault.
	ReadGranule() (*Granule, error)
}

// ProductObservationsCreator is one registry entry of the factory.
type ProductObservationsCreator interface {
	Name() string
	CanRead(fileRefs []utils.FileRef) bool
	CreateObservations(fileRefs []utils.FileRef, reprojection *reproject.Reprojection,
		emulatorFolder string) (ProductObservations, error)
}

// NoMatchingProviderError signals that no registered creator accepts a
// file reference set.
type NoMatchingProviderError struct {
	Urls []string
}

func (e *NoMatchingProviderError) Error() string {
	return fmt.Sprintf("no registered observations provider can read [%s]", strings.Join(e.Urls, ", "))
}
