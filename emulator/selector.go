// Package emulator locates precomputed radiative-transfer emulators by
// acquisition geometry. The serialized archives stay opaque; only their
// file naming convention is interpreted here.
package emulator

import (
	"fmt"
	"io/ioutil"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/eoproc/surfobs/utils"
)

// catalog entries are named ..._<VZA>_<SZA>_<RAA>.pkl
const catalogPattern = "*_[0-9]*_[0-9]*_[0-9]*.pkl"

// Emulator is an opaque handle on one serialized emulator archive.
type Emulator struct {
	Path string
	VZA  float64
	SZA  float64
	RAA  float64
	Data []byte
}

// BandEmulator addresses one spectral band inside an archive.
type BandEmulator struct {
	Key     string
	Archive *Emulator
}

// Band returns the handle for a band-specific key, e.g. "S2A_MSI_02".
func (e *Emulator) Band(key string) *BandEmulator {
	if e == nil {
		return nil
	}
	return &BandEmulator{Key: key, Archive: e}
}

type catalogEntry struct {
	path string
	vza  float64
	sza  float64
	raa  float64
}

// Selector picks emulator archives from a catalog folder resolved
// through the auxiliary data provider.
type Selector struct {
	provider utils.AuxDataProvider
}

func NewSelector(provider utils.AuxDataProvider) *Selector {
	return &Selector{provider: provider}
}

// Prepare returns the archive whose geometry is closest to the target
// sun/view geometry, or nil when the catalog is empty or unavailable.
func (s *Selector) Prepare(folder string, sza, saa, vza, vaa float64) (*Emulator, error) {
	files, err := s.provider.ListElements(folder, catalogPattern)
	if err != nil || len(files) == 0 {
		return nil, nil
	}

	entries := make([]catalogEntry, 0, len(files))
	for _, file := range files {
		entry, ok := parseCatalogName(file)
		if ok {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}

	raa := math.Abs(vaa - saa)
	selected := selectEntry(entries, sza, vza, raa)

	if !s.provider.AssureElementProvided(selected.path) {
		return nil, &utils.MissingResourceError{Resource: selected.path, Location: folder}
	}
	data, err := ioutil.ReadFile(selected.path)
	if err != nil {
		return nil, fmt.Errorf("failed to load emulator archive %s: %v", selected.path, err)
	}
	return &Emulator{Path: selected.path, VZA: selected.vza, SZA: selected.sza, RAA: selected.raa, Data: data}, nil
}

// selectEntry intersects the per-axis nearest neighbours and returns the
// first entry closest on all three axes at once. When no entry wins all
// three axes the joint L1-nearest entry is used instead; that fallback
// is deliberate and logged.
func selectEntry(entries []catalogEntry, sza, vza, raa float64) catalogEntry {
	bestSZA := nearestValue(entries, sza, func(e catalogEntry) float64 { return e.sza })
	bestVZA := nearestValue(entries, vza, func(e catalogEntry) float64 { return e.vza })
	bestRAA := nearestValue(entries, raa, func(e catalogEntry) float64 { return e.raa })

	for _, entry := range entries {
		if entry.sza == bestSZA && entry.vza == bestVZA && entry.raa == bestRAA {
			return entry
		}
	}

	best := entries[0]
	bestDist := math.Inf(1)
	for _, entry := range entries {
		dist := math.Abs(entry.sza-sza) + math.Abs(entry.vza-vza) + math.Abs(entry.raa-raa)
		if dist < bestDist {
			bestDist = dist
			best = entry
		}
	}
	utils.Log.Warnf("no emulator matches all per-axis optima for sza=%.1f vza=%.1f raa=%.1f, using joint nearest %s",
		sza, vza, raa, best.path)
	return best
}

func nearestValue(entries []catalogEntry, target float64, axis func(catalogEntry) float64) float64 {
	best := axis(entries[0])
	for _, entry := range entries[1:] {
		if math.Abs(axis(entry)-target) < math.Abs(best-target) {
			best = axis(entry)
		}
	}
	return best
}

// parseCatalogName decodes the trailing _<VZA>_<SZA>_<RAA>.pkl tokens.
func parseCatalogName(path string) (catalogEntry, bool) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	tokens := strings.Split(name, "_")
	if len(tokens) < 4 {
		return catalogEntry{}, false
	}
	vza, errV := strconv.ParseFloat(tokens[len(tokens)-3], 64)
	sza, errS := strconv.ParseFloat(tokens[len(tokens)-2], 64)
	raa, errR := strconv.ParseFloat(tokens[len(tokens)-1], 64)
	if errV != nil || errS != nil || errR != nil {
		return catalogEntry{}, false
	}
	return catalogEntry{path: path, vza: vza, sza: sza, raa: raa}, true
}
