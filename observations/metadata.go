package observations

import (
	"encoding/xml"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/eoproc/surfobs/utils"
)

var s2MetadataNames = []string{"metadata.xml", "MTD_TL.xml"}

// tileAngles mirrors the Tile_Angles block of the Sentinel-2 tile
// metadata. Only the mean angles are consumed; the per-detector grids
// are ignored.
type tileAngles struct {
	MeanSunAngle struct {
		Zenith  float64 `xml:"ZENITH_ANGLE"`
		Azimuth float64 `xml:"AZIMUTH_ANGLE"`
	} `xml:"Mean_Sun_Angle"`
	MeanViewingIncidenceAngles []struct {
		Zenith  float64 `xml:"ZENITH_ANGLE"`
		Azimuth float64 `xml:"AZIMUTH_ANGLE"`
	} `xml:"Mean_Viewing_Incidence_Angle_List>Mean_Viewing_Incidence_Angle"`
}

type s2TileMetadata struct {
	TileID     string     `xml:"General_Info>TILE_ID"`
	TileAngles tileAngles `xml:"Geometric_Info>Tile_Angles"`
}

// MeanAngles carries the per-product acquisition geometry averaged over
// the detectors.
type MeanAngles struct {
	SZA    float64 `json:"sza"`
	SAA    float64 `json:"saa"`
	VZA    float64 `json:"vza"`
	VAA    float64 `json:"vaa"`
	TileID string  `json:"tile_id"`
}

// findMetadataFile returns the product's tile metadata file.
func findMetadataFile(url string) (string, error) {
	for _, name := range s2MetadataNames {
		candidate := filepath.Join(url, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", &utils.MissingResourceError{Resource: "tile metadata", Location: url}
}

// anglesCacheKey derives the cache key for one metadata file. The key
// carries the file's mtime so an in-place refresh of the same path
// invalidates the cached entry.
func anglesCacheKey(filename string) (string, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("surfobs/angles/%s/%d", filename, info.ModTime().UnixNano()), nil
}

// extractAnglesFromMetadataFile parses the tile metadata to the mean
// sun angles and the viewing angles averaged across detectors. Parsed
// results are cached when a metadata cache is configured.
func extractAnglesFromMetadataFile(filename string, cache *utils.MetaCache) (*MeanAngles, error) {
	cacheKey, err := anglesCacheKey(filename)
	if err != nil {
		return nil, &utils.MissingResourceError{Resource: filename, Location: filepath.Dir(filename)}
	}
	var angles MeanAngles
	if cache.Get(cacheKey, &angles) {
		return &angles, nil
	}

	rawData, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, &utils.MissingResourceError{Resource: filename, Location: filepath.Dir(filename)}
	}

	var meta s2TileMetadata
	if err := xml.Unmarshal(rawData, &meta); err != nil {
		return nil, fmt.Errorf("malformed tile metadata %s: %v", filename, err)
	}
	if len(meta.TileAngles.MeanViewingIncidenceAngles) == 0 {
		return nil, fmt.Errorf("tile metadata %s carries no viewing incidence angles", filename)
	}

	var vzaSum, vaaSum float64
	for _, viewing := range meta.TileAngles.MeanViewingIncidenceAngles {
		vzaSum += viewing.Zenith
		vaaSum += viewing.Azimuth
	}
	n := float64(len(meta.TileAngles.MeanViewingIncidenceAngles))

	angles = MeanAngles{
		SZA:    meta.TileAngles.MeanSunAngle.Zenith,
		SAA:    meta.TileAngles.MeanSunAngle.Azimuth,
		VZA:    vzaSum / n,
		VAA:    vaaSum / n,
		TileID: meta.TileID,
	}
	cache.Put(cacheKey, &angles)
	return &angles, nil
}
