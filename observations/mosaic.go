package observations

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/eoproc/surfobs/raster"
	"github.com/eoproc/surfobs/utils"
)

// mosaicCache builds virtual mosaics at most once per (band, ordered
// source-file-set) key. The first caller builds; concurrent callers for
// the same artifact block on the per-key mutex and reuse the result.
type mosaicCache struct {
	engine raster.Engine
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
}

func newMosaicCache(engine raster.Engine) *mosaicCache {
	return &mosaicCache{engine: engine, locks: make(map[string]*sync.Mutex)}
}

// vrtPathFor derives the artifact path for one band over an ordered
// source set. The set hash keeps mosaics of different reference sets
// from colliding on the same band name.
func vrtPathFor(baseURL, dataType, bandName string, sources []string) string {
	hash := md5.Sum([]byte(strings.Join(sources, "\n")))
	bandBase := strings.Split(bandName, ".")[0]
	vrtName := fmt.Sprintf("%s_%x.vrt", bandBase, hash[:4])

	relativePath := GetRelativePath(baseURL, dataType)
	if len(relativePath) > 0 {
		return filepath.Join(strings.Replace(baseURL, relativePath, "", 1), vrtName)
	}
	return filepath.Join(filepath.Dir(baseURL), vrtName)
}

func (c *mosaicCache) keyLock(vrtPath string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, found := c.locks[vrtPath]
	if !found {
		lock = &sync.Mutex{}
		c.locks[vrtPath] = lock
	}
	return lock
}

// assure returns the mosaic artifact path, building the VRT if it is
// not already on durable storage.
func (c *mosaicCache) assure(vrtPath string, sources []string) (string, error) {
	lock := c.keyLock(vrtPath)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(vrtPath); err == nil {
		utils.Log.Debugf("reusing virtual mosaic %s", vrtPath)
		return vrtPath, nil
	}

	if err := c.engine.BuildVRT(vrtPath, sources); err != nil {
		return "", err
	}
	utils.Log.Debugf("built virtual mosaic %s from %d sources", vrtPath, len(sources))
	return vrtPath, nil
}
