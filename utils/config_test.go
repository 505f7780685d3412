package utils

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "surfobs_config")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
grid:
  bounds: [399960.0, 5890200.0, 509760.0, 6000000.0]
  x_res: 60.0
  y_res: 60.0
  destination_crs: EPSG:32632
  resampling_mode: average
aux_provider:
  name: DEFAULT
emulator_folder: /data/emulators
inventory:
  dsn: "host=/var/run/postgresql dbname=surfobs sslmode=disable"
  table: scenes
memcache_uri: "localhost:11211"
log_level: debug
`)

	var config Config
	require.NoError(t, config.LoadConfigFile(path))

	assert.Equal(t, []float64{399960.0, 5890200.0, 509760.0, 6000000.0}, config.Grid.Bounds)
	assert.Equal(t, 60.0, config.Grid.XRes)
	assert.Equal(t, "EPSG:32632", config.Grid.DestinationCRS)
	assert.Equal(t, "average", config.Grid.ResamplingMode)
	assert.Equal(t, "/data/emulators", config.EmulatorFolder)
	assert.Equal(t, "scenes", config.Inventory.Table)
	assert.Equal(t, "localhost:11211", config.MemcacheURI)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestLoadConfigFileDefaultsAuxProvider(t *testing.T) {
	path := writeConfigFile(t, `
grid:
  x_res: 10.0
  y_res: 10.0
`)
	var config Config
	require.NoError(t, config.LoadConfigFile(path))
	assert.Equal(t, DefaultAuxProviderName, config.AuxProvider.Name)
}

func TestLoadConfigFileRejectsPartialBounds(t *testing.T) {
	path := writeConfigFile(t, `
grid:
  bounds: [0.0, 0.0, 100.0]
`)
	var config Config
	err := config.LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bounds")
}

func TestLoadConfigFileMissingFile(t *testing.T) {
	var config Config
	assert.Error(t, config.LoadConfigFile("/nonexistent/config.yaml"))
}
