package utils

import (
	"fmt"
	"io/ioutil"

	yaml "gopkg.in/yaml.v2"
)

// GridConfig describes the common analysis grid all observations are
// warped onto. Bounds are xmin, ymin, xmax, ymax in the bounds CRS.
type GridConfig struct {
	Bounds         []float64 `yaml:"bounds"`
	XRes           float64   `yaml:"x_res"`
	YRes           float64   `yaml:"y_res"`
	DestinationCRS string    `yaml:"destination_crs"`
	BoundsCRS      string    `yaml:"bounds_crs"`
	ResamplingMode string    `yaml:"resampling_mode"`
}

// AuxProviderConfig selects and parameterises one auxiliary data
// provider implementation.
type AuxProviderConfig struct {
	Name       string            `yaml:"name"`
	Parameters map[string]string `yaml:"parameters"`
}

// InventoryConfig points at the postgres product index.
type InventoryConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type Config struct {
	Grid           GridConfig        `yaml:"grid"`
	AuxProvider    AuxProviderConfig `yaml:"aux_provider"`
	EmulatorFolder string            `yaml:"emulator_folder"`
	Inventory      InventoryConfig   `yaml:"inventory"`
	MemcacheURI    string            `yaml:"memcache_uri"`
	MetricsLogDir  string            `yaml:"metrics_log_dir"`
	LogLevel       string            `yaml:"log_level"`
}

// LoadConfigFile unmarshals the yaml config document returning an
// instance of a Config variable containing all the values
func (config *Config) LoadConfigFile(configFile string) error {
	*config = Config{}
	cfg, err := ioutil.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error while reading config file: %s. Error: %v", configFile, err)
	}

	err = yaml.Unmarshal(cfg, config)
	if err != nil {
		return fmt.Errorf("error at yaml parsing config document: %s. Error: %v", configFile, err)
	}

	if len(config.Grid.Bounds) > 0 && len(config.Grid.Bounds) != 4 {
		return fmt.Errorf("grid bounds must contain xmin, ymin, xmax, ymax; got %d values", len(config.Grid.Bounds))
	}
	if len(config.AuxProvider.Name) == 0 {
		config.AuxProvider.Name = DefaultAuxProviderName
	}
	return nil
}
