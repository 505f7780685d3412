package utils

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAuxDataProviderListElements(t *testing.T) {
	dir, err := ioutil.TempDir("", "surfobs_aux")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	for _, name := range []string{"b.pkl", "a.pkl", "readme.txt"} {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	provider := &DefaultAuxDataProvider{}

	elements, err := provider.ListElements(dir, "*.pkl")
	require.NoError(t, err)
	require.Len(t, elements, 2)
	assert.Equal(t, filepath.Join(dir, "a.pkl"), elements[0], "listing must be lexically ordered")
	assert.Equal(t, filepath.Join(dir, "b.pkl"), elements[1])

	all, err := provider.ListElements(dir, "")
	require.NoError(t, err)
	assert.Len(t, all, 3, "empty pattern lists everything")
}

func TestDefaultAuxDataProviderAssureElementProvided(t *testing.T) {
	dir, err := ioutil.TempDir("", "surfobs_aux")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	existing := filepath.Join(dir, "present.pkl")
	require.NoError(t, ioutil.WriteFile(existing, []byte("x"), 0644))

	provider := &DefaultAuxDataProvider{}
	assert.True(t, provider.AssureElementProvided(existing))
	assert.False(t, provider.AssureElementProvided(filepath.Join(dir, "absent.pkl")))
}

type staticProviderCreator struct {
	name     string
	provider AuxDataProvider
	err      error
}

func (c *staticProviderCreator) Name() string { return c.name }
func (c *staticProviderCreator) CreateAuxDataProvider(params map[string]string) (AuxDataProvider, error) {
	return c.provider, c.err
}

func TestContextConfigureSelectsRegisteredProvider(t *testing.T) {
	ctx := NewContext()
	ctx.RegisterAuxDataProviderCreator(&staticProviderCreator{
		name:     "STATIC",
		provider: &DefaultAuxDataProvider{},
	})

	config := &Config{AuxProvider: AuxProviderConfig{Name: "STATIC"}}
	require.NoError(t, ctx.Configure(config))
	assert.NotNil(t, ctx.AuxDataProvider())
}

func TestContextConfigureUnknownProvider(t *testing.T) {
	ctx := NewContext()
	config := &Config{AuxProvider: AuxProviderConfig{Name: "NOPE"}}
	err := ctx.Configure(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE")
}

func TestContextConfigureCreatorFailure(t *testing.T) {
	ctx := NewContext()
	ctx.RegisterAuxDataProviderCreator(&staticProviderCreator{
		name: "BROKEN",
		err:  fmt.Errorf("cannot construct"),
	})
	config := &Config{AuxProvider: AuxProviderConfig{Name: "BROKEN"}}
	assert.Error(t, ctx.Configure(config))
}

func TestContextConfigureMetricsLogger(t *testing.T) {
	dir, err := ioutil.TempDir("", "surfobs_metrics")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	ctx := NewContext()
	require.NoError(t, ctx.Configure(&Config{MetricsLogDir: dir}))
	assert.NotNil(t, ctx.Metrics, "metrics_log_dir enables the file logger")

	ctx = NewContext()
	require.NoError(t, ctx.Configure(&Config{}))
	assert.Nil(t, ctx.Metrics, "no metrics logging without a log dir")
}

func TestContextFallsBackToDefaultProvider(t *testing.T) {
	ctx := NewContext()
	provider := ctx.AuxDataProvider()
	require.NotNil(t, provider)
	assert.Equal(t, DefaultAuxProviderName, provider.Name())
}

func TestMetaCacheNilReceiver(t *testing.T) {
	var cache *MetaCache
	var out map[string]float64
	assert.False(t, cache.Get("key", &out))
	cache.Put("key", map[string]float64{"sza": 30.0})
}
