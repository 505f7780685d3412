package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/eoproc/surfobs/metrics"
)

const DefaultAuxProviderName = "DEFAULT"

// AuxDataProvider resolves logical names to local files. Implementations
// may fetch remote resources on demand; the default one is backed by the
// local filesystem only.
type AuxDataProvider interface {
	Name() string
	// ListElements returns the paths under baseFolder matching the
	// glob pattern, in lexical order. An empty pattern lists everything.
	ListElements(baseFolder string, pattern string) ([]string, error)
	// AssureElementProvided reports whether the named resource is now
	// locally available, fetching it first if the provider supports that.
	AssureElementProvided(name string) bool
}

// AuxDataProviderCreator builds a provider from config parameters.
type AuxDataProviderCreator interface {
	Name() string
	CreateAuxDataProvider(params map[string]string) (AuxDataProvider, error)
}

type DefaultAuxDataProvider struct{}

func (p *DefaultAuxDataProvider) Name() string {
	return DefaultAuxProviderName
}

func (p *DefaultAuxDataProvider) ListElements(baseFolder string, pattern string) ([]string, error) {
	if len(pattern) == 0 {
		pattern = "*"
	}
	elements, err := filepath.Glob(filepath.Join(baseFolder, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(elements)
	return elements, nil
}

func (p *DefaultAuxDataProvider) AssureElementProvided(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

type DefaultAuxDataProviderCreator struct{}

func (c *DefaultAuxDataProviderCreator) Name() string {
	return DefaultAuxProviderName
}

func (c *DefaultAuxDataProviderCreator) CreateAuxDataProvider(params map[string]string) (AuxDataProvider, error) {
	return &DefaultAuxDataProvider{}, nil
}

// Context carries the runtime wiring every component resolving auxiliary
// data needs. It is constructed once at startup and passed explicitly;
// there are no package-level provider singletons.
type Context struct {
	creators map[string]AuxDataProviderCreator
	provider AuxDataProvider
	Meta     *MetaCache
	Metrics  metrics.Logger
}

func NewContext() *Context {
	ctx := &Context{creators: make(map[string]AuxDataProviderCreator)}
	ctx.RegisterAuxDataProviderCreator(&DefaultAuxDataProviderCreator{})
	return ctx
}

func (ctx *Context) RegisterAuxDataProviderCreator(creator AuxDataProviderCreator) {
	ctx.creators[creator.Name()] = creator
}

// Configure selects the aux data provider named by the config and sets
// up the optional metadata cache and metrics logger. Must be called
// before AuxDataProvider.
func (ctx *Context) Configure(config *Config) error {
	SetLogLevel(config.LogLevel)

	name := config.AuxProvider.Name
	if len(name) == 0 {
		name = DefaultAuxProviderName
	}
	creator, found := ctx.creators[name]
	if !found {
		return fmt.Errorf("no aux data provider registered under name %s", name)
	}
	provider, err := creator.CreateAuxDataProvider(config.AuxProvider.Parameters)
	if err != nil {
		return err
	}
	ctx.provider = provider

	if len(config.MemcacheURI) > 0 {
		ctx.Meta = NewMetaCache(config.MemcacheURI)
	}
	if len(config.MetricsLogDir) > 0 {
		ctx.Metrics = metrics.NewFileLogger(config.MetricsLogDir, 0, 0)
	}
	return nil
}

// AuxDataProvider returns the configured provider, falling back to the
// local filesystem provider when Configure was never called.
func (ctx *Context) AuxDataProvider() AuxDataProvider {
	if ctx.provider == nil {
		ctx.provider = &DefaultAuxDataProvider{}
	}
	return ctx.provider
}
