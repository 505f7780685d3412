package utils

import (
	"encoding/json"

	"github.com/bradfitz/gomemcache/memcache"
)

// MetaCache is an optional memcached-backed cache for parsed product
// metadata. All methods are safe on a nil receiver so callers never
// need to test whether caching is configured.
type MetaCache struct {
	mc *memcache.Client
}

func NewMetaCache(uri string) *MetaCache {
	return &MetaCache{mc: memcache.New(uri)}
}

func (c *MetaCache) Get(key string, value interface{}) bool {
	if c == nil {
		return false
	}
	item, err := c.mc.Get(key)
	if err != nil {
		return false
	}
	return json.Unmarshal(item.Value, value) == nil
}

func (c *MetaCache) Put(key string, value interface{}) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	// don't care about errors; memcache may not necessarily retain this anyway
	c.mc.Set(&memcache.Item{Key: key, Value: payload})
}
