// Package secrets provides the opaque key→value lookup the pipeline uses
// for tracker and notifier credentials. Providers are injected, never
// accessed as ambient singletons, so tests can substitute fakes.
package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pytorch/alerting-infra/internal/alerterr"
	"github.com/pytorch/alerting-infra/internal/cache"
)

// Provider resolves a secret by key.
type Provider interface {
	Get(key string) (string, error)
}

// EnvProvider resolves secrets from environment variables.
type EnvProvider struct{}

// Get returns the environment value for key.
func (EnvProvider) Get(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secret %s not set", key)
}

// FileProvider resolves secrets from a flat JSON object file, falling
// back to the environment for keys the file does not define.
type FileProvider struct {
	path     string
	fallback Provider
}

// NewFileProvider creates a provider reading from a JSON file.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path, fallback: EnvProvider{}}
}

// Get reads the file on every call; the caching layer above bounds the
// read rate. A missing or unreadable file is a transient failure.
func (p *FileProvider) Get(key string) (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", alerterr.Transient("secret file unreadable", err)
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return "", alerterr.Transient("secret file unparseable", err)
	}
	if v, ok := values[key]; ok && v != "" {
		return v, nil
	}
	return p.fallback.Get(key)
}

// CachingProvider wraps a Provider with a TTL cache so hot keys are not
// re-resolved on every message.
type CachingProvider struct {
	inner Provider
	cache *cache.Cache
}

// NewCachingProvider wraps inner with a TTL cache.
func NewCachingProvider(inner Provider, ttl time.Duration) *CachingProvider {
	return &CachingProvider{inner: inner, cache: cache.New(ttl)}
}

// Get returns the cached value when fresh, resolving through the inner
// provider otherwise.
func (p *CachingProvider) Get(key string) (string, error) {
	if v, ok := p.cache.Get(key); ok {
		return v, nil
	}
	v, err := p.inner.Get(key)
	if err != nil {
		return "", err
	}
	p.cache.Set(key, v)
	return v, nil
}
