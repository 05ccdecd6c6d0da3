package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("TEST_SECRET_KEY", "value")

	v, err := EnvProvider{}.Get("TEST_SECRET_KEY")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if v != "value" {
		t.Errorf("Expected 'value', got '%s'", v)
	}

	if _, err := (EnvProvider{}).Get("TEST_SECRET_UNSET"); err == nil {
		t.Error("Expected error for unset key")
	}
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"GITHUB_TOKEN": "tok-123"}`), 0600); err != nil {
		t.Fatal(err)
	}

	p := NewFileProvider(path)
	v, err := p.Get("GITHUB_TOKEN")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if v != "tok-123" {
		t.Errorf("Expected 'tok-123', got '%s'", v)
	}
}

func TestFileProvider_EnvFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	os.WriteFile(path, []byte(`{}`), 0600)
	t.Setenv("FALLBACK_KEY", "from-env")

	p := NewFileProvider(path)
	v, err := p.Get("FALLBACK_KEY")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if v != "from-env" {
		t.Errorf("Expected env fallback, got '%s'", v)
	}
}

func TestFileProvider_MissingFile(t *testing.T) {
	p := NewFileProvider("/nonexistent/secrets.json")
	if _, err := p.Get("ANY"); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

type countingProvider struct {
	calls int
	value string
	err   error
}

func (p *countingProvider) Get(key string) (string, error) {
	p.calls++
	return p.value, p.err
}

func TestCachingProvider(t *testing.T) {
	inner := &countingProvider{value: "secret"}
	p := NewCachingProvider(inner, time.Minute)

	for i := 0; i < 3; i++ {
		v, err := p.Get("KEY")
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if v != "secret" {
			t.Errorf("Expected 'secret', got '%s'", v)
		}
	}
	if inner.calls != 1 {
		t.Errorf("Expected 1 inner call, got %d", inner.calls)
	}
}

func TestCachingProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("unavailable")}
	p := NewCachingProvider(inner, time.Minute)

	p.Get("KEY")
	p.Get("KEY")
	if inner.calls != 2 {
		t.Errorf("Expected errors to pass through uncached, got %d calls", inner.calls)
	}
}
