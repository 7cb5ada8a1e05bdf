package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("TORTOISE_TEST_NAME", "from-env")
	path := writeFile(t, "config.yaml", "name: ${TORTOISE_TEST_NAME}\n")

	cfg := sample{Port: 8080}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-env" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, "config.yaml", "port: 0\n")
	cfg := sample{Port: 1}
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := sample{Port: 9000}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d", cfg.Port)
	}

	bad := sample{}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &bad); err == nil {
		t.Error("defaults are still validated")
	}
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, ".env", "TORTOISE_ENV_A=one\nTORTOISE_ENV_B=two\n")
	t.Setenv("TORTOISE_ENV_B", "preset")
	t.Cleanup(func() { os.Unsetenv("TORTOISE_ENV_A") })

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("TORTOISE_ENV_A"); got != "one" {
		t.Errorf("A = %q", got)
	}
	if got := os.Getenv("TORTOISE_ENV_B"); got != "preset" {
		t.Errorf("B = %q, existing variables must win", got)
	}
}
