// Package testutils holds helpers shared by tests across packages.
package testutils

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/nfrund/chatrooms/internal/config"
)

var (
	envOnce sync.Once
	envFile map[string]string
)

// testEnv reads .env.test from the project root once per test binary. A
// missing file yields an empty map so unit tests never depend on it.
func testEnv() map[string]string {
	envOnce.Do(func() {
		envFile = map[string]string{}

		path, err := os.Getwd()
		if err != nil {
			return
		}
		for {
			if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
				break
			}
			if path == filepath.Dir(path) {
				return
			}
			path = filepath.Dir(path)
		}

		if env, err := godotenv.Read(filepath.Join(path, ".env.test")); err == nil {
			envFile = env
		}
	})
	return envFile
}

// RequireEnv returns the value of key from the process environment or
// .env.test, and skips the test when neither sets it. Integration tests use it
// to opt in to a live backend.
func RequireEnv(t *testing.T, key string) string {
	t.Helper()
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v := testEnv()[key]; v != "" {
		return v
	}
	t.Skipf("%s not set", key)
	return ""
}

// OptionalEnv is RequireEnv without the skip.
func OptionalEnv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return testEnv()[key]
}

// Config builds a config.Provider from env alone, ignoring the process
// environment, and fails the test on invalid values.
func Config(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.FromLookup(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return cfg
}
