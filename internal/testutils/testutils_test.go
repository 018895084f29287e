package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig(t *testing.T) {
	cfg := Config(t, map[string]string{"PORT": "4000"})
	assert.Equal(t, 4000, cfg.GetPort())
	assert.Equal(t, "memory", cfg.GetStoreDriver())
}

func TestRequireEnv(t *testing.T) {
	t.Setenv("CHATROOMS_TESTUTILS_PROBE", "yes")
	assert.Equal(t, "yes", RequireEnv(t, "CHATROOMS_TESTUTILS_PROBE"))
	assert.Equal(t, "yes", OptionalEnv("CHATROOMS_TESTUTILS_PROBE"))
	assert.Empty(t, OptionalEnv("CHATROOMS_TESTUTILS_UNSET"))
}
