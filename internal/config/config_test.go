package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origan-dev/gateway/internal/config"
)

type envSettings struct {
	Addr    string        `env:"CONFIG_TEST_ADDR" envDefault:":8080"`
	Timeout time.Duration `env:"CONFIG_TEST_TIMEOUT" envDefault:"15s"`
	Debug   bool          `env:"CONFIG_TEST_DEBUG" envDefault:"false"`
}

type cachedSettings struct {
	Value string `env:"CONFIG_TEST_CACHED" envDefault:"initial"`
}

type requiredSettings struct {
	Token string `env:"CONFIG_TEST_REQUIRED_TOKEN,required"`
}

func TestLoadAppliesDefaults(t *testing.T) {
	var cfg envSettings
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.False(t, cfg.Debug)
}

func TestLoadReadsEnvironment(t *testing.T) {
	type overridden struct {
		Addr string `env:"CONFIG_TEST_OVERRIDE_ADDR" envDefault:":8080"`
	}

	t.Setenv("CONFIG_TEST_OVERRIDE_ADDR", ":9999")

	var cfg overridden
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, ":9999", cfg.Addr)
}

func TestLoadCachesPerType(t *testing.T) {
	t.Setenv("CONFIG_TEST_CACHED", "first")

	var first cachedSettings
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "first", first.Value)

	// A later change to the environment does not affect the cached type.
	t.Setenv("CONFIG_TEST_CACHED", "second")

	var second cachedSettings
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value)
}

func TestLoadRequiredVariableMissing(t *testing.T) {
	var cfg requiredSettings
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIG_TEST_REQUIRED_TOKEN")
}

func TestMustLoadPanicsOnError(t *testing.T) {
	type mustRequired struct {
		Key string `env:"CONFIG_TEST_MUST_REQUIRED,required"`
	}

	assert.Panics(t, func() {
		var cfg mustRequired
		config.MustLoad(&cfg)
	})
}
