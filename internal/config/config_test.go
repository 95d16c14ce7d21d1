package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	require.NoError(t, Load(t.TempDir()))

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, "memory", GetString("storage.type"))
	assert.False(t, GetBool("influx.enabled"))
	assert.Equal(t, DefaultArcSampleCount, ArcSampleCount())
	assert.Equal(t, DefaultSpeedMultiplier, SpeedMultiplier())
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	cfg := `{"logLevel": "debug", "arcSampleCount": 8, "storage": {"type": "sqlite"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pathplanner.cfg.json"), []byte(cfg), 0o644))

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, 8, ArcSampleCount())
	assert.Equal(t, "sqlite", GetString("storage.type"))
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "./planner.db", GetString("storage.sqlite.path"))
}

func TestSetArcSampleCount(t *testing.T) {
	viper.Reset()
	require.NoError(t, Load(t.TempDir()))

	require.NoError(t, SetArcSampleCount(9))
	assert.Equal(t, 9, ArcSampleCount())

	err := SetArcSampleCount(1)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Equal(t, 9, ArcSampleCount())
}

func TestSetSpeedMultiplier(t *testing.T) {
	viper.Reset()
	require.NoError(t, Load(t.TempDir()))

	require.NoError(t, SetSpeedMultiplier(2.5))
	assert.Equal(t, 2.5, SpeedMultiplier())

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		err := SetSpeedMultiplier(bad)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	}
	assert.Equal(t, 2.5, SpeedMultiplier())
}

func TestValidatedGettersFallBack(t *testing.T) {
	viper.Reset()
	require.NoError(t, Load(t.TempDir()))

	// Raw out-of-range values slip in through the file path; the getters
	// fall back instead of propagating them.
	viper.Set("arcSampleCount", 0)
	assert.Equal(t, DefaultArcSampleCount, ArcSampleCount())

	viper.Set("simulationSpeedMultiplier", -3.0)
	assert.Equal(t, DefaultSpeedMultiplier, SpeedMultiplier())
}
