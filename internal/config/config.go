// Package config reads planner configuration from a JSON file via viper and
// validates the values the core consumes. Invalid values are rejected
// before use; the previously valid value stays in effect.
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/viper"
)

// ErrInvalidConfiguration is returned when a configuration value fails
// validation; the previous value is retained.
var ErrInvalidConfiguration = errors.New("invalid configuration value")

const (
	// DefaultArcSampleCount is the interior heading-sample density for
	// generated arc commands.
	DefaultArcSampleCount = 5
	// DefaultSpeedMultiplier scales the simulator rates.
	DefaultSpeedMultiplier = 1.0
)

// SqliteConfig holds sqlite storage backend settings.
type SqliteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// Load reads configuration from a JSON file and sets default values.
// configDir is the directory containing the config file; a missing file is
// not an error, the defaults simply apply.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./plannerlogs")

	viper.SetDefault("arcSampleCount", DefaultArcSampleCount)
	viper.SetDefault("simulationSpeedMultiplier", DefaultSpeedMultiplier)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.sqlite.path", "./planner.db")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "planner-metrics")
	viper.SetDefault("influx.bucket", "sim_traces")

	viper.SetConfigName("pathplanner.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// ArcSampleCount returns the validated interior heading-sample count for
// arc commands. An out-of-range stored value falls back to the default.
func ArcSampleCount() int {
	n := viper.GetInt("arcSampleCount")
	if n < 2 {
		return DefaultArcSampleCount
	}
	return n
}

// SetArcSampleCount validates and stores the arc sample count. Values below
// 2 are rejected and the previous value is retained.
func SetArcSampleCount(n int) error {
	if n < 2 {
		return fmt.Errorf("%w: arcSampleCount must be >= 2, got %d", ErrInvalidConfiguration, n)
	}
	viper.Set("arcSampleCount", n)
	return nil
}

// SpeedMultiplier returns the validated simulator speed multiplier. An
// out-of-range stored value falls back to the default.
func SpeedMultiplier() float64 {
	f := viper.GetFloat64("simulationSpeedMultiplier")
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultSpeedMultiplier
	}
	return f
}

// SetSpeedMultiplier validates and stores the simulator speed multiplier.
// Non-positive or non-finite values are rejected and the previous value is
// retained.
func SetSpeedMultiplier(f float64) error {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: simulationSpeedMultiplier must be a positive finite number, got %v", ErrInvalidConfiguration, f)
	}
	viper.Set("simulationSpeedMultiplier", f)
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
