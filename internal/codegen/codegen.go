// Package codegen serializes a session into the two motion-program
// dialects: a field-oriented absolute pose list and a robot-oriented
// relative command sequence. Both are read-only over the session and the
// decoder in internal/parser accepts everything emitted here.
package codegen

import (
	"log/slog"
	"math"
	"strconv"
)

// DefaultArcSampleCount is the number of interior heading samples emitted in
// an arc command when not configured otherwise.
const DefaultArcSampleCount = 5

// Generator produces program text from a session.
type Generator struct {
	logger     *slog.Logger
	arcSamples int
}

// New creates a generator. arcSamples is the interior heading-sample count
// for arc commands; values below 2 fall back to the default.
func New(logger *slog.Logger, arcSamples int) *Generator {
	if arcSamples < 2 {
		arcSamples = DefaultArcSampleCount
	}
	return &Generator{logger: logger, arcSamples: arcSamples}
}

// formatAngle renders an angle in degrees rounded to one decimal with
// trailing zeros trimmed, so whole angles print bare ("0", "90", "-45").
func formatAngle(deg float64) string {
	r := math.Round(deg*10) / 10
	if r == 0 {
		// Collapse negative zero.
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// formatDistance renders a distance with two decimals.
func formatDistance(d float64) string {
	return strconv.FormatFloat(d, 'f', 2, 64)
}

// formatCm renders a centimeter coordinate with one decimal.
func formatCm(meters float64) string {
	return strconv.FormatFloat(meters*100, 'f', 1, 64)
}

// formatDegInt renders an angle rounded to a whole degree.
func formatDegInt(deg float64) string {
	r := int(math.Round(deg))
	return strconv.Itoa(r)
}
