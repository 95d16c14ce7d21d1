// Package parser reconstructs a session from motion-program text. It is
// not a general-purpose language parser: it recovers path data from the
// restricted program shapes the generator emits, plus minor human
// variation. Decoding is a two-stage pipeline: format sniffing first, then
// a dedicated line/token scanner per grammar.
package parser

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/fieldpath/planner/internal/session"
)

// Format identifies a recognized program dialect.
type Format int

const (
	FormatUnknown Format = iota
	FormatField
	FormatRobot
)

// ErrUnrecognizedFormat is returned when the text matches neither dialect.
// The caller's prior state is untouched in that case.
var ErrUnrecognizedFormat = errors.New("unrecognized program format")

// ErrNoWaypoints is returned when a recognized format yields no usable
// entries. A fresh (empty) session is still returned alongside it, since by
// the decoding contract the old path has already been discarded once the
// format was confirmed.
var ErrNoWaypoints = errors.New("no waypoints decoded from program text")

// DefaultSpeed is assigned to waypoints decoded from dialects that do not
// carry a per-segment speed.
const DefaultSpeed = 1.0

// markerProximityMeters is the reuse tolerance when decoded actions
// re-register markers.
const markerProximityMeters = 0.05

var robotKeywords = []string{"turnPID(", "drivePID(", "strafePID(", "arcTo("}

// Parser decodes program text into sessions.
type Parser struct {
	logger *slog.Logger
}

// New creates a parser with only a logger dependency.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Sniff detects the program dialect. The pose-list constructor token selects
// the field-oriented grammar; any robot command keyword selects the
// robot-oriented one.
func (p *Parser) Sniff(text string) Format {
	if strings.Contains(text, "Pose2d") {
		return FormatField
	}
	for _, kw := range robotKeywords {
		if strings.Contains(text, kw) {
			return FormatRobot
		}
	}
	return FormatUnknown
}

// Decode builds a brand-new session from program text. prior supplies the
// previously-committed state: its start pose seeds robot-oriented decoding
// and survives degenerate field-oriented input. prior itself is never
// mutated, so a failed decode leaves the caller's state intact.
func (p *Parser) Decode(text string, prior *session.Session) (*session.Session, error) {
	if prior == nil {
		prior = session.New()
	}
	switch p.Sniff(text) {
	case FormatField:
		return p.decodeField(text, prior)
	case FormatRobot:
		return p.decodeRobot(text, prior)
	default:
		return nil, ErrUnrecognizedFormat
	}
}
