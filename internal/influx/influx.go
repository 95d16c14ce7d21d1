// Package influx exports simulation pose traces to an InfluxDB instance.
// The exporter is config-gated and entirely optional; when disabled it is
// inert and the simulator's trace stays local.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/fieldpath/planner/internal/sim"
)

// ErrDisabled is returned when the exporter is used while influx.enabled is
// false.
var ErrDisabled = errors.New("influx export is disabled")

// Exporter manages the InfluxDB connection and trace writes.
type Exporter struct {
	Client influxdb2.Client
	Logger zerolog.Logger

	writer influxdb2_api.WriteAPIBlocking
}

// NewExporter creates an exporter. Call Connect before exporting.
func NewExporter(log zerolog.Logger) *Exporter {
	return &Exporter{Logger: log}
}

// Connect establishes a connection to InfluxDB using the influx.* config
// keys.
func (e *Exporter) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return ErrDisabled
	}

	e.Client = influxdb2.NewClient(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
	)

	running, err := e.Client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("error pinging influxdb: %w", err)
	}
	if !running {
		return fmt.Errorf("influxdb is not ready")
	}

	e.writer = e.Client.WriteAPIBlocking(
		viper.GetString("influx.org"),
		viper.GetString("influx.bucket"),
	)
	e.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

// ExportTrace writes one point per trace sample, timestamped relative to
// base by the sample's elapsed simulation time.
func (e *Exporter) ExportTrace(ctx context.Context, trajectory string, base time.Time, points []sim.TracePoint) error {
	if e.writer == nil {
		return ErrDisabled
	}
	for _, tp := range points {
		pt := influxdb2.NewPoint(
			"sim_pose",
			map[string]string{
				"trajectory": trajectory,
				"phase":      string(tp.Phase),
			},
			map[string]any{
				"x":       tp.Pose.X,
				"y":       tp.Pose.Y,
				"heading": tp.Pose.H,
			},
			base.Add(time.Duration(tp.Elapsed*float64(time.Second))),
		)
		if err := e.writer.WritePoint(ctx, pt); err != nil {
			return fmt.Errorf("error writing trace point: %w", err)
		}
	}
	e.Logger.Debug().Int("points", len(points)).Str("trajectory", trajectory).
		Msg("Exported simulation trace")
	return nil
}

// Close shuts down the client.
func (e *Exporter) Close() {
	if e.Client != nil {
		e.Client.Close()
	}
}
