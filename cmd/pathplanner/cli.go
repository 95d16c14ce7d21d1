package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldpath/planner/internal/codegen"
	"github.com/fieldpath/planner/internal/config"
	"github.com/fieldpath/planner/internal/influx"
	"github.com/fieldpath/planner/internal/logging"
	"github.com/fieldpath/planner/internal/parser"
	"github.com/fieldpath/planner/internal/session"
	"github.com/fieldpath/planner/internal/sim"
	"github.com/fieldpath/planner/internal/storage"
)

const usage = `usage: pathplanner <command> [flags]

commands:
  encode    -in session.json [-dialect field|robot] [-out prog.txt]
  decode    -in prog.txt [-prior session.json] [-out session.json]
  simulate  -in session.json [-field] [-export name]
  save      -in session.json -name <name>
  load      -name <name> [-out session.json]
  list
`

// CLI routes subcommands against the shared dependencies.
type CLI struct {
	logger  *slog.Logger
	backend storage.Backend
}

// Dispatch runs the subcommand named by args[0].
func (c *CLI) Dispatch(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command provided")
	}
	switch strings.ToLower(args[0]) {
	case "encode":
		return c.encode(args[1:])
	case "decode":
		return c.decode(args[1:])
	case "simulate":
		return c.simulate(args[1:])
	case "save":
		return c.save(args[1:])
	case "load":
		return c.load(args[1:])
	case "list":
		return c.list()
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (c *CLI) encode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	in := fs.String("in", "", "session JSON file")
	dialect := fs.String("dialect", "robot", "program dialect: field or robot")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := readSession(*in)
	if err != nil {
		return err
	}

	gen := codegen.New(c.logger, config.ArcSampleCount())
	var text string
	switch *dialect {
	case "field":
		text = gen.FieldOriented(s)
	case "robot":
		text = gen.RobotOriented(s)
	default:
		return fmt.Errorf("unknown dialect %q", *dialect)
	}

	return writeOutput(*out, []byte(text))
}

func (c *CLI) decode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	in := fs.String("in", "", "program text file")
	prior := fs.String("prior", "", "prior session JSON (supplies the start pose)")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("decode requires -in")
	}

	text, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("error reading program text: %w", err)
	}

	var priorSession *session.Session
	if *prior != "" {
		priorSession, err = readSession(*prior)
		if err != nil {
			return err
		}
	}

	p := parser.New(c.logger)
	decoded, err := p.Decode(string(text), priorSession)
	if errors.Is(err, parser.ErrNoWaypoints) {
		// The format was recognized but empty; report it and emit the
		// (empty) result so the caller knows the prior path is gone.
		c.logger.Warn("Program decoded to an empty path")
	} else if err != nil {
		return err
	}

	data, jsonErr := decoded.MarshalJSON()
	if jsonErr != nil {
		return jsonErr
	}
	if writeErr := writeOutput(*out, data); writeErr != nil {
		return writeErr
	}
	return err
}

func (c *CLI) simulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	in := fs.String("in", "", "session JSON file")
	field := fs.Bool("field", false, "walk the smoothed field polyline instead of per-segment phases")
	export := fs.String("export", "", "export the trace to InfluxDB under this trajectory name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := readSession(*in)
	if err != nil {
		return err
	}

	runnerLog := logging.NewRunnerLogger(
		zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger())
	runner, err := sim.NewRunner(runnerLog, sim.Config{
		SpeedMultiplier: config.SpeedMultiplier(),
	})
	if err != nil {
		return err
	}

	if !runner.Start(s, *field) {
		return fmt.Errorf("nothing to simulate: the path has no travel")
	}
	for !runner.Step(sim.DefaultStepSeconds) {
	}

	trace := runner.Trace().Drain()
	final := runner.Pose()
	fmt.Printf("simulated %.2fs, %d samples, final pose (%.3f, %.3f, %.1f°)\n",
		runner.Elapsed(), len(trace), final.X, final.Y, final.ProgramAngleDeg())

	if *export != "" {
		exporter := influx.NewExporter(
			zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger())
		ctx := context.Background()
		if err := exporter.Connect(ctx); err != nil {
			return err
		}
		defer exporter.Close()
		return exporter.ExportTrace(ctx, *export, time.Now(), trace)
	}
	return nil
}

func (c *CLI) save(args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	in := fs.String("in", "", "session JSON file")
	name := fs.String("name", "", "trajectory name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("save requires -name")
	}

	s, err := readSession(*in)
	if err != nil {
		return err
	}
	if err := c.backend.SaveTrajectory(*name, s); err != nil {
		return err
	}
	c.logger.Info("Saved trajectory", "name", *name, "waypoints", len(s.Path.Waypoints))
	return nil
}

func (c *CLI) load(args []string) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	name := fs.String("name", "", "trajectory name")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("load requires -name")
	}

	s, err := c.backend.LoadTrajectory(*name)
	if err != nil {
		return err
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	return writeOutput(*out, data)
}

func (c *CLI) list() error {
	names, err := c.backend.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func readSession(path string) (*session.Session, error) {
	if path == "" {
		return nil, fmt.Errorf("missing required -in flag")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading session file: %w", err)
	}
	return session.FromJSON(data)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
