package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fieldpath/planner/internal/config"
	"github.com/fieldpath/planner/internal/logging"
	"github.com/fieldpath/planner/internal/storage"
)

const appName = "pathplanner"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := config.Load("."); err != nil {
		return err
	}

	logMgr := logging.NewManager()
	var fileSink io.Writer
	if logFile, err := openLogFile(); err != nil {
		// Console logging still works; note the failure and carry on.
		fmt.Fprintf(os.Stderr, "%s: could not open log file: %v\n", appName, err)
	} else {
		fileSink = logFile
		defer logFile.Close()
	}
	logMgr.Setup(fileSink, config.GetString("logLevel"))
	logger := logMgr.Logger()

	backend, err := storage.NewBackend(storage.Config{
		Type: config.GetString("storage.type"),
		Sqlite: storage.SqliteConfig{
			Path: config.GetString("storage.sqlite.path"),
		},
	})
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer backend.Close()

	cli := &CLI{logger: logger, backend: backend}
	return cli.Dispatch(args)
}

func openLogFile() (*os.File, error) {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(
		logging.LogFilePath(logsDir, appName, time.Now()),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}
