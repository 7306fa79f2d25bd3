package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/peyecoder/peyecoder/internal/config"
	"github.com/peyecoder/peyecoder/internal/dispatcher"
	"github.com/peyecoder/peyecoder/internal/influx"
	"github.com/peyecoder/peyecoder/internal/logging"
	"github.com/peyecoder/peyecoder/internal/storage"
	"github.com/spf13/viper"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "peyecoder"
)

// app holds the services shared by the command handlers. Storage and
// metrics are opened on first use.
type app struct {
	out  io.Writer
	logs *logging.SlogManager
	log  *slog.Logger

	sessionID    string
	sessionStart time.Time
	subject      string

	storage    storage.Backend
	influx     *influx.Manager
	influxOnce sync.Once
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{
		out:          stdout,
		logs:         logging.NewSlogManager(),
		sessionID:    uuid.NewString(),
		sessionStart: time.Now(),
	}

	configDir := os.Getenv("PEYECODER_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	configErr := config.Load(configDir)

	closeLogs := a.setupLogging(stderr)
	defer closeLogs()

	if configErr != nil {
		a.log.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		a.log.Debug("Loaded config", "dir", configDir)
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.log))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.registerHandlers(d)
	defer a.close()

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage(d)
		return nil
	}

	result, err := d.Dispatch(ctx, dispatcher.Command{Name: args[0], Args: args[1:]})
	if err != nil {
		return err
	}
	a.print(result)
	return nil
}

// setupLogging sends records to stderr, a rotating file in logsDir and,
// when enabled, Graylog. The returned func closes the file.
func (a *app) setupLogging(stderr io.Writer) func() {
	sinks := logging.Sinks{Console: stderr}
	closer := func() {}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err == nil {
		file := logging.NewRotatingFile(logging.LogFilePath(logsDir, AppName, a.sessionStart))
		sinks.File = file
		closer = func() { _ = file.Close() }
	}

	var graylogErr error
	if viper.GetBool("graylog.enabled") {
		sinks.Graylog, graylogErr = logging.NewGraylogWriter(viper.GetString("graylog.address"))
	}

	a.logs.Setup(sinks, viper.GetString("logLevel"), func() []slog.Attr {
		return []slog.Attr{
			slog.String("session", a.sessionID),
			slog.String("subject", a.subject),
		}
	})
	a.log = a.logs.Logger()

	if graylogErr != nil {
		a.log.Warn("Graylog disabled", "error", graylogErr)
	}
	return closer
}

// initInflux connects the metrics writer on first use. It returns nil when
// InfluxDB is disabled or unreachable without a backup file.
func (a *app) initInflux() *influx.Manager {
	a.influxOnce.Do(func() {
		if !viper.GetBool("influx.enabled") {
			return
		}
		backup := logging.LogFilePath(viper.GetString("logsDir"), AppName+".influx", a.sessionStart) + ".gz"
		m := influx.NewManager(a.logs.Zerolog("influx"), backup)
		if err := m.Connect(); err != nil {
			a.log.Warn("Failed to connect to InfluxDB", "error", err)
			return
		}
		a.influx = m
	})
	return a.influx
}

func (a *app) close() {
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.log.Error("Failed to close InfluxDB writer", "error", err)
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.log.Error("Failed to close storage backend", "error", err)
		}
	}
}

func (a *app) usage(d *dispatcher.Dispatcher) {
	fmt.Fprintf(a.out, "%s %s (%s)\n\nCommands:\n", AppName, CurrentVersion, BuildDate)
	for _, c := range d.Commands() {
		fmt.Fprintf(a.out, "  %s\n", c.Usage)
	}
}

func (a *app) print(result any) {
	switch v := result.(type) {
	case nil:
	case []string:
		for _, line := range v {
			fmt.Fprintln(a.out, line)
		}
	default:
		fmt.Fprintln(a.out, v)
	}
}
