// NodeLink - native protocol node daemon
//
// This is the main entry point for the NodeLink daemon. NodeLink
// exposes a small sensor/actuator node over the native TCP protocol:
// a controller connects, authenticates, enumerates the node's entities
// and subscribes to state updates. Optional sidecars record state
// history to SQLite, mirror state to an MQTT broker and stream numeric
// telemetry to InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/nodelink/internal/config"
	"github.com/nerrad567/nodelink/internal/database"
	"github.com/nerrad567/nodelink/internal/entity"
	"github.com/nerrad567/nodelink/internal/history"
	"github.com/nerrad567/nodelink/internal/logging"
	"github.com/nerrad567/nodelink/internal/mirror"
	"github.com/nerrad567/nodelink/internal/server"
	"github.com/nerrad567/nodelink/internal/telemetry"
	"github.com/nerrad567/nodelink/internal/wire"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// pruneInterval is how often expired history rows are removed.
const pruneInterval = time.Hour

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting NodeLink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build the entity registry from configuration
	capacity := entity.DefaultCapacity
	if len(cfg.Entities) > capacity {
		capacity = len(cfg.Entities)
	}
	registry := entity.NewRegistry(capacity)
	registry.SetLogger(log)

	for _, ec := range cfg.Entities {
		if _, regErr := registry.Register(ec.Name, entity.KindFromString(ec.Kind)); regErr != nil {
			return fmt.Errorf("registering entity %q: %w", ec.Name, regErr)
		}
	}
	log.Info("entity registry initialised", "entities", registry.Len())

	// State history (optional)
	if cfg.History.Enabled {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		repo, repoErr := history.NewRepository(db)
		if repoErr != nil {
			return fmt.Errorf("initialising history: %w", repoErr)
		}

		recorder := history.NewRecorder(repo, log)
		defer func() {
			log.Info("stopping history recorder")
			recorder.Close()
		}()
		registry.AddObserver(recorder.Observe)
		log.Info("history recording enabled", "retention", cfg.GetHistoryRetention())

		if retention := cfg.GetHistoryRetention(); retention > 0 {
			startPruner(ctx, repo, retention, log)
		}
	} else {
		log.Info("history recording disabled")
	}

	// MQTT state mirror (optional)
	if cfg.MQTT.Enabled {
		stateMirror, mirrorErr := mirror.New(cfg.MQTT, cfg.Device.Name, log)
		if mirrorErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mirrorErr)
		}
		defer func() {
			log.Info("stopping MQTT mirror")
			if closeErr := stateMirror.Close(); closeErr != nil {
				log.Error("error closing MQTT mirror", "error", closeErr)
			}
		}()
		registry.AddObserver(stateMirror.Observe)
		log.Info("MQTT mirror connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT mirror disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := telemetry.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		registry.AddObserver(influxClient.Observe)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Protocol server
	srv := server.New(server.Config{
		Addr:       cfg.ListenAddr(),
		Password:   cfg.Device.Password,
		ServerInfo: fmt.Sprintf("%s (nodelink %s)", cfg.Device.Name, version),
		Info: wire.DeviceInfo{
			Name:        cfg.Device.Name,
			MAC:         cfg.Device.MAC,
			Version:     version,
			CompileTime: date,
			Board:       cfg.Device.Board,
		},
	}, registry, &actuator{registry: registry, log: log})
	srv.SetLogger(log)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	defer func() {
		log.Info("stopping server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing server", "error", closeErr)
		}
	}()
	log.Info("listening for controllers", "addr", srv.Addr().String())

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Server (stop accepting, drop the controller)
	// 2. InfluxDB (if enabled)
	// 3. MQTT mirror (if enabled)
	// 4. History recorder, then database

	log.Info("NodeLink stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses NODELINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("NODELINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startPruner removes history rows past the retention window on a
// fixed interval, stopping when ctx is cancelled.
func startPruner(ctx context.Context, repo *history.Repository, retention time.Duration, log *logging.Logger) {
	go func() {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := repo.Prune(ctx, retention)
				if err != nil {
					log.Error("history prune failed", "error", err)
					continue
				}
				if removed > 0 {
					log.Debug("history pruned", "rows", removed)
				}
			}
		}
	}()
}

// actuator applies controller commands to the registry.
//
// A hardware node would drive GPIO or a PWM channel here; this daemon
// reflects the commanded state straight back into the registry, so the
// controller sees the effect as an ordinary state push.
type actuator struct {
	registry *entity.Registry
	log      *logging.Logger
}

// HandleSwitchCommand implements server.CommandHandler.
func (a *actuator) HandleSwitchCommand(key entity.Key, on bool) error {
	if err := a.registry.UpdateState(key, entity.SwitchState(on)); err != nil {
		return err
	}
	a.log.Debug("switch command applied", "key", uint32(key), "on", on)
	return nil
}

// HandleLightCommand implements server.CommandHandler.
//
// Fields the controller did not set keep their current values.
func (a *actuator) HandleLightCommand(key entity.Key, cmd wire.LightCommand) error {
	current, ok := a.registry.Find(key)
	if !ok {
		return fmt.Errorf("%w: key %d", entity.ErrUnknownKey, key)
	}

	state := current.State
	if cmd.HasOn {
		state.On = cmd.On
	}
	if cmd.HasBrightness {
		state.Brightness = cmd.Brightness
	}
	if cmd.HasRGB {
		state.Red = cmd.Red
		state.Green = cmd.Green
		state.Blue = cmd.Blue
	}

	if err := a.registry.UpdateState(key, state); err != nil {
		return err
	}
	a.log.Debug("light command applied", "key", uint32(key), "on", state.On, "brightness", state.Brightness)
	return nil
}
