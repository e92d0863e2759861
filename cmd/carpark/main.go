// Car park core
//
// This is the main entry point for the car park process. It builds one lot
// from configuration, attaches an entry sensor, an exit sensor and the lot
// display, runs the configured detection sequence and, when the status API
// or MQTT triggers are enabled, keeps serving until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/carpark-core/migrations"

	"github.com/nerrad567/carpark-core/internal/activity"
	"github.com/nerrad567/carpark-core/internal/api"
	"github.com/nerrad567/carpark-core/internal/carpark"
	"github.com/nerrad567/carpark-core/internal/display"
	"github.com/nerrad567/carpark-core/internal/infrastructure/config"
	"github.com/nerrad567/carpark-core/internal/infrastructure/database"
	"github.com/nerrad567/carpark-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/carpark-core/internal/infrastructure/logging"
	"github.com/nerrad567/carpark-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/carpark-core/internal/observability/metrics"
	"github.com/nerrad567/carpark-core/internal/sensor"
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

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Linear startup sequence
	log := logging.Default()
	log.Info("starting car park core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	var recorders []carpark.EventRecorder
	checks := make(map[string]api.HealthChecker)

	// Prometheus collectors (optional)
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		recorders = append(recorders, collector)
	}

	// Activity history (optional)
	var repo *activity.SQLiteRepository
	if cfg.Database.Enabled {
		db, dbErr := database.Open(cfg.Database)
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", db.Path())

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		repo = activity.NewSQLiteRepository(db.DB)
		recorders = append(recorders, repo)
		checks["database"] = db
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		recorders = append(recorders, occupancyPublisher{pub: mqttClient, qos: mqttQoS(cfg)})
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		recorders = append(recorders, influxRecorder{w: influxClient})
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	lot, err := buildLot(cfg, log, recorders)
	if err != nil {
		return err
	}
	log.Info("lot ready",
		"location", lot.Location(),
		"capacity", lot.Capacity(),
		"log_file", lot.LogFile(),
	)

	if cfg.CarPark.WriteSnapshot {
		if err := lot.WriteConfig(cfg.CarPark.SnapshotFile); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		log.Info("snapshot written", "path", cfg.CarPark.SnapshotFile)
	}

	entry, exit, err := attachComponents(cfg, lot, log)
	if err != nil {
		return err
	}

	if mqttClient != nil {
		if err := attachMQTT(ctx, cfg, lot, mqttClient, log, entry, exit); err != nil {
			return err
		}
	}

	// Status API (optional)
	var server *api.Server
	if cfg.API.Enabled {
		hub := api.NewHub(cfg.Simulation.DisplayID, cfg.WebSocket, log)
		if err := lot.Register(hub); err != nil {
			return fmt.Errorf("registering websocket display: %w", err)
		}

		deps := api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log,
			Lot:     lot,
			Metrics: collector,
			Checks:  checks,
			Hub:     hub,
			Version: version,
		}
		// A nil *SQLiteRepository in the interface would not compare equal to nil.
		if repo != nil {
			deps.Events = repo
		}

		server, err = api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		checks["api"] = server
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if err := simulate(ctx, cfg.Simulation, entry, exit, log); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	status := lot.Snapshot()
	log.Info("simulation complete",
		"occupied", status.Occupied,
		"available_bays", status.AvailableBays,
	)

	if server == nil && mqttClient == nil {
		log.Info("nothing left to serve, exiting")
		return nil
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("car park core stopped")
	return nil
}

// loadConfig returns the process configuration and the path it came from.
// CARPARK_CONFIG names a required file; otherwise configs/config.yaml is used
// if present, falling back to built-in defaults.
func loadConfig() (*config.Config, string, error) {
	if path := os.Getenv("CARPARK_CONFIG"); path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	if _, err := os.Stat(defaultConfigPath); err == nil {
		cfg, err := config.Load(defaultConfigPath)
		return cfg, defaultConfigPath, err
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("validating defaults: %w", err)
	}
	return cfg, "(defaults)", nil
}

// buildLot creates the lot, either fresh from configuration or restored
// from the JSON snapshot.
func buildLot(cfg *config.Config, log *logging.Logger, recorders []carpark.EventRecorder) (*carpark.CarPark, error) {
	opts := []carpark.Option{
		carpark.WithLogger(log),
		carpark.WithRecorders(recorders...),
	}

	if cfg.CarPark.RestoreFromSnapshot {
		lot, err := carpark.FromConfig(cfg.CarPark.SnapshotFile, opts...)
		if err != nil {
			return nil, fmt.Errorf("restoring lot from %s: %w", cfg.CarPark.SnapshotFile, err)
		}
		return lot, nil
	}

	opts = append(opts, carpark.WithLogFile(cfg.CarPark.LogFile))
	lot, err := carpark.New(cfg.CarPark.Location, cfg.CarPark.Capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating lot: %w", err)
	}
	return lot, nil
}

// attachComponents creates the entry and exit sensors and the console
// display and registers them with the lot.
func attachComponents(cfg *config.Config, lot *carpark.CarPark, log *logging.Logger) (*sensor.EntrySensor, *sensor.ExitSensor, error) {
	entry, err := sensor.NewEntry(cfg.Simulation.EntrySensorID, lot,
		sensor.WithActive(true), sensor.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("creating entry sensor: %w", err)
	}
	exit, err := sensor.NewExit(cfg.Simulation.ExitSensorID, lot,
		sensor.WithActive(true), sensor.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("creating exit sensor: %w", err)
	}

	board := display.New(cfg.Simulation.DisplayID, lot,
		display.WithMessage(cfg.Simulation.Welcome(lot.Location())),
		display.WithOn(true),
		display.WithLogger(log),
	)

	for _, c := range []carpark.Component{entry, exit, board} {
		if err := lot.Register(c); err != nil {
			return nil, nil, fmt.Errorf("registering %s: %w", c.Kind(), err)
		}
	}

	log.Info("components registered",
		"entry_sensor", entry.String(),
		"exit_sensor", exit.String(),
		"display", board.String(),
	)
	return entry, exit, nil
}

// attachMQTT mirrors the display to a retained topic and lets broker
// messages trigger the sensors.
func attachMQTT(ctx context.Context, cfg *config.Config, lot *carpark.CarPark, client *mqtt.Client, log *logging.Logger, sensors ...carpark.Sensor) error {
	board := display.NewMQTTBoard(cfg.Simulation.DisplayID, lot, client, mqttQoS(cfg),
		display.WithMessage(cfg.Simulation.Welcome(lot.Location())),
		display.WithOn(true),
		display.WithLogger(log),
	)
	if err := lot.Register(board); err != nil {
		return fmt.Errorf("registering MQTT display: %w", err)
	}
	log.Info("MQTT display attached", "topic", board.Topic())

	for _, s := range sensors {
		if err := sensor.BindTrigger(ctx, client, lot.Location(), s, mqttQoS(cfg)); err != nil {
			return err
		}
	}
	log.Info("sensor triggers bound", "topic", mqtt.Topics{}.AllSensorTriggers(lot.Location()))
	return nil
}

// simulate runs the configured number of entry then exit detections.
// An exit with no vehicle inside is logged and skipped.
func simulate(ctx context.Context, sim config.SimulationConfig, entry, exit carpark.Sensor, log *logging.Logger) error {
	for range sim.Entries {
		if _, err := entry.DetectVehicle(ctx); err != nil {
			return fmt.Errorf("entry detection: %w", err)
		}
	}

	for range sim.Exits {
		_, err := exit.DetectVehicle(ctx)
		switch {
		case errors.Is(err, sensor.ErrNoVehiclePresent):
			log.Warn("exit detection skipped", "reason", err)
		case err != nil:
			return fmt.Errorf("exit detection: %w", err)
		}
	}
	return nil
}

// healthCheck verifies every enabled dependency is healthy.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func mqttQoS(cfg *config.Config) byte {
	return byte(cfg.MQTT.QoS) //nolint:gosec // QoS validated to 0..2
}
