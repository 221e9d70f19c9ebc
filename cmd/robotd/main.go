// robotd - robot command sequencer
//
// robotd stores named sequences of robot actions, runs them one at a time
// against a robot over MQTT, and fires them from daily, weekday, weekend or
// one-off schedules. Operators drive it through the REST API and watch runs
// over the WebSocket event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/nerrad567/robot-sequencer/internal/api"
	"github.com/nerrad567/robot-sequencer/internal/audit"
	"github.com/nerrad567/robot-sequencer/internal/dispatch"
	"github.com/nerrad567/robot-sequencer/internal/event"
	"github.com/nerrad567/robot-sequencer/internal/execution"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/config"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/database"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/influxdb"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/logging"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/mqtt"
	"github.com/nerrad567/robot-sequencer/internal/schedule"
	"github.com/nerrad567/robot-sequencer/internal/sequence"
	"github.com/nerrad567/robot-sequencer/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C or SIGTERM so run can shut down cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newCommand builds the robotd command tree. serve is the default action.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "robotd",
		Usage:   "Robot command sequencer and scheduler",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars("ROBOTD_CONFIG"),
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the sequencer, scheduler and API server",
				Action: serveAction,
			},
			newMigrateCommand(),
			{
				Name:  "version",
				Usage: "Print build information",
				Action: func(_ context.Context, command *cli.Command) error {
					_, err := fmt.Fprintf(command.Root().Writer, "robotd %s (commit %s, built %s)\n", version, commit, date)
					return err
				},
			},
		},
	}
}

func serveAction(ctx context.Context, command *cli.Command) error {
	return run(ctx, command.String("config"))
}

// run is the serve logic, separated from the CLI for testability.
// It blocks until ctx is cancelled, then tears components down in reverse
// start order.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting robotd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Stores
	seqStore := sequence.NewStore(sequence.NewSQLiteRepository(db.DB))
	seqStore.SetLogger(log.Component("sequence"))
	if refreshErr := seqStore.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading sequences: %w", refreshErr)
	}

	schedStore := schedule.NewStore(schedule.NewSQLiteRepository(db.DB), seqStore)
	schedStore.SetLogger(log.Component("schedule"))
	if refreshErr := schedStore.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading schedules: %w", refreshErr)
	}
	seqStore.SetScheduleReferences(schedStore, sequence.DeletePolicy(cfg.Sequences.DeletePolicy))
	log.Info("stores initialised",
		"sequences", seqStore.Count(),
		"schedules", schedStore.Count(),
		"delete_policy", cfg.Sequences.DeletePolicy,
	)

	checks := map[string]api.HealthChecker{"database": db}
	sink := event.NewMulti(event.NewLogSink(log.Component("events")))
	sink.SetLogger(log)

	// Robot transport
	var (
		dispatcher dispatch.Dispatcher
		mqttClient *mqtt.Client
	)
	switch cfg.Dispatcher.Mode {
	case config.DispatcherModeSimulated:
		dispatcher = dispatch.NewSimulated(cfg.Robot.ID, cfg.GetSimulatedLatency(), log.Component("dispatch"))
		log.Warn("simulated dispatcher in use, no commands reach the robot", "robot_id", cfg.Robot.ID)
	default:
		mqttClient, err = connectMQTT(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()

		md := dispatch.NewMQTTDispatcher(mqttClient, cfg.Robot.ID,
			dispatch.WithAckTimeout(cfg.GetAckTimeout()),
			dispatch.WithLogger(log.Component("dispatch")),
		)
		if startErr := md.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT dispatcher: %w", startErr)
		}
		dispatcher = md
		checks["mqtt"] = mqttClient
		sink.Add(event.NewPublishSink(mqttClient, log.Component("events")))
		log.Info("MQTT dispatcher ready",
			"robot_id", cfg.Robot.ID,
			"command_topic", mqttClient.Topics().RobotCommand(cfg.Robot.ID),
			"ack_timeout", cfg.GetAckTimeout(),
		)
	}

	// Run metrics (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		checks["influxdb"] = influxClient
		sink.Add(influxdb.NewMetricsSink(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	auditRepo := audit.NewSQLiteRepository(db.DB)
	sink.Add(audit.NewRecorder(auditRepo, log.Component("audit")))

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	sink.Add(hub)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	schedStore.SetSink(sink)

	executor := execution.NewExecutor(seqStore, sink,
		execution.WithLogger(log.Component("executor")),
		execution.WithMaxQueue(cfg.Executor.MaxQueue),
		execution.WithHistorySize(cfg.Executor.HistorySize),
	)
	defer func() {
		log.Info("stopping executor")
		executor.Close()
	}()

	engine := schedule.NewEngine(schedStore, seqStore, executor, dispatcher,
		schedule.WithLocation(cfg.Location()),
		schedule.WithSink(sink),
		schedule.WithLogger(log.Component("scheduler")),
	)
	if cfg.Scheduler.Enabled {
		if startErr := engine.Start(ctx); startErr != nil {
			return fmt.Errorf("starting schedule engine: %w", startErr)
		}
		defer func() {
			log.Info("stopping schedule engine")
			engine.Stop()
		}()
	} else {
		log.Info("schedule engine disabled")
	}

	deps := api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log.Component("api"),
		Sequences:  seqStore,
		Schedules:  schedStore,
		Executor:   executor,
		Dispatcher: dispatcher,
		Audit:      auditRepo,
		Hub:        hub,
		Location:   cfg.Location(),
		Checks:     checks,
		DB:         db,
		Version:    version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server listening", "addr", server.Addr())

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: API server, schedule engine, executor,
	// hub, InfluxDB, MQTT, database.
	return nil
}

// openDatabase opens the configured SQLite file.
func openDatabase(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path)
	return db, nil
}

// connectMQTT connects to the broker and installs connection logging.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}
