// devicekit resolves device capabilities and serves them.
//
// On start it runs a full resolution pass against the configured platform
// (the local host, or a YAML device profile), caches the results, and
// publishes each completed pass to SQLite history, MQTT, InfluxDB and
// WebSocket clients. Refresh passes run on a timer, on profile changes,
// on MQTT command, or via the REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/devicekit/internal/api"
	"github.com/nerrad567/devicekit/internal/device"
	"github.com/nerrad567/devicekit/internal/deviceinfo"
	"github.com/nerrad567/devicekit/internal/filemanager"
	"github.com/nerrad567/devicekit/internal/history"
	"github.com/nerrad567/devicekit/internal/infrastructure/config"
	"github.com/nerrad567/devicekit/internal/infrastructure/database"
	"github.com/nerrad567/devicekit/internal/infrastructure/influxdb"
	"github.com/nerrad567/devicekit/internal/infrastructure/logging"
	"github.com/nerrad567/devicekit/internal/infrastructure/mqtt"
	"github.com/nerrad567/devicekit/internal/platform/host"
	"github.com/nerrad567/devicekit/internal/platform/profile"
	"github.com/nerrad567/devicekit/internal/reporting"
	"github.com/nerrad567/devicekit/internal/securestore"
	"github.com/nerrad567/devicekit/migrations"
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

// initialPassTimeout bounds how long startup waits for the first pass
// before serving. Serving starts regardless; readers see "ready": false.
const initialPassTimeout = 30 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // composition root wires every component in order
	log := logging.Default()
	log.Info("starting devicekit",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
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

	// Database and migrations
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path(), "migrations_applied", applied)

	// Platform
	platform, profileProvider, err := selectPlatform(cfg.Device)
	if err != nil {
		return err
	}
	log.Info("platform selected", "platform", platform.Name())

	// The dispatcher loop stands in for the UI thread; it runs until
	// every other component has stopped.
	dispatcher := deviceinfo.NewLoopDispatcher(cfg.Device.DispatcherQueue)
	dispatcher.SetLogger(log.Component("dispatcher"))
	dispatchCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		if runErr := dispatcher.Run(dispatchCtx); runErr != nil {
			log.Error("dispatcher stopped", "error", runErr)
		}
	}()
	defer func() {
		stopDispatcher()
		<-dispatchDone
	}()

	engine, err := deviceinfo.NewEngine(deviceinfo.Options{
		Platform:     platform,
		Dispatcher:   dispatcher,
		ProbeTimeout: probeTimeout(cfg.Device.ProbeTimeout),
		Logger:       log.Component("deviceinfo"),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer func() {
		log.Info("stopping resolution engine")
		if closeErr := engine.Close(); closeErr != nil {
			log.Error("error stopping engine", "error", closeErr)
		}
	}()

	// Facade sub-services
	files, err := filemanager.Open(fileRoot(cfg))
	if err != nil {
		return fmt.Errorf("opening file root: %w", err)
	}
	defer files.Close() //nolint:errcheck // Shutdown path

	secureBackend := securestore.NewSQLiteBackend(db.DB)
	dev, err := device.New(ctx, device.Options{
		Engine: engine,
		Defaults: device.Defaults{
			SecureStorage: func(d *device.Device) device.SecureStorage {
				store, storeErr := securestore.ForDevice(d, secureBackend, cfg.Device.SecureStoreFallback)
				if storeErr != nil {
					log.Warn("secure storage unavailable", "error", storeErr)
					return nil
				}
				return store
			},
			FileManager: func() device.FileManager { return files },
		},
		Logger: log.Component("device"),
		Locale: device.SystemLocale(),
	})
	if err != nil {
		return fmt.Errorf("creating device facade: %w", err)
	}
	waitInitialPass(ctx, dev, log)

	historyRepo := history.NewSQLiteRepository(db.DB)
	sinks := []reporting.Sink{reporting.NewHistorySink(historyRepo)}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		sinks = append(sinks, reporting.NewMQTTSink(mqttClient))
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		sinks = append(sinks, reporting.NewInfluxSink(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	// API server (optional)
	var server *api.Server
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log.Component("api"),
			Device:   dev,
			History:  historyRepo,
			DB:       db,
			Version:  version,
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		if influxClient != nil {
			deps.InfluxDB = influxClient
		}
		server, err = api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		sinks = append(sinks, reporting.NewBroadcastSink(server.Hub()))
	} else {
		log.Info("API disabled")
	}

	reporter := reporting.New(dev, reporting.Options{
		Logger: log.Component("reporting"),
	}, sinks...)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return reporter.Run(gctx) })
	g.Go(func() error {
		reporter.RunRefresh(gctx, cfg.Device.RefreshInterval)
		return nil
	})

	// Publish the initial pass; Run only sees passes completed after it subscribed.
	if report, ok := dev.LastReport(); ok {
		if pubErr := reporter.Publish(ctx, report); pubErr != nil {
			log.Warn("publishing initial pass", "error", pubErr)
		}
	}

	if mqttClient != nil {
		if subErr := reporter.ListenCommands(gctx, mqttClient); subErr != nil {
			log.Warn("MQTT refresh commands unavailable", "error", subErr)
		}
	}

	if profileProvider != nil && cfg.Device.WatchProfile {
		watcher := profile.NewWatcher(cfg.Device.ProfilePath, profileProvider, func(p *profile.Profile) {
			log.Info("device profile reloaded", "name", p.Name)
			reporter.TriggerRefresh(gctx, "profile")
		})
		watcher.SetLogger(log.Component("profile"))
		g.Go(func() error { return watcher.Run(gctx) })
	}

	if server != nil {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("DEVICEKIT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// selectPlatform builds the configured capability provider. The profile
// provider is returned separately so it can be watched.
func selectPlatform(cfg config.DeviceConfig) (deviceinfo.Platform, *profile.Provider, error) {
	switch cfg.Platform {
	case config.PlatformProfile:
		p, err := profile.Load(cfg.ProfilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading device profile: %w", err)
		}
		provider := profile.New(p)
		return provider, provider, nil
	default:
		return host.New(host.Options{Root: sysRoot(cfg.SysfsRoot)}), nil, nil
	}
}

// sysRoot maps the configured sysfs mount to the filesystem root the host
// provider reads "sys/..." and "proc/..." under.
func sysRoot(sysfs string) string {
	if sysfs == "" || sysfs == "/sys" {
		return "/"
	}
	return filepath.Dir(filepath.Clean(sysfs))
}

// probeTimeout maps the config convention (zero disables) to the engine
// convention (negative disables).
func probeTimeout(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

func fileRoot(cfg *config.Config) string {
	if cfg.Device.FileRoot != "" {
		return cfg.Device.FileRoot
	}
	return filepath.Join(filepath.Dir(cfg.Database.Path), "files")
}

func waitInitialPass(ctx context.Context, dev *device.Device, log *logging.Logger) {
	wctx, cancel := context.WithTimeout(ctx, initialPassTimeout)
	defer cancel()

	report, err := dev.InitialPass().Wait(wctx)
	if err != nil {
		log.Warn("initial resolution pass still running", "error", err)
		return
	}
	log.Info("initial resolution pass complete",
		"pass_id", report.ID,
		"duration_ms", report.Duration().Milliseconds(),
		"failed", report.Count(deviceinfo.StatusFailed),
		"timed_out", report.Count(deviceinfo.StatusTimedOut),
	)
}

func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
