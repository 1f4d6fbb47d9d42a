// Q-SYS Bridge - control-plane gateway for Q-SYS cores
//
// This is the main entry point for the bridge. It connects to a Q-SYS
// core's QRC interface over TCP and exposes the core's control surface
// through a REST + WebSocket API, with optional MQTT and InfluxDB
// fan-out of change-group events.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avlogic/qsys-bridge/internal/api"
	"github.com/avlogic/qsys-bridge/internal/changegroup"
	"github.com/avlogic/qsys-bridge/internal/control"
	"github.com/avlogic/qsys-bridge/internal/eventcache"
	"github.com/avlogic/qsys-bridge/internal/infrastructure/config"
	"github.com/avlogic/qsys-bridge/internal/infrastructure/influxdb"
	"github.com/avlogic/qsys-bridge/internal/infrastructure/logging"
	"github.com/avlogic/qsys-bridge/internal/infrastructure/mqtt"
	"github.com/avlogic/qsys-bridge/internal/qrc"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
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
	log.Info("starting Q-SYS Bridge",
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

	// Connect to the core's QRC interface
	client, err := qrc.Dial(ctx, qrc.Options{
		Address:           cfg.CoreAddress(),
		ConnectTimeout:    cfg.GetConnectTimeout(),
		ResponseTimeout:   cfg.GetResponseTimeout(),
		KeepaliveInterval: cfg.GetKeepaliveInterval(),
		Logger:            log,
		OnNotification: func(method string, _ json.RawMessage) {
			log.Debug("core notification", "method", method)
		},
	})
	if err != nil {
		return fmt.Errorf("connecting to core: %w", err)
	}
	defer func() {
		log.Info("closing QRC connection")
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing QRC connection", "error", closeErr)
		}
	}()
	log.Info("QRC connected", "address", cfg.CoreAddress())

	// Control surface over the QRC transport
	controller := control.NewController(client)
	controller.SetLogger(log)

	// Event cache with configured retention defaults
	cache := eventcache.NewCache(
		eventcache.WithDefaultPolicy(eventcache.Policy{
			MaxAge:    time.Duration(cfg.Cache.MaxAgeMS) * time.Millisecond,
			MaxEvents: cfg.Cache.MaxEvents,
			Priority:  eventcache.PriorityNormal,
		}),
		eventcache.WithGlobalMaxEvents(cfg.Cache.GlobalMaxEvents),
		eventcache.WithQueryTimeout(cfg.GetQueryTimeout()),
		eventcache.WithLogger(log),
	)

	// Change-group registry records polled changes into the cache
	registry := changegroup.NewRegistry(client, cache)
	registry.SetLogger(log)
	defer func() {
		log.Info("stopping auto-poll schedulers")
		registry.StopAll()
	}()

	// Connect to MQTT broker (optional)
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		registry.AddSink(mqtt.NewChangeSink(mqttClient, byte(cfg.MQTT.QoS), log))
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		registry.AddSink(influxdb.NewChangeSink(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	// API server; its WebSocket hub fans change events out to browsers
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Controls: controller,
		Groups:   registry,
		Events:   cache,
		QRC:      client,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	registry.AddSink(server.Hub())

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, client, server, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Seed the status sinks so retained MQTT state and the telemetry
	// series start from a known value.
	if mqttClient != nil || influxClient != nil {
		var statusPub statusPublisher
		if mqttClient != nil {
			statusPub = mqttClient
		}
		var statusWr statusWriter
		if influxClient != nil {
			statusWr = influxClient
		}
		if err := publishCoreStatus(ctx, controller, statusPub, statusWr); err != nil {
			log.Warn("initial core status publish failed", "error", err)
		}
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Auto-poll schedulers
	// 5. QRC connection

	log.Info("Q-SYS Bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses QSYSBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("QSYSBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// statusSource, statusPublisher and statusWriter are the narrow surfaces
// publishCoreStatus needs, satisfied by *control.Controller, *mqtt.Client
// and *influxdb.Client.
type statusSource interface {
	Status(ctx context.Context) (control.CoreStatus, error)
}

type statusPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

type statusWriter interface {
	WriteCoreStatus(designName string, code int, state string)
}

// publishCoreStatus fetches the core's engine status once and mirrors it to
// the configured sinks. Either sink may be nil.
func publishCoreStatus(ctx context.Context, source statusSource, pub statusPublisher, writer statusWriter) error {
	status, err := source.Status(ctx)
	if err != nil {
		return fmt.Errorf("fetching core status: %w", err)
	}

	if pub != nil {
		payload, err := json.Marshal(status)
		if err != nil {
			return fmt.Errorf("marshalling core status: %w", err)
		}
		if err := pub.PublishRetained(mqtt.Topics{}.CoreStatus(), payload); err != nil {
			return fmt.Errorf("publishing core status: %w", err)
		}
	}

	if writer != nil {
		writer.WriteCoreStatus(status.DesignName, status.Status.Code, status.State)
	}
	return nil
}

// healthCheck verifies all connections are healthy. The MQTT and InfluxDB
// clients may be nil when those integrations are disabled.
func healthCheck(ctx context.Context, client *qrc.Client, server *api.Server, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if !client.IsConnected() {
		return fmt.Errorf("qrc: not connected")
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
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
