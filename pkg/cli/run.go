package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getfleetsim/fleetsim/pkg/broker"
	"github.com/getfleetsim/fleetsim/pkg/config"
	"github.com/getfleetsim/fleetsim/pkg/device"
	"github.com/getfleetsim/fleetsim/pkg/events"
	"github.com/getfleetsim/fleetsim/pkg/export"
	"github.com/getfleetsim/fleetsim/pkg/hub"
	"github.com/getfleetsim/fleetsim/pkg/logging"
	"github.com/getfleetsim/fleetsim/pkg/metrics"
	"github.com/getfleetsim/fleetsim/pkg/simulation"
	"github.com/getfleetsim/fleetsim/pkg/store"
)

const shutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the device fleet until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		duration, _ := cmd.Flags().GetDuration("duration")
		exportFormat, _ := cmd.Flags().GetString("export")

		cfg := config.Default()
		if path != "" {
			loaded, err := config.LoadFromFile(path)
			if err != nil {
				return err
			}
			cfg = loaded
		}

		return runFleet(cmd.Context(), cfg, duration, exportFormat)
	},
}

func init() {
	runCmd.Flags().StringP("config", "f", "", "Config file path (defaults apply when omitted)")
	runCmd.Flags().Duration("duration", 0, "Stop automatically after this long (0 = run until interrupted)")
	runCmd.Flags().String("export", "", "Export a metrics snapshot on shutdown (json or csv)")
	rootCmd.AddCommand(runCmd)
}

// runFleet wires the whole simulator together and blocks until a signal or
// the optional duration elapses.
func runFleet(parent context.Context, cfg *config.Config, duration time.Duration, exportFormat string) error {
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: logging.ParseFormat(cfg.Logging.Format),
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus(log)
	collector := metrics.NewCollector(bus)

	templates, err := store.New(cfg.TemplateDir, bus, log)
	if err != nil {
		return err
	}
	templates.SeedBuiltins()
	for i := range cfg.Templates {
		if err := templates.Save(&cfg.Templates[i]); err != nil {
			return fmt.Errorf("template %q: %w", cfg.Templates[i].Name, err)
		}
	}

	// Embedded broker when asked for, or implied by hub mode.
	var localBroker *broker.Broker
	if cfg.Broker.Enabled || cfg.Hub.Mode == config.ModeEmbedded {
		localBroker, err = broker.New(cfg.Broker.Port, log)
		if err != nil {
			return err
		}
		if err := localBroker.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := localBroker.Stop(stopCtx, shutdownTimeout); err != nil {
				log.Warn("broker shutdown failed", "error", err)
			}
		}()
	}

	manager := device.NewManager(bus, log)
	engine := simulation.NewEngine(log)

	if err := buildFleet(cfg, templates, manager, engine, collector, bus, log); err != nil {
		return err
	}

	// Simulation lifecycle events keep the collector's active-device counter
	// in step with the engine.
	unsubscribe := wireStatusGlue(bus, manager, collector)
	defer unsubscribe()

	for id, err := range manager.ConnectAll(ctx) {
		if err != nil {
			log.Warn("device connect failed", "deviceId", id, "error", err)
		}
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			log.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	engine.StartAll()
	summary := manager.Summary()
	log.Info("fleet running",
		"devices", summary.TotalDevices,
		"connected", summary.ConnectedDevices,
		"hubMode", cfg.Hub.Mode)

	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			log.Info("run duration elapsed", "duration", duration)
		}
	} else {
		<-ctx.Done()
	}

	log.Info("shutting down")
	engine.StopAll()
	manager.DisconnectAll()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown failed", "error", err)
		}
	}

	if exportFormat != "" {
		exporter, err := export.New(cfg.Export.Dir, log)
		if err != nil {
			return err
		}
		path, err := exporter.Write(collector.Snapshot(), exportFormat)
		if err != nil {
			return err
		}
		log.Info("final snapshot exported", "path", path)
	}

	stats := engine.Statistics()
	log.Info("fleet stopped",
		"messages", stats.TotalMessages,
		"errors", stats.TotalErrors)
	return nil
}

// buildFleet creates a device and a simulation for every configured device
// entry.
func buildFleet(
	cfg *config.Config,
	templates *store.Store,
	manager *device.Manager,
	engine *simulation.Engine,
	collector *metrics.Collector,
	bus *events.Bus,
	log *slog.Logger,
) error {
	for i := range cfg.Devices {
		dc := &cfg.Devices[i]

		tmpl, err := templates.Template(dc.Template)
		if err != nil {
			return fmt.Errorf("device template %q: %w", dc.Template, err)
		}
		tmpl.SetLogger(log)

		simCfg := cfg.Defaults
		if dc.Simulation != nil {
			simCfg = *dc.Simulation
		}

		for _, id := range dc.DeviceIDs() {
			sender, err := buildSender(cfg, dc, id, log)
			if err != nil {
				return fmt.Errorf("device %s: %w", id, err)
			}

			dev := device.New(id, dc.Template, sender, bus, collector, log)
			manager.Add(dev)
			engine.Add(simulation.NewDeviceSimulation(id, tmpl, simCfg, dev, bus, log))
		}
	}
	return nil
}

// buildSender picks the delivery path for one device based on the hub mode.
func buildSender(cfg *config.Config, dc *config.DeviceConfig, deviceID string, log *slog.Logger) (hub.Sender, error) {
	switch cfg.Hub.Mode {
	case config.ModeMQTT:
		raw := dc.ConnectionString
		if raw == "" {
			raw = cfg.Hub.ConnectionString
		}
		cs, err := hub.ParseConnectionString(raw)
		if err != nil {
			return nil, err
		}
		// Grouped devices share one connection string; each device still
		// publishes under its own id.
		cs.DeviceID = deviceID
		return hub.NewMQTTSender(cs, hub.WithSenderLogger(log)), nil

	case config.ModeEmbedded:
		cs := &hub.ConnectionString{
			HostName: fmt.Sprintf("localhost:%d", brokerPort(cfg)),
			DeviceID: deviceID,
		}
		return hub.NewMQTTSender(cs, hub.WithSenderLogger(log)), nil

	default:
		return &hub.LoopbackSender{
			FailureRate: cfg.Hub.FailureRate,
			Delay:       cfg.Hub.Delay.Std(),
		}, nil
	}
}

func brokerPort(cfg *config.Config) int {
	if cfg.Broker.Port > 0 {
		return cfg.Broker.Port
	}
	return broker.DefaultPort
}

// wireStatusGlue mirrors simulation start/stop events into the metrics
// collector so activeDevices tracks the engine. Returns an unsubscribe
// function covering both subscriptions.
func wireStatusGlue(bus *events.Bus, manager *device.Manager, collector *metrics.Collector) func() {
	update := func(simulating bool) events.Handler {
		return func(evt events.Event) {
			data, ok := evt.Data.(map[string]any)
			if !ok {
				return
			}
			id, ok := data["deviceId"].(string)
			if !ok {
				return
			}
			connected := false
			if dev := manager.Get(id); dev != nil {
				connected = dev.Connected()
			}
			collector.UpdateDeviceStatus(id, metrics.DeviceStatus{
				Connected:  connected,
				Simulating: simulating,
			})
		}
	}

	unsubStart := bus.Subscribe(events.SimulationStarted, update(true))
	unsubStop := bus.Subscribe(events.SimulationStopped, update(false))
	return func() {
		unsubStart()
		unsubStop()
	}
}
