package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dmdmdm-nz/reachd/internal/advertise"
	"github.com/dmdmdm-nz/reachd/internal/api"
	"github.com/dmdmdm-nz/reachd/internal/dispatch"
	"github.com/dmdmdm-nz/reachd/internal/notify"
	"github.com/dmdmdm-nz/reachd/internal/provider"
	"github.com/dmdmdm-nz/reachd/internal/reachability"
	"github.com/dmdmdm-nz/reachd/internal/runtime"
	"github.com/dmdmdm-nz/reachd/pkg/cli"
)

func main() {
	// Parse command line flags
	cfg := cli.ParseFlags()

	// Configure logging
	setLogLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})

	log.Infof("Config: %s", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	factory, err := provider.NewFactory(provider.Config{
		Watcher:      cfg.Watcher,
		PollInterval: cfg.PollInterval,
		ProbeAddress: cfg.ProbeAddress,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to configure reachability provider")
	}
	log.Infof("Using %s watcher", factory.WatcherKind())

	opts := []reachability.Option{
		reachability.WithMetrics(reachability.NewMetrics(prometheus.DefaultRegisterer)),
		reachability.WithBroadcast(notify.Default()),
	}
	if cfg.SuppressDuplicates {
		opts = append(opts, reachability.WithSuppressDuplicates())
	}

	// Changes are broadcast process-wide; log them from the main queue.
	notify.Default().AddObserver(reachability.ChangedNotification, func(n notify.Notification) {
		m, ok := n.Sender.(*reachability.Monitor)
		if !ok {
			return
		}
		snap, _ := n.Info[reachability.SnapshotKey].(reachability.Snapshot)
		log.WithFields(log.Fields{
			"target": m.Target().String(),
			"status": snap.Status().String(),
		}).Debug("Reachability notification")
	})

	monitors := make([]*reachability.Monitor, 0, 1+len(cfg.WatchHosts))
	m, err := reachability.NewDefaultRoute(factory, opts...)
	if err != nil {
		log.WithError(err).Fatal("Failed to monitor the default route")
	}
	monitors = append(monitors, m)

	for _, host := range cfg.WatchHosts {
		m, err := reachability.NewHostName(factory, host, opts...)
		if err != nil {
			log.WithField("host", host).WithError(err).Error("Failed to monitor host")
			continue
		}
		monitors = append(monitors, m)
	}

	apiSvc := api.NewService(cfg.Host, cfg.Port, nil)
	for _, m := range monitors {
		apiSvc.AttachMonitor(m)
	}

	closeMonitors := func() error {
		var err error
		for _, m := range monitors {
			err = multierr.Append(err, m.Close())
		}
		log.WithField("processed", dispatch.Main().Processed()).Debug("Main queue drained")
		return err
	}

	// Closed in reverse: api first, then the monitors.
	super := runtime.NewSupervisor()
	super.Add("monitors", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, closeMonitors)
	super.Add("api", func(ctx context.Context) error { return apiSvc.Start(ctx) }, apiSvc.Close)
	if cfg.Advertise {
		hostname, _ := os.Hostname()
		adv := advertise.New("reachd-"+hostname, cfg.Port, monitors[0])
		super.Add("advertise", adv.Start, adv.Close)
	}

	if err := super.Start(ctx); err != nil {
		log.WithError(err).Error("Supervisor start failed")
		os.Exit(1)
	}
	if err := super.Wait(ctx); err != nil {
		log.WithError(err).Error("Supervisor wait failed")
		os.Exit(1)
	}
}

func setLogLevel(level string) {
	switch level {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}
