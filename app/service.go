// Package app wires the plan manager, its collaborators and the HTTP API
// into a long-running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	journalapi "github.com/kilianp07/dayplan/api/journal"
	plansapi "github.com/kilianp07/dayplan/api/plans"
	"github.com/kilianp07/dayplan/app/plugins"
	"github.com/kilianp07/dayplan/config"
	"github.com/kilianp07/dayplan/connectors/factory"
	"github.com/kilianp07/dayplan/core/dayplan"
	"github.com/kilianp07/dayplan/core/journal"
	coremetrics "github.com/kilianp07/dayplan/core/metrics"
	coremon "github.com/kilianp07/dayplan/core/monitoring"
	"github.com/kilianp07/dayplan/core/notify"
	"github.com/kilianp07/dayplan/core/store"
	"github.com/kilianp07/dayplan/infra/logger"
	"github.com/kilianp07/dayplan/infra/metrics"
	"github.com/kilianp07/dayplan/infra/monitoring"
	"github.com/kilianp07/dayplan/infra/mqtt"
	"github.com/kilianp07/dayplan/internal/eventbus"
)

const openTimeout = 30 * time.Second

// Service orchestrates the plan manager, the background workers and the
// HTTP API.
type Service struct {
	Manager  *dayplan.Manager
	cfg      *config.Config
	store    store.PlanStore
	journal  journal.Store
	notifier *mqtt.Notifier
	sink     coremetrics.MetricsSink
	bus      *eventbus.Bus
	watcher  *Watcher
	handler  http.Handler
	log      logger.Logger
}

// New creates a Service from the configuration. Resources opened before a
// failure are released.
func New(cfg *config.Config) (svc *Service, err error) {
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	s := &Service{cfg: cfg, bus: eventbus.New(), log: logger.New("service")}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if s.store, err = plugins.OpenStore(ctx, cfg.Store); err != nil {
		return nil, err
	}

	providers, err := factory.NewProviders(cfg.Calendar, cfg.Exit)
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}
	rules, err := cfg.Planner.Rules()
	if err != nil {
		return nil, fmt.Errorf("planner rules: %w", err)
	}
	mgr, err := dayplan.NewManager(s.store, providers.Commitments, providers.Tasks,
		providers.Routines, providers.Exits, rules, logger.New("planner"))
	if err != nil {
		return nil, fmt.Errorf("plan manager: %w", err)
	}
	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	mgr.SetMetricsSink(s.sink)
	mgr.SetEventBus(s.bus)
	s.Manager = mgr

	if s.journal, err = journal.Open(cfg.Journal); err != nil {
		return nil, err
	}

	var n notify.Notifier = notify.Nop{}
	if cfg.MQTT.Enabled() {
		if s.notifier, err = mqtt.NewNotifier(cfg.MQTT); err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		n = s.notifier
	}
	s.watcher = NewWatcher(mgr, n, s.bus, cfg.Watch.Interval(), logger.New("watcher"))
	s.handler = s.routes()
	return s, nil
}

func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()
	plans := plansapi.NewHandler(s.Manager, s.cfg.HTTP.Token, logger.New("api"))
	mux.Handle("/api/plans", plans)
	mux.Handle("/api/plans/", plans)
	if s.journal != nil {
		mux.Handle("/api/journal", journalapi.NewHandler(s.journal, s.cfg.HTTP.Token))
	}
	mux.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	return mux
}

// Handler returns the HTTP handler serving the API and metrics.
func (s *Service) Handler() http.Handler { return s.handler }

// Run starts the background workers and the HTTP server and blocks until
// ctx is canceled or the server fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := []<-chan struct{}{
		metrics.StartEventCollector(ctx, s.bus, s.sink),
	}
	if s.journal != nil {
		workers = append(workers, journal.StartRecorder(ctx, s.bus, s.journal, logger.New("journal")))
	}
	if s.notifier != nil {
		workers = append(workers, StartPlanBridge(ctx, s.bus, s.Manager, s.notifier, logger.New("bridge")))
	}
	if !s.cfg.Watch.Disabled {
		workers = append(workers, s.watcher.Start(ctx))
	}

	ln, err := net.Listen("tcp", s.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.HTTP.Addr, err)
	}
	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	coremon.Go("http-server", func() {
		s.log.Infof("listening on %s", ln.Addr())
		serveErr <- srv.Serve(ln)
	})

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout())
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("http shutdown: %v", err)
	}
	for _, done := range workers {
		<-done
	}
	return runErr
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.bus != nil {
		s.bus.Close()
	}
	if s.notifier != nil {
		s.notifier.Disconnect()
	}
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	errs = append(errs, logger.Close())
	return errors.Join(errs...)
}
