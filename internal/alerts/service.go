package alerts

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/caretrack/bedside/internal/calls"
	"github.com/caretrack/bedside/internal/dispatch"
	"github.com/caretrack/bedside/internal/records"
	"github.com/caretrack/bedside/internal/schedule"
	"github.com/caretrack/bedside/pkg/config"
	"github.com/caretrack/bedside/pkg/database"
	"github.com/caretrack/bedside/pkg/interfaces"
	"github.com/caretrack/bedside/pkg/logger"
	"github.com/caretrack/bedside/pkg/monitoring"
	"github.com/caretrack/bedside/pkg/types"
)

// Service wires the bedside alert subsystem together: the ward snapshot
// poller feeding the due-time scheduler, the call-session tracker, and the
// dispatcher hub all staff clients subscribe to. It also owns the HTTP
// surface.
type Service struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
	tracing *monitoring.TracingManager
	health  *monitoring.HealthManager

	db        *database.DB
	records   interfaces.RecordsClient
	hub       *dispatch.Hub
	poller    *schedule.Poller
	scheduler *schedule.Scheduler
	tracker   interfaces.CallTracker

	server *http.Server
	cancel context.CancelFunc
}

// New creates a new bedside alert service
func New(cfg *config.Config, log *logger.Logger) (*Service, error) {
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		return nil, err
	}

	var metrics *monitoring.MetricsCollector
	if cfg.Monitoring.Enabled {
		metrics = monitoring.NewMetricsCollector("bedside-alerts")
	}

	var tracing *monitoring.TracingManager
	if cfg.Monitoring.TracingEnabled {
		tracing, err = monitoring.NewTracingManager(&monitoring.TracingConfig{
			ServiceName:    "bedside-alerts",
			ServiceVersion: "1.0.0",
			JaegerEndpoint: cfg.Monitoring.JaegerEndpoint,
			Environment:    "production",
			SamplingRate:   cfg.Monitoring.SamplingRate,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	recordsClient := records.NewRepository(db, log)
	hub := dispatch.NewHub(log, metrics)

	poller := schedule.NewPoller(
		recordsClient,
		log,
		metrics,
		cfg.Scheduler.Department,
		time.Duration(cfg.Scheduler.SnapshotRefresh)*time.Second,
	)

	scheduler := schedule.NewScheduler(
		&cfg.Scheduler,
		log,
		metrics,
		poller,
		schedule.NewInMemoryDedupStore(),
		hub,
	)

	tracker := calls.NewTracker(
		recordsClient,
		hub,
		log,
		metrics,
		time.Duration(cfg.Calls.TTL)*time.Second,
	)

	health := monitoring.NewHealthManager("bedside-alerts")
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))
	// A snapshot older than three refresh intervals degrades health.
	health.RegisterChecker("snapshot", monitoring.NewSnapshotHealthChecker(
		poller.RefreshedAt,
		3*time.Duration(cfg.Scheduler.SnapshotRefresh)*time.Second,
	))

	return &Service{
		config:    cfg,
		logger:    log,
		metrics:   metrics,
		tracing:   tracing,
		health:    health,
		db:        db,
		records:   recordsClient,
		hub:       hub,
		poller:    poller,
		scheduler: scheduler,
		tracker:   tracker,
	}, nil
}

// RaiseCall handles the synchronous call-raise operation
func (s *Service) RaiseCall(ctx context.Context, patientID string) (*types.CallSession, error) {
	return s.tracker.Raise(ctx, patientID)
}

// AcknowledgeCall cancels an active call session
func (s *Service) AcknowledgeCall(patientID string) error {
	return s.tracker.Acknowledge(patientID)
}

// ActiveCalls lists currently active call sessions
func (s *Service) ActiveCalls() []*types.CallSession {
	return s.tracker.Active()
}

// NextDue returns the per-bed next-due projection
func (s *Service) NextDue(departmentFilter string) []*types.NextDueProjection {
	return s.scheduler.NextDue(departmentFilter)
}

// Start launches the poller and tick loop and serves HTTP on addr
func (s *Service) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.poller.Run(ctx)
	go s.scheduler.Run(ctx)

	router := mux.NewRouter()
	s.setupRoutes(router)

	var handler http.Handler = router
	if s.metrics != nil {
		handler = s.metrics.HTTPMiddleware(handler)
	}
	if s.tracing != nil {
		handler = s.tracing.HTTPMiddleware(handler)
	}

	s.server = &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: time.Duration(s.config.Server.ReadTimeout) * time.Second,
		IdleTimeout: time.Duration(s.config.Server.IdleTimeout) * time.Second,
		// No write timeout: the event stream endpoint holds its
		// connection open indefinitely.
	}

	s.logger.Infof("Starting bedside alert service on %s", addr)
	return s.server.ListenAndServe()
}

// Stop shuts the service down: HTTP first, then the background loops, the
// call timers and the subscriber connections.
func (s *Service) Stop() error {
	s.logger.Info("Stopping bedside alert service")

	var err error
	if s.server != nil {
		err = s.server.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.tracker.Stop()
	s.hub.Close()

	if s.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := s.tracing.Shutdown(ctx); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}

	if dbErr := s.db.Close(); dbErr != nil && err == nil {
		err = dbErr
	}
	return err
}
