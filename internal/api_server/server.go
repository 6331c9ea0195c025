package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/openpim/catalog-bulk/internal/auth"
	"github.com/openpim/catalog-bulk/internal/config"
	handlers "github.com/openpim/catalog-bulk/internal/handlers/v1"
	"github.com/openpim/catalog-bulk/internal/jobs"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/storage"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/pkg/log"
	"github.com/openpim/catalog-bulk/pkg/metrics"
	"github.com/openpim/catalog-bulk/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	queueStopTimeout        = 30 * time.Second
)

const (
	QueueRiver  = "river"
	QueueMemory = "memory"
)

// workerQueue is a Queue that also runs the jobs it hands out.
type workerQueue interface {
	jobs.Queue
	Bind(h jobs.Handlers)
	Start(ctx context.Context) error
}

type Server struct {
	cfg      *config.Config
	store    store.Store
	blob     storage.Blob
	listener net.Listener
}

// New returns a new instance of the bulk catalog server.
func New(
	cfg *config.Config,
	store store.Store,
	blob storage.Blob,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		blob:     blob,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	authenticator, err := auth.NewAuthenticator(s.cfg.Service.Auth)
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	validator, err := requestValidator(s.cfg.Service.MaxUploadSize)
	if err != nil {
		return err
	}

	queue, stopQueue, err := s.newQueue(ctx)
	if err != nil {
		return err
	}
	defer stopQueue()

	importService := service.NewImportService(s.store, s.blob, queue, s.cfg)
	exportService := service.NewExportService(s.store, s.blob, queue, s.cfg)

	// the services hold the queue, so handlers are bound once both exist
	queue.Bind(jobs.Handlers{Imports: importService, Exports: exportService, Purger: exportService})
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s queue: %w", s.cfg.Queue.Type, err)
	}
	zap.S().Named("api_server").Infof("%s job queue initialized", s.cfg.Queue.Type)

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	if err := metricMiddleware.Register(prometheus.DefaultRegisterer); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return fmt.Errorf("failed to register http metrics: %w", err)
		}
	}

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Service.AllowedOrigins,
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		log.ConditionalLogger(s.cfg.Service.LogLevel, zap.L(), "api_server"),
		chiMiddleware.Recoverer,
	)
	router.Get("/health", handlers.Health)

	h := handlers.NewServiceHandler(
		importService,
		exportService,
		service.NewTemplateService(),
		service.NewMappingService(s.store),
		s.cfg.Service.MaxUploadSize,
	)
	router.Group(func(r chi.Router) {
		r.Use(authenticator.Authenticator, validator)
		h.Register(r)
	})

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// newQueue builds the configured queue and the function releasing it. River needs
// postgres, the memory queue works with any store.
func (s *Server) newQueue(ctx context.Context) (workerQueue, func(), error) {
	switch s.cfg.Queue.Type {
	case QueueMemory:
		q := jobs.NewMemoryQueue(
			jobs.WithWorkers(s.cfg.Queue.Workers),
			jobs.WithMaxAttempts(s.cfg.Queue.MaxAttempts),
			jobs.WithPurgeInterval(s.cfg.Export.PurgeInterval),
		)
		return q, func() {}, nil

	case QueueRiver:
		if s.cfg.Database.Type != store.TypePgsql {
			return nil, nil, fmt.Errorf("the river queue requires postgres, database type is %q", s.cfg.Database.Type)
		}
		pool, err := jobs.NewPool(ctx, s.cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		client, err := jobs.NewClient(pool, s.cfg)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		stop := func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), queueStopTimeout)
			defer cancel()
			if err := client.Stop(stopCtx); err != nil {
				zap.S().Named("api_server").Warnw("failed to stop river client", "error", err)
			}
			pool.Close()
		}
		return client, stop, nil

	default:
		return nil, nil, fmt.Errorf("unknown queue type %q", s.cfg.Queue.Type)
	}
}
