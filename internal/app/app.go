// Package app wires the services of macrolog together and runs the HTTP
// server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/macrolog-backend/internal/adapter/memory"
	"github.com/heartmarshall/macrolog-backend/internal/adapter/postgres"
	"github.com/heartmarshall/macrolog-backend/internal/adapter/postgres/daylog"
	userrepo "github.com/heartmarshall/macrolog-backend/internal/adapter/postgres/user"
	"github.com/heartmarshall/macrolog-backend/internal/adapter/provider/claude"
	"github.com/heartmarshall/macrolog-backend/internal/adapter/speech"
	"github.com/heartmarshall/macrolog-backend/internal/auth"
	"github.com/heartmarshall/macrolog-backend/internal/config"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/daycache"
	"github.com/heartmarshall/macrolog-backend/internal/service/extraction"
	"github.com/heartmarshall/macrolog-backend/internal/service/journal"
	"github.com/heartmarshall/macrolog-backend/internal/service/lifecycle"
	"github.com/heartmarshall/macrolog-backend/internal/service/reconcile"
	"github.com/heartmarshall/macrolog-backend/internal/service/targets"
	usersvc "github.com/heartmarshall/macrolog-backend/internal/service/user"
	"github.com/heartmarshall/macrolog-backend/internal/transport/middleware"
	"github.com/heartmarshall/macrolog-backend/internal/transport/rest"
)

// Completer is the structured-extraction backend.
type Completer interface {
	Complete(ctx context.Context, system, user string) ([]byte, error)
}

// DayStore is the persistence gateway of daily logs, entries and targets.
type DayStore interface {
	GetDay(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error)
	ListDays(ctx context.Context, userID uuid.UUID, dates []string) ([]*domain.DailyLog, error)
	EnsureDay(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error)
	ReplaceDayEntries(ctx context.Context, userID, dayID uuid.UUID, result *domain.ExtractionResult) (*domain.DailyLog, error)
	UpdateDayTargets(ctx context.Context, userID uuid.UUID, date string, t domain.MacroTargets) (bool, error)
	GetTargets(ctx context.Context, userID uuid.UUID) (*domain.MacroTargets, error)
	UpsertTargets(ctx context.Context, t domain.MacroTargets) error
	GetEntry(ctx context.Context, userID, entryID uuid.UUID) (*domain.FoodEntry, string, error)
	AddEntry(ctx context.Context, userID uuid.UUID, date string, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, error)
	UpdateEntry(ctx context.Context, userID, entryID uuid.UUID, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, string, error)
	DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) (string, error)
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, id uuid.UUID, name, timezone *string) (*domain.User, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Option customizes New.
type Option func(*options)

type options struct {
	clock     clockwork.Clock
	completer Completer
}

// WithClock replaces the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithCompleter replaces the Anthropic extraction backend.
func WithCompleter(c Completer) Option {
	return func(o *options) { o.completer = c }
}

// App holds the wired components.
type App struct {
	cfg   *config.Config
	log   *slog.Logger
	clock clockwork.Clock

	Users        UserStore
	Days         DayStore
	Cache        *daycache.Cache
	Hub          *lifecycle.Hub
	Relay        *speech.Relay
	Extraction   *extraction.Service
	Orchestrator *reconcile.Orchestrator
	Journal      *journal.Service
	Targets      *targets.Service
	Profiles     *usersvc.Service
	Tokens       *auth.TokenManager

	tx      txManager
	limiter *middleware.RateLimiter
	pingers map[string]rest.Pinger
	closers []func()
}

// New opens storage and builds every service. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:     cfg,
		log:     logger,
		clock:   o.clock,
		pingers: make(map[string]rest.Pinger),
	}
	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}

	completer := o.completer
	if completer == nil {
		if cfg.Extraction.APIKey == "" {
			logger.Warn("extraction api key is not set, logging requests will fail")
		}
		completer = claude.NewProvider(logger, cfg.Extraction)
	}
	ext, err := extraction.NewService(logger, completer, a.clock, cfg.Extraction)
	if err != nil {
		a.closeStorage()
		return nil, fmt.Errorf("app: extraction: %w", err)
	}
	a.Extraction = ext

	a.Cache = daycache.New(logger, a.Days, a.clock, cfg.Cache)
	a.Hub = lifecycle.NewHub(logger)
	a.Relay = speech.NewRelay(logger)
	a.Orchestrator = reconcile.New(logger, ext, a.Days, a.Cache, a.Hub, a.Relay.Transducer, a.clock, reconcile.Config{
		PriorDays:              cfg.Extraction.PriorDays,
		SaveWatchdog:           cfg.Reconcile.SaveWatchdog,
		FinalTranscriptTimeout: cfg.Capture.FinalTranscriptTimeout,
	})
	a.Journal = journal.NewService(logger, a.Days, a.Cache, a.clock)
	a.Targets = targets.NewService(logger, a.Days, a.tx, a.Cache, a.clock)
	a.Profiles = usersvc.NewService(logger, a.Users)
	a.Tokens = auth.NewTokenManager(cfg.Auth, a.clock)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	if a.cfg.Database.Driver == config.DriverMemory {
		store := memory.NewStore(a.clock)
		a.Days, a.Users, a.tx = store, store, store
		a.log.Info("using in-memory storage")
		return nil
	}

	pool, err := postgres.NewPool(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("app: connect to database: %w", err)
	}
	a.Days = daylog.New(pool)
	a.Users = userrepo.New(pool)
	a.tx = postgres.NewTxManager(pool)
	a.pingers["database"] = pool
	a.closers = append(a.closers, pool.Close)
	return nil
}

func (a *App) closeStorage() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Handler builds the HTTP handler with the full middleware chain.
func (a *App) Handler() http.Handler {
	if a.limiter == nil {
		a.limiter = middleware.NewRateLimiter(a.clock, a.cfg.RateLimit.CleanupInterval)
	}

	mux := rest.NewMux(rest.Routes{
		Health:   rest.NewHealthHandler(a.pingers, BuildVersion(), a.clock),
		Log:      rest.NewLogHandler(a.Orchestrator, a.Relay, a.Hub, a.log),
		Days:     rest.NewDayHandler(a.Journal, a.log),
		Targets:  rest.NewTargetsHandler(a.Targets, a.log),
		Profile:  rest.NewProfileHandler(a.Profiles, a.log),
		Auth:     middleware.Auth(a.Tokens),
		LogLimit: a.limiter.Limit(a.cfg.RateLimit.LogPerMinute),
	})

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Logger(a.log),
		middleware.Recovery(a.log),
		middleware.CORS(a.cfg.CORS),
		middleware.Timezone(domain.ParseTimezone(a.cfg.Server.DefaultTimezone)),
	)(mux)
}

// Serve runs the HTTP server until ctx is done, then shuts it down gracefully.
func (a *App) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		a.log.Info("shutting down http server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// Close stops in-flight attempts and background work and releases storage.
func (a *App) Close(ctx context.Context) error {
	err := a.Orchestrator.Shutdown(ctx)
	a.Cache.Wait()
	if a.limiter != nil {
		a.limiter.Stop()
	}
	a.closeStorage()
	if err != nil {
		return fmt.Errorf("app: close: %w", err)
	}
	return nil
}

// Run is the server entry point: it wires the application, serves HTTP
// until ctx is done and shuts everything down.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) error {
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("storage", cfg.Database.Driver),
	)

	a, err := New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}

	serveErr := a.Serve(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logger.Error("shutdown", slog.String("error", err.Error()))
	}
	return serveErr
}
