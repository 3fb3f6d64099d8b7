package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/s1natex/tasktracker-api/internal/auth"
	"github.com/s1natex/tasktracker-api/internal/config"
	"github.com/s1natex/tasktracker-api/internal/database"
	"github.com/s1natex/tasktracker-api/internal/middleware"
	"github.com/s1natex/tasktracker-api/internal/tasks"
	"github.com/s1natex/tasktracker-api/internal/telemetry"
	"github.com/s1natex/tasktracker-api/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger) // for third-party packages that use slog

	if err := run(cfg, logger); err != nil {
		logger.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelExporter, cfg.OTelServiceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown", slog.String("error", err.Error()))
		}
	}()

	st, err := openStores(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer st.close()

	var rdb *redis.Client
	if cfg.RedisRateLimitEnabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			// the limiter fails open, keep serving
			logger.Warn("redis_unreachable", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
		}
		cancel()
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	d := deps{
		tasks:  tasks.NewService(st.tasks, logger),
		auth:   auth.NewService(st.users, tokens, logger),
		users:  st.users,
		tokens: tokens,
	}
	r := newRouter(d, routerOptions{
		corsOrigins: cfg.CORSAllowedOrigins,
		rateLimit:   rateLimiter(cfg, rdb, logger),
		trustProxy:  cfg.TrustProxy,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

type deps struct {
	tasks  *tasks.Service
	auth   *auth.Service
	users  users.Store
	tokens middleware.TokenVerifier
}

type routerOptions struct {
	corsOrigins []string
	rateLimit   func(http.Handler) http.Handler
	trustProxy  bool
}

// newRouter wires the health and metrics endpoints, auth, user and task routes, and the middleware stack
func newRouter(d deps, opts routerOptions, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)
	// RealIP rewrites RemoteAddr from client-supplied headers, which also keys the rate limiter
	if opts.trustProxy {
		r.Use(chimw.RealIP)
	}

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(15 * time.Second))

	origins := opts.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.TracingMiddleware)
	if opts.rateLimit != nil {
		r.Use(opts.rateLimit)
	}

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	auth.RegisterRoutes(r, d.auth, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(d.tokens))
		users.RegisterRoutes(r, d.users, logger)
		tasks.RegisterRoutes(r, d.tasks, logger)
	})

	return r
}

func rateLimiter(cfg config.Config, rdb *redis.Client, logger *slog.Logger) func(http.Handler) http.Handler {
	if rdb != nil {
		return middleware.RedisRateLimit(rdb, cfg.RateLimitMax(), cfg.RateLimitWindow, logger)
	}
	return middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
}

type stores struct {
	tasks tasks.Store
	users users.Store
	close func()
}

// openStores picks PostgreSQL for postgres:// URLs and SQLite for everything else.
func openStores(ctx context.Context, dsn string, logger *slog.Logger) (stores, error) {
	if database.IsPostgresURL(dsn) {
		var qlog *slog.Logger
		if logger.Enabled(ctx, slog.LevelDebug) {
			qlog = logger
		}
		pool, err := database.OpenPostgres(ctx, dsn, qlog)
		if err != nil {
			return stores{}, err
		}
		if err := database.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		logger.Info("database_connected", slog.String("driver", "pgx"))
		return stores{
			tasks: tasks.NewPostgresRepo(pool),
			users: users.NewPostgresRepo(pool),
			close: pool.Close,
		}, nil
	}

	fileDSN, err := database.SQLiteFileDSN(dsn)
	if err != nil {
		return stores{}, err
	}
	db, err := database.OpenSQLite(fileDSN)
	if err != nil {
		return stores{}, err
	}
	if err := database.MigrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	logger.Info("database_connected", slog.String("driver", "sqlite"), slog.String("path", dsn))
	return stores{
		tasks: tasks.NewSQLiteRepo(db),
		users: users.NewSQLiteRepo(db),
		close: func() { _ = db.Close() },
	}, nil
}

func newLogger(level, format string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: l}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
