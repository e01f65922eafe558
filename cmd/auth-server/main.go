package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-cookie-auth/internal/cache"
	"github.com/pribylovaa/go-cookie-auth/internal/config"
	apphttp "github.com/pribylovaa/go-cookie-auth/internal/http"
	"github.com/pribylovaa/go-cookie-auth/internal/http/cookies"
	"github.com/pribylovaa/go-cookie-auth/internal/metrics"
	"github.com/pribylovaa/go-cookie-auth/internal/password"
	"github.com/pribylovaa/go-cookie-auth/internal/service"
	"github.com/pribylovaa/go-cookie-auth/internal/storage"
	"github.com/pribylovaa/go-cookie-auth/internal/storage/memory"
	"github.com/pribylovaa/go-cookie-auth/internal/storage/postgres"
	"github.com/pribylovaa/go-cookie-auth/internal/token"
	grpcserver "github.com/pribylovaa/go-cookie-auth/internal/transport/grpc"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const healthInterval = 15 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env, "db_driver", cfg.DB.Driver)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Хранилище с таймаутом на подключение и миграции.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 30*time.Second)
	str, err := openStorage(dbCtx, cfg.DB, log)
	dbCancel()
	if err != nil {
		log.Error("storage_open_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer str.Close()

	codec, err := token.NewCodec(cfg.Auth)
	if err != nil {
		log.Error("token_codec_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		log.Error("password_hasher_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	srvc := service.New(str, codec, hasher, cfg.Auth)
	srvc.SetMetrics(m)

	// Кэш профилей опционален: без Redis guard читает хранилище.
	if cfg.Redis.RedisURL != "" {
		cacheCtx, cacheCancel := context.WithTimeout(rootCtx, 5*time.Second)
		idCache, err := cache.NewRedisCache(cacheCtx, cfg.Redis.RedisURL, cfg.Redis.Prefix, cfg.Redis.TTL)
		cacheCancel()
		if err != nil {
			log.Warn("identity_cache_disabled", slog.String("err", err.Error()))
		} else {
			defer idCache.Close()
			srvc.SetIdentityCache(idCache)
			log.Info("identity_cache_enabled", slog.Duration("ttl", cfg.Redis.TTL))
		}
	}
	log.Info("service_initialized")

	var ready atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := str.Ping(ctx); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", apphttp.NewRouter(srvc, apphttp.Options{
		Logger:        log,
		Timeout:       cfg.Timeouts.Service,
		BasePath:      cfg.HTTP.BasePath,
		ClientOrigins: cfg.HTTP.ClientOrigins,
		Cookies:       cookies.New(cfg.Cookie),
		Metrics:       m,
	}))

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 2)

	go func() {
		log.Info("http_listen_start", slog.String("addr", httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("http: %w", err)
		}
	}()

	// gRPC-листенер только с health-сервисом.
	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		grpcAddr := cfg.GRPC.Addr()
		listener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			log.Error("grpc_listen_failed",
				slog.String("addr", grpcAddr),
				slog.String("err", err.Error()),
			)
			os.Exit(1)
		}

		grpcSrv = grpcserver.New(str, grpcserver.Options{
			Logger:     log,
			Timeout:    cfg.Timeouts.Service,
			Reflection: cfg.Env == envLocal || cfg.Env == envDev,
		})
		go grpcSrv.Watch(rootCtx, healthInterval)

		go func() {
			log.Info("grpc_listen_start", slog.String("addr", grpcAddr))
			if err := grpcSrv.Serve(listener); err != nil {
				serveErrCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	ready.Store(true)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		log.Error("serve_failed", slog.String("err", err.Error()))
	}

	ready.Store(false)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", slog.String("err", err.Error()))
	}

	if grpcSrv != nil {
		grpcSrv.Stop(shutdownCtx)
	}

	log.Info("service_stopped")
}

// openStorage выбирает хранилище по драйверу; postgres мигрируется на старте,
// если это не отключено.
func openStorage(ctx context.Context, cfg config.DBConfig, log *slog.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("memory_storage_in_use")
		return memory.New(), nil

	case config.DriverPostgres:
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("postgres_connected")

		if !cfg.SkipMigrations {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, err
			}
			log.Info("postgres_migrated")
		}

		return pg, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
