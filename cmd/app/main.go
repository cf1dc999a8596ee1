package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crudserver/internal/adapters/driven/memrepo"
	"crudserver/internal/adapters/driven/mongorepo"
	"crudserver/internal/adapters/driven/pgrepo"
	"crudserver/internal/adapters/driving/httpadapter"
	"crudserver/internal/assets"
	"crudserver/internal/config"
	"crudserver/internal/core/domain"
	"crudserver/internal/core/service/resource"
	"crudserver/internal/pkg/logger"
	"crudserver/internal/pkg/metrics"
	"crudserver/internal/pkg/ratelimit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		backend string
		addr    string
		envFile string
	)

	root := &cobra.Command{
		Use:   "crudserver",
		Short: "Users and comments REST API over memory, PostgreSQL or MongoDB storage",
		Long: "crudserver serves a users resource with nested comments.\n" +
			"Pipe a {\"users\": [...]} document on stdin to start an in-memory server seeded with it.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(assets.BannerString)

			// detect the operating mode at runtime
			cfg, seed, err := bootstrap(envFile, os.Stdin)
			if err != nil {
				return err
			}

			// piped seed data always runs on memory storage
			if cmd.Flags().Changed("backend") && cfg.OpMode != config.ModePipe {
				if cfg.Backend, err = config.ParseBackend(backend); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("addr") {
				cfg.ServerAddr = addr
			}

			logger.Init(logger.Config{Env: cfg.LogEnv, Level: cfg.LogLevel, ServiceName: "crudserver"})
			defer logger.Sync()

			// create the context
			appCtx, cancel := context.WithCancel(context.Background())
			defer cancel()

			setupSignalHandler(cancel)

			if err := run(appCtx, cfg, seed); err != nil {
				logger.L().Error("application run failed", logger.Err(err))
				return err
			}

			logger.L().Info("server exiting gracefully")
			return nil
		},
	}

	root.Flags().StringVar(&backend, "backend", "", "storage backend: memory, postgres or mongo (env STORAGE_BACKEND)")
	root.Flags().StringVar(&addr, "addr", "", "listen address (env SERVER_ADDR)")
	root.Flags().StringVar(&envFile, "env-file", "", "env file to load before reading the environment (default .env)")

	return root
}

// setupSignalHandler configures a listener for OS signals to trigger a graceful shutdown.
func setupSignalHandler(cancelFunc context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM) // listen to OS interrupt signal

	// clean shutdown sequence
	go func() {
		<-quit
		logger.L().Info("shutdown signal received")
		cancelFunc()
	}()
}

// bootstrap loads the config and, when data is piped on stdin, switches to a seeded memory server.
func bootstrap(envFile string, stdin *os.File) (*config.Config, []domain.NewUser, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.OpMode = config.ModeServer

	stat, err := stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return cfg, nil, nil
	}

	seed, err := memrepo.ReadSeed(stdin)
	if err != nil {
		// a closed or empty stdin is not a seed
		if errors.Is(err, io.EOF) {
			return cfg, nil, nil
		}
		return nil, nil, err
	}

	cfg.OpMode = config.ModePipe
	cfg.Backend = config.BackendMemory
	return cfg, seed, nil
}

func run(appCtx context.Context, cfg *config.Config, seed []domain.NewUser) error {
	log := logger.L()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		var err error
		if m, err = metrics.New(reg); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	repo, err := buildRepository(appCtx, cfg, seed, m)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer closeCancel()
		if err := repo.Close(closeCtx); err != nil {
			log.Warn("failed to close repository", logger.Err(err))
		}
	}()

	limiter, closeLimiter := buildLimiter(appCtx, cfg)
	defer closeLimiter()

	// services and handler
	userSvc := resource.NewUserService(repo)
	commentSvc := resource.NewCommentService(repo)
	apiHandler := httpadapter.NewHandler(userSvc, commentSvc, httpadapter.Options{
		Backend:              cfg.Backend.String(),
		Pinger:               repo,
		ExposeInternalErrors: cfg.ExposeInternalErrors,
		Metrics:              m,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		Limiter:              limiter,
	})

	// config the server
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiHandler.SetupRoutes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     zap.NewStdLog(logger.Named("http")),
	}

	// start the server
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", logger.String("addr", cfg.ServerAddr), logger.Backend(cfg.Backend.String()))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// listen for context cancellation
	select {
	case <-appCtx.Done():
		log.Info("context cancelled, initiating server shutdown")
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}

	// graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

func buildRepository(ctx context.Context, cfg *config.Config, seed []domain.NewUser, m *metrics.Metrics) (resource.Repository, error) {
	log := logger.L().With(logger.Backend(cfg.Backend.String()))

	switch cfg.Backend {
	case config.BackendPostgres:
		log.Info("initialising postgres repository")

		repo, err := pgrepo.New(ctx, cfg.PostgresDSN, pgrepo.Options{MaxConns: cfg.PostgresMaxConns})
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close(ctx)
			return nil, err
		}
		if m != nil {
			if err := m.RegisterPool(repo.Pool()); err != nil {
				log.Warn("could not register pool metrics", logger.Err(err))
			}
		}
		return repo, nil

	case config.BackendMongo:
		log.Info("initialising mongo repository", logger.String("database", cfg.MongoDatabase))

		repo, err := mongorepo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			repo.Close(ctx)
			return nil, err
		}
		return repo, nil

	default:
		var (
			repo *memrepo.Repository
			err  error
		)

		switch {
		case cfg.OpMode == config.ModePipe:
			// piped data stays in memory only
			log.Info("initialising repository from stdin data", logger.Count(len(seed)))
			repo = memrepo.New()
		case cfg.DataFile != "":
			log.Info("initialising file backed memory repository", logger.String("file", cfg.DataFile))
			repo, err = memrepo.NewWithPersister(memrepo.NewFilePersister(cfg.DataFile))
			if err != nil {
				return nil, err
			}
		default:
			log.Info("initialising memory repository")
			repo = memrepo.New()
		}

		if err := repo.Seed(ctx, seed); err != nil {
			return nil, err
		}
		return repo, nil
	}
}

// buildLimiter returns nil when rate limiting is off. Redis is only pinged here; an unreachable Redis makes the
// middleware fail open.
func buildLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func()) {
	if !cfg.RateLimitEnabled {
		return nil, func() {}
	}

	if cfg.RateLimitBackend == config.LimiterRedis {
		client := rdb.NewClient(&rdb.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.L().Warn("redis unreachable, rate limit will fail open", logger.String("addr", cfg.RedisAddr), logger.Err(err))
		}
		return ratelimit.NewRedisLimiter(client, "crudserver:rl:", cfg.RateLimitMax, cfg.RateLimitWindow), func() { _ = client.Close() }
	}

	return ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow), func() {}
}
