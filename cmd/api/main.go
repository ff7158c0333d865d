package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/fieldops/fieldservice/internal/api/http"
	"github.com/fieldops/fieldservice/internal/api/http/handlers"
	"github.com/fieldops/fieldservice/internal/auth"
	"github.com/fieldops/fieldservice/internal/config"
	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/internal/observability"
	"github.com/fieldops/fieldservice/internal/persistence"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/internal/repository/memory"
	"github.com/fieldops/fieldservice/internal/service"
	"github.com/fieldops/fieldservice/internal/worker"
)

const notificationBuffer = 256

type flags struct {
	envFile string
	backend string
	seed    string
	migrate bool
}

func parseFlags() (flags, *pflag.FlagSet) {
	var f flags
	fs := pflag.NewFlagSet("api", pflag.ExitOnError)
	fs.StringVar(&f.envFile, "env-file", "", "extra env file loaded before .env")
	fs.StringVar(&f.backend, "backend", "", "storage backend: postgres or memory (overrides STORAGE_BACKEND)")
	fs.StringVar(&f.seed, "seed", "", "YAML file of users to provision at start-up (overrides STORAGE_SEED_FILE)")
	fs.BoolVar(&f.migrate, "migrate", true, "apply SQL migrations on start-up (postgres backend)")
	_ = fs.Parse(os.Args[1:])
	return f, fs
}

func main() {
	f, fs := parseFlags()

	cfg, err := config.Load(f.envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if fs.Changed("backend") {
		cfg.Storage.Backend = f.backend
	}
	if fs.Changed("seed") {
		cfg.Storage.SeedFile = f.seed
	}
	if fs.Changed("migrate") {
		cfg.Postgres.RunMigrations = f.migrate
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy, err := auth.LoadPolicy(cfg.Policy.File)
	if err != nil {
		logger.Fatal("failed to load role policy", zap.Error(err))
	}
	commission, err := service.ParseCommissionPercent(cfg.Payments.CommissionPercent)
	if err != nil {
		logger.Fatal("invalid PAYMENT_COMMISSION_PERCENT", zap.Error(err))
	}

	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	probes := map[string]handlers.Pinger{"store": store}
	var sequencer repository.Sequencer
	if cfg.Tickets.Sequencer == config.SequencerRedis {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		sequencer = repository.NewRedisSequencer(redis.Client, cfg.App.Name+":ticket_seq")
		probes["redis"] = redis
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notifier := worker.StartNotificationWorker(dispatcher, notifications, logger, notificationBuffer)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Users:  store.Users(),
		Policy: policy,
		Logger: logger,
		Clock:  service.SystemClock,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Sequencer:  sequencer,
		Policy:     policy,
		Deriver:    service.NewPaymentDeriver(commission),
		Dispatcher: dispatcher,
		Logger:     logger,
		Clock:      service.SystemClock,
	})
	paymentService := service.NewPaymentService(service.PaymentDependencies{
		Store:      store,
		Policy:     policy,
		Dispatcher: dispatcher,
		Logger:     logger,
		Clock:      service.SystemClock,
	})

	if cfg.Storage.SeedFile != "" {
		seed, err := service.LoadSeedFile(cfg.Storage.SeedFile)
		if err != nil {
			logger.Fatal("failed to read seed file", zap.Error(err))
		}
		n, err := authService.ApplySeed(ctx, seed)
		if err != nil {
			logger.Fatal("failed to apply seed", zap.Error(err))
		}
		logger.Info("seed applied", zap.Int("users_created", n), zap.String("file", cfg.Storage.SeedFile))
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, time.Duration(cfg.App.RequestTimeoutSeconds)*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, probes, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Payments:       handlers.NewPaymentsHandler(paymentService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users()),
		Policy:         policy,
	})

	go func() {
		addr := cfg.App.Host + ":" + cfg.App.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("backend", cfg.Storage.Backend))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := notifier.Stop(shutdownCtx); err != nil {
		logger.Warn("notification worker shutdown", zap.Error(err))
	}
}

// openStore selects the persistence backend and returns its release func.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func()) {
	if cfg.Storage.Backend == config.BackendMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.NewStore(), func() {}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	if cfg.Postgres.RunMigrations {
		source := persistence.MigrationSource(cfg.Postgres.MigrationsDir)
		if err := persistence.RunMigrations(ctx, pg.Pool, source, logger); err != nil {
			pg.Close()
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	return repository.NewPostgresStore(pg.Pool), pg.Close
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
