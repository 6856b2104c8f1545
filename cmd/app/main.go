// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"popup-shop/internal/config"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/adapter"
	"popup-shop/internal/infra/adapters/notify"
	"popup-shop/internal/infra/api"
	pg "popup-shop/internal/infra/db/postgres"
	"popup-shop/internal/infra/i18n"
	"popup-shop/internal/infra/logging"
	"popup-shop/internal/infra/metrics"
	red "popup-shop/internal/infra/redis"
	"popup-shop/internal/infra/sched"
	"popup-shop/internal/infra/scheduler"
	"popup-shop/internal/infra/security"
	"popup-shop/internal/infra/worker"
	"popup-shop/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted contacts)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Shop.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("shop timezone")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("postgres migrate")
	}

	var repoOpts []pg.ShopRepoOption
	if cfg.Security.PayoutKey != "" {
		sealer, err := security.NewPayoutCipher(cfg.Security.PayoutKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("payout cipher")
		}
		repoOpts = append(repoOpts, pg.WithPayoutSealer(sealer))
	} else {
		logger.Warn().Msg("security.payout_key not set; payout accounts are stored in clear text")
	}
	shopRepo := pg.NewShopRepo(pool, repoOpts...)
	activationRepo := pg.NewActivationRepo(pool)
	txRepo := pg.NewTransactionRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Worker pool ----
	workers := worker.NewPool(cfg.Scheduler.Workers, logger)
	workers.Start(ctx)
	defer workers.Stop()

	// ---- Notifications ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Shop.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("translations")
	}
	var notifier adapter.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		kn := notify.NewKafkaNotifier(cfg.Kafka, tr, loc, logger)
		defer func() { _ = kn.Close() }()
		notifier = kn
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("welcome notifications go to kafka")
	} else {
		notifier = notify.NewLogNotifier(tr, loc, cfg.Runtime.Dev, logger)
		logger.Warn().Msg("kafka.brokers not set; welcome notifications are only logged")
	}

	// ---- Redis (optional) ----
	var (
		locker   adapter.Locker
		limiter  api.Limiter
		jobs     adapter.JobScheduler
		queue    *red.DelayQueue
		inMemory *scheduler.Scheduler
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer func() { _ = rc.Close() }()
		locker = red.NewLocker(rc)
		limiter = red.NewRateLimiter(rc)
		queue = red.NewDelayQueue(rc, logger)
		jobs = queue
	} else {
		inMemory = scheduler.NewScheduler(workers, logger, scheduler.WithMaxAttempts(cfg.Scheduler.MaxDeliveries))
		defer inMemory.Stop()
		jobs = inMemory
		logger.Warn().Msg("redis.url not set; expiry jobs are kept in memory and the sweeper covers restarts")
	}

	// ---- Use cases ----
	shopUC := usecase.NewShopUseCase(shopRepo, locker, logger)
	actUC := usecase.NewActivationUseCase(shopRepo, activationRepo, tm, jobs, notifier, logger,
		usecase.WithLocation(loc),
		usecase.WithReferencePrefix(cfg.Shop.ReferencePrefix),
		usecase.WithWorkerPool(workers),
	)
	txUC := usecase.NewTransactionUseCase(txRepo, logger)

	// ---- Expiry delivery ----
	if inMemory != nil {
		inMemory.Start(ctx, func(ctx context.Context, job model.ExpiryJob) error {
			_, err := actUC.ExpireIfDue(ctx, job.ShopID, job.ActiveUntil)
			return err
		})
	} else {
		ew := sched.NewExpiryWorker(cfg.Scheduler.PollInterval, cfg.Scheduler.BatchSize, cfg.Scheduler.VisibilityTimeout, queue, actUC, workers, logger,
			sched.WithMaxDeliveries(cfg.Scheduler.MaxDeliveries))
		go func() { _ = ew.Run(ctx) }()
	}
	sweeper := sched.NewExpirySweeper(cfg.Scheduler.SweepInterval, cfg.Scheduler.BatchSize, actUC, shopRepo, logger)
	go func() { _ = sweeper.Run(ctx) }()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns(), st.MaxConns())
			}
		}
	}()

	// ---- HTTP ----
	var auth *api.AuthManager
	if cfg.Security.AdminAPIKey != "" {
		auth = api.NewAuthManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	} else {
		logger.Warn().Msg("security.admin_api_key not set; verification endpoints are disabled")
	}
	srv := api.NewServer(shopUC, actUC, txUC, auth, limiter, cfg.Security.AdminAPIKey, logger)
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Router(cfg.HTTP.RequestTimeout),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
