package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"billingd/internal/api"
	"billingd/pkg/billing"
	"billingd/pkg/billing/dedup"
	"billingd/pkg/billing/postgres"
	"billingd/pkg/config"
	"billingd/pkg/httpserver"
	"billingd/pkg/logger"
	"billingd/pkg/paddle"
	"billingd/pkg/pg"
	rediskit "billingd/pkg/redis"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`

	// DedupEnabled turns on the Redis duplicate-delivery guard. When Redis
	// is unreachable at startup the service still comes up without it.
	DedupEnabled bool `env:"EVENT_DEDUP_ENABLED" envDefault:"false"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, "billingd"))
	logger.SetAsDefault(log)

	if err := run(ctx, appCfg, log); err != nil {
		log.ErrorContext(ctx, "Service terminated", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, log *slog.Logger) error {
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	var paddleCfg paddle.Config
	config.MustLoad(&paddleCfg)
	var apiCfg api.Config
	config.MustLoad(&apiCfg)
	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	paddleClient, err := paddle.NewClient(paddleCfg)
	if err != nil {
		return err
	}

	events := postgres.NewEventStore(pool)
	subs := postgres.NewSubscriptionStore(pool)
	txns := postgres.NewTransactionStore(pool)
	profiles := postgres.NewProfileStore(pool)

	projector := billing.NewProfileProjector(profiles, log)
	subReconciler := billing.NewSubscriptionReconciler(subs, projector, log)
	txnReconciler := billing.NewTransactionReconciler(txns, subs, projector, log)

	verify := func(rawBody []byte, header string) (bool, error) {
		return paddle.VerifySignature(rawBody, header, paddleClient.WebhookSecret())
	}

	healthChecks := []func(context.Context) error{pg.Healthcheck(pool)}

	var serviceOpts []billing.ServiceOption
	if appCfg.DedupEnabled {
		var redisCfg rediskit.Config
		config.MustLoad(&redisCfg)

		redisClient, err := rediskit.Connect(ctx, redisCfg)
		if err != nil {
			log.WarnContext(ctx, "Redis unavailable, duplicate-delivery guard disabled",
				logger.Error(err))
		} else {
			defer redisClient.Close()
			serviceOpts = append(serviceOpts, billing.WithEventGuard(dedup.New(redisClient, dedup.DefaultTTL)))
			healthChecks = append(healthChecks, rediskit.Healthcheck(redisClient))
		}
	}

	svc := billing.NewService(verify, events, subs, subReconciler, txnReconciler, log, serviceOpts...)

	router := api.NewRouter(apiCfg, api.Dependencies{
		Billing:      svc,
		Paddle:       paddleClient,
		Log:          log,
		HealthChecks: healthChecks,
	})

	server := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return server.Run(ctx, router)
}
