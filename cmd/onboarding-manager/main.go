// cmd/onboarding-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	awsclient "account-onboarding/internal/common/aws"
	"account-onboarding/internal/common/camunda"
	"account-onboarding/internal/common/config"
	"account-onboarding/internal/common/database"
	commonhttp "account-onboarding/internal/common/http"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/common/observability"
	httptransport "account-onboarding/internal/transport/http"
	"account-onboarding/internal/workflow"

	ca "account-onboarding/internal/workers/account/create-account"
	va "account-onboarding/internal/workers/address/validate-address"
	es "account-onboarding/internal/workers/data-access/execution-store"
	dlq "account-onboarding/internal/workers/deadletter/send-to-dlq"
	cdu "account-onboarding/internal/workers/identity/check-duplicate-user"
	cci "account-onboarding/internal/workers/identity/crosscheck-identity"
	ei "account-onboarding/internal/workers/identity/extract-identity"
	nb "account-onboarding/internal/workers/notification/notify-backends"
	nu "account-onboarding/internal/workers/notification/notify-user"
	sac "account-onboarding/internal/workers/onboarding/start-account-creation"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting onboarding manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, log)
	ctx := context.Background()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("postgres schema setup failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (execution archive) ---
	var archive *es.Archive
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := esClient.Ping(ctx); err != nil {
				return err
			}
			return esClient.EnsureIndex(ctx, cfg.Database.Elasticsearch.ArchiveIndex)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		archive = es.NewArchive(esClient.Client, cfg.Database.Elasticsearch.ArchiveIndex)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- AWS ---
	awsCfg, err := awsclient.LoadConfig(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws config failed", zap.Error(err))
	}

	// --- Kafka (optional event bus) ---
	backendsCfg := nb.LoadConfig(cfg)
	var kafka nb.KafkaProducer
	if backendsCfg.KafkaEnabled {
		kafkaClient, err := nb.NewKafkaClient(cfg.Integrations.Kafka.Brokers, cfg.Integrations.Kafka.ClientID, cfg.Integrations.Kafka.Topic)
		if err != nil {
			zapLog.Fatal("kafka client failed", zap.Error(err))
		}
		defer kafkaClient.Close()
		kafka = kafkaClient
	}
	var snsClient nb.SNSAPI
	if backendsCfg.SNSEnabled {
		snsClient = awsclient.NewSNSClient(awsCfg)
	}
	var sesClient nu.SESAPI
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient = awsclient.NewSESClient(awsCfg)
	}

	// --- Task handlers ---
	geocoderCfg := va.LoadConfig(cfg)
	deadLetters := dlq.NewHandler(dlq.LoadConfig(cfg), redis.Client, log)
	storeCfg := es.LoadConfig(cfg)
	executions := es.New(es.NewRedisStore(redis.Client, storeCfg.KeyPrefix, storeCfg.TTL), archive, log)

	orch, err := workflow.New(
		workflow.Config{
			Policies:        workflow.PoliciesFromConfig(cfg),
			DetachedTimeout: 30 * time.Second,
		},
		workflow.Dependencies{
			Extractor:   ei.NewHandler(ei.LoadConfig(cfg), awsclient.NewTextractClient(awsCfg), log),
			Verifier:    cci.NewHandler(cci.LoadConfig(), log),
			Duplicates:  cdu.NewHandler(cdu.LoadConfig(), pg.DB, log),
			Addresses:   va.NewHandler(geocoderCfg, commonhttp.NewClient(geocoderCfg.Timeout), log),
			Accounts:    ca.NewHandler(ca.LoadConfig(), pg.DB, log),
			Events:      nb.NewFromConfig(backendsCfg, snsClient, kafka, log),
			Users:       nu.NewHandler(nu.LoadConfig(cfg), redis.Client, sesClient, log),
			DeadLetters: deadLetters,
			Recorder:    executions,
		},
		log, obs,
	)
	if err != nil {
		zapLog.Fatal("orchestrator setup failed", zap.Error(err))
	}
	zapLog.Info("Onboarding orchestrator ready")

	// --- Zeebe front end ---
	var zeebe *camunda.Client
	var jobWorker *camunda.Worker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		if _, err := zeebe.ExecuteWithRetry(ctx, func(c context.Context) (interface{}, error) {
			return zeebe.GetClient().NewTopologyCommand().Send(c)
		}, "topology"); err != nil {
			zapLog.Fatal("zeebe broker unreachable", zap.Error(err))
		}

		startCfg := sac.LoadConfig(cfg)
		jobWorker = camunda.NewWorker(zeebe.GetClient(), camunda.WorkerConfig{
			TaskType:      sac.TaskType,
			MaxJobsActive: startCfg.MaxJobsActive,
			Timeout:       startCfg.Timeout,
		}, sac.NewHandler(startCfg, orch, log), log)
		zapLog.Info("Zeebe client connected successfully")
	}

	// --- HTTP front end ---
	checks := map[string]httptransport.ReadinessCheck{
		"postgres": pg.Ping,
		"redis":    redis.Ping,
	}
	if esClient != nil {
		checks["elasticsearch"] = esClient.Ping
	}
	if zeebe != nil {
		checks["zeebe"] = zeebe.HealthCheck
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           httptransport.NewRouter(httptransport.NewHandler(orch, executions, deadLetters, log), checks),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining executions...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if jobWorker != nil {
		jobWorker.Stop()
	}
	if err := orch.Drain(shutdownCtx); err != nil {
		zapLog.Warn("Detached work still running at shutdown", zap.Error(err))
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Observability shutdown failed", zap.Error(err))
	}

	zapLog.Info("Onboarding manager stopped gracefully")
}
