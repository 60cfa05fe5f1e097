// cmd/give4need/main.go
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

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"give4need/internal/api"
	"give4need/internal/common/auth"
	"give4need/internal/common/aws"
	"give4need/internal/common/camunda"
	"give4need/internal/common/config"
	"give4need/internal/common/database"
	"give4need/internal/common/logger"
	"give4need/internal/common/observability"
	"give4need/internal/geolocation"
	"give4need/internal/listing"
	"give4need/internal/nearby"
	"give4need/internal/proximity"
	"give4need/internal/repository/items"
	"give4need/internal/repository/users"
	"give4need/internal/search"

	il "give4need/internal/workers/listing/index-listing"
	rni "give4need/internal/workers/recommendation/recommend-nearby-items"
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
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting give4need...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, cfg.Tracing, log)
	defer obs.Shutdown()

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
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}

	searchIndex, err := search.NewIndex(esClient, cfg.Database.Elasticsearch.ItemIndex, log)
	if err != nil {
		zapLog.Fatal("search index setup failed", zap.Error(err))
	}
	if err := searchIndex.EnsureIndex(ctx); err != nil {
		zapLog.Fatal("search index setup failed", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Listing events ---
	var events listing.EventPublisher
	if cfg.AWS.SNS.ListingTopicARN != "" {
		snsClient, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		events = aws.NewEventPublisher(snsClient, cfg.AWS.SNS.ListingTopicARN)
		zapLog.Info("Listing events enabled", zap.String("topic", cfg.AWS.SNS.ListingTopicARN))
	}

	// --- Services ---
	itemRepo := items.NewRepository(pg.DB, log)
	userRepo := users.NewRepository(pg.DB, rdb.Client, cfg.Cache.ProfileTTL, log)

	filter, err := proximity.NewFilter(proximity.Config{
		RadiusKm:       cfg.Proximity.RadiusKm,
		Formula:        cfg.Proximity.Formula,
		SortByDistance: cfg.Proximity.SortByDistance,
	}, log)
	if err != nil {
		zapLog.Fatal("invalid proximity configuration", zap.Error(err))
	}

	locator := geolocation.NewLocator(cfg.Geolocation.Timeout, log)
	nearbySvc := nearby.NewService(nearby.Config{Zoom: cfg.Proximity.MapZoom}, locator, itemRepo, filter, obs, log)
	listings := listing.NewService(itemRepo, userRepo, searchIndex, events, log)

	// --- Workers ---
	var workers []worker.JobWorker
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		recommend := rni.NewHandler(rni.FromWorkerConfig(cfg.Workers[rni.TaskType]), nearbySvc, obs, log)
		indexer := il.NewHandler(il.FromWorkerConfig(cfg.Workers[il.TaskType]), itemRepo, searchIndex, log)

		for taskType, handle := range map[string]func(worker.JobClient, entities.Job){
			rni.TaskType: recommend.Handle,
			il.TaskType:  indexer.Handle,
		} {
			if jw := camunda.StartWorker(zeebe.GetClient(), taskType, cfg.Workers[taskType], handle, log); jw != nil {
				workers = append(workers, jw)
			}
		}
	}

	// --- HTTP ---
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	checks := map[string]api.Pinger{"postgres": pg, "redis": rdb, "elasticsearch": esClient}
	if zeebe != nil {
		checks["zeebe"] = zeebe
	}
	server := api.NewServer(
		api.Config{CookieName: cfg.Auth.CookieName, LoginPath: cfg.Auth.LoginPath},
		auth.NewTokenVerifier(cfg.Auth.JWTSecret),
		nearbySvc,
		listings,
		checks,
		log,
	)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Millisecond,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("give4need stopped gracefully")
}
