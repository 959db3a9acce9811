package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pargar-ir/qanun-ingest/internal/config"
	"github.com/pargar-ir/qanun-ingest/internal/core/chunker"
	db "github.com/pargar-ir/qanun-ingest/internal/core/database"
	"github.com/pargar-ir/qanun-ingest/internal/core/llm"
	"github.com/pargar-ir/qanun-ingest/internal/core/objectstore"
	"github.com/pargar-ir/qanun-ingest/internal/core/tokenizer"
	"github.com/pargar-ir/qanun-ingest/internal/logger"
	"github.com/pargar-ir/qanun-ingest/internal/pipeline"
	"github.com/pargar-ir/qanun-ingest/internal/syncbridge"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	Log        *logger.Logger
	DBClient   *db.DatabaseClient
	Objects    *objectstore.S3Client
	Processor  *pipeline.Processor
	Scheduler  *pipeline.Scheduler
	SyncWorker *syncbridge.Worker
	Server     *Server

	cancel context.CancelFunc
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	initCtx, cancelInit := context.WithTimeout(ctx, 5*time.Minute)
	defer cancelInit()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database initialized and bootstrapped")

	objClient, err := objectstore.NewS3Client(initCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("object storage client ready", "bucket", cfg.BucketName)

	embedder, err := llm.NewGeminiEmbedder(initCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	counter, err := tokenizer.NewTiktokenCounter(cfg.TokenizerEncoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}

	splitter := chunker.New(counter, cfg.ChunkMaxTokens, cfg.ChunkMinTokens, cfg.ChunkOverlap)
	processor := pipeline.NewProcessor(dbClient, embedder, splitter, log)
	scheduler := pipeline.NewScheduler(dbClient, processor, log)

	presignTTL := time.Duration(cfg.PresignTTLSec) * time.Second
	builder := syncbridge.NewPayloadBuilder(dbClient, objClient, presignTTL)
	bridge := syncbridge.NewClient(cfg.CoreBaseURL, cfg.CoreBridgeToken)
	syncWorker := syncbridge.NewWorker(dbClient, builder, bridge, log,
		time.Duration(cfg.SyncPollInterval)*time.Second)

	server := NewServer(cfg, log, dbClient, objClient, embedder, processor, scheduler, builder)

	workerCtx, cancel := context.WithCancel(ctx)
	scheduler.Start(workerCtx)
	if cfg.CoreBaseURL != "" {
		syncWorker.Start(workerCtx)
	} else {
		log.Warn("CORE_BASE_URL not set, sync worker idle")
	}

	return &App{
		Log:        log,
		DBClient:   dbClient,
		Objects:    objClient,
		Processor:  processor,
		Scheduler:  scheduler,
		SyncWorker: syncWorker,
		Server:     server,
		cancel:     cancel,
	}, nil
}

func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
