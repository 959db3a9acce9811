package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
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

// ingestctl runs pipeline operations from the command line, against the same
// database and embedder the API service uses.
func main() {
	var (
		exprID   = flag.String("expression-id", "", "process one expression")
		unitID   = flag.String("unit-id", "", "process one unit")
		all      = flag.Bool("all", false, "process every expression")
		cleanup  = flag.Bool("cleanup-duplicates", false, "remove duplicate chunks")
		syncJobs = flag.Bool("sync-jobs", false, "deliver due sync jobs once")
	)
	flag.Parse()

	if *exprID == "" && *unitID == "" && !*all && !*cleanup && !*syncJobs {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	log, err := logger.New(cfg.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(ctx, cfg)
	if err != nil {
		log.Fatal("database", "error", err)
	}
	defer dbClient.Close()

	embedder, err := llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		log.Fatal("embedder", "error", err)
	}

	counter, err := tokenizer.NewTiktokenCounter(cfg.TokenizerEncoding)
	if err != nil {
		log.Fatal("tokenizer", "error", err)
	}
	splitter := chunker.New(counter, cfg.ChunkMaxTokens, cfg.ChunkMinTokens, cfg.ChunkOverlap)
	processor := pipeline.NewProcessor(dbClient, embedder, splitter, log)

	switch {
	case *unitID != "":
		unit, err := dbClient.GetUnit(ctx, *unitID)
		if err != nil {
			log.Fatal("load unit", "unit_id", *unitID, "error", err)
		}
		chunks, embeddings, err := processor.ProcessUnit(ctx, unit)
		if err != nil {
			log.Fatal("process unit", "unit_id", *unitID, "error", err)
		}
		printResult(pipeline.Result{UnitsProcessed: 1, ChunksCreated: chunks, EmbeddingsCreated: embeddings})

	case *exprID != "":
		res, err := processor.ProcessExpression(ctx, *exprID)
		if err != nil {
			log.Fatal("process expression", "expr_id", *exprID, "error", err)
		}
		printResult(res)

	case *all:
		res, err := processor.ProcessAll(ctx)
		if err != nil {
			log.Fatal("process all", "error", err)
		}
		printResult(res)

	case *cleanup:
		removed, err := processor.CleanupDuplicateChunks(ctx)
		if err != nil {
			log.Fatal("cleanup duplicates", "error", err)
		}
		fmt.Printf("removed %d duplicate chunks\n", removed)

	case *syncJobs:
		objClient, err := objectstore.NewS3Client(ctx, cfg)
		if err != nil {
			log.Fatal("object storage", "error", err)
		}
		builder := syncbridge.NewPayloadBuilder(dbClient, objClient,
			time.Duration(cfg.PresignTTLSec)*time.Second)
		bridge := syncbridge.NewClient(cfg.CoreBaseURL, cfg.CoreBridgeToken)
		worker := syncbridge.NewWorker(dbClient, builder, bridge, log,
			time.Duration(cfg.SyncPollInterval)*time.Second)
		worker.RunOnce(ctx)
	}
}

func printResult(res pipeline.Result) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatalf("encode result: %v", err)
	}
}
