package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nileshsolidarity/Processes/internal/config"
	db "github.com/nileshsolidarity/Processes/internal/core/database"
	"github.com/nileshsolidarity/Processes/internal/core/drive"
	"github.com/nileshsolidarity/Processes/internal/core/ingest"
	"github.com/nileshsolidarity/Processes/internal/core/llm"
	"github.com/nileshsolidarity/Processes/internal/core/rag"
)

// App owns the wired service graph: storage, drive access, the AI providers,
// and the HTTP server in front of them.
type App struct {
	DBClient *db.Client
	Pipeline *ingest.Pipeline
	Server   *Server
	Log      *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	log.Info("database initialized and ready")

	driveClient, err := drive.NewClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init drive client: %w", err)
	}
	log.Info("drive client initialized and ready")

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedBatchSize, cfg.EmbedBatchDelay)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	generator, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("init generation model: %w", err)
	}

	extractor := ingest.NewDocconvExtractor()

	pipeline := ingest.NewPipeline(dbClient, driveClient, embedder, extractor,
		cfg.ChunkTargetWords, cfg.ChunkOverlapWords, log.Named("ingest"))

	retriever := rag.NewRetriever(dbClient, embedder, cfg.RetrieveTopK)
	orchestrator := rag.NewOrchestrator(dbClient, retriever, generator, log.Named("chat"))

	server := NewServer(cfg, dbClient, pipeline, orchestrator, log.Named("http"))

	return &App{
		DBClient: dbClient,
		Pipeline: pipeline,
		Server:   server,
		Log:      log,
	}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
