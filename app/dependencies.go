package app

import (
	"context"
	"fmt"

	"github.com/bscm/assistant-backend/config"
	"github.com/bscm/assistant-backend/repositories"
	"github.com/bscm/assistant-backend/repositories/postgres"
	"github.com/bscm/assistant-backend/services/audit"
	"github.com/bscm/assistant-backend/services/chat"
	"github.com/bscm/assistant-backend/services/embedding"
	"github.com/bscm/assistant-backend/services/knowledge"
	"github.com/bscm/assistant-backend/services/rag"
	"github.com/bscm/assistant-backend/services/retrieval"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Knowledge repositories.KnowledgeRepository

	// Services
	Embedder *embedding.Client
	Relay    *chat.Relay
	Rag      *rag.Service
	Browser  *knowledge.Service
	Recorder audit.Recorder
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the PostgreSQL connection, applies the schema, and
// seeds the knowledge corpus on first run
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := db.SeedKnowledgeBase(ctx); err != nil {
		return fmt.Errorf("failed to seed knowledge base: %w", err)
	}

	d.Knowledge = postgres.NewKnowledgeRepository(db, d.Logger)

	return nil
}

// initServices wires the retrieval pipeline and the completion relay
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Recorder = audit.NewLogRecorder(d.Logger)
	d.Embedder = embedding.NewClient(cfg.AI.Embedding, d.Logger)
	d.Relay = chat.NewRelay(cfg.AI.Chat, d.Logger)

	d.Rag = rag.NewService(
		d.Embedder,
		d.Knowledge,
		retrieval.NewRanker(d.Logger),
		retrieval.NewAssembler(),
		d.Recorder,
		cfg.Retrieval,
		d.Logger,
	)

	d.Browser = knowledge.NewService(d.Knowledge, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
