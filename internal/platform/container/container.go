package container

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
	"github.com/jinford/pdf-ingest/internal/core/ingestion/chunk"
	"github.com/jinford/pdf-ingest/internal/infra/git"
	"github.com/jinford/pdf-ingest/internal/infra/openai"
	"github.com/jinford/pdf-ingest/internal/infra/pdf"
	"github.com/jinford/pdf-ingest/internal/infra/postgres"
	"github.com/jinford/pdf-ingest/internal/infra/qdrant"
	"github.com/jinford/pdf-ingest/pkg/config"
	"github.com/jinford/pdf-ingest/pkg/db"
)

// Container は取り込み処理の依存関係を保持する
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	Embedder      ingestion.Embedder
	Store         ingestion.VectorStore
	Loader        ingestion.DocumentLoader
	Splitter      ingestion.Splitter
	IngestService *ingestion.IngestService
}

type containerOptions struct {
	embedder ingestion.Embedder
	store    ingestion.VectorStore
	loader   ingestion.DocumentLoader
	progress io.Writer
}

// Option は Container 構築時のオプション
type Option func(*containerOptions)

// WithEmbedder はカスタム Embedder を注入する
func WithEmbedder(embedder ingestion.Embedder) Option {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithStore はカスタム VectorStore を注入する
func WithStore(store ingestion.VectorStore) Option {
	return func(opts *containerOptions) {
		opts.store = store
	}
}

// WithLoader はカスタム DocumentLoader を注入する
func WithLoader(loader ingestion.DocumentLoader) Option {
	return func(opts *containerOptions) {
		opts.loader = loader
	}
}

// WithProgressWriter は進捗行の出力先を設定する
func WithProgressWriter(w io.Writer) Option {
	return func(opts *containerOptions) {
		opts.progress = w
	}
}

// New は設定からコンテナを生成する
func New(ctx context.Context, logger *slog.Logger, cfg *config.Config, opts ...Option) (*Container, error) {
	options := containerOptions{progress: io.Discard}
	for _, opt := range opts {
		opt(&options)
	}
	if logger == nil {
		logger = slog.Default()
	}

	distance, ok := ingestion.ParseDistance(cfg.VectorStore.Distance)
	if !ok {
		return nil, fmt.Errorf("%w: unknown distance %q", ingestion.ErrInvalidConfig, cfg.VectorStore.Distance)
	}

	// Splitter（トークン数の計算は任意）
	var chunkOpts []chunk.Option
	if cfg.Ingest.TokenEncoding != "" {
		counter, err := chunk.NewTiktokenCounter(cfg.Ingest.TokenEncoding)
		if err != nil {
			logger.Warn("TokenCounterの初期化に失敗したためトークン数は記録しません",
				"encoding", cfg.Ingest.TokenEncoding,
				"error", err,
			)
		} else {
			chunkOpts = append(chunkOpts, chunk.WithTokenCounter(counter))
		}
	}
	splitter, err := chunk.NewDocumentChunker(chunk.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		Separators:   chunk.DefaultSeparators,
	}, chunkOpts...)
	if err != nil {
		return nil, fmt.Errorf("Chunker 初期化に失敗しました: %w", err)
	}

	// Loader (PDF + Git)
	loader := options.loader
	if loader == nil {
		loader = pdf.NewLoader(cfg.Ingest.DataDir,
			pdf.WithInclude(cfg.Ingest.Glob),
			pdf.WithProvenance(git.NewResolver()),
			pdf.WithLoaderLogger(logger),
		)
	}

	// Embedder (OpenAI互換エンドポイント)
	embedder := options.embedder
	if embedder == nil {
		embedder = openai.NewEmbedder(
			openai.WithBaseURL(cfg.Embedding.BaseURL),
			openai.WithAPIKey(cfg.Embedding.APIKey),
			openai.WithEmbeddingModel(cfg.Embedding.Model),
			openai.WithEmbeddingDimension(cfg.Embedding.Dimension),
			openai.WithTimeout(cfg.Embedding.Timeout),
		)
	}

	// VectorStore
	store := options.store
	if store == nil {
		store, err = newStore(ctx, logger, cfg)
		if err != nil {
			return nil, err
		}
	}

	service := ingestion.NewIngestService(loader, splitter, embedder, store,
		ingestion.WithConfig(&ingestion.ServiceConfig{
			Collection: ingestion.CollectionSpec{
				Name:      cfg.VectorStore.Collection,
				Dimension: cfg.Embedding.Dimension,
				Distance:  distance,
			},
			BatchSize: cfg.Ingest.BatchSize,
		}),
		ingestion.WithProgressWriter(options.progress),
		ingestion.WithLogger(logger),
	)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Embedder:      embedder,
		Store:         store,
		Loader:        loader,
		Splitter:      splitter,
		IngestService: service,
	}, nil
}

// newStore は設定されたバックエンドの VectorStore を生成する
func newStore(ctx context.Context, logger *slog.Logger, cfg *config.Config) (ingestion.VectorStore, error) {
	switch cfg.VectorStore.Backend {
	case config.StoreQdrant:
		store, err := qdrant.New(qdrant.Config{
			Host:    cfg.Qdrant.Host,
			Port:    cfg.Qdrant.Port,
			APIKey:  cfg.Qdrant.APIKey,
			UseTLS:  cfg.Qdrant.UseTLS,
			Timeout: cfg.Qdrant.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("Qdrant 初期化に失敗しました: %w", err)
		}
		return store, nil

	case config.StorePGVector:
		database, err := db.New(ctx, db.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: int32(cfg.Database.MaxConns),
		})
		if err != nil {
			return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
		}
		return postgres.NewStore(database, logger), nil

	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", ingestion.ErrInvalidConfig, cfg.VectorStore.Backend)
	}
}

// Close は内部リソースを解放する
func (c *Container) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.Close()
}
