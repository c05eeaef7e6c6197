package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jinford/pdf-ingest/internal/core/ingestion"
	"github.com/jinford/pdf-ingest/pkg/db"
	"github.com/jinford/pdf-ingest/pkg/lock"
	pgvector "github.com/pgvector/pgvector-go"
)

// Store は PostgreSQL + pgvector を使った VectorStore 実装。
// コレクション1つをテーブル1つとして扱う。
type Store struct {
	db     *db.DB
	logger *slog.Logger
}

// NewStore は新しい Store を作成する
func NewStore(database *db.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: database, logger: logger}
}

// EnsureFreshCollection はテーブルを作り直す（DROP TABLE IF EXISTS + CREATE TABLE を1トランザクションで実行）
func (s *Store) EnsureFreshCollection(ctx context.Context, spec ingestion.CollectionSpec) (bool, error) {
	stmts, err := createCollectionStatements(spec)
	if err != nil {
		return false, err
	}
	table := tableName(spec.Name)

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 同じコレクションを同時に作り直さない
	if err := lock.AcquireXact(ctx, tx, lock.CollectionLockID(spec.Name)); err != nil {
		return false, err
	}

	if _, err := tx.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return false, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", spec.Name, err)
	}

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return false, fmt.Errorf("failed to delete collection %s: %w", spec.Name, err)
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return false, fmt.Errorf("failed to create collection %s: %w", spec.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("コレクションを作成", "collection", spec.Name, "dimension", spec.Dimension, "distance", spec.Distance, "deleted", exists)
	return exists, nil
}

// Upsert はポイントを1バッチ分まとめて書き込む
func (s *Store) Upsert(ctx context.Context, collection string, points []*ingestion.Point) error {
	if len(points) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, embedding, content, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, content = EXCLUDED.content, metadata = EXCLUDED.metadata`,
		tableName(collection))

	batch := &pgx.Batch{}
	for _, p := range points {
		metadata, _ := p.Payload[ingestion.PayloadMetadata].(map[string]any)
		if metadata == nil {
			metadata = map[string]any{}
		}
		batch.Queue(query, p.ID, pgvector.NewVector(p.Vector), p.Content, metadata)
	}

	if err := s.db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// Count はテーブルの行数を返す
func (s *Store) Count(ctx context.Context, collection string) (uint64, error) {
	var n int64
	if err := s.db.Pool.QueryRow(ctx, "SELECT count(*) FROM "+tableName(collection)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count points in %s: %w", collection, err)
	}
	return uint64(n), nil
}

// Close は接続プールを閉じる
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

func tableName(collection string) string {
	return pgx.Identifier{collection}.Sanitize()
}

// createCollectionStatements はテーブルとHNSWインデックスのDDLを返す
func createCollectionStatements(spec ingestion.CollectionSpec) ([]string, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: collection name is required", ingestion.ErrInvalidConfig)
	}
	if spec.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive (got %d)", ingestion.ErrInvalidConfig, spec.Dimension)
	}
	opclass, err := operatorClass(spec.Distance)
	if err != nil {
		return nil, err
	}

	table := tableName(spec.Name)
	index := pgx.Identifier{spec.Name + "_embedding_idx"}.Sanitize()
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
	id uuid PRIMARY KEY,
	embedding vector(%d) NOT NULL,
	content text NOT NULL,
	metadata jsonb NOT NULL DEFAULT '{}'::jsonb
)`, table, spec.Dimension),
		fmt.Sprintf("CREATE INDEX %s ON %s USING hnsw (embedding %s)", index, table, opclass),
	}, nil
}

func operatorClass(d ingestion.Distance) (string, error) {
	switch d {
	case ingestion.DistanceCosine, "":
		return "vector_cosine_ops", nil
	case ingestion.DistanceEuclid:
		return "vector_l2_ops", nil
	case ingestion.DistanceDot:
		return "vector_ip_ops", nil
	default:
		return "", fmt.Errorf("%w: unsupported distance %q", ingestion.ErrInvalidConfig, d)
	}
}

var _ ingestion.VectorStore = (*Store)(nil)
