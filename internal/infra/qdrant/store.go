package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultHost はQdrantのデフォルトホスト
	DefaultHost = "localhost"
	// DefaultPort はQdrantのgRPCポート
	DefaultPort = 6334
	// DefaultTimeout は1回の呼び出しのタイムアウト
	DefaultTimeout = 60 * time.Second
)

// Config はQdrant接続設定
type Config struct {
	Host    string
	Port    int
	APIKey  string
	UseTLS  bool
	Timeout time.Duration
}

// collectionsAPI は Store が使う Qdrant クライアントの操作
type collectionsAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	DeleteCollection(ctx context.Context, collectionName string) error
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	Close() error
}

// Store は Qdrant を使った VectorStore 実装
type Store struct {
	client  collectionsAPI
	timeout time.Duration
	logger  *slog.Logger
}

// New は Qdrant に接続して Store を作成する
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return newStore(client, cfg.Timeout, logger), nil
}

func newStore(client collectionsAPI, timeout time.Duration, logger *slog.Logger) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, timeout: timeout, logger: logger}
}

// EnsureFreshCollection は既存コレクションを削除してから空のコレクションを作成する。
// 「存在しない」場合だけを許容し、それ以外の削除エラーは返す。
func (s *Store) EnsureFreshCollection(ctx context.Context, spec ingestion.CollectionSpec) (bool, error) {
	distance, err := toDistance(spec.Distance)
	if err != nil {
		return false, err
	}
	if spec.Dimension <= 0 {
		return false, fmt.Errorf("%w: dimension must be positive (got %d)", ingestion.ErrInvalidConfig, spec.Dimension)
	}

	deleted, err := s.deleteIfExists(ctx, spec.Name)
	if err != nil {
		return false, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err = s.client.CreateCollection(cctx, &qdrant.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(spec.Dimension),
			Distance: distance,
		}),
	})
	if err != nil {
		return deleted, fmt.Errorf("failed to create collection %s: %w", spec.Name, err)
	}

	s.logger.Info("コレクションを作成", "collection", spec.Name, "dimension", spec.Dimension, "distance", spec.Distance, "deleted", deleted)
	return deleted, nil
}

func (s *Store) deleteIfExists(ctx context.Context, name string) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.client.CollectionExists(cctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if !exists {
		return false, nil
	}

	if err := s.client.DeleteCollection(cctx, name); err != nil {
		// 確認と削除の間に消えた場合
		if classify(err) == ingestion.ErrCollectionNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return true, nil
}

// Upsert はポイントを1バッチ分書き込み、反映まで待つ
func (s *Store) Upsert(ctx context.Context, collection string, points []*ingestion.Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload, err := qdrant.TryValueMap(p.Payload)
		if err != nil {
			return fmt.Errorf("failed to convert payload of point %s: %w", p.ID, err)
		}
		structs[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID.String()),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	wait := true
	if _, err := s.client.Upsert(cctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	}); err != nil {
		return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// Count はコレクション内のポイント数を正確に数える
func (s *Store) Count(ctx context.Context, collection string) (uint64, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	exact := true
	n, err := s.client.Count(cctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points in %s: %w", collection, err)
	}
	return n, nil
}

// Close は接続を閉じる
func (s *Store) Close() error {
	return s.client.Close()
}

// classify は gRPC の NotFound を ErrCollectionNotFound に分類する
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ingestion.ErrCollectionNotFound) || status.Code(err) == codes.NotFound {
		return ingestion.ErrCollectionNotFound
	}
	return err
}

func toDistance(d ingestion.Distance) (qdrant.Distance, error) {
	switch d {
	case ingestion.DistanceCosine, "":
		return qdrant.Distance_Cosine, nil
	case ingestion.DistanceEuclid:
		return qdrant.Distance_Euclid, nil
	case ingestion.DistanceDot:
		return qdrant.Distance_Dot, nil
	default:
		return 0, fmt.Errorf("%w: unsupported distance %q", ingestion.ErrInvalidConfig, d)
	}
}

var _ ingestion.VectorStore = (*Store)(nil)
