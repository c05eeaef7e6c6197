package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストアのバックエンド
const (
	StoreQdrant   = "qdrant"
	StorePGVector = "pgvector"
)

// ErrInvalid は設定値の検証エラー
var ErrInvalid = errors.New("invalid configuration")

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// 取り込み設定
	Ingest IngestConfig

	// Embedding設定（OpenAI互換のローカルエンドポイント）
	Embedding EmbeddingConfig

	// ベクトルストア設定
	VectorStore VectorStoreConfig

	// Qdrant設定（VectorStore.Backend == "qdrant"）
	Qdrant QdrantConfig

	// Database設定（VectorStore.Backend == "pgvector"）
	Database DatabaseConfig

	// ログ設定
	Log LogConfig
}

// IngestConfig は取り込み対象とチャンク分割の設定
type IngestConfig struct {
	DataDir       string
	Glob          string
	ChunkSize     int
	ChunkOverlap  int
	BatchSize     int
	TokenEncoding string // 空の場合はトークン数を計算しない
}

// EmbeddingConfig はEmbeddingエンドポイントの設定
type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// VectorStoreConfig は書き込み先の設定
type VectorStoreConfig struct {
	Backend    string // "qdrant" or "pgvector"
	Collection string
	Distance   string // "Cosine" / "Euclid" / "Dot"
}

// QdrantConfig はQdrant接続設定
type QdrantConfig struct {
	Host    string
	Port    int
	APIKey  string
	UseTLS  bool
	Timeout time.Duration
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int // 0 の場合は pgxpool のデフォルト
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Ingest: IngestConfig{
			DataDir:       getEnv("INGEST_DATA_DIR", "./Data"),
			Glob:          getEnv("INGEST_GLOB", "**/*.pdf"),
			ChunkSize:     getEnvAsInt("INGEST_CHUNK_SIZE", 1000),
			ChunkOverlap:  getEnvAsInt("INGEST_CHUNK_OVERLAP", 100),
			BatchSize:     getEnvAsInt("INGEST_BATCH_SIZE", 10),
			TokenEncoding: getEnv("INGEST_TOKEN_ENCODING", ""),
		},
		Embedding: EmbeddingConfig{
			BaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:11434/v1"),
			APIKey:    getEnv("EMBEDDING_API_KEY", ""),
			Model:     getEnv("EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 384),
			Timeout:   getEnvAsDuration("EMBEDDING_TIMEOUT", 60*time.Second),
		},
		VectorStore: VectorStoreConfig{
			Backend:    strings.ToLower(getEnv("VECTOR_STORE", StoreQdrant)),
			Collection: getEnv("COLLECTION_NAME", "medical_docs"),
			Distance:   getEnv("COLLECTION_DISTANCE", "Cosine"),
		},
		Qdrant: QdrantConfig{
			Host:    getEnv("QDRANT_HOST", "localhost"),
			Port:    getEnvAsInt("QDRANT_PORT", 6334),
			APIKey:  getEnv("QDRANT_API_KEY", ""),
			UseTLS:  getEnvAsBool("QDRANT_USE_TLS", false),
			Timeout: getEnvAsDuration("QDRANT_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "ingest"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "ingest"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate は設定値の整合性を検証します
func (c *Config) Validate() error {
	var errs []error

	if c.Ingest.DataDir == "" {
		errs = append(errs, errors.New("INGEST_DATA_DIR must not be empty"))
	}
	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("INGEST_CHUNK_SIZE must be positive (got %d)", c.Ingest.ChunkSize))
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("INGEST_CHUNK_OVERLAP must be in [0, %d) (got %d)", c.Ingest.ChunkSize, c.Ingest.ChunkOverlap))
	}
	if c.Ingest.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("INGEST_BATCH_SIZE must be positive (got %d)", c.Ingest.BatchSize))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSION must be positive (got %d)", c.Embedding.Dimension))
	}
	if c.Embedding.Model == "" {
		errs = append(errs, errors.New("EMBEDDING_MODEL must not be empty"))
	}
	if c.VectorStore.Collection == "" {
		errs = append(errs, errors.New("COLLECTION_NAME must not be empty"))
	}
	if c.Database.MaxConns < 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must not be negative (got %d)", c.Database.MaxConns))
	}
	switch c.VectorStore.Backend {
	case StoreQdrant, StorePGVector:
	default:
		errs = append(errs, fmt.Errorf("unknown VECTOR_STORE %q (expected %q or %q)", c.VectorStore.Backend, StoreQdrant, StorePGVector))
	}
	switch strings.ToLower(c.VectorStore.Distance) {
	case "cosine", "euclid", "euclidean", "l2", "dot":
	default:
		errs = append(errs, fmt.Errorf("unknown COLLECTION_DISTANCE %q", c.VectorStore.Distance))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します（"30s" 形式、または秒数）
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
