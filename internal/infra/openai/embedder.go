package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Embedder は OpenAI 互換の Embeddings API（ローカルで動く推論サーバ）を使用してテキストをベクトルに変換する
type Embedder struct {
	client       openai.Client
	model        string
	dimension    int
	maxBatchSize int
}

const (
	// DefaultBaseURL はローカル推論サーバ（Ollama 等）の OpenAI 互換エンドポイント
	DefaultBaseURL = "http://localhost:11434/v1"
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	// DefaultEmbeddingDimension は all-MiniLM-L6-v2 の出力次元
	DefaultEmbeddingDimension = 384
	// DefaultMaxBatchSize は1リクエストあたりの最大件数
	DefaultMaxBatchSize = 100
	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// ローカルサーバはAPIキーを検証しないが、SDKはヘッダを必要とする
	localAPIKey = "local"
)

type embedderOptions struct {
	baseURL      string
	apiKey       string
	model        string
	dimension    int
	maxBatchSize int
	timeout      time.Duration
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithBaseURL は接続先エンドポイントを上書きする
func WithBaseURL(baseURL string) EmbedderOption {
	return func(o *embedderOptions) {
		o.baseURL = baseURL
	}
}

// WithAPIKey はAPIキーを設定する
func WithAPIKey(apiKey string) EmbedderOption {
	return func(o *embedderOptions) {
		o.apiKey = apiKey
	}
}

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithMaxBatchSize は1リクエストあたりの最大件数を上書きする
func WithMaxBatchSize(n int) EmbedderOption {
	return func(o *embedderOptions) {
		o.maxBatchSize = n
	}
}

// WithTimeout はリクエストタイムアウトを設定する
func WithTimeout(timeout time.Duration) EmbedderOption {
	return func(o *embedderOptions) {
		o.timeout = timeout
	}
}

// NewEmbedder は新しい Embedder を作成する。リトライは行わない。
func NewEmbedder(opts ...EmbedderOption) *Embedder {
	options := embedderOptions{
		baseURL:      DefaultBaseURL,
		model:        DefaultEmbeddingModel,
		dimension:    DefaultEmbeddingDimension,
		maxBatchSize: DefaultMaxBatchSize,
		timeout:      DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.apiKey == "" {
		options.apiKey = localAPIKey
	}
	if options.maxBatchSize <= 0 {
		options.maxBatchSize = DefaultMaxBatchSize
	}

	return &Embedder{
		client: openai.NewClient(
			option.WithBaseURL(options.baseURL),
			option.WithAPIKey(options.apiKey),
			option.WithMaxRetries(0),
			option.WithRequestTimeout(options.timeout),
		),
		model:        options.model,
		dimension:    options.dimension,
		maxBatchSize: options.maxBatchSize,
	}
}

// Embed は単一テキストの Embedding を生成する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings generated")
	}

	return embeddings[0], nil
}

// BatchEmbed はバッチで Embedding を生成する（入力と同じ順序で返す）
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts provided", ingestion.ErrEmptyInput)
	}

	if len(texts) > e.maxBatchSize {
		return nil, fmt.Errorf("batch size %d exceeds maximum of %d", len(texts), e.maxBatchSize)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(resp.Data))
	}

	// index の順に並べ直す
	embeddings := make([][]float32, len(texts))
	for i, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(texts) || embeddings[idx] != nil {
			idx = i
		}
		vector := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vector[j] = float32(v)
		}
		embeddings[idx] = vector
	}

	return embeddings, nil
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// MaxBatchSize はバッチ処理の最大サイズを返す
func (e *Embedder) MaxBatchSize() int {
	return e.maxBatchSize
}

// インターフェース実装の確認
var _ ingestion.Embedder = (*Embedder)(nil)
