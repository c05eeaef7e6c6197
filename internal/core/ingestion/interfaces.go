package ingestion

import "context"

// DocumentLoader はソースディレクトリからドキュメントを読み込むインターフェース
type DocumentLoader interface {
	// Load は対象ファイルをすべてパースして返す（0 件は正常系）
	Load(ctx context.Context) ([]*Document, error)

	// Root は読み込み元のルートディレクトリを返す
	Root() string
}

// Splitter はドキュメントをチャンクに分割するインターフェース
type Splitter interface {
	Split(docs []*Document) ([]*Chunk, error)
}

// Embedder はテキストをベクトル表現に変換するインターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed はバッチでEmbeddingを生成する（入力と同じ順序で返す）
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName はモデル名を返す
	ModelName() string

	// Dimension はEmbeddingベクトルの次元数を返す
	Dimension() int

	// MaxBatchSize は1リクエストで扱える最大件数を返す
	MaxBatchSize() int
}

// VectorStore は外部ベクトルストアのコレクション操作を提供するインターフェース
type VectorStore interface {
	// EnsureFreshCollection は既存コレクションを削除してから空のコレクションを作成する。
	// deleted は既存コレクションを削除した場合に true。
	EnsureFreshCollection(ctx context.Context, spec CollectionSpec) (deleted bool, err error)

	// Upsert はポイントを1バッチ分書き込む（書き込み完了まで待つ）
	Upsert(ctx context.Context, collection string, points []*Point) error

	// Count はコレクション内のポイント数を返す
	Count(ctx context.Context, collection string) (uint64, error)

	// Close は接続を閉じる
	Close() error
}
