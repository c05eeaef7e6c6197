package testing

import (
	"context"
	"sync"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
)

// MockLoader はテスト用のモックDocumentLoaderです
type MockLoader struct {
	RootDir  string
	LoadFunc func(ctx context.Context) ([]*ingestion.Document, error)
}

// Load はLoadのモック実装です
func (m *MockLoader) Load(ctx context.Context) ([]*ingestion.Document, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return nil, nil
}

// Root はルートディレクトリを返します
func (m *MockLoader) Root() string {
	return m.RootDir
}

// MockSplitter はテスト用のモックSplitterです
type MockSplitter struct {
	SplitFunc func(docs []*ingestion.Document) ([]*ingestion.Chunk, error)
}

// Split はSplitのモック実装です
func (m *MockSplitter) Split(docs []*ingestion.Document) ([]*ingestion.Chunk, error) {
	if m.SplitFunc != nil {
		return m.SplitFunc(docs)
	}
	return nil, nil
}

// MockEmbedder はテスト用のモックEmbedderです
// BatchEmbedFunc が未設定の場合は Dim 次元の決定的なベクトルを返します
type MockEmbedder struct {
	Model          string
	Dim            int
	MaxBatch       int
	EmbedFunc      func(ctx context.Context, text string) ([]float32, error)
	BatchEmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu    sync.Mutex
	calls [][]string
}

// Embed はEmbedのモック実装です
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return FakeVector(text, m.Dim), nil
}

// BatchEmbed はBatchEmbedのモック実装です
func (m *MockEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	m.mu.Unlock()

	if m.BatchEmbedFunc != nil {
		return m.BatchEmbedFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = FakeVector(text, m.Dim)
	}
	return vectors, nil
}

// BatchCalls はBatchEmbedに渡された入力を呼び出し順に返します
func (m *MockEmbedder) BatchCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

// ModelName はモデル名を返します
func (m *MockEmbedder) ModelName() string {
	if m.Model == "" {
		return "mock-embedding"
	}
	return m.Model
}

// Dimension は次元数を返します
func (m *MockEmbedder) Dimension() int {
	return m.Dim
}

// MaxBatchSize は最大バッチサイズを返します
func (m *MockEmbedder) MaxBatchSize() int {
	return m.MaxBatch
}

// MockStore はテスト用のインメモリVectorStoreです
// 各Funcが未設定の場合はメモリ上のコレクションを操作します
type MockStore struct {
	EnsureFreshCollectionFunc func(ctx context.Context, spec ingestion.CollectionSpec) (bool, error)
	UpsertFunc                func(ctx context.Context, collection string, points []*ingestion.Point) error
	CountFunc                 func(ctx context.Context, collection string) (uint64, error)

	mu          sync.Mutex
	collections map[string]map[string]*ingestion.Point
	upserts     [][]*ingestion.Point
	resets      int
	closed      bool
}

// EnsureFreshCollection はEnsureFreshCollectionのモック実装です
func (m *MockStore) EnsureFreshCollection(ctx context.Context, spec ingestion.CollectionSpec) (bool, error) {
	if m.EnsureFreshCollectionFunc != nil {
		return m.EnsureFreshCollectionFunc(ctx, spec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collections == nil {
		m.collections = make(map[string]map[string]*ingestion.Point)
	}
	_, existed := m.collections[spec.Name]
	m.collections[spec.Name] = make(map[string]*ingestion.Point)
	m.resets++
	return existed, nil
}

// Upsert はUpsertのモック実装です
func (m *MockStore) Upsert(ctx context.Context, collection string, points []*ingestion.Point) error {
	m.mu.Lock()
	m.upserts = append(m.upserts, points)
	m.mu.Unlock()

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, collection, points)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collections == nil {
		m.collections = make(map[string]map[string]*ingestion.Point)
	}
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]*ingestion.Point)
	}
	for _, p := range points {
		m.collections[collection][p.ID.String()] = p
	}
	return nil
}

// Count はCountのモック実装です
func (m *MockStore) Count(ctx context.Context, collection string) (uint64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, collection)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.collections[collection])), nil
}

// Close はCloseのモック実装です
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Upserts はUpsertに渡されたバッチを呼び出し順に返します
func (m *MockStore) Upserts() [][]*ingestion.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*ingestion.Point(nil), m.upserts...)
}

// Points はコレクション内のポイントを返します
func (m *MockStore) Points(collection string) map[string]*ingestion.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*ingestion.Point, len(m.collections[collection]))
	for k, v := range m.collections[collection] {
		out[k] = v
	}
	return out
}

// Resets はコレクション再作成の回数を返します
func (m *MockStore) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Closed はCloseが呼ばれたかを返します
func (m *MockStore) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var (
	_ ingestion.DocumentLoader = (*MockLoader)(nil)
	_ ingestion.Splitter       = (*MockSplitter)(nil)
	_ ingestion.Embedder       = (*MockEmbedder)(nil)
	_ ingestion.VectorStore    = (*MockStore)(nil)
)
