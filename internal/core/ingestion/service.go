package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	// DefaultBatchSize は1回のUpsertで書き込むチャンク数
	DefaultBatchSize = 10
	// DefaultCollectionName はデフォルトのコレクション名
	DefaultCollectionName = "medical_docs"
	// DefaultDimension は all-MiniLM-L6-v2 の出力次元
	DefaultDimension = 384
	// MinBatchSize は最小バッチサイズ
	MinBatchSize = 1
)

// dimensionCheckText は起動時の次元検証に使う固定文
const dimensionCheckText = "dimension check"

// ServiceConfig は取り込み処理の設定
type ServiceConfig struct {
	// Collection は書き込み先コレクションのスキーマ
	Collection CollectionSpec
	// BatchSize はUpsert 1回あたりのチャンク数（Embedder.MaxBatchSize()でクリップされる）
	BatchSize int
}

// DefaultServiceConfig はデフォルト設定を返す
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Collection: CollectionSpec{
			Name:      DefaultCollectionName,
			Dimension: DefaultDimension,
			Distance:  DistanceCosine,
		},
		BatchSize: DefaultBatchSize,
	}
}

// Result は取り込み処理の結果を表す
type Result struct {
	Success         bool
	Stage           Stage // 最後に到達したステージ（失敗時は失敗したステージ）
	Documents       int
	Pages           int
	Chunks          int
	Batches         int // 予定バッチ数
	InsertedBatches int // 書き込みに成功したバッチ数
	Points          uint64
	Duration        time.Duration
	Err             error
}

// IngestService は PDF 取り込みのユースケースを提供する
type IngestService struct {
	loader   DocumentLoader
	splitter Splitter
	embedder Embedder
	store    VectorStore
	config   *ServiceConfig
	progress io.Writer
	logger   *slog.Logger

	// 実際に使用するバッチサイズ（Embedder.MaxBatchSize()でクリップ済み）
	batchSize int
}

type serviceOptions struct {
	config   *ServiceConfig
	progress io.Writer
	logger   *slog.Logger
}

// ServiceOption は IngestService のオプション設定
type ServiceOption func(*serviceOptions)

// WithConfig は設定を上書きする
func WithConfig(cfg *ServiceConfig) ServiceOption {
	return func(o *serviceOptions) {
		o.config = cfg
	}
}

// WithProgressWriter は進捗行の出力先を設定する
func WithProgressWriter(w io.Writer) ServiceOption {
	return func(o *serviceOptions) {
		o.progress = w
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewIngestService は新しいIngestServiceを作成する
func NewIngestService(
	loader DocumentLoader,
	splitter Splitter,
	embedder Embedder,
	store VectorStore,
	opts ...ServiceOption,
) *IngestService {
	options := serviceOptions{
		config:   DefaultServiceConfig(),
		progress: io.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.config == nil {
		options.config = DefaultServiceConfig()
	}
	if options.progress == nil {
		options.progress = io.Discard
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	batchSize := options.config.BatchSize
	if maxBatch := embedder.MaxBatchSize(); maxBatch > 0 && batchSize > maxBatch {
		options.logger.Info("BatchSizeをEmbedderの最大値でクリップ",
			"configured", batchSize,
			"max", maxBatch,
		)
		batchSize = maxBatch
	}
	if batchSize < MinBatchSize {
		batchSize = MinBatchSize
	}

	return &IngestService{
		loader:    loader,
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		config:    options.config,
		progress:  options.progress,
		logger:    options.logger,
		batchSize: batchSize,
	}
}

// BatchSize は実際に使用するバッチサイズを返す
func (s *IngestService) BatchSize() int {
	return s.batchSize
}

// Ingest は Load → Split → コレクション再作成 → バッチ投入 を順に実行する。
// どのステージのエラーも Result.Success=false に変換され、進捗出力には汎用のエラー行を1行だけ出す。
func (s *IngestService) Ingest(ctx context.Context) *Result {
	start := time.Now()
	result := &Result{Stage: StageIdle}

	err := s.run(ctx, result)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		stage := result.Stage
		result.Stage = StageFailed
		fmt.Fprintf(s.progress, "Error in document ingestion: %v\n", err)
		s.logger.Error("ドキュメント取り込みに失敗",
			"stage", stage,
			"insertedBatches", result.InsertedBatches,
			"batches", result.Batches,
			"error", err,
		)
		return result
	}

	result.Success = true
	result.Stage = StageDone
	fmt.Fprintf(s.progress, "Successfully processed %d medical documents\n", result.Documents)
	s.logger.Info("ドキュメント取り込み完了",
		"documents", result.Documents,
		"pages", result.Pages,
		"chunks", result.Chunks,
		"batches", result.InsertedBatches,
		"points", result.Points,
		"duration", result.Duration,
	)
	return result
}

func (s *IngestService) run(ctx context.Context, result *Result) error {
	collection := s.config.Collection

	// Loading
	result.Stage = StageLoading
	fmt.Fprintf(s.progress, "Loading documents from: %s\n", s.loader.Root())
	docs, err := s.loader.Load(ctx)
	if err != nil {
		return &StageError{Stage: StageLoading, Err: err}
	}
	result.Documents = len(docs)
	for _, d := range docs {
		result.Pages += len(d.Pages)
	}
	s.logger.Info("ドキュメントを読み込みました", "root", s.loader.Root(), "documents", result.Documents, "pages", result.Pages)

	// Splitting
	result.Stage = StageSplitting
	chunks, err := s.splitter.Split(docs)
	if err != nil {
		return &StageError{Stage: StageSplitting, Err: err}
	}
	result.Chunks = len(chunks)
	result.Batches = BatchCount(len(chunks), s.batchSize)
	s.logger.Info("チャンク分割完了", "chunks", result.Chunks, "batches", result.Batches, "batchSize", s.batchSize)

	// 次元検証はコレクションに触れる前に行う
	result.Stage = StageProbing
	if err := s.verifyDimension(ctx, collection.Dimension); err != nil {
		return &StageError{Stage: StageProbing, Err: err}
	}

	// CollectionReset
	result.Stage = StageCollectionReset
	deleted, err := s.store.EnsureFreshCollection(ctx, collection)
	if err != nil {
		return &StageError{Stage: StageCollectionReset, Err: err}
	}
	if deleted {
		fmt.Fprintf(s.progress, "Deleted existing collection: %s\n", collection.Name)
	} else {
		fmt.Fprintf(s.progress, "No existing collection to delete: %s\n", collection.Name)
	}
	fmt.Fprintf(s.progress, "Created fresh collection: %s\n", collection.Name)

	// Inserting
	result.Stage = StageInserting
	for i, batch := range Batches(chunks, s.batchSize) {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: StageInserting, Batch: i + 1, Err: err}
		}
		if err := s.AddBatch(ctx, batch); err != nil {
			return &StageError{Stage: StageInserting, Batch: i + 1, Err: err}
		}
		result.InsertedBatches++
		fmt.Fprintf(s.progress, "Processed batch %d of %d\n", i+1, result.Batches)
	}

	count, err := s.store.Count(ctx, collection.Name)
	if err != nil {
		// 書き込み自体は完了しているため警告のみ
		s.logger.Warn("ポイント数の取得に失敗", "collection", collection.Name, "error", err)
	} else {
		result.Points = count
	}

	return nil
}

// AddBatch はチャンク1バッチ分のEmbeddingを生成してコレクションに書き込む
func (s *IngestService) AddBatch(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(vectors))
	}

	points := make([]*Point, len(chunks))
	for i, c := range chunks {
		points[i] = NewPoint(c, vectors[i])
	}

	if err := s.store.Upsert(ctx, s.config.Collection.Name, points); err != nil {
		return fmt.Errorf("failed to upsert batch: %w", err)
	}
	return nil
}

// verifyDimension はEmbedderの実際の出力次元をコレクション定義と照合する
func (s *IngestService) verifyDimension(ctx context.Context, want int) error {
	vec, err := s.embedder.Embed(ctx, dimensionCheckText)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrModelUnavailable, s.embedder.ModelName(), err)
	}
	if len(vec) != want {
		return fmt.Errorf("%w: model %s returned %d, collection expects %d",
			ErrDimensionMismatch, s.embedder.ModelName(), len(vec), want)
	}
	return nil
}

// NewPoint はチャンクとベクトルからポイントを組み立てる
func NewPoint(c *Chunk, vector []float32) *Point {
	metadata := make(map[string]any, len(c.Metadata))
	for k, v := range c.Metadata {
		metadata[k] = v
	}
	return &Point{
		ID:      c.PointID(),
		Vector:  vector,
		Content: c.Content,
		Payload: map[string]any{
			PayloadContent:  c.Content,
			PayloadMetadata: metadata,
		},
	}
}

// BatchCount は n 件を size 件ずつに分けたときのバッチ数を返す
func BatchCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Batches はスライスを size 件ずつのバッチに分割する（順序を保つ）
func Batches[T any](items []T, size int) [][]T {
	if size < MinBatchSize {
		size = MinBatchSize
	}
	batches := make([][]T, 0, BatchCount(len(items), size))
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}
