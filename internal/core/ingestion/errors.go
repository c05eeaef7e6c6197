package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable はソースディレクトリが存在しない・読めない場合に返されます
	ErrSourceUnavailable = errors.New("source directory unavailable")

	// ErrParseFailed はドキュメントのパースに失敗した場合に返されます
	ErrParseFailed = errors.New("document parse failed")

	// ErrInvalidConfig は設定が不正な場合に返されます
	ErrInvalidConfig = errors.New("invalid config")

	// ErrModelUnavailable はEmbeddingモデルを利用できない場合に返されます
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrDimensionMismatch はEmbeddingの次元数がコレクション定義と一致しない場合に返されます
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyInput は空の入力が渡された場合に返されます
	ErrEmptyInput = errors.New("empty input")

	// ErrCollectionNotFound は削除対象のコレクションが存在しない場合の分類に使われます
	ErrCollectionNotFound = errors.New("collection not found")
)

// Stage は取り込み処理の状態を表す
type Stage string

const (
	StageIdle            Stage = "idle"
	StageLoading         Stage = "loading"
	StageSplitting       Stage = "splitting"
	StageProbing         Stage = "probing"
	StageCollectionReset Stage = "collection_reset"
	StageInserting       Stage = "inserting"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

// StageError は失敗したステージ付きのエラーを表します
type StageError struct {
	Stage Stage
	Batch int // Inserting ステージでのみ設定（1 始まり）
	Err   error
}

func (e *StageError) Error() string {
	if e.Stage == StageInserting && e.Batch > 0 {
		return fmt.Sprintf("ingestion: %s (batch=%d): %s", e.Stage, e.Batch, e.Err)
	}
	return fmt.Sprintf("ingestion: %s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
