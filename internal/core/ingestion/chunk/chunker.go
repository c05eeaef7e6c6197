package chunk

import (
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
)

const (
	// DefaultChunkSize は最大チャンク長（rune 数）
	DefaultChunkSize = 1000
	// DefaultChunkOverlap は連続チャンク間のオーバーラップ長（rune 数）
	DefaultChunkOverlap = 100
)

// Config はDocumentChunkerの設定を表します
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// DefaultConfig はデフォルトの設定を返します
func DefaultConfig() Config {
	return Config{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		Separators:   DefaultSeparators,
	}
}

// TokenCounter はテキストのトークン数をカウントするインターフェース
type TokenCounter interface {
	CountTokens(text string) int
}

// DocumentChunker はドキュメントをメタデータ付きチャンクに分割します
type DocumentChunker struct {
	splitter *RecursiveSplitter
	tokens   TokenCounter
}

// Option はDocumentChunkerのオプション設定
type Option func(*DocumentChunker)

// WithTokenCounter はチャンクごとのトークン数を記録する
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *DocumentChunker) {
		c.tokens = counter
	}
}

// NewDocumentChunker は新しいDocumentChunkerを作成します
func NewDocumentChunker(cfg Config, opts ...Option) (*DocumentChunker, error) {
	splitter, err := NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Separators)
	if err != nil {
		return nil, err
	}
	c := &DocumentChunker{splitter: splitter}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Split はドキュメント順・ドキュメント内の出現順にチャンクを返します
func (c *DocumentChunker) Split(docs []*ingestion.Document) ([]*ingestion.Chunk, error) {
	var chunks []*ingestion.Chunk
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		docChunks, err := c.splitDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", doc.Source, err)
		}
		chunks = append(chunks, docChunks...)
	}
	return chunks, nil
}

func (c *DocumentChunker) splitDocument(doc *ingestion.Document) ([]*ingestion.Chunk, error) {
	text := doc.Text()
	contents := c.splitter.SplitText(text)

	chunks := make([]*ingestion.Chunk, 0, len(contents))
	searchFrom := 0
	for i, content := range contents {
		if n := runeLen(content); n > c.splitter.ChunkSize() {
			return nil, fmt.Errorf("chunk %d exceeds max size: %d > %d", i, n, c.splitter.ChunkSize())
		}

		// 開始位置は直前のチャンク開始位置より後ろから探す
		byteIdx := strings.Index(text[searchFrom:], content)
		if byteIdx >= 0 {
			byteIdx += searchFrom
			searchFrom = byteIdx + 1
		} else {
			byteIdx = max(strings.Index(text, content), 0)
		}
		startIndex := utf8.RuneCountInString(text[:byteIdx])
		page := doc.PageAt(startIndex)

		metadata := make(map[string]any, len(doc.Metadata)+5)
		maps.Copy(metadata, doc.Metadata)
		metadata[ingestion.MetaSource] = doc.Source
		metadata[ingestion.MetaPage] = page
		metadata[ingestion.MetaChunkIndex] = i
		metadata[ingestion.MetaStartIndex] = startIndex

		chunk := &ingestion.Chunk{
			Content:    content,
			Source:     doc.Source,
			Page:       page,
			Ordinal:    i,
			StartIndex: startIndex,
			Metadata:   metadata,
		}
		if c.tokens != nil {
			n := c.tokens.CountTokens(content)
			chunk.TokenCount = &n
			metadata[ingestion.MetaTokenCount] = n
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
