package testing

import (
	"hash/fnv"
	"strings"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
)

// TestDocument はテスト用のDocumentを生成します
func TestDocument(source string, pages ...string) *ingestion.Document {
	doc := &ingestion.Document{
		Source:   source,
		Metadata: map[string]any{ingestion.MetaSource: source},
	}
	for i, text := range pages {
		doc.Pages = append(doc.Pages, ingestion.Page{Number: i, Text: text})
	}
	return doc
}

// TestChunks はテスト用のチャンクを n 件生成します
func TestChunks(source string, n int) []*ingestion.Chunk {
	chunks := make([]*ingestion.Chunk, n)
	for i := range n {
		content := strings.Repeat(string(rune('a'+i%26)), 10) + " chunk"
		chunks[i] = &ingestion.Chunk{
			Content:    content,
			Source:     source,
			Ordinal:    i,
			StartIndex: i * 10,
			Metadata: map[string]any{
				ingestion.MetaSource:     source,
				ingestion.MetaChunkIndex: i,
			},
		}
	}
	return chunks
}

// FakeVector はテキストから決定的な dim 次元ベクトルを生成します
func FakeVector(text string, dim int) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, dim)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000) / 1000
	}
	return vec
}
