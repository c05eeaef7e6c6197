package postgres

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateCollectionStatements(t *testing.T) {
	t.Run("テーブルとHNSWインデックスを作成する", func(t *testing.T) {
		stmts, err := createCollectionStatements(ingestion.CollectionSpec{
			Name:      "medical_docs",
			Dimension: 384,
			Distance:  ingestion.DistanceCosine,
		})
		require.NoError(t, err)
		require.Len(t, stmts, 2)

		assert.Contains(t, stmts[0], `CREATE TABLE "medical_docs"`)
		assert.Contains(t, stmts[0], "embedding vector(384) NOT NULL")
		assert.Contains(t, stmts[0], "metadata jsonb")
		assert.Equal(t, `CREATE INDEX "medical_docs_embedding_idx" ON "medical_docs" USING hnsw (embedding vector_cosine_ops)`, stmts[1])
	})

	t.Run("コレクション名はクォートされる", func(t *testing.T) {
		stmts, err := createCollectionStatements(ingestion.CollectionSpec{
			Name:      `docs"; DROP TABLE x; --`,
			Dimension: 4,
			Distance:  ingestion.DistanceDot,
		})
		require.NoError(t, err)
		assert.Contains(t, stmts[0], `CREATE TABLE "docs""; DROP TABLE x; --"`)
	})

	t.Run("不正なスキーマはErrInvalidConfig", func(t *testing.T) {
		cases := []ingestion.CollectionSpec{
			{Name: "", Dimension: 384, Distance: ingestion.DistanceCosine},
			{Name: "docs", Dimension: 0, Distance: ingestion.DistanceCosine},
			{Name: "docs", Dimension: 384, Distance: "Manhattan"},
		}
		for _, spec := range cases {
			_, err := createCollectionStatements(spec)
			assert.ErrorIs(t, err, ingestion.ErrInvalidConfig, "spec=%+v", spec)
		}
	})
}

func TestOperatorClass(t *testing.T) {
	tests := []struct {
		distance ingestion.Distance
		want     string
	}{
		{ingestion.DistanceCosine, "vector_cosine_ops"},
		{ingestion.DistanceEuclid, "vector_l2_ops"},
		{ingestion.DistanceDot, "vector_ip_ops"},
		{"", "vector_cosine_ops"},
	}
	for _, tt := range tests {
		got, err := operatorClass(tt.distance)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestTableName(t *testing.T) {
	assert.Equal(t, `"medical_docs"`, tableName("medical_docs"))
	assert.Equal(t, `"Mixed Case"`, tableName("Mixed Case"))
}
