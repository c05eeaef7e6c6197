package postgres

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/pdf-ingest/internal/core/ingestion"
	"github.com/jinford/pdf-ingest/pkg/db"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore_Integration は Docker 上の PostgreSQL + pgvector に対する統合テスト
// -short 指定時または Docker が使えない環境ではスキップされる
func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Skipping integration test: docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("Skipping integration test: docker unavailable: %v", err)
	}
	pool.MaxWait = 2 * time.Minute

	resource, err := pool.Run("pgvector/pgvector", "pg16", []string{
		"POSTGRES_USER=ingest",
		"POSTGRES_PASSWORD=ingest",
		"POSTGRES_DB=ingest",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })
	_ = resource.Expire(300)

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	require.NoError(t, err)

	ctx := context.Background()
	params := db.ConnectionParams{
		Host:     "localhost",
		Port:     port,
		User:     "ingest",
		Password: "ingest",
		DBName:   "ingest",
		SSLMode:  "disable",
	}

	var database *db.DB
	require.NoError(t, pool.Retry(func() error {
		var err error
		database, err = db.New(ctx, params)
		return err
	}))

	store := NewStore(database, testLogger())
	t.Cleanup(func() { _ = store.Close() })

	spec := ingestion.CollectionSpec{Name: "integration_docs", Dimension: 4, Distance: ingestion.DistanceCosine}

	deleted, err := store.EnsureFreshCollection(ctx, spec)
	require.NoError(t, err)
	assert.False(t, deleted)

	// 2回目は既存テーブルを削除して作り直す
	deleted, err = store.EnsureFreshCollection(ctx, spec)
	require.NoError(t, err)
	assert.True(t, deleted)

	points := make([]*ingestion.Point, 0, 25)
	for i := range 25 {
		points = append(points, &ingestion.Point{
			ID:      uuid.New(),
			Vector:  []float32{float32(i + 1), 1, 0, 0},
			Content: "chunk " + strconv.Itoa(i),
			Payload: map[string]any{
				ingestion.PayloadContent:  "chunk " + strconv.Itoa(i),
				ingestion.PayloadMetadata: map[string]any{ingestion.MetaChunkIndex: i},
			},
		})
	}
	for _, batch := range ingestion.Batches(points, 10) {
		require.NoError(t, store.Upsert(ctx, spec.Name, batch))
	}

	// 同じIDの再投入は行数を増やさない
	require.NoError(t, store.Upsert(ctx, spec.Name, points[:5]))

	n, err := store.Count(ctx, spec.Name)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), n)

	_, err = store.EnsureFreshCollection(ctx, spec)
	require.NoError(t, err)
	n, err = store.Count(ctx, spec.Name)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}
