package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/jinford/pdf-ingest/pkg/config"
)

func runFlags(t *testing.T, args ...string) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Ingest:      config.IngestConfig{DataDir: "./Data", BatchSize: 10},
		VectorStore: config.VectorStoreConfig{Backend: config.StoreQdrant, Collection: "medical_docs"},
	}
	cmd := &cli.Command{
		Name:  "pdf-ingest",
		Flags: IngestFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyFlags(cmd, cfg)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"pdf-ingest"}, args...)))
	return cfg
}

func TestApplyFlags(t *testing.T) {
	t.Run("フラグなしは設定値のまま", func(t *testing.T) {
		cfg := runFlags(t)
		assert.Equal(t, "./Data", cfg.Ingest.DataDir)
		assert.Equal(t, 10, cfg.Ingest.BatchSize)
		assert.Equal(t, config.StoreQdrant, cfg.VectorStore.Backend)
		assert.Equal(t, "medical_docs", cfg.VectorStore.Collection)
	})

	t.Run("指定したフラグで上書き", func(t *testing.T) {
		cfg := runFlags(t,
			"--data-dir", "/srv/pdfs",
			"--collection", "papers",
			"--store", config.StorePGVector,
			"--batch-size", "32",
		)
		assert.Equal(t, "/srv/pdfs", cfg.Ingest.DataDir)
		assert.Equal(t, "papers", cfg.VectorStore.Collection)
		assert.Equal(t, config.StorePGVector, cfg.VectorStore.Backend)
		assert.Equal(t, 32, cfg.Ingest.BatchSize)
	})

	t.Run("ストア名は大文字小文字を区別しない", func(t *testing.T) {
		cfg := runFlags(t, "--store", "PGVector")
		assert.Equal(t, config.StorePGVector, cfg.VectorStore.Backend)
	})
}

func TestNewAppContext_InvalidOverride(t *testing.T) {
	_, err := NewAppContext(context.Background(), "", nil, func(cfg *config.Config) {
		cfg.Ingest.BatchSize = 0
	})
	assert.ErrorIs(t, err, config.ErrInvalid)
}
