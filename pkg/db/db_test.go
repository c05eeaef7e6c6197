package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionParams_PoolConfig(t *testing.T) {
	params := ConnectionParams{
		Host:     "db.internal",
		Port:     5433,
		User:     "ingest",
		Password: "secret",
		DBName:   "vectors",
		SSLMode:  "disable",
	}

	t.Run("接続情報を反映", func(t *testing.T) {
		cfg, err := params.PoolConfig()
		require.NoError(t, err)
		assert.Equal(t, "db.internal", cfg.ConnConfig.Host)
		assert.Equal(t, uint16(5433), cfg.ConnConfig.Port)
		assert.Equal(t, "ingest", cfg.ConnConfig.User)
		assert.Equal(t, "vectors", cfg.ConnConfig.Database)
	})

	t.Run("最大接続数を指定", func(t *testing.T) {
		p := params
		p.MaxConns = 7
		cfg, err := p.PoolConfig()
		require.NoError(t, err)
		assert.Equal(t, int32(7), cfg.MaxConns)
	})

	t.Run("未指定ならpgxpoolのデフォルト", func(t *testing.T) {
		defaults, err := params.PoolConfig()
		require.NoError(t, err)
		p := params
		p.MaxConns = 0
		cfg, err := p.PoolConfig()
		require.NoError(t, err)
		assert.Equal(t, defaults.MaxConns, cfg.MaxConns)
		assert.Positive(t, cfg.MaxConns)
	})
}
