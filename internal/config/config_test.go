package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 100, cfg.Ingest.DefaultLimit)
	require.Equal(t, 50, cfg.Ingest.BatchSize)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	require.True(t, cfg.Sources.CoinGecko.Enabled)
	require.True(t, cfg.Sources.CSV.Enabled)
	require.Equal(t, "data/crypto_prices.csv", cfg.Sources.CSV.Path)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9090
ingest:
  default_limit: 25
sources:
  coinpaprika:
    enabled: false
  csv:
    path: /tmp/prices.csv
archive:
  backend: local
  local_dir: /tmp/archive
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 25, cfg.Ingest.DefaultLimit)
	require.False(t, cfg.Sources.CoinPaprika.Enabled)
	require.Equal(t, "/tmp/prices.csv", cfg.Sources.CSV.Path)
	require.Equal(t, "local", cfg.Archive.Backend)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := cfg
	bad.Server.Port = 0
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Ingest.BatchSize = 0
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Archive.Backend = "s3"
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Archive.Backend = "gcs"
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Sources.CSV.Path = ""
	require.Error(t, bad.Validate())
}
