package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
database:
  host: db
  port: 5432
  user: app
  password: secret
  dbname: facematch
  sslmode: disable
aws:
  region: eu-west-1
  s3_bucket: my-bucket
jwt:
  secret: s3cret
log:
  level: debug
matching:
  batch_size: 5
  batch_delay_ms: 250
  compare_threshold: 85
  accept_threshold: 75
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, 5, cfg.Matching.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Matching.BatchDelay())
	assert.Equal(t, float64(85), cfg.Matching.CompareThreshold)
	assert.Equal(t, float64(75), cfg.Matching.AcceptThreshold)
	assert.Equal(t,
		"host=db port=5432 user=app password=secret dbname=facematch sslmode=disable",
		cfg.Database.DSN(),
	)
}

func TestLoad_MatchingDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Matching.BatchSize)
	assert.Equal(t, time.Second, cfg.Matching.BatchDelay())
	assert.Equal(t, float64(80), cfg.Matching.CompareThreshold)
	assert.Equal(t, float64(70), cfg.Matching.AcceptThreshold)
	assert.Equal(t, 1000, cfg.Matching.MaxImages)
	assert.Equal(t, time.Duration(0), cfg.Matching.DownloadDelay())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
