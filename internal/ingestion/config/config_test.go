package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("remote_store:\n  driver: local\n  local:\n    root: /srv/drop\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.RemoteStore.Driver)
	assert.Equal(t, "/srv/drop", cfg.RemoteStore.Local.Root)
	assert.Equal(t, "@every 10s", cfg.Ingest.Schedule)
	assert.Equal(t, "/upload", cfg.Ingest.SourceDir)
	assert.Equal(t, "/upload/processed", cfg.Ingest.ArchiveDir)
	assert.Equal(t, []string{".csv", ".txt", ".dat"}, cfg.Ingest.AllowedExtensions)
	assert.Equal(t, []string{"basket_concentration"}, cfg.Compliance.Rules)
	assert.Equal(t, 5000, cfg.API.Port)
	assert.Equal(t, uint64(30), cfg.Database.ReadyRetries)

	ttl, err := cfg.FailureLogTTL()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, ttl)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Ingest.SourceDir = "/upload"
		c.Ingest.ArchiveDir = "/upload/processed"
		c.RemoteStore.Driver = "sftp"
		return c
	}

	require.NoError(t, valid().Validate())

	c := valid()
	c.Ingest.ArchiveDir = "/upload/"
	assert.Error(t, c.Validate())

	c = valid()
	c.RemoteStore.Driver = "ftp"
	assert.Error(t, c.Validate())

	c = valid()
	c.Ingest.SourceDir = ""
	assert.Error(t, c.Validate())

	c = valid()
	c.Ingest.FailureLogTTL = "soon"
	assert.Error(t, c.Validate())
}

func TestDurationFallbacks(t *testing.T) {
	c := &Config{}

	d, err := c.CycleLockTTL()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	d, err = c.DialTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	c.Database.ReadyInterval = "500ms"
	d, err = c.ReadyInterval()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)
}
