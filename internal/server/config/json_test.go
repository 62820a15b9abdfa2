package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestParseJson_LoadsFileFromFlag(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"endpoint_addr":                ":9001",
		"database_dsn":                 "postgres://json/db",
		"data_dir":                     "/srv/blobs",
		"blob_backend":                 "s3",
		"proxy_depth":                  1,
		"maximum_filesize":             4096,
		"maximum_quota":                8192,
		"maximum_uploads_per_identity": 2,
		"daily_request_limit":          48,
		"sweep_interval":               "30s",
		"admin_password_salt":          "abcd",
		"admin_password_verifier":      "ef01",
		"session_validity":             "1h",
		"long_session_validity":        "720h",
		"s3_root_user":                 "user",
		"s3_root_password":             "pass",
		"s3_bucket":                    "bucket",
		"s3_region":                    "eu-west-1",
		"s3_base_endpoint":             "http://minio:9000/",
	})
	os.Args = []string{"testbin", "-c", path}

	var c Config
	c.LoadDefaults()
	parseJson(&c)

	assert.Equal(t, ":9001", c.EndpointAddr)
	assert.Equal(t, "postgres://json/db", c.DatabaseDSN)
	assert.Equal(t, "/srv/blobs", c.DataDir)
	assert.Equal(t, "s3", c.BlobBackend)
	assert.Equal(t, 1, c.ProxyDepth)
	assert.Equal(t, int64(4096), c.MaximumFilesize)
	assert.Equal(t, int64(8192), c.MaximumQuota)
	assert.Equal(t, 2, c.MaximumUploadsPerIdentity)
	assert.Equal(t, uint64(48), c.DailyRequestLimit)
	assert.Equal(t, 30*time.Second, c.SweepInterval)
	assert.Equal(t, "abcd", c.AdminPasswordSalt)
	assert.Equal(t, "ef01", c.AdminPasswordVerifier)
	assert.Equal(t, time.Hour, c.SessionValidity)
	assert.Equal(t, 720*time.Hour, c.LongSessionValidity)
	assert.Equal(t, "eu-west-1", c.S3Region)
}

func TestParseJson_NoFlagLeavesConfigUntouched(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin"}

	var c Config
	c.LoadDefaults()
	before := c
	parseJson(&c)

	assert.Equal(t, before, c)
}

func TestParseJson_BadFilePanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	os.Args = []string{"testbin", "-c", path}

	var c Config
	c.LoadDefaults()
	assert.Panics(t, func() { parseJson(&c) })
}
