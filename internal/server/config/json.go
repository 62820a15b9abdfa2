package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/cryptshare/internal/flagx"
	"github.com/dmitrijs2005/cryptshare/internal/timex"
)

// JsonConfig is the DTO used only for reading JSON configuration files.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds. After unmarshalling,
// its fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddr              string         `json:"endpoint_addr"`
	DatabaseDSN               string         `json:"database_dsn"`
	DataDir                   string         `json:"data_dir"`
	BlobBackend               string         `json:"blob_backend"`
	ProxyDepth                int            `json:"proxy_depth"`
	MaximumFilesize           int64          `json:"maximum_filesize"`
	MaximumQuota              int64          `json:"maximum_quota"`
	MaximumUploadsPerIdentity int            `json:"maximum_uploads_per_identity"`
	DailyRequestLimit         uint64         `json:"daily_request_limit"`
	SweepInterval             timex.Duration `json:"sweep_interval"`
	AdminPasswordSalt         string         `json:"admin_password_salt"`
	AdminPasswordVerifier     string         `json:"admin_password_verifier"`
	SessionValidity           timex.Duration `json:"session_validity"`
	LongSessionValidity       timex.Duration `json:"long_session_validity"`
	S3RootUser                string         `json:"s3_root_user"`
	S3RootPassword            string         `json:"s3_root_password"`
	S3Bucket                  string         `json:"s3_bucket"`
	S3Region                  string         `json:"s3_region"`
	S3BaseEndpoint            string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.DataDir = c.DataDir
	config.BlobBackend = c.BlobBackend
	config.ProxyDepth = c.ProxyDepth
	config.MaximumFilesize = c.MaximumFilesize
	config.MaximumQuota = c.MaximumQuota
	config.MaximumUploadsPerIdentity = c.MaximumUploadsPerIdentity
	config.DailyRequestLimit = c.DailyRequestLimit
	config.SweepInterval = c.SweepInterval.Duration
	config.AdminPasswordSalt = c.AdminPasswordSalt
	config.AdminPasswordVerifier = c.AdminPasswordVerifier
	config.SessionValidity = c.SessionValidity.Duration
	config.LongSessionValidity = c.LongSessionValidity.Duration
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
