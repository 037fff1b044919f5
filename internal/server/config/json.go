package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/volunteerhub/internal/flagx"
	"github.com/dmitrijs2005/volunteerhub/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Durations use
// timex.Duration so both "10s" and integer nanoseconds are accepted.
// Keys absent from the file leave the corresponding defaults untouched.
type JsonConfig struct {
	EndpointAddrHTTP        string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC        string         `json:"endpoint_addr_grpc"`
	DatabaseDSN             string         `json:"database_dsn"`
	SecretKey               string         `json:"secret_key"`
	TokenIssuer             string         `json:"token_issuer"`
	RevocationBackend       string         `json:"revocation_backend"`
	RedisURL                string         `json:"redis_url"`
	RevocationCacheSize     *int           `json:"revocation_cache_size"`
	RevocationSweepInterval timex.Duration `json:"revocation_sweep_interval"`
	S3RootUser              string         `json:"s3_root_user"`
	S3RootPassword          string         `json:"s3_root_password"`
	S3Bucket                string         `json:"s3_bucket"`
	S3SnapshotKey           string         `json:"s3_snapshot_key"`
	S3Region                string         `json:"s3_region"`
	S3BaseEndpoint          string         `json:"s3_base_endpoint"`
	S3SnapshotInterval      timex.Duration `json:"s3_snapshot_interval"`
	OTLPEndpoint            string         `json:"otlp_endpoint"`
	OTLPInsecure            *bool          `json:"otlp_insecure"`
	LogLevel                string         `json:"log_level"`
	HTTPReadTimeout         timex.Duration `json:"http_read_timeout"`
	HTTPWriteTimeout        timex.Duration `json:"http_write_timeout"`
}

// parseJson loads configuration values from the JSON file named by -c/-config
// (or the config env var) into config. A missing path is a no-op; an
// unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.RevocationBackend, c.RevocationBackend)
	setString(&config.RedisURL, c.RedisURL)
	if c.RevocationCacheSize != nil {
		config.RevocationCacheSize = *c.RevocationCacheSize
	}
	if c.RevocationSweepInterval.Duration > 0 {
		config.RevocationSweepInterval = c.RevocationSweepInterval.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3SnapshotKey, c.S3SnapshotKey)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3SnapshotInterval.Duration > 0 {
		config.S3SnapshotInterval = c.S3SnapshotInterval.Duration
	}
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)
	if c.OTLPInsecure != nil {
		config.OTLPInsecure = *c.OTLPInsecure
	}
	setString(&config.LogLevel, c.LogLevel)
	if c.HTTPReadTimeout.Duration > 0 {
		config.HTTPReadTimeout = c.HTTPReadTimeout.Duration
	}
	if c.HTTPWriteTimeout.Duration > 0 {
		config.HTTPWriteTimeout = c.HTTPWriteTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
