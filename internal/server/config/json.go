package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fitsync/internal/flagx"
	"github.com/dmitrijs2005/fitsync/internal/timex"
)

// JsonConfig is a DTO used only for reading JSON configuration files. It uses
// timex.Duration for lifetimes so that both "15m" and integer nanoseconds
// parse. Zero values mean "not set".
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	EndpointAddrOps              string         `json:"endpoint_addr_ops"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	MaxPageSize                  int            `json:"max_page_size"`
	TokenPurgeSchedule           string         `json:"token_purge_schedule"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays Config with the values set in the JSON file named by -c
// or -config. It does nothing when no file is given and panics when the file
// cannot be read or decoded.
func parseJson(config *Config) {
	path := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrOps, c.EndpointAddrOps)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.MaxPageSize > 0 {
		config.MaxPageSize = c.MaxPageSize
	}
	setString(&config.TokenPurgeSchedule, c.TokenPurgeSchedule)
}
