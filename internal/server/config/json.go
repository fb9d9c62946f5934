package config

import (
	"encoding/json"
	"os"

	"github.com/secure-doc/imagey-cloud/internal/flagx"
	"github.com/secure-doc/imagey-cloud/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept both "24h" and integer nanoseconds. Only fields present in the file
// override the current values.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	SecretKey                    *string         `json:"secret_key"`
	LinkTokenValidityDuration    *timex.Duration `json:"link_token_validity_duration"`
	SessionTokenValidityDuration *timex.Duration `json:"session_token_validity_duration"`
	PublicBaseURL                *string         `json:"public_base_url"`
	StorageBackend               *string         `json:"storage_backend"`
	RootPath                     *string         `json:"root_path"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	RedisAddr                    *string         `json:"redis_addr"`
	BlobBackend                  *string         `json:"blob_backend"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	SMTPHost                     *string         `json:"smtp_host"`
	SMTPPort                     *int            `json:"smtp_port"`
	SMTPUser                     *string         `json:"smtp_user"`
	SMTPPassword                 *string         `json:"smtp_password"`
	AcmeChallengePath            *string         `json:"acme_challenge_path"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c/-config (or
// $IMAGEY_CONFIG) onto config. Missing file name means nothing to do; an
// unreadable file or invalid JSON panics.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigFile(args)
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

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.SecretKey, c.SecretKey)
	if c.LinkTokenValidityDuration != nil {
		config.LinkTokenValidityDuration = c.LinkTokenValidityDuration.Duration
	}
	if c.SessionTokenValidityDuration != nil {
		config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	}
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.RootPath, c.RootPath)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.AcmeChallengePath, c.AcmeChallengePath)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
