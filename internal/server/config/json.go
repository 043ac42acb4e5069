package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept both "15m"
// style strings and integer nanoseconds. Fields left empty in the file keep
// their current value.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	GRPCHealthAddr               string         `json:"grpc_health_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	StoreBackend                 string         `json:"store_backend"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      *int           `json:"redis_db"`
	RedisKeyPrefix               string         `json:"redis_key_prefix"`
	AccessSecret                 string         `json:"access_secret"`
	RenewalSecret                string         `json:"renewal_secret"`
	Issuer                       string         `json:"issuer"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	LogFormat                    string         `json:"log_format"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads the file named by -c / -config (or GOPHAUTH_CONFIG) into
// config. Without a path it does nothing.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.ConfigFilePath(EnvPrefix + "CONFIG")
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.StoreBackend, c.StoreBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.RedisKeyPrefix, c.RedisKeyPrefix)
	setString(&config.AccessSecret, c.AccessSecret)
	setString(&config.RenewalSecret, c.RenewalSecret)
	setString(&config.Issuer, c.Issuer)
	setString(&config.LogFormat, c.LogFormat)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
