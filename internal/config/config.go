// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/BurntSushi/toml"
)

// EnvConfigJSON names the environment variable whose JSON payload overrides
// values read from the TOML file.
const EnvConfigJSON = "GO_ALTREPO_API_CONFIG_JSON"

// Defaults applied by validate() for fields left unset.
const (
	DefaultShutDownTime       = 5       // seconds
	DefaultAccessTokenTTL     = 3600    // 1 hour
	DefaultRefreshTokenTTL    = 2592000 // 30 days
	DefaultMaxRefreshSessions = 5
	DefaultStorageBackend     = "file"
	DefaultLockTimeout        = 30 // seconds
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c   Config
		err error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	if jsonConfigEnv := os.Getenv(EnvConfigJSON); jsonConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, jsonConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config override from env")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate fills defaults and checks the settings the daemon can not start
// without. Declarative field constraints run through the validator tags.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Auth.TokenSecret == "" {
		return errors.Wrap(ErrEmptyTokenSecret, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = DefaultShutDownTime
	}

	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = DefaultAccessTokenTTL
	}

	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = DefaultRefreshTokenTTL
	}

	if c.Auth.MaxRefreshSessions == 0 {
		c.Auth.MaxRefreshSessions = DefaultMaxRefreshSessions
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultStorageBackend
	}

	if c.Storage.LockTimeout == 0 {
		c.Storage.LockTimeout = DefaultLockTimeout
	}

	switch c.Storage.Backend {
	case "file":
		if c.Storage.FilePath == "" {
			return errors.Wrap(ErrNoFileStoragePath, invalidErrMessage)
		}
	case "redis":
		if c.Storage.RedisURL == "" {
			return errors.Wrap(ErrNoRedisURL, invalidErrMessage)
		}
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	return nil
}
