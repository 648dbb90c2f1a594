package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrEmptyTokenSecret error if config auth.tokensecret is empty.
	ErrEmptyTokenSecret = errors.New("toml config auth.tokensecret can not be empty")

	// ErrNoFileStoragePath error if the file backend is selected without a path.
	ErrNoFileStoragePath = errors.New("toml config storage.filepath required for the file backend")

	// ErrNoRedisURL error if the redis backend is selected without a URL.
	ErrNoRedisURL = errors.New("toml config storage.redisurl required for the redis backend")
)
