// Package config exposes typed access to the service configuration.
//
// Business code depends on the Config interface; the Viper implementation
// reads a YAML file, lets environment variables override any key and reloads
// the file when it changes on disk.
package config

import (
	"io"
	"time"
)

// TimeConfig reads integer values and scales them into durations.
type TimeConfig interface {
	// GetSecond reads key as a number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads key as a number of minutes.
	GetMinute(key string) time.Duration
}

// Config defines the typed getters used across the application.
//
// Missing keys yield the zero value of the requested type; callers that need
// a fallback apply it themselves.
type Config interface {
	io.Closer
	TimeConfig

	GetBool(key string) bool
	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64
	GetString(key string) string

	// GetArray reads a "<a>,<b>,..." value as a slice. Empty elements are dropped.
	GetArray(key string) []string
}
