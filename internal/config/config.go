// Package config binds the reactor runtime's compile-time parameters
// (spec.md §6: NUMBER_OF_WORKERS, MAX_REACTION_LEVEL,
// INITIAL_REACT_QUEUE_SIZE) plus listen addresses to environment
// variables and cobra flags via viper, the way
// _examples/88lin-divinesense/cmd/divinesense/main.go binds its own
// profile.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration for cmd/reactord.
type Config struct {
	NumberOfWorkers  int
	MaxReactionLevel uint32
	InitialQueueSize int

	TickInterval time.Duration
	TickLimit    int

	HTTP10Addr     string
	MetricsAddr    string
	LogLevel       string
}

// Defaults returns the configuration used when no flag or environment
// variable overrides a field.
func Defaults() Config {
	return Config{
		NumberOfWorkers:  4,
		MaxReactionLevel: 7,
		InitialQueueSize: 16,
		TickInterval:     2 * time.Second,
		TickLimit:        0, // 0 means run until stopped externally
		HTTP10Addr:       ":8080",
		MetricsAddr:      ":9090",
		LogLevel:         "info",
	}
}

// BindEnv registers the environment variable names viper will read for
// every field, all prefixed REACTORD_.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("reactord")
	_ = v.BindEnv("workers")
	_ = v.BindEnv("max-level")
	_ = v.BindEnv("initial-queue-size")
	_ = v.BindEnv("tick-interval")
	_ = v.BindEnv("tick-limit")
	_ = v.BindEnv("http10-addr")
	_ = v.BindEnv("metrics-addr")
	_ = v.BindEnv("log-level")
	v.AutomaticEnv()
}

// FromViper reads every field out of v, falling back to d for anything
// unset.
func FromViper(v *viper.Viper, d Config) Config {
	cfg := d
	if v.IsSet("workers") {
		cfg.NumberOfWorkers = v.GetInt("workers")
	}
	if v.IsSet("max-level") {
		cfg.MaxReactionLevel = uint32(v.GetInt("max-level"))
	}
	if v.IsSet("initial-queue-size") {
		cfg.InitialQueueSize = v.GetInt("initial-queue-size")
	}
	if v.IsSet("tick-interval") {
		cfg.TickInterval = v.GetDuration("tick-interval")
	}
	if v.IsSet("tick-limit") {
		cfg.TickLimit = v.GetInt("tick-limit")
	}
	if v.IsSet("http10-addr") {
		cfg.HTTP10Addr = v.GetString("http10-addr")
	}
	if v.IsSet("metrics-addr") {
		cfg.MetricsAddr = v.GetString("metrics-addr")
	}
	if v.IsSet("log-level") {
		cfg.LogLevel = v.GetString("log-level")
	}
	return cfg
}
