// Package config loads the core's environment-driven settings.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/igniter-go/igniter/log"
)

// Config holds the environment variables the core recognizes (spec §6).
type Config struct {
	// Production suppresses details on generic (non-framework) errors.
	Production bool

	// LogLevel is one of FATAL|ERROR|WARN|INFO|DEBUG|TRACE (the aliases
	// WARNING->WARN and VERBOSE->DEBUG are resolved by FromEnv).
	LogLevel log.LogLevel

	// BasePath holds IGNITER_APP_BASE_PATH. Nothing in the module reads it:
	// routes and the SSE endpoint are matched without a prefix, and no
	// self-dispatch or stream connection URL is built from it.
	BasePath string

	// AppURL holds IGNITER_APP_URL. Nothing in the module reads it.
	AppURL string

	// InteractiveMode holds IGNITER_INTERACTIVE_MODE. Nothing in the module
	// reads it; no request metrics are published on a "system" channel.
	InteractiveMode bool

	// DisableErrorTracking holds DISABLE_ERROR_TRACKING. Nothing in the
	// module reads it; error logging does not change with it.
	DisableErrorTracking bool
}

// FromEnv reads the recognized environment variables into a Config.
//
// A struct-tag binding library (as sylvester-francis-Watchdog uses
// kelseyhightower/envconfig for its full settings struct) is not wired here:
// six scalar lookups with bespoke aliasing (NODE_ENV, WARN/WARNING) do not
// carry their own weight against os.Getenv, so this stays stdlib.
func FromEnv() Config {
	return Config{
		Production:           isProduction(os.Getenv("NODE_ENV")),
		LogLevel:             resolveLogLevel(os.Getenv("IGNITER_LOG_LEVEL")),
		BasePath:             defaultString(os.Getenv("IGNITER_APP_BASE_PATH"), ""),
		AppURL:               os.Getenv("IGNITER_APP_URL"),
		InteractiveMode:      parseBool(os.Getenv("IGNITER_INTERACTIVE_MODE")),
		DisableErrorTracking: parseBool(os.Getenv("DISABLE_ERROR_TRACKING")),
	}
}

func isProduction(nodeEnv string) bool {
	return strings.EqualFold(nodeEnv, "production")
}

func resolveLogLevel(raw string) log.LogLevel {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FATAL":
		return log.LevelFatal
	case "ERROR":
		return log.LevelError
	case "WARN", "WARNING", "":
		return log.LevelWarn
	case "INFO":
		return log.LevelInfo
	case "DEBUG":
		return log.LevelDebug
	case "VERBOSE":
		return log.LevelDebug
	case "TRACE":
		return log.LogLevel("trace")
	default:
		return log.LevelWarn
	}
}

func parseBool(raw string) bool {
	v, _ := strconv.ParseBool(raw)
	return v
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}

	return v
}
