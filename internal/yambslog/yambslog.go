// Package yambslog configures the process-wide structured logger used by
// every other package in this module.
package yambslog

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Init configures the default charmbracelet/log logger from YAMBS_LOG_LEVEL
// (error|warn|info|debug|trace, default info). charmbracelet/log has no
// trace level of its own, so trace sets the same debug level as debug; no
// field is added to ordinary records. Only lines logged through Trace carry
// a trace=true field.
func Init() {
	level := strings.ToLower(strings.TrimSpace(os.Getenv("YAMBS_LOG_LEVEL")))
	trace := false
	switch level {
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "trace":
		log.SetLevel(log.DebugLevel)
		trace = true
	case "", "info":
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.InfoLevel)
		log.Warn("unrecognized YAMBS_LOG_LEVEL, defaulting to info", "value", level)
	}
	log.SetReportTimestamp(false)
	if trace {
		log.SetLevel(log.DebugLevel)
	}
}

// Trace logs at debug level tagged so it's distinguishable when
// YAMBS_LOG_LEVEL=trace was requested; callers don't need to know whether
// trace is actually enabled, only that this is a very chatty line.
func Trace(msg string, kv ...interface{}) {
	log.Debug(msg, append([]interface{}{"trace", true}, kv...)...)
}
