// Package monitoring holds the process-wide diagnostic logger used by the
// dashboard's parse and render paths.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger; tests typically mute it.
var Logf func(format string, v ...any) = log.Printf

var verbose atomic.Bool

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// SetVerbose toggles Debugf output.
func SetVerbose(on bool) { verbose.Store(on) }

// Debugf logs only when verbose diagnostics are enabled. Used on hot paths
// (per-sample decode, per-figure render) where unconditional logging would
// swamp the request log.
func Debugf(format string, v ...any) {
	if verbose.Load() {
		Logf(format, v...)
	}
}
