// Package monitoring holds the process-wide diagnostic loggers used by the
// mapping packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf receives advisories: conditions callers must tolerate as steady
// state, such as a full point budget. It defaults to log.Printf with a
// "warning: " prefix.
var Warnf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	log.Printf("warning: "+format, v...)
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetWarnLogger replaces the advisory logger. Passing nil mutes advisories.
func SetWarnLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Warnf = func(string, ...interface{}) {}
		return
	}
	Warnf = f
}
