// Package logging is the thin diagnostics boundary the core uses to
// report errors and lifecycle events. Callers only ever see the
// Logger interface below; the hclog-backed implementation is an
// implementation detail of cmd/ entrypoints.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package logging

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger is the narrow boundary the core reports diagnostics through.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Named(name string) Logger
}

type hclogLogger struct {
	l hclog.Logger
}

// NewDefault returns a Logger backed by hclog, writing to stderr at
// Info level, a single global facade over ad-hoc fmt.Println
// diagnostics.
func NewDefault(name string) Logger {
	return NewWithLevel(name, "info")
}

// NewWithLevel returns a Logger backed by hclog writing to stderr at
// the named level (debug, info, warn, error); an unrecognized level
// falls back to Info.
func NewWithLevel(name, level string) Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return &hclogLogger{l: hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  lvl,
		Output: os.Stderr,
	})}
}

func (h *hclogLogger) Debug(msg string, kv ...any) { h.l.Debug(msg, kv...) }
func (h *hclogLogger) Info(msg string, kv ...any)  { h.l.Info(msg, kv...) }
func (h *hclogLogger) Warn(msg string, kv ...any)  { h.l.Warn(msg, kv...) }
func (h *hclogLogger) Error(msg string, kv ...any) { h.l.Error(msg, kv...) }
func (h *hclogLogger) Named(name string) Logger {
	return &hclogLogger{l: h.l.Named(name)}
}

// Nop is a Logger that discards everything; useful in tests.
type nopLogger struct{}

func Nop() Logger                                { return nopLogger{} }
func (nopLogger) Debug(string, ...any)           {}
func (nopLogger) Info(string, ...any)            {}
func (nopLogger) Warn(string, ...any)            {}
func (nopLogger) Error(string, ...any)           {}
func (nopLogger) Named(string) Logger            { return nopLogger{} }
