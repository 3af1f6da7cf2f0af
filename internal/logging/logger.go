// Package logging provides categorized loggers backed by zap. Each
// subsystem logs through its own named logger so log output can be
// filtered per category.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryCompiler Category = "compiler" // spec loading and compilation
	CategoryRegistry Category = "registry" // chain cache population
	CategoryExecutor Category = "executor" // step execution and model calls
	CategoryServer   Category = "server"   // HTTP invocation boundary
	CategoryHistory  Category = "history"  // invocation history store
	CategoryScaffold Category = "scaffold" // chain scaffolding
)

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the process-wide logger. Debug enables development
// encoding and debug-level output. Safe to call more than once; later
// calls replace the backend for subsequently created category loggers.
func Initialize(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	base = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the logger for a category, creating it on first use.
// Before Initialize is called the returned logger discards output.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := base.Named(string(cat)).Sugar()
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}
