package logger

import (
	"os"
	"strings"
	"sync"
)

var (
	globalLogger *Logger
	mu           sync.RWMutex
	once         sync.Once
)

// GetLogger returns the process logger. Until SetLogger is called it is a
// JSON logger on stdout whose level comes from LOG_LEVEL, or debug when
// DEBUG=true.
func GetLogger() *Logger {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if globalLogger == nil {
			globalLogger = New(Config{Level: envLevel(), Format: "json"})
		}
	})

	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Component returns the process logger tagged with component=name.
func Component(name string) *Logger {
	return GetLogger().WithField("component", name)
}

// SetLogger replaces the process logger. Components capture their logger at
// construction, so call this before wiring anything.
func SetLogger(logger *Logger) {
	once.Do(func() {})
	mu.Lock()
	globalLogger = logger
	mu.Unlock()
	SetGlobalLogger(logger)
}

func envLevel() string {
	if strings.EqualFold(os.Getenv("DEBUG"), "true") {
		return "debug"
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return strings.ToLower(level)
	}
	return "info"
}
