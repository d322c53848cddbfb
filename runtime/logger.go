package runtime

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the runtime package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the runtime package's logger. Only the runtime
// package logs through it: Interpret logs a failed run at Warn and Close
// logs at Debug. The allocator, GC, evaluator, and dispatcher do not log.
func SetLogger(l *zap.Logger) {
	logger = l
}
