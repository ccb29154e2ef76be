package crucible

import (
	"log/slog"
	"sync/atomic"
)

// Lifetime selects how instances produced by a registration are cached.
type Lifetime int

const (
	// For Transient services a new instance is returned on every resolution.
	Transient Lifetime = iota
	// For Scoped services the same instance is returned within one Scope.
	Scoped
	// For Singleton services the same instance is returned always.
	Singleton
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "Transient"
	case Scoped:
		return "Scoped"
	case Singleton:
		return "Singleton"
	default:
		return "Unknown"
	}
}

// Cleanup releases resources held by a service instance.
// Cleanups run in reverse creation order when the owning Scope or
// Container closes.
type Cleanup func()

func (fn Cleanup) CallWithRecovery(lifetime Lifetime, typeName string) {
	defer func() {
		if rp := recover(); rp != nil {
			logger().Error(
				"recovered from panic during cleanup",
				"lifetime", lifetime.String(),
				"service", typeName,
				"panic", rp,
			)
		}
	}()

	fn()
}

var defaultLogger atomic.Pointer[slog.Logger]

// SetLogger replaces the logger used for lifetime-analysis warnings and
// recovered cleanup panics. By default slog.Default() is used.
func SetLogger(l *slog.Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

func logger() *slog.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}

	return slog.Default()
}
