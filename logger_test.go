package udping_test

import (
	"context"
	"strings"
	"sync"
	"testing"
)

// memLogger captures logs for assertion in tests
type memLogger struct {
	t       testing.TB
	mu      sync.Mutex
	entries []string
}

func (l *memLogger) append(level, msg string, args ...any) {
	l.mu.Lock()
	l.entries = append(l.entries, level+": "+msg)
	l.mu.Unlock()
	if l.t != nil {
		l.t.Logf("%s: %s %v", level, msg, args)
	}
}

func (l *memLogger) has(entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if strings.HasPrefix(e, entry) {
			return true
		}
	}
	return false
}

func (l *memLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.append("DEBUG", msg, args...)
}
func (l *memLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.append("INFO", msg, args...)
}
func (l *memLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.append("WARN", msg, args...)
}
func (l *memLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.append("ERROR", msg, args...)
}
