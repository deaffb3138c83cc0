package pocket

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(context.Context, string, ...any) {}
func (NopLogger) Info(context.Context, string, ...any)  {}
func (NopLogger) Error(context.Context, string, ...any) {}

// StdLogger writes key/value lines through a standard library logger.
type StdLogger struct {
	Logger  *log.Logger
	Verbose bool
}

// NewStdLogger logs through the default standard logger. Debug lines are only
// written when verbose is set.
func NewStdLogger(verbose bool) *StdLogger {
	return &StdLogger{Logger: log.Default(), Verbose: verbose}
}

func (l *StdLogger) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	if !l.Verbose {
		return
	}
	l.print("DEBUG", msg, keysAndValues)
}

func (l *StdLogger) Info(ctx context.Context, msg string, keysAndValues ...any) {
	l.print("INFO", msg, keysAndValues)
}

func (l *StdLogger) Error(ctx context.Context, msg string, keysAndValues ...any) {
	l.print("ERROR", msg, keysAndValues)
}

func (l *StdLogger) print(level, msg string, keysAndValues []any) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i < len(keysAndValues); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&b, "%v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&b, "%v", keysAndValues[i])
		}
	}
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Print(b.String())
}

// NopTracer starts no spans.
type NopTracer struct{}

func (NopTracer) StartSpan(ctx context.Context, _ string) (context.Context, func()) {
	return ctx, func() {}
}
