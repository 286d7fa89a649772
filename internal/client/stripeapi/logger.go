package stripeapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v79"
)

var _ stripe.LeveledLoggerInterface = (*leveledLogger)(nil)

// leveledLogger routes stripe-go's printf-style logs into slog.
type leveledLogger struct {
	logger *slog.Logger
}

func (l *leveledLogger) log(level slog.Level, format string, v ...any) {
	l.logger.Log(context.Background(), level, fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *leveledLogger) Debugf(format string, v ...any) { l.log(slog.LevelDebug, format, v...) }
func (l *leveledLogger) Infof(format string, v ...any)  { l.log(slog.LevelDebug, format, v...) }
func (l *leveledLogger) Warnf(format string, v ...any)  { l.log(slog.LevelWarn, format, v...) }
func (l *leveledLogger) Errorf(format string, v ...any) { l.log(slog.LevelError, format, v...) }
