package peer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pion/logging"
	pion "github.com/pion/webrtc/v4"
)

// LevelTrace sits below slog's debug level and carries pion's trace output.
const LevelTrace = slog.LevelDebug - 4

// LoggerFactory hands pion's ICE, DTLS and SCTP loggers to slog. Each
// logger tags its records with the pion scope.
type LoggerFactory struct{}

func (LoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &scopedLogger{log: slog.With("component", "pion", "scope", scope)}
}

// NewAPI returns a pion API that logs through slog.
func NewAPI() *pion.API {
	se := pion.SettingEngine{LoggerFactory: LoggerFactory{}}
	return pion.NewAPI(pion.WithSettingEngine(se))
}

type scopedLogger struct {
	log *slog.Logger
}

func (l *scopedLogger) emit(level slog.Level, msg string) {
	l.log.Log(context.Background(), level, msg)
}

func (l *scopedLogger) emitf(level slog.Level, format string, args ...any) {
	if !l.log.Enabled(context.Background(), level) {
		return
	}
	l.emit(level, fmt.Sprintf(format, args...))
}

func (l *scopedLogger) Trace(msg string)                  { l.emit(LevelTrace, msg) }
func (l *scopedLogger) Tracef(format string, args ...any) { l.emitf(LevelTrace, format, args...) }
func (l *scopedLogger) Debug(msg string)                  { l.emit(slog.LevelDebug, msg) }
func (l *scopedLogger) Debugf(format string, args ...any) { l.emitf(slog.LevelDebug, format, args...) }
func (l *scopedLogger) Info(msg string)                   { l.emit(slog.LevelInfo, msg) }
func (l *scopedLogger) Infof(format string, args ...any)  { l.emitf(slog.LevelInfo, format, args...) }
func (l *scopedLogger) Warn(msg string)                   { l.emit(slog.LevelWarn, msg) }
func (l *scopedLogger) Warnf(format string, args ...any)  { l.emitf(slog.LevelWarn, format, args...) }
func (l *scopedLogger) Error(msg string)                  { l.emit(slog.LevelError, msg) }
func (l *scopedLogger) Errorf(format string, args ...any) { l.emitf(slog.LevelError, format, args...) }
