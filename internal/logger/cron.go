package logger

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronLogger routes robfig/cron's logr-style output into zap.
type CronLogger struct {
	log *zap.SugaredLogger
}

var _ cron.Logger = (*CronLogger)(nil)

func NewCronLogger(log *zap.Logger) *CronLogger {
	return &CronLogger{log: log.Named("cron").WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *CronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l *CronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
