package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	applogger "forum-warden/internal/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// gormLogger routes GORM's logging through the application logger so SQL
// traffic lands in the same rotated files as everything else.
type gormLogger struct {
	LogLevel                  logger.LogLevel
	SlowThreshold             time.Duration
	SkipCallerLookup          bool
	IgnoreRecordNotFoundError bool
}

// NewGormLogger maps the application log level onto GORM's levels.
func NewGormLogger(level string) logger.Interface {
	var logLevel logger.LogLevel

	switch level {
	case "DEBUG", "INFO":
		logLevel = logger.Info
	case "WARNING", "ERROR":
		logLevel = logger.Warn
	case "FATAL":
		logLevel = logger.Error
	default:
		logLevel = logger.Info
	}

	return &gormLogger{
		LogLevel:                  logLevel,
		SlowThreshold:             200 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Info {
		applogger.Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Warn {
		applogger.Warningf(msg, data...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Error {
		applogger.Errorf(msg, data...)
	}
}

// Trace logs each statement with timing; slow statements are promoted to
// warnings.
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	var source string
	if !l.SkipCallerLookup {
		source = utils.FileWithLineNum()
	}

	switch {
	case err != nil && l.LogLevel >= logger.Error && (!errors.Is(err, gorm.ErrRecordNotFound) || !l.IgnoreRecordNotFoundError):
		if source != "" {
			applogger.Errorf("[%.3fms] [%s] %s; error=%v", float64(elapsed.Nanoseconds())/1e6, source, sql, err)
		} else {
			applogger.Errorf("[%.3fms] %s; error=%v", float64(elapsed.Nanoseconds())/1e6, sql, err)
		}
	case elapsed > l.SlowThreshold && l.SlowThreshold != 0 && l.LogLevel >= logger.Warn:
		slowLog := fmt.Sprintf("SLOW SQL >= %v", l.SlowThreshold)
		if source != "" {
			applogger.Warningf("[%.3fms] [%s] %s; %s, rows=%v", float64(elapsed.Nanoseconds())/1e6, source, sql, slowLog, rows)
		} else {
			applogger.Warningf("[%.3fms] %s; %s, rows=%v", float64(elapsed.Nanoseconds())/1e6, sql, slowLog, rows)
		}
	case l.LogLevel == logger.Info:
		if source != "" {
			applogger.Debugf("[%.3fms] [%s] %s; rows=%v", float64(elapsed.Nanoseconds())/1e6, source, sql, rows)
		} else {
			applogger.Debugf("[%.3fms] %s; rows=%v", float64(elapsed.Nanoseconds())/1e6, sql, rows)
		}
	}
}
