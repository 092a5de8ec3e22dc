package gorm

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// zapWriter routes GORM's formatted log lines into zap
type zapWriter struct {
	logger *zap.Logger
}

// Printf implements gormlogger.Writer
func (w zapWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	switch {
	case strings.Contains(msg, "SLOW SQL"):
		w.logger.Warn("Slow query", zap.String("message", msg))
	case strings.Contains(strings.ToLower(msg), "error"):
		w.logger.Error("Query failed", zap.String("message", msg))
	default:
		w.logger.Debug("Query", zap.String("message", msg))
	}
}

// ParseLogLevel maps config values onto GORM log levels. Unknown values are silent.
func ParseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "info":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

// NewLogger builds a GORM logger that writes through zap
func NewLogger(logger *zap.Logger, level string, slowThreshold time.Duration) gormlogger.Interface {
	return gormlogger.New(
		zapWriter{logger: logger.Named("gorm")},
		gormlogger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  ParseLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
