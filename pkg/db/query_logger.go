package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

// queryLogger routes GORM's output through the service logger. Only failed
// and slow statements are reported, both at warn: callers decide whether a
// failure such as a unique violation is an error. Record-not-found is skipped.
type queryLogger struct {
	logg  *logger.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

func newQueryLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, slow: slow, level: gormlogger.Warn}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Info(q.logg.WithField(ctx, "component", "gorm"), fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(q.logg.WithField(ctx, "component", "gorm"), fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(q.logg.WithField(ctx, "component", "gorm"), "gorm error", errors.New(fmt.Sprintf(msg, args...)))
	}
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	took := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= gormlogger.Error
	slow := q.slow > 0 && took > q.slow && q.level >= gormlogger.Warn
	if !failed && !slow {
		return
	}

	stmt, rows := fc()
	fields := map[string]any{
		"component":   "gorm",
		"sql":         stmt,
		"rows":        rows,
		"duration_ms": took.Milliseconds(),
	}
	event := "db.query_slow"
	if failed {
		event = "db.query_failed"
		fields["error"] = err.Error()
	}
	q.logg.Warn(q.logg.WithFields(ctx, fields), event)
}
