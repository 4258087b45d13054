package postgresengine

import (
	"context"
	"math"
	"time"
)

// logQueryWithDuration logs SQL statements with execution time at debug
// level if a logger is configured. The contextual logger, if set, takes
// precedence so callers can correlate statements with a request/trace id.
func (d *Driver) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	if d.contextualLogger != nil {
		d.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if d.logger != nil {
		d.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logError logs a driver-level failure at error level if a logger is
// configured.
func (d *Driver) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if d.contextualLogger != nil {
		d.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if d.logger != nil {
		d.logger.Error(message, allArgs...)
	}
}

func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
