package postgresengine

import (
	"context"
)

// Logger interface for SQL query logging, timing, warnings, and error
// reporting at the driver level.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger is the context-aware counterpart of Logger, preferred
// over Logger when both are configured so SQL statements can be
// correlated with an active trace/span.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// Option configures a Driver at construction time.
type Option func(*Driver) error

// WithStreamsTableName overrides the default "streams" table name.
func WithStreamsTableName(tableName string) Option {
	return func(d *Driver) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		d.streamsTableName = tableName

		return nil
	}
}

// WithMessagesTableName overrides the default "messages" table name.
func WithMessagesTableName(tableName string) Option {
	return func(d *Driver) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		d.messagesTableName = tableName

		return nil
	}
}

// WithPositionSeqName overrides the default "messages_position_seq"
// sequence name backing the store-wide position.
func WithPositionSeqName(seqName string) Option {
	return func(d *Driver) error {
		if seqName == "" {
			return ErrEmptyTableName
		}

		d.positionSeqName = seqName

		return nil
	}
}

// WithLogger sets the logger that receives SQL statement timing (Debug)
// and execution failures (Error) for this driver.
func WithLogger(logger Logger) Option {
	return func(d *Driver) error {
		d.logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger for this driver. It
// takes precedence over a plain Logger when both are configured.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(d *Driver) error {
		d.contextualLogger = logger
		return nil
	}
}
