package eventstore

import (
	"context"
	"errors"
)

// trackOperation starts the logging/metrics/tracing bookkeeping around one
// public operation (spec §5 "Observability is a seam, not a requirement"):
// every collector is optional and nil-checked independently, so an
// EventStore built with no options at all pays nothing for this.
//
// The returned finish func must be called exactly once with the operation's
// outcome, typically via defer.
func (es *EventStore) trackOperation(ctx context.Context, op string) (context.Context, func(err error)) {
	start := es.clock.Now()

	var span SpanContext
	if es.tracingCollector != nil {
		ctx, span = es.tracingCollector.StartSpan(ctx, op, nil)
	}

	return ctx, func(err error) {
		status := statusSuccess
		if err != nil {
			status = statusError
		}

		labels := map[string]string{"operation": op, "status": status}
		duration := es.clock.Now().Sub(start)

		switch mc := es.metricsCollector.(type) {
		case ContextualMetricsCollector:
			mc.RecordDurationContext(ctx, "eventstore_operation_duration", duration, labels)
			mc.IncrementCounterContext(ctx, "eventstore_operation_total", labels)
		case nil:
			// no collector configured
		default:
			mc.RecordDuration("eventstore_operation_duration", duration, labels)
			mc.IncrementCounter("eventstore_operation_total", labels)
		}

		if span != nil {
			span.SetStatus(status)
			es.tracingCollector.FinishSpan(span, status, nil)
		}

		if err == nil {
			return
		}

		if es.contextualLogger != nil {
			es.contextualLogger.ErrorContext(ctx, op+" failed", "error", err)
		} else if es.logger != nil {
			es.logger.Error(op+" failed", "error", err)
		}
	}
}

// wrapDriverErr classifies a raw Driver error into one of the core's
// sentinel kinds, per spec §7: callers distinguish cancellation and
// WrongExpectedVersion from an opaque BackendFault structurally, never by
// string-matching the error text.
func wrapDriverErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ErrOperationCancelled
	}

	var wev *WrongExpectedVersionError
	if errors.As(err, &wev) {
		return err
	}

	if errors.Is(err, ErrStreamDeleted) || errors.Is(err, ErrDuplicateMessageID) {
		return err
	}

	return errors.Join(ErrBackendFault, err)
}
