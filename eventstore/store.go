package eventstore

import (
	"context"
	"sync"
	"sync/atomic"
)

// lifecycleState tracks the process-wide per-instance state machine from
// spec §4.5: open, closing, closed.
type lifecycleState int32

const (
	stateOpen lifecycleState = iota
	stateClosing
	stateClosed
)

// EventStore implements the append/read/delete engines (C4/C5/C6) against
// a Driver, enforcing the lifecycle contract (C7) on every public call.
//
// An EventStore is safe for concurrent use: operations hold no in-memory
// lock across a suspension point (spec §5), and Close waits for in-flight
// operations to finish rather than cancelling them.
type EventStore struct {
	driver Driver
	clock  Clock

	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector

	state    atomic.Int32
	inFlight sync.WaitGroup
}

// Option configures an EventStore at construction time.
type Option func(*EventStore) error

// WithClock overrides the default SystemClock. Tests substitute a
// FixedClock for deterministic CreatedAtUTC values.
func WithClock(clock Clock) Option {
	return func(es *EventStore) error {
		es.clock = clock
		return nil
	}
}

// WithLogger sets the logger that receives failed-operation errors.
func WithLogger(logger Logger) Option {
	return func(es *EventStore) error {
		es.logger = logger
		return nil
	}
}

// WithContextualLogger sets a trace-correlated logger, preferred over
// Logger when both are configured.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(es *EventStore) error {
		es.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector MetricsCollector) Option {
	return func(es *EventStore) error {
		es.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector.
func WithTracing(collector TracingCollector) Option {
	return func(es *EventStore) error {
		es.tracingCollector = collector
		return nil
	}
}

// New builds an EventStore over driver. driver must not be nil.
func New(driver Driver, options ...Option) (*EventStore, error) {
	if driver == nil {
		return nil, ErrNilDriver
	}

	es := &EventStore{
		driver: driver,
		clock:  SystemClock{},
	}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// enter marks the start of a public operation, rejecting it once Close
// has been called (spec §4.5 "All public operations on closed fail with
// ObjectDisposed"). Every call to enter that returns nil must be paired
// with a call to exit, typically via defer.
func (es *EventStore) enter() error {
	if lifecycleState(es.state.Load()) != stateOpen {
		return ErrObjectDisposed
	}

	es.inFlight.Add(1)

	// re-check after registering: a Close that started between the Load
	// and the Add must still be able to observe and wait for this call.
	if lifecycleState(es.state.Load()) != stateOpen {
		es.inFlight.Done()
		return ErrObjectDisposed
	}

	return nil
}

func (es *EventStore) exit() {
	es.inFlight.Done()
}

// Close releases the underlying driver. It is idempotent: calling Close
// more than once is a no-op after the first call completes. Close does
// not cancel in-flight operations; it waits for them (spec §4.5).
func (es *EventStore) Close(ctx context.Context) error {
	if !es.state.CompareAndSwap(int32(stateOpen), int32(stateClosing)) {
		// Either already closing or already closed; wait for whichever
		// goroutine is doing the work to finish, then return.
		es.inFlight.Wait()
		return nil
	}

	es.inFlight.Wait()

	err := es.driver.Close(ctx)

	es.state.Store(int32(stateClosed))

	return err
}
