// Package eventstore provides the core abstractions of an append-only,
// stream-oriented event store: optimistic concurrency with idempotent
// append, dual ordering (per-stream version and global position), paging
// reads with look-ahead, and soft/hard delete with audit events.
//
// The package is storage-agnostic. It defines the Driver contract a
// relational backend must satisfy (see driver.go) and an EventStore type
// that implements the append/read/delete engines against any Driver.
// A concrete PostgreSQL Driver lives in the postgresengine subpackage.
//
// Key types:
//   - Message / NewMessage: a caller-supplied event to append
//   - StoredMessage: a message as read back, with its assigned ordering
//   - ExpectedVersion, StreamVersion, Position: the sentinel values from
//     the optimistic concurrency and paging protocols
//   - ReadStreamPage / ReadAllPage: bounded, cursor-carrying page results
//
// Basic usage:
//
//	store, err := eventstore.New(driver, eventstore.WithClock(clock))
//	result, err := store.Append(ctx, "order-42", eventstore.NoStream, msg)
//	page, err := store.ReadStreamForwards(ctx, "order-42", eventstore.StreamStart, 100, true)
package eventstore
