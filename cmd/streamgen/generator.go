package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/streamstore-go/streamstore/eventstore"
	"github.com/streamstore-go/streamstore/retry"
)

// messagePayload is the synthetic event body streamgen appends; its shape
// carries no domain meaning beyond being valid JSON.
type messagePayload struct {
	Sequence int       `json:"sequence"`
	At       time.Time `json:"at"`
}

// generator repeatedly appends one message to a randomly chosen stream at
// roughly cfg.rate appends/second, occasionally racing a stale expected
// version so retry.WithExponentialBackoff's retry path runs too.
type generator struct {
	store *eventstore.EventStore
	cfg   runConfig

	appends atomic.Int64
	retries atomic.Int64
}

func newGenerator(store *eventstore.EventStore, cfg runConfig) *generator {
	return &generator{store: store, cfg: cfg}
}

func (g *generator) run(ctx context.Context) {
	interval := time.Second / time.Duration(max(g.cfg.rate, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var sequence int

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sequence++
			g.appendOne(ctx, sequence)
		}
	}
}

func (g *generator) appendOne(ctx context.Context, sequence int) {
	streamID := fmt.Sprintf("stream-%d", rand.Intn(max(g.cfg.streamCount, 1))) //nolint:gosec

	payload, err := eventstore.NewMessageWithEmptyMetadata(
		uuid.New(),
		"streamgen.tick",
		mustMarshal(messagePayload{Sequence: sequence, At: time.Now().UTC()}),
	)
	if err != nil {
		return
	}

	expected := eventstore.Any
	if g.simulateConflict() {
		expected = eventstore.NoStream
	}

	err = retry.WithExponentialBackoff(ctx, func(ctx context.Context) error {
		_, appendErr := g.store.Append(ctx, streamID, expected, payload)
		return appendErr
	})
	if err != nil {
		g.retries.Add(1)
		return
	}

	g.appends.Add(1)
}

// simulateConflict decides, for cfg.conflictShare percent of appends,
// whether to assert NoStream against a stream that may already exist so
// the append races a concurrency conflict and exercises the retry path.
func (g *generator) simulateConflict() bool {
	if g.cfg.conflictShare <= 0 {
		return false
	}

	return rand.Intn(100) < g.cfg.conflictShare //nolint:gosec
}

func mustMarshal(p messagePayload) []byte {
	b, err := json.Marshal(p)
	if err != nil {
		return []byte(`{}`)
	}

	return b
}
