package vault

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/onevault-finance/onevault/internal/logger"
	"github.com/onevault-finance/onevault/internal/types"
)

// recorderCapacity bounds the in-memory event window; older events live only
// in the database event log.
const recorderCapacity = 512

// Recorder collects emitted vault events. Every event is logged, kept in a
// bounded in-memory window for the query surface, and mirrored to the store
// when one is attached.
type Recorder struct {
	mu     sync.Mutex
	events []types.Event
	sink   EventSink
	logger zerolog.Logger
}

// EventSink receives every emitted event for durable storage.
type EventSink interface {
	RecordEvent(event types.Event) error
}

// NewRecorder creates an event recorder with an optional durable sink.
func NewRecorder(sink EventSink) *Recorder {
	return &Recorder{
		sink:   sink,
		logger: logger.GetForComponent("vault_events"),
	}
}

// Emit records one event.
func (r *Recorder) Emit(event types.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	r.events = append(r.events, event)
	if len(r.events) > recorderCapacity {
		r.events = r.events[len(r.events)-recorderCapacity:]
	}
	r.mu.Unlock()

	r.logger.Info().
		Str("type", string(event.Type)).
		Str("operationId", event.OperationID).
		Str("actor", event.Actor).
		Str("recipient", event.Recipient).
		Str("key", string(event.Key)).
		Str("amount", event.Amount).
		Str("shares", event.Shares).
		Msg("Vault event emitted")

	if r.sink != nil {
		if err := r.sink.RecordEvent(event); err != nil {
			r.logger.Error().Err(err).Str("type", string(event.Type)).Msg("Failed to persist vault event")
		}
	}
}

// Recent returns up to n most recent events, newest last.
func (r *Recorder) Recent(n int) []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.events) {
		n = len(r.events)
	}
	out := make([]types.Event, n)
	copy(out, r.events[len(r.events)-n:])
	return out
}
