package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"motorent/internal/domain/shared/events"
)

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}

// Drain encodes and stores an aggregate's pending events. A nil outbox is a
// no-op so tests can skip event plumbing.
func Drain(ctx context.Context, box Outbox, encoder EventEncoder, recorder *events.EventRecorder) error {
	if box == nil || recorder == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	pending := recorder.PendingEvents()
	recorder.ClearEvents()
	for _, ev := range pending {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
