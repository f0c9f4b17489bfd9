package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "motorent/internal/app/outbox"
	infraoutbox "motorent/internal/infra/outbox"
)

// Outbox keeps event records in memory and doubles as the worker store for
// the storage-free dev mode.
type Outbox struct {
	mu   sync.Mutex
	docs []*infraoutbox.EventDocument
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.docs = append(o.docs, &infraoutbox.EventDocument{
		ID:         record.ID,
		Name:       record.Name,
		Payload:    record.Payload,
		OccurredAt: record.OccurredAt,
		Aggregate:  record.Aggregate,
		Headers:    record.Headers,
		State:      "NEW",
	})
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, doc := range o.docs {
		if doc.State != "NEW" && doc.State != "FAILED" {
			continue
		}
		if doc.NextAttempt.After(now) {
			continue
		}
		doc.State = "CLAIMED"
		doc.ClaimedBy = workerID
		doc.ClaimedAt = now.UTC()
		clone := *doc
		return &clone, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, doc := range o.docs {
		if doc.ID == id {
			doc.State = "SENT"
			doc.SentAt = time.Now().UTC()
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, doc := range o.docs {
		if doc.ID == id {
			doc.State = "FAILED"
			doc.NextAttempt = next
			doc.LastError = errMsg
			doc.Attempts++
			return nil
		}
	}
	return nil
}

// Records returns the stored events in insertion order; used by tests.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.docs))
	for _, doc := range o.docs {
		out = append(out, appoutbox.EventRecord{
			ID:         doc.ID,
			Name:       doc.Name,
			Payload:    doc.Payload,
			OccurredAt: doc.OccurredAt,
			Aggregate:  doc.Aggregate,
			Headers:    doc.Headers,
		})
	}
	return out
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
