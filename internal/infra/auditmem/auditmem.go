package auditmem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"riyald/internal/domain"
	"riyald/internal/usecase"

	"github.com/google/uuid"
)

// Repository is the in-memory audit event chain used in no-db mode and by
// tests. Chain semantics match the db-backed repository.
type Repository struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	clock  usecase.Clock
}

func New(clock usecase.Clock) *Repository {
	return &Repository{clock: clock}
}

func (r *Repository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if event.EventType == "" {
		return domain.AuditEvent{}, errors.New("event_type is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	payloadJSON, err := usecase.CanonicalPayloadJSON(event.Payload)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	sum := sha256.Sum256(payloadJSON)
	event.Payload = string(payloadJSON)
	event.PayloadHash = hex.EncodeToString(sum[:])

	r.mu.Lock()
	defer r.mu.Unlock()

	event.Seq = int64(len(r.events)) + 1
	event.PrevEventHash = usecase.ZeroAuditHash()
	if len(r.events) > 0 {
		event.PrevEventHash = r.events[len(r.events)-1].EventHash
	}
	eventHash, err := usecase.ComputeAuditEventHash(event)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	event.EventHash = eventHash
	r.events = append(r.events, event)
	return event, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *Repository) now() time.Time {
	if r.clock != nil {
		return r.clock()
	}
	return time.Now().UTC()
}
