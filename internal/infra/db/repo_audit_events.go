package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"riyald/internal/domain"
	"riyald/internal/usecase"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuditEventRepository struct {
	db *gorm.DB
}

func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if r.db == nil {
		return domain.AuditEvent{}, errDBUnavailable
	}
	if event.EventType == "" {
		return domain.AuditEvent{}, errors.New("event_type is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	event.CreatedAt = event.CreatedAt.Truncate(time.Microsecond)
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	payloadJSON, err := usecase.CanonicalPayloadJSON(event.Payload)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	sum := sha256.Sum256(payloadJSON)
	event.PayloadHash = hex.EncodeToString(sum[:])

	var out domain.AuditEvent
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last AuditEventModel
		prevHash := usecase.ZeroAuditHash()
		seq := int64(1)
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("seq DESC").
			First(&last).Error
		if err == nil {
			prevHash = last.EventHash
			seq = last.Seq + 1
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		event.Seq = seq
		event.PrevEventHash = prevHash

		eventHash, err := usecase.ComputeAuditEventHash(event)
		if err != nil {
			return err
		}
		event.EventHash = eventHash

		model := AuditEventModel{
			ID:            event.ID,
			Seq:           event.Seq,
			EventType:     string(event.EventType),
			PayloadJSON:   payloadJSON,
			PayloadHash:   event.PayloadHash,
			ActorType:     string(event.ActorType),
			ActorIDHash:   stringPtrIfNotEmpty(event.ActorIDHash),
			TargetType:    string(event.TargetType),
			TargetID:      event.TargetID,
			Result:        string(event.Result),
			ErrorCode:     stringPtrIfNotEmpty(event.ErrorCode),
			PrevEventHash: event.PrevEventHash,
			EventHash:     event.EventHash,
			CreatedAt:     event.CreatedAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		out = event
		out.Payload = string(payloadJSON)
		return nil
	})
	if err != nil {
		return domain.AuditEvent{}, err
	}
	return out, nil
}

func (r *AuditEventRepository) List(ctx context.Context) ([]domain.AuditEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AuditEventModel
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AuditEvent, 0, len(models))
	for _, model := range models {
		out = append(out, domain.AuditEvent{
			ID:            model.ID,
			Seq:           model.Seq,
			EventType:     domain.AuditEventType(model.EventType),
			Payload:       string(model.PayloadJSON),
			PayloadHash:   model.PayloadHash,
			ActorType:     domain.AuditActorType(model.ActorType),
			ActorIDHash:   stringFromPtr(model.ActorIDHash),
			TargetType:    domain.AuditTargetType(model.TargetType),
			TargetID:      model.TargetID,
			Result:        domain.AuditResult(model.Result),
			ErrorCode:     stringFromPtr(model.ErrorCode),
			PrevEventHash: model.PrevEventHash,
			EventHash:     model.EventHash,
			CreatedAt:     model.CreatedAt,
		})
	}
	return out, nil
}
