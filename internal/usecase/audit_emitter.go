package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"riyald/internal/domain"
)

// AuditEmitter appends hash-chained audit events for every state-changing
// operation. A nil emitter (or one without a repository) is a no-op so the
// core operations stay usable in minimal wiring. Append failures never fail
// the operation that already committed; they are logged instead.
type AuditEmitter struct {
	Repo  AuditEventRepository
	Clock Clock
	Log   *zap.Logger
}

func NewAuditEmitter(repo AuditEventRepository, clock Clock, log *zap.Logger) *AuditEmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditEmitter{Repo: repo, Clock: clock, Log: log}
}

func (e *AuditEmitter) Emit(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if e == nil || e.Repo == nil {
		return domain.AuditEvent{}, errors.New("audit repository required")
	}
	if event.EventType == "" || event.TargetType == "" || event.Result == "" || event.ActorType == "" {
		return domain.AuditEvent{}, errors.New("audit event missing required fields")
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	return e.Repo.Append(ctx, event)
}

// append records one event and logs a failed append; the triggering
// operation has already committed and is never rolled back for audit trouble.
func (e *AuditEmitter) append(ctx context.Context, event domain.AuditEvent) {
	if _, err := e.Emit(ctx, event); err != nil {
		e.logger().Error("audit append failed",
			zap.String("event_type", string(event.EventType)),
			zap.String("target_id", event.TargetID),
			zap.Error(err))
	}
}

func (e *AuditEmitter) EmitClaimAccepted(ctx context.Context, receipt *domain.ClaimReceipt) {
	if e == nil || e.Repo == nil || receipt == nil {
		return
	}
	e.append(ctx, domain.AuditEvent{
		ActorType:   domain.AuditActorBeneficiary,
		ActorIDHash: hashString(receipt.Beneficiary.String()),
		EventType:   domain.AuditEventClaimAccepted,
		Payload: map[string]any{
			"receipt_id":   receipt.ReceiptID,
			"beneficiary":  receipt.Beneficiary.String(),
			"destination":  receipt.Destination.String(),
			"amount":       receipt.Amount,
			"nonce":        receipt.Nonce,
			"total_claims": receipt.TotalClaims,
		},
		TargetType: domain.AuditTargetPrincipal,
		TargetID:   receipt.Beneficiary.String(),
		Result:     domain.AuditResultSuccess,
	})
}

func (e *AuditEmitter) EmitGateChanged(ctx context.Context, eventType domain.AuditEventType, actor domain.Identity, receipt *domain.GateReceipt) {
	if e == nil || e.Repo == nil || receipt == nil {
		return
	}
	e.append(ctx, domain.AuditEvent{
		ActorType:   domain.AuditActorAdminAPIKey,
		ActorIDHash: hashString(actor.Subject),
		EventType:   eventType,
		Payload: map[string]any{
			"mode": string(receipt.Mode),
		},
		TargetType: domain.AuditTargetGate,
		TargetID:   "gate",
		Result:     domain.AuditResultSuccess,
	})
}

func (e *AuditEmitter) EmitHolderUnfrozen(ctx context.Context, actor domain.Identity, address domain.AccountID, at time.Time) {
	if e == nil || e.Repo == nil {
		return
	}
	e.append(ctx, domain.AuditEvent{
		ActorType:   domain.AuditActorAdminAPIKey,
		ActorIDHash: hashString(actor.Subject),
		EventType:   domain.AuditEventHolderUnfrozen,
		Payload: map[string]any{
			"address": address.String(),
		},
		TargetType: domain.AuditTargetHolder,
		TargetID:   address.String(),
		Result:     domain.AuditResultSuccess,
		CreatedAt:  at,
	})
}

func (e *AuditEmitter) EmitTreasuryChanged(ctx context.Context, eventType domain.AuditEventType, actor domain.Identity, receipt *domain.TreasuryReceipt) {
	if e == nil || e.Repo == nil || receipt == nil {
		return
	}
	e.append(ctx, domain.AuditEvent{
		ActorType:   domain.AuditActorAdminAPIKey,
		ActorIDHash: hashString(actor.Subject),
		EventType:   eventType,
		Payload: map[string]any{
			"address": receipt.Address.String(),
			"amount":  receipt.Amount,
			"balance": receipt.Balance,
		},
		TargetType: domain.AuditTargetTreasury,
		TargetID:   receipt.Address.String(),
		Result:     domain.AuditResultSuccess,
	})
}

func (e *AuditEmitter) EmitHolderBurned(ctx context.Context, actor domain.Identity, receipt *domain.BurnReceipt) {
	if e == nil || e.Repo == nil || receipt == nil {
		return
	}
	e.append(ctx, domain.AuditEvent{
		ActorType:   domain.AuditActorAdminAPIKey,
		ActorIDHash: hashString(actor.Subject),
		EventType:   domain.AuditEventHolderBurned,
		Payload: map[string]any{
			"account": receipt.Account.String(),
			"amount":  receipt.Amount,
			"balance": receipt.Balance,
		},
		TargetType: domain.AuditTargetHolder,
		TargetID:   receipt.Account.String(),
		Result:     domain.AuditResultSuccess,
	})
}

func (e *AuditEmitter) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

func (e *AuditEmitter) logger() *zap.Logger {
	if e != nil && e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}

func hashString(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
