package usecase

import (
	"context"
	"errors"
	"time"

	"riyald/internal/domain"
)

// TransferGate drives the tri-state transferability switch and the
// per-holder freeze flags. All transitions are read-check-write inside one
// store transaction.
type TransferGate struct {
	Store LedgerStore
	Audit *AuditEmitter
	Clock Clock
}

func (uc *TransferGate) State(ctx context.Context) (*domain.GateState, error) {
	gate, err := uc.Store.Gate(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.GateState{Mode: domain.GatePaused}, nil
	}
	return gate, err
}

func (uc *TransferGate) Pause(ctx context.Context, actor domain.Identity) (*domain.GateReceipt, error) {
	receipt, err := uc.transition(ctx, func(gate *domain.GateState, now time.Time) error {
		if gate.Mode == domain.GatePermanentlyEnabled {
			return domain.ErrTransfersImmutable
		}
		gate.Mode = domain.GatePaused
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.Audit.EmitGateChanged(ctx, domain.AuditEventGatePaused, actor, receipt)
	return receipt, nil
}

func (uc *TransferGate) Resume(ctx context.Context, actor domain.Identity) (*domain.GateReceipt, error) {
	receipt, err := uc.transition(ctx, func(gate *domain.GateState, now time.Time) error {
		if gate.Mode == domain.GatePermanentlyEnabled {
			return domain.ErrTransfersImmutable
		}
		if gate.Mode != domain.GateEnabled {
			gate.Mode = domain.GateEnabled
			enabledAt := now
			gate.EnabledAt = &enabledAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.Audit.EmitGateChanged(ctx, domain.AuditEventGateResumed, actor, receipt)
	return receipt, nil
}

func (uc *TransferGate) PermanentlyEnable(ctx context.Context, actor domain.Identity) (*domain.GateReceipt, error) {
	receipt, err := uc.transition(ctx, func(gate *domain.GateState, now time.Time) error {
		if gate.Mode != domain.GatePermanentlyEnabled {
			gate.Mode = domain.GatePermanentlyEnabled
			if gate.EnabledAt == nil {
				enabledAt := now
				gate.EnabledAt = &enabledAt
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.Audit.EmitGateChanged(ctx, domain.AuditEventGateLockedEnabled, actor, receipt)
	return receipt, nil
}

// Unfreeze clears a holder's freeze flag. While the gate is paused the
// freeze flag is the enforcement surface, so clearing it is rejected.
func (uc *TransferGate) Unfreeze(ctx context.Context, actor domain.Identity, address domain.AccountID) (*domain.HolderAccount, error) {
	now := uc.now()
	var out *domain.HolderAccount
	err := uc.Store.WithTx(ctx, func(tx Ledger) error {
		gate, err := tx.Gate(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			gate = &domain.GateState{Mode: domain.GatePaused}
		} else if err != nil {
			return err
		}
		if gate.Mode == domain.GatePaused {
			return domain.ErrCannotUnfreezeWhilePaused
		}
		holder, err := tx.Holder(ctx, address)
		if err != nil {
			return err
		}
		holder.Frozen = false
		if err := tx.PutHolder(ctx, holder); err != nil {
			return err
		}
		out = holder
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.Audit.EmitHolderUnfrozen(ctx, actor, address, now)
	return out, nil
}

// CanTransfer reports whether a movement between two holder records would
// currently be allowed: the gate must not be paused and both endpoints must
// be unfrozen.
func (uc *TransferGate) CanTransfer(ctx context.Context, from, to domain.AccountID) (*domain.TransferabilityReceipt, error) {
	gate, err := uc.State(ctx)
	if err != nil {
		return nil, err
	}
	src, err := uc.Store.Holder(ctx, from)
	if err != nil {
		return nil, err
	}
	dst, err := uc.Store.Holder(ctx, to)
	if err != nil {
		return nil, err
	}
	receipt := &domain.TransferabilityReceipt{Mode: gate.Mode}
	switch {
	case !gate.Transferable():
		receipt.Reason = "transfers paused"
	case src.Frozen:
		receipt.Reason = "source holder frozen"
	case dst.Frozen:
		receipt.Reason = "destination holder frozen"
	default:
		receipt.Allowed = true
	}
	return receipt, nil
}

func (uc *TransferGate) transition(ctx context.Context, apply func(gate *domain.GateState, now time.Time) error) (*domain.GateReceipt, error) {
	now := uc.now()
	var out *domain.GateState
	err := uc.Store.WithTx(ctx, func(tx Ledger) error {
		gate, err := tx.Gate(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			gate = &domain.GateState{Mode: domain.GatePaused}
		} else if err != nil {
			return err
		}
		if err := apply(gate, now); err != nil {
			return err
		}
		gate.UpdatedAt = now
		if err := tx.PutGate(ctx, gate); err != nil {
			return err
		}
		out = gate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &domain.GateReceipt{Mode: out.Mode, EnabledAt: out.EnabledAt, ChangedAt: now}, nil
}

func (uc *TransferGate) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now().UTC()
}
