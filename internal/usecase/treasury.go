package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"riyald/internal/domain"
)

// Treasury applies administrative mint/burn accounting. Holder burns are
// dual-consent: the authenticated issuer admin and the holder's owner must
// both approve in the same request.
type Treasury struct {
	Store    LedgerStore
	Crypto   CryptoService
	Audit    *AuditEmitter
	Instance domain.InstanceID
	Mint     domain.AccountID
	Clock    Clock
}

type BurnTokensRequest struct {
	Account domain.AccountID
	Amount  uint64
	// OwnerSignature is the owner's detached signature over
	// BurnTag || instanceID || account || amount.
	OwnerSignature []byte
	// AdminApproved is set by the transport layer once the issuer admin
	// identity has been authenticated and authorized.
	AdminApproved bool
}

// Address is the single canonical treasury record for this deployment.
func (uc *Treasury) Address() domain.AccountID {
	return domain.DeriveTreasuryAddress(uc.Instance, uc.Mint)
}

func (uc *Treasury) MintToTreasury(ctx context.Context, actor domain.Identity, target domain.AccountID, amount uint64) (*domain.TreasuryReceipt, error) {
	if target != uc.Address() {
		return nil, domain.ErrInvalidTreasuryAccount
	}
	now := uc.now()
	var out *domain.TreasuryAccount
	err := uc.Store.WithTx(ctx, func(tx Ledger) error {
		treasury, err := tx.Treasury(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			treasury = &domain.TreasuryAccount{Address: uc.Address(), Mint: uc.Mint}
		} else if err != nil {
			return err
		}
		if treasury.Balance > math.MaxUint64-amount {
			return domain.ErrAmountOverflow
		}
		treasury.Balance += amount
		treasury.UpdatedAt = now
		if err := tx.PutTreasury(ctx, treasury); err != nil {
			return err
		}
		out = treasury
		return nil
	})
	if err != nil {
		return nil, err
	}
	receipt := &domain.TreasuryReceipt{Address: out.Address, Balance: out.Balance, Amount: amount, AppliedAt: now}
	uc.Audit.EmitTreasuryChanged(ctx, domain.AuditEventTreasuryMinted, actor, receipt)
	return receipt, nil
}

func (uc *Treasury) BurnFromTreasury(ctx context.Context, actor domain.Identity, amount uint64) (*domain.TreasuryReceipt, error) {
	now := uc.now()
	var out *domain.TreasuryAccount
	err := uc.Store.WithTx(ctx, func(tx Ledger) error {
		treasury, err := tx.Treasury(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInsufficientTreasuryBalance
		}
		if err != nil {
			return err
		}
		// Checked subtraction; balance is left untouched on failure.
		if amount > treasury.Balance {
			return domain.ErrInsufficientTreasuryBalance
		}
		treasury.Balance -= amount
		treasury.UpdatedAt = now
		if err := tx.PutTreasury(ctx, treasury); err != nil {
			return err
		}
		out = treasury
		return nil
	})
	if err != nil {
		return nil, err
	}
	receipt := &domain.TreasuryReceipt{Address: out.Address, Balance: out.Balance, Amount: amount, AppliedAt: now}
	uc.Audit.EmitTreasuryChanged(ctx, domain.AuditEventTreasuryBurned, actor, receipt)
	return receipt, nil
}

// BurnTokens destroys amount from a holder record. Both approvals are
// required in the same request; either one alone is ErrUnauthorizedBurn.
func (uc *Treasury) BurnTokens(ctx context.Context, actor domain.Identity, req BurnTokensRequest) (*domain.BurnReceipt, error) {
	if !req.AdminApproved {
		return nil, domain.ErrUnauthorizedBurn
	}
	holder, err := uc.Store.Holder(ctx, req.Account)
	if err != nil {
		return nil, err
	}
	message := domain.BurnApprovalMessage(uc.Instance, req.Account, req.Amount)
	if err := uc.Crypto.VerifySignatureBy(message, req.OwnerSignature, holder.Owner); err != nil {
		return nil, domain.ErrUnauthorizedBurn
	}

	now := uc.now()
	var out *domain.HolderAccount
	err = uc.Store.WithTx(ctx, func(tx Ledger) error {
		holder, err := tx.Holder(ctx, req.Account)
		if err != nil {
			return err
		}
		if req.Amount > holder.Balance {
			return domain.ErrInsufficientBalance
		}
		holder.Balance -= req.Amount
		if err := tx.PutHolder(ctx, holder); err != nil {
			return err
		}
		out = holder
		return nil
	})
	if err != nil {
		return nil, err
	}
	receipt := &domain.BurnReceipt{Account: out.Address, Amount: req.Amount, Balance: out.Balance, BurnedAt: now}
	uc.Audit.EmitHolderBurned(ctx, actor, receipt)
	return receipt, nil
}

func (uc *Treasury) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now().UTC()
}
