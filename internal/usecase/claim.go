package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"riyald/internal/domain"

	"github.com/google/uuid"
)

type ClaimRequest struct {
	Payload domain.ClaimPayload
	// Signature is the authority's detached signature over
	// DomainTag || instanceID || Encode(Payload).
	Signature []byte
	// Destination names the holder record to credit.
	Destination domain.AccountID
	// TransactionSigner is the identity the substrate already authenticated
	// for this request; this component does not re-prove key possession.
	TransactionSigner domain.AccountID
}

// ClaimTokens validates a signed voucher and applies the credit. Every
// validation step is terminal: the first failure rejects the whole request
// with no partial effect.
type ClaimTokens struct {
	Store          LedgerStore
	Crypto         CryptoService
	Audit          *AuditEmitter
	Instance       domain.InstanceID
	Mint           domain.AccountID
	MaxClaimAmount uint64
	Clock          Clock
}

func (uc *ClaimTokens) Execute(ctx context.Context, req ClaimRequest) (*domain.ClaimReceipt, error) {
	message := domain.SignedClaimMessage(uc.Instance, req.Payload)
	if err := uc.Crypto.VerifyAuthoritySignature(message, req.Signature); err != nil {
		return nil, err
	}

	// Signer binding runs before anything else can mutate or leak state;
	// a voucher must never be redeemable by a party other than its
	// beneficiary, whatever else is valid about it.
	if req.Payload.Beneficiary != req.TransactionSigner {
		return nil, domain.ErrPayloadUserMismatch
	}

	if err := uc.checkDestination(ctx, req); err != nil {
		return nil, err
	}

	now := uc.now()
	if now.Unix() > req.Payload.Expiry {
		return nil, domain.ErrClaimExpired
	}

	if uc.MaxClaimAmount > 0 && req.Payload.Amount > uc.MaxClaimAmount {
		return nil, domain.ErrClaimAmountTooHigh
	}

	var receipt *domain.ClaimReceipt
	err := uc.Store.WithTx(ctx, func(tx Ledger) error {
		principal, err := tx.Principal(ctx, req.Payload.Beneficiary)
		if errors.Is(err, domain.ErrNotFound) {
			principal = &domain.PrincipalAccount{
				Beneficiary: req.Payload.Beneficiary,
				CreatedAt:   now,
			}
		} else if err != nil {
			return err
		}
		if req.Payload.Nonce != principal.Nonce {
			return domain.ErrInvalidNonce
		}
		principal.Nonce++
		principal.TotalClaims++
		claimedAt := now
		principal.LastClaimAt = &claimedAt
		if err := tx.PutPrincipal(ctx, principal); err != nil {
			return err
		}

		holder, err := tx.Holder(ctx, req.Destination)
		if errors.Is(err, domain.ErrNotFound) {
			holder = &domain.HolderAccount{
				Address:   req.Destination,
				Owner:     req.Payload.Beneficiary,
				Mint:      uc.Mint,
				Frozen:    true,
				CreatedAt: now,
			}
		} else if err != nil {
			return err
		}
		// Re-assert the bindings against the row the transaction actually
		// locked, not the earlier unlocked read.
		if holder.Owner != req.Payload.Beneficiary {
			return domain.ErrUnauthorizedDestination
		}
		if holder.Mint != uc.Mint {
			return domain.ErrInvalidTokenMint
		}

		// Freeze, mutate, freeze again: the flag is set both around the
		// credit so no interleaving ever observes an unfrozen fresh credit.
		holder.Frozen = true
		if holder.Balance > math.MaxUint64-req.Payload.Amount {
			return domain.ErrClaimAmountTooHigh
		}
		holder.Balance += req.Payload.Amount
		holder.Frozen = true
		if err := tx.PutHolder(ctx, holder); err != nil {
			return err
		}

		receipt = &domain.ClaimReceipt{
			ReceiptID:   uuid.NewString(),
			Beneficiary: req.Payload.Beneficiary,
			Destination: holder.Address,
			Amount:      req.Payload.Amount,
			Nonce:       principal.Nonce,
			TotalClaims: principal.TotalClaims,
			Frozen:      holder.Frozen,
			ClaimedAt:   now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.Audit.EmitClaimAccepted(ctx, receipt)
	return receipt, nil
}

// checkDestination enforces the destination/mint binding against current
// state. An unknown destination is acceptable only when it is the canonical
// derived holder address for the beneficiary, in which case the claim
// transaction creates it.
func (uc *ClaimTokens) checkDestination(ctx context.Context, req ClaimRequest) error {
	holder, err := uc.Store.Holder(ctx, req.Destination)
	if errors.Is(err, domain.ErrNotFound) {
		if req.Destination != domain.DeriveHolderAddress(req.Payload.Beneficiary, uc.Mint) {
			return domain.ErrUnauthorizedDestination
		}
		return nil
	}
	if err != nil {
		return err
	}
	if holder.Owner != req.Payload.Beneficiary {
		return domain.ErrUnauthorizedDestination
	}
	if holder.Mint != uc.Mint {
		return domain.ErrInvalidTokenMint
	}
	return nil
}

func (uc *ClaimTokens) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now().UTC()
}
