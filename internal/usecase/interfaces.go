package usecase

import (
	"context"
	"time"

	"riyald/internal/domain"
)

type Clock func() time.Time

// Ledger is the record-level view of the hosting substrate. Reads return
// domain.ErrNotFound for absent records; writes upsert.
type Ledger interface {
	Principal(ctx context.Context, beneficiary domain.AccountID) (*domain.PrincipalAccount, error)
	PutPrincipal(ctx context.Context, account *domain.PrincipalAccount) error
	Holder(ctx context.Context, address domain.AccountID) (*domain.HolderAccount, error)
	PutHolder(ctx context.Context, account *domain.HolderAccount) error
	Gate(ctx context.Context) (*domain.GateState, error)
	PutGate(ctx context.Context, state *domain.GateState) error
	Treasury(ctx context.Context) (*domain.TreasuryAccount, error)
	PutTreasury(ctx context.Context, account *domain.TreasuryAccount) error
}

// LedgerStore adds the atomic commit boundary the protocol requires: a
// closure passed to WithTx is applied all-or-nothing, and two transactions
// touching the same record are totally ordered by the store. Check-then-write
// sequences (nonce advance, gate transitions, checked subtraction) always run
// inside one WithTx call.
type LedgerStore interface {
	Ledger
	WithTx(ctx context.Context, fn func(tx Ledger) error) error
}

// CryptoService verifies detached ed25519 signatures. The authority key is
// fixed at construction; owner verification takes the signer's public id.
type CryptoService interface {
	VerifyAuthoritySignature(message, signature []byte) error
	VerifySignatureBy(message, signature []byte, signer domain.AccountID) error
}

type AuditEventRepository interface {
	Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error)
	List(ctx context.Context) ([]domain.AuditEvent, error)
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}
