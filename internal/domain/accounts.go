package domain

import (
	"crypto/sha256"
	"time"
)

const holderDeriveTag = "riyal:holder:v1"

// PrincipalAccount tracks replay state for one beneficiary. Nonce is the
// next expected value and increases by exactly one per accepted claim.
type PrincipalAccount struct {
	Beneficiary AccountID
	Nonce       uint64
	TotalClaims uint64
	LastClaimAt *time.Time
	CreatedAt   time.Time
}

// HolderAccount is the per-owner balance record for one mint. New records
// start frozen; the flag is cleared only through the transfer gate.
type HolderAccount struct {
	Address   AccountID
	Owner     AccountID
	Mint      AccountID
	Balance   uint64
	Frozen    bool
	CreatedAt time.Time
}

// DeriveHolderAddress computes the canonical holder record address for an
// owner/mint pair. Claims only ever credit the derived address, which is
// what makes the destination-ownership check deterministic.
func DeriveHolderAddress(owner, mint AccountID) AccountID {
	h := sha256.New()
	h.Write([]byte(holderDeriveTag))
	h.Write(owner[:])
	h.Write(mint[:])
	var addr AccountID
	copy(addr[:], h.Sum(nil))
	return addr
}

// DeriveTreasuryAddress computes the single canonical treasury record
// address for a deployment.
func DeriveTreasuryAddress(instance InstanceID, mint AccountID) AccountID {
	h := sha256.New()
	h.Write([]byte("riyal:treasury:v1"))
	h.Write(instance[:])
	h.Write(mint[:])
	var addr AccountID
	copy(addr[:], h.Sum(nil))
	return addr
}
