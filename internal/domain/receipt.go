package domain

import "time"

// ClaimReceipt reports the post-claim state for an accepted voucher.
type ClaimReceipt struct {
	ReceiptID   string
	Beneficiary AccountID
	Destination AccountID
	Amount      uint64
	Nonce       uint64
	TotalClaims uint64
	Frozen      bool
	ClaimedAt   time.Time
}

// GateReceipt reports a completed gate transition or unfreeze.
type GateReceipt struct {
	Mode      GateMode
	EnabledAt *time.Time
	ChangedAt time.Time
}

// TreasuryReceipt reports the treasury balance after a mint or burn.
type TreasuryReceipt struct {
	Address   AccountID
	Balance   uint64
	Amount    uint64
	AppliedAt time.Time
}

// BurnReceipt reports a dual-consent holder burn.
type BurnReceipt struct {
	Account  AccountID
	Amount   uint64
	Balance  uint64
	BurnedAt time.Time
}

// TransferabilityReceipt answers a canTransfer query, carrying the reason a
// movement would be rejected, if any.
type TransferabilityReceipt struct {
	Allowed bool
	Mode    GateMode
	Reason  string
}
