package domain

import "time"

// TreasuryAccount holds administratively minted supply. Balance is adjusted
// with checked arithmetic only and never goes negative.
type TreasuryAccount struct {
	Address   AccountID
	Mint      AccountID
	Balance   uint64
	UpdatedAt time.Time
}
