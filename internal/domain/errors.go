package domain

import "errors"

var (
	ErrDecode                      = errors.New("voucher decode failed")
	ErrInvalidAuthoritySignature   = errors.New("invalid authority signature")
	ErrPayloadUserMismatch         = errors.New("payload beneficiary does not match transaction signer")
	ErrUnauthorizedDestination     = errors.New("destination not owned by beneficiary")
	ErrInvalidTokenMint            = errors.New("destination denominated in wrong mint")
	ErrClaimExpired                = errors.New("claim expired")
	ErrClaimAmountTooHigh          = errors.New("claim amount exceeds limit")
	ErrInvalidNonce                = errors.New("invalid nonce")
	ErrTransfersImmutable          = errors.New("transfers permanently enabled")
	ErrCannotUnfreezeWhilePaused   = errors.New("cannot unfreeze while transfers are paused")
	ErrInsufficientTreasuryBalance = errors.New("insufficient treasury balance")
	ErrInvalidTreasuryAccount      = errors.New("invalid treasury account")
	ErrUnauthorizedBurn            = errors.New("burn requires admin and owner approval")
	ErrUnauthorizedAdmin           = errors.New("unauthorized admin")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAmountOverflow      = errors.New("amount overflows balance")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
)
