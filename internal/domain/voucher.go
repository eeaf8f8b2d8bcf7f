package domain

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
)

// DomainTag prefixes every signed claim message so a voucher signature
// cannot be replayed against a different protocol.
const DomainTag = "riyal:claim:v1"

// BurnTag prefixes the owner-approval message for dual-consent burns.
const BurnTag = "riyal:burn:v1"

const (
	AccountIDSize  = 32
	InstanceIDSize = 32

	// PayloadSize is the exact wire size of an encoded ClaimPayload:
	// beneficiary (32) | amount (8, u64 LE) | expiry (8, i64 LE) | nonce (8, u64 LE).
	PayloadSize = AccountIDSize + 8 + 8 + 8
)

// AccountID is a stable 32-byte public identifier. Beneficiaries, holder
// addresses and the mint id all use this form; the API renders it base58.
type AccountID [AccountIDSize]byte

func (id AccountID) String() string {
	return base58.Encode(id[:])
}

func (id AccountID) IsZero() bool {
	return id == AccountID{}
}

func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	raw, err := base58.Decode(s)
	if err != nil {
		return id, ErrDecode
	}
	if len(raw) != AccountIDSize {
		return id, ErrDecode
	}
	copy(id[:], raw)
	return id, nil
}

// InstanceID identifies one deployment of the protocol; it is mixed into
// every signed message to block cross-deployment replay.
type InstanceID [InstanceIDSize]byte

// ClaimPayload is the immutable value a voucher carries. It is built
// off-component by the claim authority and never mutated here.
type ClaimPayload struct {
	Beneficiary AccountID
	Amount      uint64
	Expiry      int64
	Nonce       uint64
}

// Encode renders the payload in the fixed 56-byte wire layout.
func (p ClaimPayload) Encode() []byte {
	buf := make([]byte, PayloadSize)
	copy(buf[:AccountIDSize], p.Beneficiary[:])
	binary.LittleEndian.PutUint64(buf[32:40], p.Amount)
	binary.LittleEndian.PutUint64(buf[40:48], uint64(p.Expiry))
	binary.LittleEndian.PutUint64(buf[48:56], p.Nonce)
	return buf
}

// DecodeClaimPayload is the exact inverse of Encode. Input must be exactly
// PayloadSize bytes; anything else fails ErrDecode, no best-effort parsing.
func DecodeClaimPayload(raw []byte) (ClaimPayload, error) {
	var p ClaimPayload
	if len(raw) != PayloadSize {
		return p, ErrDecode
	}
	copy(p.Beneficiary[:], raw[:AccountIDSize])
	p.Amount = binary.LittleEndian.Uint64(raw[32:40])
	p.Expiry = int64(binary.LittleEndian.Uint64(raw[40:48]))
	p.Nonce = binary.LittleEndian.Uint64(raw[48:56])
	return p, nil
}

// SignedClaimMessage is the byte string the authority signs:
// DomainTag || instanceID || Encode(payload).
func SignedClaimMessage(instance InstanceID, payload ClaimPayload) []byte {
	msg := make([]byte, 0, len(DomainTag)+InstanceIDSize+PayloadSize)
	msg = append(msg, DomainTag...)
	msg = append(msg, instance[:]...)
	msg = append(msg, payload.Encode()...)
	return msg
}

// BurnApprovalMessage is the byte string a holder owner signs to approve
// destruction of amount tokens from account.
func BurnApprovalMessage(instance InstanceID, account AccountID, amount uint64) []byte {
	msg := make([]byte, 0, len(BurnTag)+InstanceIDSize+AccountIDSize+8)
	msg = append(msg, BurnTag...)
	msg = append(msg, instance[:]...)
	msg = append(msg, account[:]...)
	var amt [8]byte
	binary.LittleEndian.PutUint64(amt[:], amount)
	msg = append(msg, amt[:]...)
	return msg
}
