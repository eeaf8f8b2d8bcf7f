package crypto

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"riyald/internal/domain"
)

// Service verifies the detached ed25519 signatures the protocol consumes.
// It holds only the authority's public key; signing and key custody are
// external.
type Service struct {
	authorityKey ed25519.PublicKey
}

func NewService(authorityKey []byte) (*Service, error) {
	if len(authorityKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 authority key length: %d", len(authorityKey))
	}
	return &Service{authorityKey: ed25519.PublicKey(authorityKey)}, nil
}

// VerifyAuthoritySignature checks a voucher signature against the registered
// authority key. An all-zero signature is rejected explicitly rather than
// relying on the curve math to fail.
func (s *Service) VerifyAuthoritySignature(message, signature []byte) error {
	if s == nil || len(s.authorityKey) != ed25519.PublicKeySize {
		return errors.New("authority key not configured")
	}
	if err := verify(s.authorityKey, message, signature); err != nil {
		return domain.ErrInvalidAuthoritySignature
	}
	return nil
}

// VerifySignatureBy checks a detached signature against an arbitrary signer
// identifier, which is the signer's ed25519 public key.
func (s *Service) VerifySignatureBy(message, signature []byte, signer domain.AccountID) error {
	return verify(ed25519.PublicKey(signer[:]), message, signature)
}

func verify(pubKey ed25519.PublicKey, message, signature []byte) error {
	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("invalid ed25519 signature length: %d", len(signature))
	}
	if allZero(signature) {
		return errors.New("all-zero signature")
	}
	if !ed25519.Verify(pubKey, message, signature) {
		return errors.New("signature verification failed")
	}
	return nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
