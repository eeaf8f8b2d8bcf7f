package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"riyald/internal/domain"
)

func newTestService(t *testing.T) (*Service, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	svc, err := NewService(pub)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, priv
}

func TestVerifyAuthoritySignature(t *testing.T) {
	svc, priv := newTestService(t)
	message := []byte("voucher bytes")
	sig := ed25519.Sign(priv, message)

	if err := svc.VerifyAuthoritySignature(message, sig); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifyAuthoritySignatureRejectsMutatedMessage(t *testing.T) {
	svc, priv := newTestService(t)
	message := []byte("voucher bytes")
	sig := ed25519.Sign(priv, message)

	mutated := append([]byte(nil), message...)
	mutated[0] ^= 0x01
	if err := svc.VerifyAuthoritySignature(mutated, sig); !errors.Is(err, domain.ErrInvalidAuthoritySignature) {
		t.Fatalf("err = %v, want ErrInvalidAuthoritySignature", err)
	}
}

func TestVerifyAuthoritySignatureRejectsAllZeroSignature(t *testing.T) {
	svc, _ := newTestService(t)
	zeroSig := make([]byte, ed25519.SignatureSize)
	if err := svc.VerifyAuthoritySignature([]byte("voucher bytes"), zeroSig); !errors.Is(err, domain.ErrInvalidAuthoritySignature) {
		t.Fatalf("err = %v, want ErrInvalidAuthoritySignature", err)
	}
}

func TestVerifyAuthoritySignatureRejectsWrongLength(t *testing.T) {
	svc, priv := newTestService(t)
	message := []byte("voucher bytes")
	sig := ed25519.Sign(priv, message)
	if err := svc.VerifyAuthoritySignature(message, sig[:32]); !errors.Is(err, domain.ErrInvalidAuthoritySignature) {
		t.Fatalf("err = %v, want ErrInvalidAuthoritySignature", err)
	}
}

func TestVerifySignatureBy(t *testing.T) {
	svc, _ := newTestService(t)

	ownerPub, ownerPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate owner key: %v", err)
	}
	var owner domain.AccountID
	copy(owner[:], ownerPub)

	message := []byte("burn approval")
	sig := ed25519.Sign(ownerPriv, message)
	if err := svc.VerifySignatureBy(message, sig, owner); err != nil {
		t.Fatalf("valid owner signature rejected: %v", err)
	}

	var other domain.AccountID
	other[0] = 0x01
	if err := svc.VerifySignatureBy(message, sig, other); err == nil {
		t.Fatal("signature verified against the wrong signer")
	}
}

func TestNewServiceRejectsBadKeyLength(t *testing.T) {
	if _, err := NewService(make([]byte, 31)); err == nil {
		t.Fatal("expected error for short key")
	}
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil key")
	}
}
