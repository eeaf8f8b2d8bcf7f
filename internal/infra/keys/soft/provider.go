// Package soft loads the claim authority's public key from configuration.
// It is intended for development and for deployments that distribute the
// key out of band.
package soft

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
)

type Provider struct {
	publicKey ed25519.PublicKey
}

// NewProvider parses a base64-encoded ed25519 public key.
func NewProvider(publicKeyBase64 string) (*Provider, error) {
	if publicKeyBase64 == "" {
		return nil, errors.New("authority public key is required")
	}
	raw, err := base64.StdEncoding.DecodeString(publicKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode authority public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("authority public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return &Provider{publicKey: ed25519.PublicKey(raw)}, nil
}

func (p *Provider) AuthorityPublicKey(_ context.Context) ([]byte, error) {
	if p == nil || len(p.publicKey) == 0 {
		return nil, errors.New("authority public key not loaded")
	}
	out := make([]byte, len(p.publicKey))
	copy(out, p.publicKey)
	return out, nil
}
