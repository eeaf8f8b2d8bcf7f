// Package vault resolves the claim authority's public key from a Vault KV
// store so the key can be rotated without redeploying the daemon.
package vault

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"riyald/internal/infra/vaultclient"
)

type storedKey struct {
	PublicKeyBase64 string `json:"public_key_base64"`
}

type Provider struct {
	client *vaultclient.Client
	path   string
}

// NewProvider reads the authority key from riyald/<env>/keys/authority.
func NewProvider(client *vaultclient.Client, env string) (*Provider, error) {
	if client == nil {
		return nil, errors.New("vault client is required")
	}
	if env == "" {
		env = "dev"
	}
	return &Provider{
		client: client,
		path:   fmt.Sprintf("riyald/%s/keys/authority", env),
	}, nil
}

func (p *Provider) AuthorityPublicKey(ctx context.Context) ([]byte, error) {
	var stored storedKey
	if err := p.client.ReadKV(ctx, p.path, &stored); err != nil {
		return nil, fmt.Errorf("read authority key: %w", err)
	}
	if stored.PublicKeyBase64 == "" {
		return nil, errors.New("authority key record missing public_key_base64")
	}
	raw, err := base64.StdEncoding.DecodeString(stored.PublicKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode authority public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("authority public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return raw, nil
}
