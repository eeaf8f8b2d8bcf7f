package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"riyald/internal/domain"
)

// VerifyAuditChain recomputes the hash chain over the stored audit events
// and fails on the first broken link.
func VerifyAuditChain(ctx context.Context, repo AuditEventRepository) error {
	if repo == nil {
		return errors.New("audit repository required")
	}
	events, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	expectedSeq := int64(1)
	prevHash := ZeroAuditHash()
	for _, event := range events {
		if event.Seq != expectedSeq {
			return fmt.Errorf("audit chain seq mismatch: expected %d got %d", expectedSeq, event.Seq)
		}
		if event.PrevEventHash != prevHash {
			return fmt.Errorf("audit chain prev hash mismatch at seq %d", event.Seq)
		}
		payloadJSON, err := payloadBytes(event.Payload)
		if err != nil {
			return fmt.Errorf("audit chain payload decode failed at seq %d: %w", event.Seq, err)
		}
		if sha256Hex(payloadJSON) != event.PayloadHash {
			return fmt.Errorf("audit chain payload hash mismatch at seq %d", event.Seq)
		}
		if event.CreatedAt.IsZero() {
			return fmt.Errorf("audit chain missing created_at at seq %d", event.Seq)
		}
		expectedHash, err := ComputeAuditEventHash(event)
		if err != nil {
			return fmt.Errorf("audit chain hash compute failed at seq %d: %w", event.Seq, err)
		}
		if expectedHash != event.EventHash {
			return fmt.Errorf("audit chain hash mismatch at seq %d", event.Seq)
		}
		prevHash = event.EventHash
		expectedSeq++
	}
	return nil
}

// ComputeAuditEventHash derives the chain link hash for one event. Repos
// call this at append time; VerifyAuditChain recomputes it.
func ComputeAuditEventHash(event domain.AuditEvent) (string, error) {
	if event.EventType == "" {
		return "", errors.New("audit event missing event_type")
	}
	if event.PayloadHash == "" || event.PrevEventHash == "" {
		return "", errors.New("audit event missing payload_hash or prev_event_hash")
	}
	parts := []string{
		"version=" + domain.AuditChainVersion,
		"seq=" + strconv.FormatInt(event.Seq, 10),
		"event_type=" + string(event.EventType),
		"payload_hash=" + event.PayloadHash,
		"prev_event_hash=" + event.PrevEventHash,
		"created_at=" + event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	return sha256Hex([]byte(strings.Join(parts, "\n"))), nil
}

// CanonicalPayloadJSON renders an audit payload with sorted keys so the
// payload hash is stable across encoders.
func CanonicalPayloadJSON(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	buf := &strings.Builder{}
	if err := writeCanonicalJSON(buf, value); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

func writeCanonicalJSON(buf *strings.Builder, value any) error {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(keyJSON)
			buf.WriteByte(':')
			if err := writeCanonicalJSON(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(encoded)
		return nil
	}
}

func ZeroAuditHash() string {
	return strings.Repeat("0", 64)
}

func payloadBytes(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return CanonicalPayloadJSON(v)
	}
}

func sha256Hex(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}
