package domain

import "time"

type AuditActorType string

const (
	AuditChainVersion = "audit_chain_v1"

	AuditActorSystem      AuditActorType = "system"
	AuditActorAdminAPIKey AuditActorType = "admin_api_key"
	AuditActorBeneficiary AuditActorType = "beneficiary"
)

type AuditEventType string

const (
	AuditEventClaimAccepted     AuditEventType = "claim_accepted"
	AuditEventGatePaused        AuditEventType = "gate_paused"
	AuditEventGateResumed       AuditEventType = "gate_resumed"
	AuditEventGateLockedEnabled AuditEventType = "gate_permanently_enabled"
	AuditEventHolderUnfrozen    AuditEventType = "holder_unfrozen"
	AuditEventTreasuryMinted    AuditEventType = "treasury_minted"
	AuditEventTreasuryBurned    AuditEventType = "treasury_burned"
	AuditEventHolderBurned      AuditEventType = "holder_burned"
)

type AuditTargetType string

const (
	AuditTargetPrincipal AuditTargetType = "principal"
	AuditTargetHolder    AuditTargetType = "holder"
	AuditTargetGate      AuditTargetType = "gate"
	AuditTargetTreasury  AuditTargetType = "treasury"
)

type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
)

// AuditEvent is one link of the hash-chained operational log. Seq and the
// prev/event hashes are assigned by the repository at append time.
type AuditEvent struct {
	ID            string
	Seq           int64
	EventType     AuditEventType
	Payload       any
	PayloadHash   string
	ActorType     AuditActorType
	ActorIDHash   string
	TargetType    AuditTargetType
	TargetID      string
	Result        AuditResult
	ErrorCode     string
	PrevEventHash string
	EventHash     string
	CreatedAt     time.Time
}
