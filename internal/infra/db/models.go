package db

import "time"

type PrincipalModel struct {
	Beneficiary string     `gorm:"primaryKey;size:64"`
	Nonce       uint64     `gorm:"not null"`
	TotalClaims uint64     `gorm:"not null"`
	LastClaimAt *time.Time
	CreatedAt   time.Time  `gorm:"not null"`
}

func (PrincipalModel) TableName() string { return "principal_accounts" }

type HolderModel struct {
	Address   string    `gorm:"primaryKey;size:64"`
	Owner     string    `gorm:"index;not null;size:64"`
	Mint      string    `gorm:"index;not null;size:64"`
	Balance   uint64    `gorm:"not null"`
	Frozen    bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (HolderModel) TableName() string { return "holder_accounts" }

// GateModel is a singleton row; ID is always gateRowID.
type GateModel struct {
	ID        int64      `gorm:"primaryKey"`
	Mode      string     `gorm:"not null"`
	EnabledAt *time.Time
	UpdatedAt time.Time  `gorm:"not null"`
}

func (GateModel) TableName() string { return "transfer_gate" }

type TreasuryModel struct {
	Address   string    `gorm:"primaryKey;size:64"`
	Mint      string    `gorm:"not null;size:64"`
	Balance   uint64    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (TreasuryModel) TableName() string { return "treasury_accounts" }

type AuditEventModel struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	Seq           int64     `gorm:"uniqueIndex;not null"`
	EventType     string    `gorm:"index;not null"`
	PayloadJSON   []byte    `gorm:"type:jsonb;not null"`
	PayloadHash   string    `gorm:"not null"`
	ActorType     string    `gorm:"not null"`
	ActorIDHash   *string
	TargetType    string    `gorm:"not null"`
	TargetID      string    `gorm:"index;not null"`
	Result        string    `gorm:"not null"`
	ErrorCode     *string
	PrevEventHash string    `gorm:"not null"`
	EventHash     string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (AuditEventModel) TableName() string { return "audit_events" }
