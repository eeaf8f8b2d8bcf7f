package db

import (
	"fmt"

	"riyald/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

// NewStore connects to postgres and migrates the ledger schema. An empty
// DSN yields a no-db store; main falls back to the in-memory ledger then.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := gdb.AutoMigrate(
		&PrincipalModel{},
		&HolderModel{},
		&GateModel{},
		&TreasuryModel{},
		&AuditEventModel{},
	); err != nil {
		return nil, fmt.Errorf("migrate ledger schema: %w", err)
	}

	return &Store{DB: gdb}, nil
}
