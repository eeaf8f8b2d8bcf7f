package db

import (
	"context"
	"errors"
	"time"

	"riyald/internal/domain"
	"riyald/internal/usecase"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const gateRowID = int64(1)

// LedgerRepository implements the transactional ledger over postgres.
// Inside WithTx every read takes a row lock, so check-then-write sequences
// commit as one step and concurrent claims on the same principal are
// totally ordered by the database.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) WithTx(ctx context.Context, fn func(tx usecase.Ledger) error) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{db: tx})
	})
}

func (r *LedgerRepository) Principal(ctx context.Context, beneficiary domain.AccountID) (*domain.PrincipalAccount, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	return findPrincipal(r.db.WithContext(ctx), beneficiary)
}

func (r *LedgerRepository) PutPrincipal(ctx context.Context, account *domain.PrincipalAccount) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return savePrincipal(r.db.WithContext(ctx), account)
}

func (r *LedgerRepository) Holder(ctx context.Context, address domain.AccountID) (*domain.HolderAccount, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	return findHolder(r.db.WithContext(ctx), address)
}

func (r *LedgerRepository) PutHolder(ctx context.Context, account *domain.HolderAccount) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return saveHolder(r.db.WithContext(ctx), account)
}

func (r *LedgerRepository) Gate(ctx context.Context) (*domain.GateState, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	return findGate(r.db.WithContext(ctx))
}

func (r *LedgerRepository) PutGate(ctx context.Context, state *domain.GateState) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return saveGate(r.db.WithContext(ctx), state)
}

func (r *LedgerRepository) Treasury(ctx context.Context) (*domain.TreasuryAccount, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	return findTreasury(r.db.WithContext(ctx))
}

func (r *LedgerRepository) PutTreasury(ctx context.Context, account *domain.TreasuryAccount) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return saveTreasury(r.db.WithContext(ctx), account)
}

// ledgerTx is the in-transaction view. Reads lock rows; principal reads
// additionally insert the lazy zero-nonce record before locking it, so two
// first claims for the same beneficiary serialize instead of both creating.
type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) Principal(ctx context.Context, beneficiary domain.AccountID) (*domain.PrincipalAccount, error) {
	locked := t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	account, err := findPrincipal(locked, beneficiary)
	if !errors.Is(err, domain.ErrNotFound) {
		return account, err
	}
	seed := PrincipalModel{
		Beneficiary: beneficiary.String(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	return findPrincipal(locked, beneficiary)
}

func (t *ledgerTx) PutPrincipal(ctx context.Context, account *domain.PrincipalAccount) error {
	return savePrincipal(t.db, account)
}

func (t *ledgerTx) Holder(ctx context.Context, address domain.AccountID) (*domain.HolderAccount, error) {
	return findHolder(t.db.Clauses(clause.Locking{Strength: "UPDATE"}), address)
}

func (t *ledgerTx) PutHolder(ctx context.Context, account *domain.HolderAccount) error {
	return saveHolder(t.db, account)
}

func (t *ledgerTx) Gate(ctx context.Context) (*domain.GateState, error) {
	return findGate(t.db.Clauses(clause.Locking{Strength: "UPDATE"}))
}

func (t *ledgerTx) PutGate(ctx context.Context, state *domain.GateState) error {
	return saveGate(t.db, state)
}

func (t *ledgerTx) Treasury(ctx context.Context) (*domain.TreasuryAccount, error) {
	return findTreasury(t.db.Clauses(clause.Locking{Strength: "UPDATE"}))
}

func (t *ledgerTx) PutTreasury(ctx context.Context, account *domain.TreasuryAccount) error {
	return saveTreasury(t.db, account)
}

func findPrincipal(db *gorm.DB, beneficiary domain.AccountID) (*domain.PrincipalAccount, error) {
	var model PrincipalModel
	err := db.First(&model, "beneficiary = ?", beneficiary.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	id, err := domain.ParseAccountID(model.Beneficiary)
	if err != nil {
		return nil, err
	}
	return &domain.PrincipalAccount{
		Beneficiary: id,
		Nonce:       model.Nonce,
		TotalClaims: model.TotalClaims,
		LastClaimAt: model.LastClaimAt,
		CreatedAt:   model.CreatedAt,
	}, nil
}

func savePrincipal(db *gorm.DB, account *domain.PrincipalAccount) error {
	model := PrincipalModel{
		Beneficiary: account.Beneficiary.String(),
		Nonce:       account.Nonce,
		TotalClaims: account.TotalClaims,
		LastClaimAt: account.LastClaimAt,
		CreatedAt:   account.CreatedAt,
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error
}

func findHolder(db *gorm.DB, address domain.AccountID) (*domain.HolderAccount, error) {
	var model HolderModel
	err := db.First(&model, "address = ?", address.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	addr, err := domain.ParseAccountID(model.Address)
	if err != nil {
		return nil, err
	}
	owner, err := domain.ParseAccountID(model.Owner)
	if err != nil {
		return nil, err
	}
	mint, err := domain.ParseAccountID(model.Mint)
	if err != nil {
		return nil, err
	}
	return &domain.HolderAccount{
		Address:   addr,
		Owner:     owner,
		Mint:      mint,
		Balance:   model.Balance,
		Frozen:    model.Frozen,
		CreatedAt: model.CreatedAt,
	}, nil
}

func saveHolder(db *gorm.DB, account *domain.HolderAccount) error {
	model := HolderModel{
		Address:   account.Address.String(),
		Owner:     account.Owner.String(),
		Mint:      account.Mint.String(),
		Balance:   account.Balance,
		Frozen:    account.Frozen,
		CreatedAt: account.CreatedAt,
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error
}

func findGate(db *gorm.DB) (*domain.GateState, error) {
	var model GateModel
	err := db.First(&model, "id = ?", gateRowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.GateState{
		Mode:      domain.GateMode(model.Mode),
		EnabledAt: model.EnabledAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func saveGate(db *gorm.DB, state *domain.GateState) error {
	model := GateModel{
		ID:        gateRowID,
		Mode:      string(state.Mode),
		EnabledAt: state.EnabledAt,
		UpdatedAt: state.UpdatedAt,
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error
}

func findTreasury(db *gorm.DB) (*domain.TreasuryAccount, error) {
	var model TreasuryModel
	err := db.First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	addr, err := domain.ParseAccountID(model.Address)
	if err != nil {
		return nil, err
	}
	mint, err := domain.ParseAccountID(model.Mint)
	if err != nil {
		return nil, err
	}
	return &domain.TreasuryAccount{
		Address:   addr,
		Mint:      mint,
		Balance:   model.Balance,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func saveTreasury(db *gorm.DB, account *domain.TreasuryAccount) error {
	model := TreasuryModel{
		Address:   account.Address.String(),
		Mint:      account.Mint.String(),
		Balance:   account.Balance,
		UpdatedAt: account.UpdatedAt,
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error
}
