package memstate

import (
	"context"
	"sync"

	"riyald/internal/domain"
	"riyald/internal/usecase"
)

// Store is an in-memory ledger used in no-db mode and by tests. A single
// mutex makes every WithTx closure an indivisible step, which is the same
// contract the postgres store provides with row locks.
type Store struct {
	mu         sync.Mutex
	principals map[domain.AccountID]domain.PrincipalAccount
	holders    map[domain.AccountID]domain.HolderAccount
	gate       *domain.GateState
	treasury   *domain.TreasuryAccount
}

func NewStore() *Store {
	return &Store{
		principals: make(map[domain.AccountID]domain.PrincipalAccount),
		holders:    make(map[domain.AccountID]domain.HolderAccount),
	}
}

func (s *Store) Principal(ctx context.Context, beneficiary domain.AccountID) (*domain.PrincipalAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readPrincipal(s.principals, beneficiary)
}

func (s *Store) PutPrincipal(ctx context.Context, account *domain.PrincipalAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[account.Beneficiary] = *account
	return nil
}

func (s *Store) Holder(ctx context.Context, address domain.AccountID) (*domain.HolderAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readHolder(s.holders, address)
}

func (s *Store) PutHolder(ctx context.Context, account *domain.HolderAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holders[account.Address] = *account
	return nil
}

func (s *Store) Gate(ctx context.Context) (*domain.GateState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readGate(s.gate)
}

func (s *Store) PutGate(ctx context.Context, state *domain.GateState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	s.gate = &copied
	return nil
}

func (s *Store) Treasury(ctx context.Context) (*domain.TreasuryAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readTreasury(s.treasury)
}

func (s *Store) PutTreasury(ctx context.Context, account *domain.TreasuryAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *account
	s.treasury = &copied
	return nil
}

// WithTx holds the store lock for the whole closure and stages writes so a
// failing closure leaves no partial effect.
func (s *Store) WithTx(ctx context.Context, fn func(tx usecase.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &txView{
		store:      s,
		principals: make(map[domain.AccountID]domain.PrincipalAccount),
		holders:    make(map[domain.AccountID]domain.HolderAccount),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type txView struct {
	store      *Store
	principals map[domain.AccountID]domain.PrincipalAccount
	holders    map[domain.AccountID]domain.HolderAccount
	gate       *domain.GateState
	treasury   *domain.TreasuryAccount
}

func (t *txView) Principal(ctx context.Context, beneficiary domain.AccountID) (*domain.PrincipalAccount, error) {
	if staged, ok := t.principals[beneficiary]; ok {
		copied := staged
		return &copied, nil
	}
	return readPrincipal(t.store.principals, beneficiary)
}

func (t *txView) PutPrincipal(ctx context.Context, account *domain.PrincipalAccount) error {
	t.principals[account.Beneficiary] = *account
	return nil
}

func (t *txView) Holder(ctx context.Context, address domain.AccountID) (*domain.HolderAccount, error) {
	if staged, ok := t.holders[address]; ok {
		copied := staged
		return &copied, nil
	}
	return readHolder(t.store.holders, address)
}

func (t *txView) PutHolder(ctx context.Context, account *domain.HolderAccount) error {
	t.holders[account.Address] = *account
	return nil
}

func (t *txView) Gate(ctx context.Context) (*domain.GateState, error) {
	if t.gate != nil {
		copied := *t.gate
		return &copied, nil
	}
	return readGate(t.store.gate)
}

func (t *txView) PutGate(ctx context.Context, state *domain.GateState) error {
	copied := *state
	t.gate = &copied
	return nil
}

func (t *txView) Treasury(ctx context.Context) (*domain.TreasuryAccount, error) {
	if t.treasury != nil {
		copied := *t.treasury
		return &copied, nil
	}
	return readTreasury(t.store.treasury)
}

func (t *txView) PutTreasury(ctx context.Context, account *domain.TreasuryAccount) error {
	copied := *account
	t.treasury = &copied
	return nil
}

func (t *txView) commit() {
	for k, v := range t.principals {
		t.store.principals[k] = v
	}
	for k, v := range t.holders {
		t.store.holders[k] = v
	}
	if t.gate != nil {
		t.store.gate = t.gate
	}
	if t.treasury != nil {
		t.store.treasury = t.treasury
	}
}

func readPrincipal(m map[domain.AccountID]domain.PrincipalAccount, beneficiary domain.AccountID) (*domain.PrincipalAccount, error) {
	account, ok := m[beneficiary]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := account
	return &copied, nil
}

func readHolder(m map[domain.AccountID]domain.HolderAccount, address domain.AccountID) (*domain.HolderAccount, error) {
	account, ok := m[address]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := account
	return &copied, nil
}

func readGate(gate *domain.GateState) (*domain.GateState, error) {
	if gate == nil {
		return nil, domain.ErrNotFound
	}
	copied := *gate
	return &copied, nil
}

func readTreasury(treasury *domain.TreasuryAccount) (*domain.TreasuryAccount, error) {
	if treasury == nil {
		return nil, domain.ErrNotFound
	}
	copied := *treasury
	return &copied, nil
}
