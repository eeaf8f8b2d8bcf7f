package usecase_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"math"
	"testing"
	"time"

	"riyald/internal/domain"
	"riyald/internal/infra/crypto"
	"riyald/internal/infra/memstate"
	"riyald/internal/usecase"
)

type treasuryFixture struct {
	uc        *usecase.Treasury
	store     *memstate.Store
	ownerPriv ed25519.PrivateKey
	owner     domain.AccountID
	holder    domain.AccountID
	now       time.Time
}

func newTreasuryFixture(t *testing.T) *treasuryFixture {
	t.Helper()
	authorityPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate authority key: %v", err)
	}
	cryptoSvc, err := crypto.NewService(authorityPub)
	if err != nil {
		t.Fatalf("new crypto service: %v", err)
	}
	ownerPub, ownerPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate owner key: %v", err)
	}

	f := &treasuryFixture{
		store:     memstate.NewStore(),
		ownerPriv: ownerPriv,
		now:       time.Unix(1_750_000_000, 0).UTC(),
	}
	copy(f.owner[:], ownerPub)

	var instance domain.InstanceID
	instance[0] = 0x10
	var mint domain.AccountID
	mint[0] = 0x20
	f.uc = &usecase.Treasury{
		Store:    f.store,
		Crypto:   cryptoSvc,
		Instance: instance,
		Mint:     mint,
		Clock:    func() time.Time { return f.now },
	}

	f.holder = domain.DeriveHolderAddress(f.owner, mint)
	err = f.store.PutHolder(context.Background(), &domain.HolderAccount{
		Address:   f.holder,
		Owner:     f.owner,
		Mint:      mint,
		Balance:   1_000,
		CreatedAt: f.now,
	})
	if err != nil {
		t.Fatalf("seed holder: %v", err)
	}
	return f
}

func (f *treasuryFixture) ownerApproval(amount uint64) []byte {
	message := domain.BurnApprovalMessage(f.uc.Instance, f.holder, amount)
	return ed25519.Sign(f.ownerPriv, message)
}

func TestMintToTreasury(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	receipt, err := f.uc.MintToTreasury(ctx, adminIdentity(), f.uc.Address(), 500)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if receipt.Balance != 500 {
		t.Fatalf("balance = %d, want 500", receipt.Balance)
	}

	receipt, err = f.uc.MintToTreasury(ctx, adminIdentity(), f.uc.Address(), 250)
	if err != nil {
		t.Fatalf("second mint: %v", err)
	}
	if receipt.Balance != 750 {
		t.Fatalf("balance = %d, want 750", receipt.Balance)
	}
}

func TestMintToTreasuryRejectsForeignTarget(t *testing.T) {
	f := newTreasuryFixture(t)
	target := f.uc.Address()
	target[0] ^= 0x01

	if _, err := f.uc.MintToTreasury(context.Background(), adminIdentity(), target, 500); !errors.Is(err, domain.ErrInvalidTreasuryAccount) {
		t.Fatalf("err = %v, want ErrInvalidTreasuryAccount", err)
	}
}

func TestMintToTreasuryOverflow(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	if _, err := f.uc.MintToTreasury(ctx, adminIdentity(), f.uc.Address(), math.MaxUint64); err != nil {
		t.Fatalf("mint to max: %v", err)
	}
	if _, err := f.uc.MintToTreasury(ctx, adminIdentity(), f.uc.Address(), 1); !errors.Is(err, domain.ErrAmountOverflow) {
		t.Fatalf("err = %v, want ErrAmountOverflow", err)
	}
	treasury, err := f.store.Treasury(ctx)
	if err != nil {
		t.Fatalf("treasury: %v", err)
	}
	if treasury.Balance != math.MaxUint64 {
		t.Fatalf("balance moved on rejected mint: %d", treasury.Balance)
	}
}

func TestBurnFromTreasury(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	if _, err := f.uc.MintToTreasury(ctx, adminIdentity(), f.uc.Address(), 500); err != nil {
		t.Fatalf("mint: %v", err)
	}
	receipt, err := f.uc.BurnFromTreasury(ctx, adminIdentity(), 200)
	if err != nil {
		t.Fatalf("burn: %v", err)
	}
	if receipt.Balance != 300 {
		t.Fatalf("balance = %d, want 300", receipt.Balance)
	}

	// Overdraft fails and leaves the balance alone.
	if _, err := f.uc.BurnFromTreasury(ctx, adminIdentity(), 301); !errors.Is(err, domain.ErrInsufficientTreasuryBalance) {
		t.Fatalf("err = %v, want ErrInsufficientTreasuryBalance", err)
	}
	treasury, err := f.store.Treasury(ctx)
	if err != nil {
		t.Fatalf("treasury: %v", err)
	}
	if treasury.Balance != 300 {
		t.Fatalf("balance after failed burn = %d, want 300", treasury.Balance)
	}
}

func TestBurnFromEmptyTreasury(t *testing.T) {
	f := newTreasuryFixture(t)
	if _, err := f.uc.BurnFromTreasury(context.Background(), adminIdentity(), 1); !errors.Is(err, domain.ErrInsufficientTreasuryBalance) {
		t.Fatalf("err = %v, want ErrInsufficientTreasuryBalance", err)
	}
}

func TestBurnTokensRequiresAdminApproval(t *testing.T) {
	f := newTreasuryFixture(t)
	req := usecase.BurnTokensRequest{
		Account:        f.holder,
		Amount:         100,
		OwnerSignature: f.ownerApproval(100),
		AdminApproved:  false,
	}
	if _, err := f.uc.BurnTokens(context.Background(), adminIdentity(), req); !errors.Is(err, domain.ErrUnauthorizedBurn) {
		t.Fatalf("err = %v, want ErrUnauthorizedBurn", err)
	}
}

func TestBurnTokensRequiresOwnerApproval(t *testing.T) {
	f := newTreasuryFixture(t)
	badSig := f.ownerApproval(100)
	badSig[0] ^= 0x01
	req := usecase.BurnTokensRequest{
		Account:        f.holder,
		Amount:         100,
		OwnerSignature: badSig,
		AdminApproved:  true,
	}
	if _, err := f.uc.BurnTokens(context.Background(), adminIdentity(), req); !errors.Is(err, domain.ErrUnauthorizedBurn) {
		t.Fatalf("err = %v, want ErrUnauthorizedBurn", err)
	}

	// A signature over a different amount is not consent for this one.
	req.OwnerSignature = f.ownerApproval(200)
	if _, err := f.uc.BurnTokens(context.Background(), adminIdentity(), req); !errors.Is(err, domain.ErrUnauthorizedBurn) {
		t.Fatalf("err = %v, want ErrUnauthorizedBurn", err)
	}
}

func TestBurnTokensDualConsent(t *testing.T) {
	f := newTreasuryFixture(t)
	req := usecase.BurnTokensRequest{
		Account:        f.holder,
		Amount:         100,
		OwnerSignature: f.ownerApproval(100),
		AdminApproved:  true,
	}
	receipt, err := f.uc.BurnTokens(context.Background(), adminIdentity(), req)
	if err != nil {
		t.Fatalf("burn: %v", err)
	}
	if receipt.Balance != 900 {
		t.Fatalf("balance = %d, want 900", receipt.Balance)
	}
}

func TestBurnTokensOverdraft(t *testing.T) {
	f := newTreasuryFixture(t)
	req := usecase.BurnTokensRequest{
		Account:        f.holder,
		Amount:         1_001,
		OwnerSignature: f.ownerApproval(1_001),
		AdminApproved:  true,
	}
	if _, err := f.uc.BurnTokens(context.Background(), adminIdentity(), req); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	holder, err := f.store.Holder(context.Background(), f.holder)
	if err != nil {
		t.Fatalf("holder: %v", err)
	}
	if holder.Balance != 1_000 {
		t.Fatalf("balance after failed burn = %d, want 1000", holder.Balance)
	}
}

func TestBurnTokensUnknownHolder(t *testing.T) {
	f := newTreasuryFixture(t)
	var unknown domain.AccountID
	unknown[0] = 0xEE
	req := usecase.BurnTokensRequest{
		Account:        unknown,
		Amount:         1,
		OwnerSignature: f.ownerApproval(1),
		AdminApproved:  true,
	}
	if _, err := f.uc.BurnTokens(context.Background(), adminIdentity(), req); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
