package http

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"riyald/internal/config"
	"riyald/internal/domain"
	"riyald/internal/infra/auditmem"
	"riyald/internal/infra/crypto"
	"riyald/internal/infra/memstate"
	"riyald/internal/usecase"

	"github.com/gin-gonic/gin"
)

const testAdminKey = "test-admin-key"

type serverFixture struct {
	srv         *Server
	store       *memstate.Store
	audit       *auditmem.Repository
	authority   ed25519.PrivateKey
	instance    domain.InstanceID
	mint        domain.AccountID
	beneficiary domain.AccountID
	destination domain.AccountID
	now         time.Time
}

func newServerFixture(t *testing.T, cfg config.Config) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate authority key: %v", err)
	}
	cryptoSvc, err := crypto.NewService(pub)
	if err != nil {
		t.Fatalf("new crypto service: %v", err)
	}

	f := &serverFixture{
		store:     memstate.NewStore(),
		authority: priv,
		now:       time.Unix(1_750_000_000, 0).UTC(),
	}
	f.audit = auditmem.New(func() time.Time { return f.now })
	for i := range f.instance {
		f.instance[i] = 0x10
	}
	f.mint[0] = 0x20
	f.beneficiary[0] = 0x30
	f.destination = domain.DeriveHolderAddress(f.beneficiary, f.mint)

	clock := usecase.Clock(func() time.Time { return f.now })
	emitter := usecase.NewAuditEmitter(f.audit, clock, nil)
	f.srv = NewServerWithDeps(cfg, ServerDeps{
		Claim: &usecase.ClaimTokens{
			Store:    f.store,
			Crypto:   cryptoSvc,
			Audit:    emitter,
			Instance: f.instance,
			Mint:     f.mint,
			Clock:    clock,
		},
		Gate: &usecase.TransferGate{
			Store: f.store,
			Audit: emitter,
			Clock: clock,
		},
		Treasury: &usecase.Treasury{
			Store:    f.store,
			Crypto:   cryptoSvc,
			Audit:    emitter,
			Instance: f.instance,
			Mint:     f.mint,
			Clock:    clock,
		},
		Audit:       emitter,
		AuditEvents: f.audit,
		Ledger:      f.store,
		AdminAPIKey: cfg.AdminAPIKey,
	})
	return f
}

func newTestServer(t *testing.T) *serverFixture {
	return newServerFixture(t, config.Config{
		AuthMode:    "apikey",
		AdminAPIKey: testAdminKey,
	})
}

func (f *serverFixture) claimBody(t *testing.T, amount, nonce uint64) []byte {
	t.Helper()
	payload := domain.ClaimPayload{
		Beneficiary: f.beneficiary,
		Amount:      amount,
		Expiry:      f.now.Unix() + 300,
		Nonce:       nonce,
	}
	sig := ed25519.Sign(f.authority, domain.SignedClaimMessage(f.instance, payload))
	body, err := json.Marshal(claimRequest{
		PayloadBase64:     base64.StdEncoding.EncodeToString(payload.Encode()),
		SignatureBase64:   base64.StdEncoding.EncodeToString(sig),
		Destination:       f.destination.String(),
		TransactionSigner: f.beneficiary.String(),
	})
	if err != nil {
		t.Fatalf("marshal claim request: %v", err)
	}
	return body
}

func (f *serverFixture) do(t *testing.T, method, path string, body []byte, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Key", testAdminKey)
	}
	rec := httptest.NewRecorder()
	f.srv.r.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	f := newTestServer(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["mode"] != "no-db" {
		t.Fatalf("mode = %v", out["mode"])
	}
}

func TestClaimEndpoint(t *testing.T) {
	f := newTestServer(t)
	body := f.claimBody(t, 5_000_000_000, 0)

	rec := f.do(t, http.MethodPost, "/v1/claims", body, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	out := decodeJSON(t, rec)
	if out["nonce"] != float64(1) || out["frozen"] != true {
		t.Fatalf("unexpected claim response: %v", out)
	}

	// Same voucher again is a replay.
	rec = f.do(t, http.MethodPost, "/v1/claims", body, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("replay status = %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["code"] != "INVALID_NONCE" {
		t.Fatalf("replay code = %v", out["code"])
	}
}

func TestClaimEndpointRejectsMalformedPayload(t *testing.T) {
	f := newTestServer(t)
	body, _ := json.Marshal(claimRequest{
		PayloadBase64:     base64.StdEncoding.EncodeToString(make([]byte, 55)),
		SignatureBase64:   base64.StdEncoding.EncodeToString(make([]byte, 64)),
		Destination:       f.destination.String(),
		TransactionSigner: f.beneficiary.String(),
	})
	rec := f.do(t, http.MethodPost, "/v1/claims", body, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["code"] != "DECODE_FAILED" {
		t.Fatalf("code = %v", out["code"])
	}
}

func TestGateEndpoints(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodGet, "/v1/gate", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["mode"] != "paused" {
		t.Fatalf("default mode = %v", out["mode"])
	}

	rec = f.do(t, http.MethodPost, "/v1/gate:resume", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d body = %s", rec.Code, rec.Body.String())
	}
	if out := decodeJSON(t, rec); out["mode"] != "enabled" {
		t.Fatalf("mode = %v", out["mode"])
	}

	rec = f.do(t, http.MethodPost, "/v1/gate:enable-permanent", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("enable-permanent status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/v1/gate:pause", nil, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("pause after permanent status = %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["code"] != "TRANSFERS_IMMUTABLE" {
		t.Fatalf("code = %v", out["code"])
	}
}

func TestAdminEndpointsRequireKey(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/v1/gate:pause", nil, false)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["code"] != "UNAUTHORIZED_ADMIN" {
		t.Fatalf("code = %v", out["code"])
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/gate:pause", nil)
	req.Header.Set("X-Admin-Key", "wrong-key")
	rec = httptest.NewRecorder()
	f.srv.r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong key status = %d", rec.Code)
	}
}

func TestTreasuryEndpoints(t *testing.T) {
	f := newTestServer(t)

	body, _ := json.Marshal(treasuryOpRequest{Amount: 500})
	rec := f.do(t, http.MethodPost, "/v1/treasury:mint", body, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("mint status = %d body = %s", rec.Code, rec.Body.String())
	}
	if out := decodeJSON(t, rec); out["balance"] != float64(500) {
		t.Fatalf("balance = %v", out["balance"])
	}

	body, _ = json.Marshal(treasuryOpRequest{Amount: 600})
	rec = f.do(t, http.MethodPost, "/v1/treasury:burn", body, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("overdraft status = %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["code"] != "INSUFFICIENT_TREASURY_BALANCE" {
		t.Fatalf("code = %v", out["code"])
	}

	rec = f.do(t, http.MethodGet, "/v1/treasury", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("get treasury status = %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["balance"] != float64(500) {
		t.Fatalf("treasury balance = %v", out["balance"])
	}
}

func TestTransferabilityEndpoint(t *testing.T) {
	f := newTestServer(t)

	if rec := f.do(t, http.MethodPost, "/v1/claims", f.claimBody(t, 100, 0), false); rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d", rec.Code)
	}

	path := "/v1/transferability?from=" + f.destination.String() + "&to=" + f.destination.String()
	rec := f.do(t, http.MethodGet, path, nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	out := decodeJSON(t, rec)
	if out["allowed"] != false || out["reason"] != "transfers paused" {
		t.Fatalf("unexpected transferability: %v", out)
	}
}

func TestAuditEventsEndpoint(t *testing.T) {
	f := newTestServer(t)

	if rec := f.do(t, http.MethodPost, "/v1/claims", f.claimBody(t, 100, 0), false); rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/v1/gate:resume", nil, true); rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d", rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/v1/audit/events", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var events []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0]["event_type"] != "claim_accepted" || events[1]["event_type"] != "gate_resumed" {
		t.Fatalf("unexpected event order: %v, %v", events[0]["event_type"], events[1]["event_type"])
	}
	if events[1]["prev_event_hash"] != events[0]["event_hash"] {
		t.Fatal("audit chain not linked across requests")
	}
}

func TestClaimRateLimit(t *testing.T) {
	f := newServerFixture(t, config.Config{
		AuthMode:               "apikey",
		AdminAPIKey:            testAdminKey,
		RateLimitRequests:      1,
		RateLimitWindowSeconds: 60,
		RateLimitMaxKeys:       10,
	})

	if rec := f.do(t, http.MethodPost, "/v1/claims", f.claimBody(t, 100, 0), false); rec.Code != http.StatusOK {
		t.Fatalf("first claim status = %d", rec.Code)
	}
	rec := f.do(t, http.MethodPost, "/v1/claims", f.claimBody(t, 100, 1), false)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second claim status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("RateLimit-Limit") != "1" {
		t.Fatalf("RateLimit-Limit = %q", rec.Header().Get("RateLimit-Limit"))
	}
}

func TestUnfreezeEndpoint(t *testing.T) {
	f := newTestServer(t)

	if rec := f.do(t, http.MethodPost, "/v1/claims", f.claimBody(t, 100, 0), false); rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d", rec.Code)
	}

	// Blocked while paused.
	rec := f.do(t, http.MethodPost, "/v1/holders/"+f.destination.String()+":unfreeze", nil, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	if rec := f.do(t, http.MethodPost, "/v1/gate:resume", nil, true); rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/v1/holders/"+f.destination.String()+":unfreeze", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("unfreeze status = %d body = %s", rec.Code, rec.Body.String())
	}
	if out := decodeJSON(t, rec); out["frozen"] != false {
		t.Fatalf("frozen = %v", out["frozen"])
	}
}

func TestHolderAndPrincipalReads(t *testing.T) {
	f := newTestServer(t)

	if rec := f.do(t, http.MethodPost, "/v1/claims", f.claimBody(t, 100, 0), false); rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d", rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/v1/holders/"+f.destination.String(), nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("holder status = %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["balance"] != float64(100) {
		t.Fatalf("holder balance = %v", out["balance"])
	}

	rec = f.do(t, http.MethodGet, "/v1/principals/"+f.beneficiary.String(), nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("principal status = %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["nonce"] != float64(1) {
		t.Fatalf("principal nonce = %v", out["nonce"])
	}

	rec = f.do(t, http.MethodGet, "/v1/principals/"+f.mint.String(), nil, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown principal status = %d", rec.Code)
	}
}

func TestNewServerRequiresClaimCap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var mint domain.AccountID
	mint[0] = 0x20
	cfg := config.Config{
		ProtocolInstanceIDHex: strings.Repeat("10", 32),
		TokenMintID:           mint.String(),
	}
	srv := NewServer(cfg, nil, nil)
	err := srv.Run()
	if err == nil || !strings.Contains(err.Error(), "MAX_CLAIM_AMOUNT") {
		t.Fatalf("err = %v, want a MAX_CLAIM_AMOUNT requirement", err)
	}
}
