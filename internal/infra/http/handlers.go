package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"riyald/internal/domain"
	"riyald/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type claimRequest struct {
	PayloadBase64     string `json:"payload_base64"`
	SignatureBase64   string `json:"signature_base64"`
	Destination       string `json:"destination"`
	TransactionSigner string `json:"transaction_signer"`
}

type claimResponse struct {
	ReceiptID   string `json:"receipt_id"`
	Beneficiary string `json:"beneficiary"`
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount"`
	Nonce       uint64 `json:"nonce"`
	TotalClaims uint64 `json:"total_claims"`
	Frozen      bool   `json:"frozen"`
	ClaimedAt   string `json:"claimed_at"`
}

type principalResponse struct {
	Beneficiary string `json:"beneficiary"`
	Nonce       uint64 `json:"nonce"`
	TotalClaims uint64 `json:"total_claims"`
	LastClaimAt string `json:"last_claim_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type holderResponse struct {
	Address   string `json:"address"`
	Owner     string `json:"owner"`
	Mint      string `json:"mint"`
	Balance   uint64 `json:"balance"`
	Frozen    bool   `json:"frozen"`
	CreatedAt string `json:"created_at"`
}

type gateResponse struct {
	Mode      string `json:"mode"`
	EnabledAt string `json:"enabled_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type treasuryResponse struct {
	Address   string `json:"address"`
	Mint      string `json:"mint"`
	Balance   uint64 `json:"balance"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type treasuryOpRequest struct {
	Target string `json:"target,omitempty"`
	Amount uint64 `json:"amount"`
}

type treasuryOpResponse struct {
	Address   string `json:"address"`
	Amount    uint64 `json:"amount"`
	Balance   uint64 `json:"balance"`
	AppliedAt string `json:"applied_at"`
}

type burnRequest struct {
	Amount               uint64 `json:"amount"`
	OwnerSignatureBase64 string `json:"owner_signature_base64"`
}

type burnResponse struct {
	Account  string `json:"account"`
	Amount   uint64 `json:"amount"`
	Balance  uint64 `json:"balance"`
	BurnedAt string `json:"burned_at"`
}

type transferabilityResponse struct {
	Allowed bool   `json:"allowed"`
	Mode    string `json:"mode"`
	Reason  string `json:"reason,omitempty"`
}

type auditEventResponse struct {
	ID            string `json:"id"`
	Seq           int64  `json:"seq"`
	EventType     string `json:"event_type"`
	Payload       any    `json:"payload"`
	ActorType     string `json:"actor_type"`
	ActorIDHash   string `json:"actor_id_hash,omitempty"`
	TargetType    string `json:"target_type"`
	TargetID      string `json:"target_id"`
	Result        string `json:"result"`
	PrevEventHash string `json:"prev_event_hash"`
	EventHash     string `json:"event_hash"`
	CreatedAt     string `json:"created_at"`
}

func (s *Server) handleClaim(c *gin.Context) {
	if s.claimUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.PayloadBase64)
	if err != nil {
		writeError(c, domain.ErrDecode)
		return
	}
	payload, err := domain.DecodeClaimPayload(raw)
	if err != nil {
		writeError(c, err)
		return
	}
	signature, err := base64.StdEncoding.DecodeString(req.SignatureBase64)
	if err != nil {
		writeError(c, domain.ErrDecode)
		return
	}
	destination, err := domain.ParseAccountID(req.Destination)
	if err != nil {
		writeError(c, err)
		return
	}
	signer, err := domain.ParseAccountID(req.TransactionSigner)
	if err != nil {
		writeError(c, err)
		return
	}
	if !s.enforceClaimRateLimit(c, payload.Beneficiary) {
		return
	}
	receipt, err := s.claimUC.Execute(c.Request.Context(), usecase.ClaimRequest{
		Payload:           payload,
		Signature:         signature,
		Destination:       destination,
		TransactionSigner: signer,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, claimResponse{
		ReceiptID:   receipt.ReceiptID,
		Beneficiary: receipt.Beneficiary.String(),
		Destination: receipt.Destination.String(),
		Amount:      receipt.Amount,
		Nonce:       receipt.Nonce,
		TotalClaims: receipt.TotalClaims,
		Frozen:      receipt.Frozen,
		ClaimedAt:   receipt.ClaimedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGetPrincipal(c *gin.Context) {
	if s.ledger == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	beneficiary, err := domain.ParseAccountID(c.Param("beneficiary"))
	if err != nil {
		writeError(c, err)
		return
	}
	principal, err := s.ledger.Principal(c.Request.Context(), beneficiary)
	if err != nil {
		writeError(c, err)
		return
	}
	out := principalResponse{
		Beneficiary: principal.Beneficiary.String(),
		Nonce:       principal.Nonce,
		TotalClaims: principal.TotalClaims,
		CreatedAt:   principal.CreatedAt.UTC().Format(time.RFC3339),
	}
	if principal.LastClaimAt != nil {
		out.LastClaimAt = principal.LastClaimAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetHolder(c *gin.Context) {
	if s.ledger == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	address, err := domain.ParseAccountID(c.Param("address"))
	if err != nil {
		writeError(c, err)
		return
	}
	holder, err := s.ledger.Holder(c.Request.Context(), address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildHolderResponse(holder))
}

func (s *Server) handleGetGate(c *gin.Context) {
	if s.gateUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	gate, err := s.gateUC.State(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := gateResponse{Mode: string(gate.Mode)}
	if gate.EnabledAt != nil {
		out.EnabledAt = gate.EnabledAt.UTC().Format(time.RFC3339)
	}
	if !gate.UpdatedAt.IsZero() {
		out.UpdatedAt = gate.UpdatedAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetTreasury(c *gin.Context) {
	if s.ledger == nil || s.treasuryUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	treasury, err := s.ledger.Treasury(c.Request.Context())
	if errors.Is(err, domain.ErrNotFound) {
		treasury = &domain.TreasuryAccount{
			Address: s.treasuryUC.Address(),
			Mint:    s.treasuryUC.Mint,
		}
	} else if err != nil {
		writeError(c, err)
		return
	}
	out := treasuryResponse{
		Address: treasury.Address.String(),
		Mint:    treasury.Mint.String(),
		Balance: treasury.Balance,
	}
	if !treasury.UpdatedAt.IsZero() {
		out.UpdatedAt = treasury.UpdatedAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleTransferability(c *gin.Context) {
	if s.gateUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	from, err := domain.ParseAccountID(c.Query("from"))
	if err != nil {
		writeError(c, err)
		return
	}
	to, err := domain.ParseAccountID(c.Query("to"))
	if err != nil {
		writeError(c, err)
		return
	}
	receipt, err := s.gateUC.CanTransfer(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transferabilityResponse{
		Allowed: receipt.Allowed,
		Mode:    string(receipt.Mode),
		Reason:  receipt.Reason,
	})
}

func (s *Server) handleListAuditEvents(c *gin.Context) {
	if s.auditLog == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	events, err := s.auditLog.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]auditEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, auditEventResponse{
			ID:            event.ID,
			Seq:           event.Seq,
			EventType:     string(event.EventType),
			Payload:       event.Payload,
			ActorType:     string(event.ActorType),
			ActorIDHash:   event.ActorIDHash,
			TargetType:    string(event.TargetType),
			TargetID:      event.TargetID,
			Result:        string(event.Result),
			PrevEventHash: event.PrevEventHash,
			EventHash:     event.EventHash,
			CreatedAt:     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGatePause(c *gin.Context) {
	s.handleGateTransition(c, "gate:pause", func(identity domain.Identity) (*domain.GateReceipt, error) {
		return s.gateUC.Pause(c.Request.Context(), identity)
	})
}

func (s *Server) handleGateResume(c *gin.Context) {
	s.handleGateTransition(c, "gate:resume", func(identity domain.Identity) (*domain.GateReceipt, error) {
		return s.gateUC.Resume(c.Request.Context(), identity)
	})
}

func (s *Server) handleGateEnablePermanent(c *gin.Context) {
	s.handleGateTransition(c, "gate:enable_permanent", func(identity domain.Identity) (*domain.GateReceipt, error) {
		return s.gateUC.PermanentlyEnable(c.Request.Context(), identity)
	})
}

func (s *Server) handleGateTransition(c *gin.Context, operation string, apply func(identity domain.Identity) (*domain.GateReceipt, error)) {
	if s.gateUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	identity, ok := s.requireAdmin(c, "admin:gate", domain.PolicyInput{
		Operation: operation,
		Target:    "gate",
	})
	if !ok {
		return
	}
	receipt, err := apply(identity)
	if err != nil {
		writeError(c, err)
		return
	}
	out := gateResponse{Mode: string(receipt.Mode)}
	if receipt.EnabledAt != nil {
		out.EnabledAt = receipt.EnabledAt.UTC().Format(time.RFC3339)
	}
	out.UpdatedAt = receipt.ChangedAt.UTC().Format(time.RFC3339)
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleHolderAction(c *gin.Context) {
	segment := c.Param("address_action")
	parts := strings.SplitN(segment, ":", 2)
	if len(parts) != 2 {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "unknown action")
		return
	}
	address, err := domain.ParseAccountID(parts[0])
	if err != nil {
		writeError(c, err)
		return
	}
	switch parts[1] {
	case "unfreeze":
		s.handleUnfreeze(c, address)
	case "burn":
		s.handleBurn(c, address)
	default:
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "unknown action")
	}
}

func (s *Server) handleUnfreeze(c *gin.Context, address domain.AccountID) {
	if s.gateUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	identity, ok := s.requireAdmin(c, "admin:holders", domain.PolicyInput{
		Operation: "holder:unfreeze",
		Target:    address.String(),
	})
	if !ok {
		return
	}
	holder, err := s.gateUC.Unfreeze(c.Request.Context(), identity, address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildHolderResponse(holder))
}

func (s *Server) handleBurn(c *gin.Context, address domain.AccountID) {
	if s.treasuryUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req burnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	ownerSig, err := base64.StdEncoding.DecodeString(req.OwnerSignatureBase64)
	if err != nil {
		writeError(c, domain.ErrDecode)
		return
	}
	identity, ok := s.requireAdmin(c, "admin:burn", domain.PolicyInput{
		Operation: "holder:burn",
		Target:    address.String(),
		Amount:    req.Amount,
	})
	if !ok {
		return
	}
	receipt, err := s.treasuryUC.BurnTokens(c.Request.Context(), identity, usecase.BurnTokensRequest{
		Account:        address,
		Amount:         req.Amount,
		OwnerSignature: ownerSig,
		AdminApproved:  true,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, burnResponse{
		Account:  receipt.Account.String(),
		Amount:   receipt.Amount,
		Balance:  receipt.Balance,
		BurnedAt: receipt.BurnedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTreasuryMint(c *gin.Context) {
	if s.treasuryUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req treasuryOpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	target := s.treasuryUC.Address()
	if req.Target != "" {
		parsed, err := domain.ParseAccountID(req.Target)
		if err != nil {
			writeError(c, err)
			return
		}
		target = parsed
	}
	identity, ok := s.requireAdmin(c, "admin:treasury", domain.PolicyInput{
		Operation: "treasury:mint",
		Target:    target.String(),
		Amount:    req.Amount,
	})
	if !ok {
		return
	}
	receipt, err := s.treasuryUC.MintToTreasury(c.Request.Context(), identity, target, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildTreasuryOpResponse(receipt))
}

func (s *Server) handleTreasuryBurn(c *gin.Context) {
	if s.treasuryUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req treasuryOpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	identity, ok := s.requireAdmin(c, "admin:treasury", domain.PolicyInput{
		Operation: "treasury:burn",
		Target:    s.treasuryUC.Address().String(),
		Amount:    req.Amount,
	})
	if !ok {
		return
	}
	receipt, err := s.treasuryUC.BurnFromTreasury(c.Request.Context(), identity, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildTreasuryOpResponse(receipt))
}

func (s *Server) handleNoRoute(c *gin.Context) {
	if c.Request.Method == http.MethodPost {
		switch c.Request.URL.Path {
		case "/v1/gate:pause":
			s.handleGatePause(c)
			return
		case "/v1/gate:resume":
			s.handleGateResume(c)
			return
		case "/v1/gate:enable-permanent":
			s.handleGateEnablePermanent(c)
			return
		case "/v1/treasury:mint":
			s.handleTreasuryMint(c)
			return
		case "/v1/treasury:burn":
			s.handleTreasuryBurn(c)
			return
		}
	}
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func buildHolderResponse(holder *domain.HolderAccount) holderResponse {
	return holderResponse{
		Address:   holder.Address.String(),
		Owner:     holder.Owner.String(),
		Mint:      holder.Mint.String(),
		Balance:   holder.Balance,
		Frozen:    holder.Frozen,
		CreatedAt: holder.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func buildTreasuryOpResponse(receipt *domain.TreasuryReceipt) treasuryOpResponse {
	return treasuryOpResponse{
		Address:   receipt.Address.String(),
		Amount:    receipt.Amount,
		Balance:   receipt.Balance,
		AppliedAt: receipt.AppliedAt.UTC().Format(time.RFC3339),
	}
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrDecode):
		status, code = http.StatusBadRequest, "DECODE_FAILED"
	case errors.Is(err, domain.ErrInvalidAuthoritySignature):
		status, code = http.StatusBadRequest, "INVALID_AUTHORITY_SIGNATURE"
	case errors.Is(err, domain.ErrPayloadUserMismatch):
		status, code = http.StatusForbidden, "PAYLOAD_USER_MISMATCH"
	case errors.Is(err, domain.ErrUnauthorizedDestination):
		status, code = http.StatusForbidden, "UNAUTHORIZED_DESTINATION"
	case errors.Is(err, domain.ErrInvalidTokenMint):
		status, code = http.StatusBadRequest, "INVALID_TOKEN_MINT"
	case errors.Is(err, domain.ErrClaimExpired):
		status, code = http.StatusBadRequest, "CLAIM_EXPIRED"
	case errors.Is(err, domain.ErrClaimAmountTooHigh):
		status, code = http.StatusBadRequest, "CLAIM_AMOUNT_TOO_HIGH"
	case errors.Is(err, domain.ErrInvalidNonce):
		status, code = http.StatusConflict, "INVALID_NONCE"
	case errors.Is(err, domain.ErrTransfersImmutable):
		status, code = http.StatusConflict, "TRANSFERS_IMMUTABLE"
	case errors.Is(err, domain.ErrCannotUnfreezeWhilePaused):
		status, code = http.StatusConflict, "CANNOT_UNFREEZE_WHILE_PAUSED"
	case errors.Is(err, domain.ErrInsufficientTreasuryBalance):
		status, code = http.StatusConflict, "INSUFFICIENT_TREASURY_BALANCE"
	case errors.Is(err, domain.ErrInvalidTreasuryAccount):
		status, code = http.StatusBadRequest, "INVALID_TREASURY_ACCOUNT"
	case errors.Is(err, domain.ErrUnauthorizedBurn):
		status, code = http.StatusForbidden, "UNAUTHORIZED_BURN"
	case errors.Is(err, domain.ErrUnauthorizedAdmin):
		status, code = http.StatusForbidden, "UNAUTHORIZED_ADMIN"
	case errors.Is(err, domain.ErrInsufficientBalance):
		status, code = http.StatusConflict, "INSUFFICIENT_BALANCE"
	case errors.Is(err, domain.ErrAmountOverflow):
		status, code = http.StatusConflict, "AMOUNT_OVERFLOW"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
