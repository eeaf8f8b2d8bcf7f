package http

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"riyald/internal/config"
	"riyald/internal/domain"
	"riyald/internal/infra/auth/rbac"
	"riyald/internal/infra/auditmem"
	"riyald/internal/infra/crypto"
	"riyald/internal/infra/db"
	"riyald/internal/infra/keys/soft"
	"riyald/internal/infra/keys/vault"
	"riyald/internal/infra/memstate"
	"riyald/internal/infra/policyopa"
	"riyald/internal/infra/ratelimit"
	"riyald/internal/infra/vaultclient"
	"riyald/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine
	log   *zap.Logger

	claimUC    *usecase.ClaimTokens
	gateUC     *usecase.TransferGate
	treasuryUC *usecase.Treasury
	audit      *usecase.AuditEmitter
	auditLog   usecase.AuditEventRepository
	ledger     usecase.LedgerStore

	authorizer  domain.Authorizer
	policy      usecase.PolicyEngine
	adminAPIKey string
	initErr     error

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{cfg: cfg, store: store, r: r, log: logger}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Claim       *usecase.ClaimTokens
	Gate        *usecase.TransferGate
	Treasury    *usecase.Treasury
	Audit       *usecase.AuditEmitter
	AuditEvents usecase.AuditEventRepository
	Ledger      usecase.LedgerStore
	Authorizer  domain.Authorizer
	Policy      usecase.PolicyEngine
	AdminAPIKey string
	RateLimiter domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		log:         zap.NewNop(),
		claimUC:     deps.Claim,
		gateUC:      deps.Gate,
		treasuryUC:  deps.Treasury,
		audit:       deps.Audit,
		auditLog:    deps.AuditEvents,
		ledger:      deps.Ledger,
		authorizer:  deps.Authorizer,
		policy:      deps.Policy,
		adminAPIKey: deps.AdminAPIKey,
	}
	if s.ledger == nil && s.claimUC != nil {
		s.ledger = s.claimUC.Store
	}
	if s.authorizer == nil {
		s.authorizer = rbac.NewAuthorizer()
	}
	s.initRateLimit(deps.RateLimiter)
	s.initAuth()
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.adminAPIKey = s.cfg.AdminAPIKey

	instance, err := parseInstanceID(s.cfg.ProtocolInstanceIDHex)
	if err != nil {
		s.initErr = err
		return
	}
	mint, err := domain.ParseAccountID(s.cfg.TokenMintID)
	if err != nil {
		s.initErr = fmt.Errorf("TOKEN_MINT_ID: %w", err)
		return
	}
	// A zero cap would remove the per-claim damage bound entirely.
	if s.cfg.MaxClaimAmount == 0 {
		s.initErr = errors.New("MAX_CLAIM_AMOUNT must be a positive amount")
		return
	}

	authorityKey, err := loadAuthorityKey(context.Background(), s.cfg)
	if err != nil {
		s.initErr = err
		return
	}
	cryptoSvc, err := crypto.NewService(authorityKey)
	if err != nil {
		s.initErr = err
		return
	}

	if s.store != nil && s.store.DB != nil {
		s.ledger = db.NewLedgerRepository(s.store.DB)
		s.auditLog = db.NewAuditEventRepository(s.store.DB)
	} else {
		s.ledger = memstate.NewStore()
		s.auditLog = auditmem.New(nil)
	}
	s.audit = usecase.NewAuditEmitter(s.auditLog, nil, s.log)

	s.claimUC = &usecase.ClaimTokens{
		Store:          s.ledger,
		Crypto:         cryptoSvc,
		Audit:          s.audit,
		Instance:       instance,
		Mint:           mint,
		MaxClaimAmount: s.cfg.MaxClaimAmount,
	}
	s.gateUC = &usecase.TransferGate{
		Store: s.ledger,
		Audit: s.audit,
	}
	s.treasuryUC = &usecase.Treasury{
		Store:    s.ledger,
		Crypto:   cryptoSvc,
		Audit:    s.audit,
		Instance: instance,
		Mint:     mint,
	}

	s.authorizer = rbac.NewAuthorizer()
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath, "")
		if err != nil {
			s.initErr = err
			return
		}
		s.policy = engine
	}

	s.initRateLimit(nil)
	s.initAuth()
}

func (s *Server) initAuth() {
	if s.initErr != nil {
		return
	}
	switch s.cfg.AuthMode {
	case "", "none":
		return
	case "apikey":
		if s.adminAPIKey == "" {
			s.initErr = errors.New("ADMIN_API_KEY is required when AUTH_MODE=apikey")
		}
	default:
		s.initErr = errors.New("unsupported auth mode")
	}
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisLimiterConfig{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			}); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/claims", s.handleClaim)

		v1.GET("/principals/:beneficiary", s.handleGetPrincipal)
		v1.GET("/holders/:address", s.handleGetHolder)
		v1.GET("/gate", s.handleGetGate)
		v1.GET("/treasury", s.handleGetTreasury)
		v1.GET("/transferability", s.handleTransferability)
		v1.GET("/audit/events", s.handleListAuditEvents)

		v1.POST("/holders/:address_action", s.handleHolderAction)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	if s.initErr != nil {
		return s.initErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}

func parseInstanceID(hexValue string) (domain.InstanceID, error) {
	var instance domain.InstanceID
	if hexValue == "" {
		return instance, errors.New("PROTOCOL_INSTANCE_ID_HEX is required")
	}
	raw, err := hex.DecodeString(hexValue)
	if err != nil {
		return instance, fmt.Errorf("PROTOCOL_INSTANCE_ID_HEX: %w", err)
	}
	if len(raw) != domain.InstanceIDSize {
		return instance, fmt.Errorf("PROTOCOL_INSTANCE_ID_HEX must be %d bytes, got %d", domain.InstanceIDSize, len(raw))
	}
	copy(instance[:], raw)
	return instance, nil
}

func loadAuthorityKey(ctx context.Context, cfg config.Config) ([]byte, error) {
	if cfg.VaultAddr != "" && cfg.VaultToken != "" {
		provider, err := vault.NewProvider(vaultclient.New(cfg.VaultAddr, cfg.VaultToken), cfg.RiyaldEnv)
		if err != nil {
			return nil, err
		}
		return provider.AuthorityPublicKey(ctx)
	}
	provider, err := soft.NewProvider(cfg.AuthorityPublicKeyBase64)
	if err != nil {
		return nil, err
	}
	return provider.AuthorityPublicKey(ctx)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
