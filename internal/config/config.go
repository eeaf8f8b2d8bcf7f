package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AuthMode    string
	AdminAPIKey string
	RiyaldEnv   string

	AuthorityPublicKeyBase64 string
	ProtocolInstanceIDHex    string
	TokenMintID              string
	MaxClaimAmount           uint64

	PolicyBundlePath string

	VaultAddr  string
	VaultToken string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                 addr,
		PostgresDSN:              os.Getenv("POSTGRES_DSN"),
		LogLevel:                 envDefault("LOG_LEVEL", "info"),
		AuthMode:                 os.Getenv("AUTH_MODE"),
		AdminAPIKey:              os.Getenv("ADMIN_API_KEY"),
		RiyaldEnv:                envDefault("RIYALD_ENV", "dev"),
		AuthorityPublicKeyBase64: os.Getenv("AUTHORITY_PUBLIC_KEY_BASE64"),
		ProtocolInstanceIDHex:    os.Getenv("PROTOCOL_INSTANCE_ID_HEX"),
		TokenMintID:              os.Getenv("TOKEN_MINT_ID"),
		MaxClaimAmount:           envUint64Default("MAX_CLAIM_AMOUNT", 0),
		PolicyBundlePath:         os.Getenv("POLICY_BUNDLE_PATH"),
		VaultAddr:                os.Getenv("VAULT_ADDR"),
		VaultToken:               os.Getenv("VAULT_TOKEN"),
		RateLimitRequests:        envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:   envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:      envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:         envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  envIntDefault("REDIS_DB", 0),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envUint64Default(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
