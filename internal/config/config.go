package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthModeDevelopment = "development"
	AuthModeJWT         = "jwt"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	AuthMode       string `mapstructure:"AUTH_MODE"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`

	// DatabaseURL is optional; without it the audit trail goes to the log.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	FabricMSPID         string `mapstructure:"FABRIC_MSP_ID"`
	FabricChannel       string `mapstructure:"FABRIC_CHANNEL"`
	FabricChaincode     string `mapstructure:"FABRIC_CHAINCODE"`
	FabricPeerEndpoint  string `mapstructure:"FABRIC_PEER_ENDPOINT"`
	FabricPeerHostAlias string `mapstructure:"FABRIC_PEER_HOST_ALIAS"`
	FabricTLSCertPath   string `mapstructure:"FABRIC_TLS_CERT_PATH"`
	FabricCertPath      string `mapstructure:"FABRIC_CERT_PATH"`
	FabricKeyDir        string `mapstructure:"FABRIC_KEY_DIR"`

	LedgerEvaluateTimeout     time.Duration `mapstructure:"LEDGER_EVALUATE_TIMEOUT"`
	LedgerEndorseTimeout      time.Duration `mapstructure:"LEDGER_ENDORSE_TIMEOUT"`
	LedgerSubmitTimeout       time.Duration `mapstructure:"LEDGER_SUBMIT_TIMEOUT"`
	LedgerCommitStatusTimeout time.Duration `mapstructure:"LEDGER_COMMIT_STATUS_TIMEOUT"`

	TLSEnabled  bool   `mapstructure:"TLS_ENABLED"`
	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"AUTH_MODE", "AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"FABRIC_MSP_ID", "FABRIC_CHANNEL", "FABRIC_CHAINCODE", "FABRIC_PEER_ENDPOINT",
	"FABRIC_PEER_HOST_ALIAS", "FABRIC_TLS_CERT_PATH", "FABRIC_CERT_PATH", "FABRIC_KEY_DIR",
	"LEDGER_EVALUATE_TIMEOUT", "LEDGER_ENDORSE_TIMEOUT", "LEDGER_SUBMIT_TIMEOUT",
	"LEDGER_COMMIT_STATUS_TIMEOUT",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// Load reads .env (when present) and the environment. Environment variables
// win over the file.
func Load() (*Config, error) {
	return load(".env")
}

func load(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_MODE", "") // inferred from ENV
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "90s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("FABRIC_CHANNEL", "mychannel")
	v.SetDefault("FABRIC_CHAINCODE", "simedi")
	v.SetDefault("LEDGER_EVALUATE_TIMEOUT", "5s")
	v.SetDefault("LEDGER_ENDORSE_TIMEOUT", "15s")
	v.SetDefault("LEDGER_SUBMIT_TIMEOUT", "5s")
	v.SetDefault("LEDGER_COMMIT_STATUS_TIMEOUT", "1m")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set. Otherwise development
// environments get development auth and everything else requires JWTs.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthModeDevelopment
	}
	return AuthModeJWT
}

// SubmitBudget is the longest a single submit may take across its
// endorse, submit and commit-status stages.
func (c *Config) SubmitBudget() time.Duration {
	return c.LedgerEndorseTimeout + c.LedgerSubmitTimeout + c.LedgerCommitStatusTimeout
}

// Validate checks that the configuration is complete enough to serve.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	switch mode := c.ResolvedAuthMode(); mode {
	case AuthModeDevelopment:
		if c.IsProduction() {
			errs = append(errs, errors.New("AUTH_MODE=development is not allowed in production"))
		}
	case AuthModeJWT:
		if c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
			errs = append(errs, errors.New("AUTH_SIGNING_KEY or AUTH_JWKS_URL is required when AUTH_MODE is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeDevelopment, AuthModeJWT, mode))
	}

	required := []struct{ key, value string }{
		{"FABRIC_MSP_ID", c.FabricMSPID},
		{"FABRIC_CHANNEL", c.FabricChannel},
		{"FABRIC_CHAINCODE", c.FabricChaincode},
		{"FABRIC_PEER_ENDPOINT", c.FabricPeerEndpoint},
		{"FABRIC_TLS_CERT_PATH", c.FabricTLSCertPath},
		{"FABRIC_CERT_PATH", c.FabricCertPath},
		{"FABRIC_KEY_DIR", c.FabricKeyDir},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}

	timeouts := []struct {
		key   string
		value time.Duration
	}{
		{"LEDGER_EVALUATE_TIMEOUT", c.LedgerEvaluateTimeout},
		{"LEDGER_ENDORSE_TIMEOUT", c.LedgerEndorseTimeout},
		{"LEDGER_SUBMIT_TIMEOUT", c.LedgerSubmitTimeout},
		{"LEDGER_COMMIT_STATUS_TIMEOUT", c.LedgerCommitStatusTimeout},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", t.key, t.value))
		}
	}

	// A request deadline shorter than the submit pipeline cuts off commit
	// status waits before the ledger timeouts apply.
	if budget := c.SubmitBudget(); c.RequestTimeout > 0 && c.RequestTimeout < budget {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT (%s) must be at least the submit budget LEDGER_ENDORSE_TIMEOUT+LEDGER_SUBMIT_TIMEOUT+LEDGER_COMMIT_STATUS_TIMEOUT (%s)", c.RequestTimeout, budget))
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns))
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			errs = append(errs, errors.New("TLS_CERT_FILE is required when TLS_ENABLED is true"))
		}
		if c.TLSKeyFile == "" {
			errs = append(errs, errors.New("TLS_KEY_FILE is required when TLS_ENABLED is true"))
		}
	}

	return errors.Join(errs...)
}
