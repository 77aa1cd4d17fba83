package main

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"faucet-gateway/faucet/domain"

	"github.com/caarlos0/env/v11"
)

type config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":4444"`

	// SECRET_KEY é removida do ambiente depois de lida.
	SecretKey      domain.Secret `env:"SECRET_KEY,required,notEmpty,unset"`
	NodeURL        string        `env:"URL,required,notEmpty"`
	DefaultNetwork string        `env:"DEFAULT_NETWORK" envDefault:"testnet"`
	SignerURL      string        `env:"SIGNER_URL,required,notEmpty"`
	SenderAddress  string        `env:"SENDER_ADDRESS"`

	DBPath              string        `env:"DB_PATH" envDefault:"faucet.db"`
	GrantAmount         uint64        `env:"GRANT_AMOUNT" envDefault:"3000000000000"`
	QuotaWindow         time.Duration `env:"QUOTA_WINDOW" envDefault:"3m"`
	QuotaMaxGrants      int           `env:"QUOTA_MAX_GRANTS" envDefault:"2"`
	BroadcastTimeout    time.Duration `env:"BROADCAST_TIMEOUT" envDefault:"10s"`
	SequenceWaitTimeout time.Duration `env:"SEQUENCE_WAIT_TIMEOUT" envDefault:"30s"`

	AdminToken        string `env:"ADMIN_TOKEN,unset"`
	LegacyStatusCodes bool   `env:"LEGACY_STATUS_CODES" envDefault:"false"`

	RateKeyHeader string `env:"RATE_KEY_HEADER"`
	TrustXFF      bool   `env:"TRUST_XFF" envDefault:"false"`

	ShieldEnabled    bool          `env:"SHIELD_ENABLED" envDefault:"true"`
	ShieldRPS        float64       `env:"SHIELD_RPS" envDefault:"1"`
	ShieldBurst      int           `env:"SHIELD_BURST" envDefault:"5"`
	ShieldRetryAfter time.Duration `env:"SHIELD_RETRY_AFTER" envDefault:"1s"`
	ShieldHeaders    bool          `env:"SHIELD_ADD_HEADERS" envDefault:"false"`
	ShieldIdleTTL    time.Duration `env:"SHIELD_IDLE_TTL" envDefault:"10m"`

	ConcurrencyMax     int           `env:"CONCURRENCY_MAX" envDefault:"64"`
	ConcurrencyTimeout time.Duration `env:"CONCURRENCY_TIMEOUT" envDefault:"0s"`

	StatsRedisEnabled  bool          `env:"STATS_REDIS_ENABLED" envDefault:"false"`
	StatsRedisAddr     string        `env:"STATS_REDIS_ADDR"`
	StatsRedisPassword string        `env:"STATS_REDIS_PASSWORD,unset"`
	StatsRedisDB       int           `env:"STATS_REDIS_DB" envDefault:"0"`
	StatsPrefix        string        `env:"STATS_REDIS_PREFIX" envDefault:"faucet:stats"`
	StatsTTL           time.Duration `env:"STATS_REDIS_TTL" envDefault:"24h"`
	StatsBucket        string        `env:"STATS_REDIS_BUCKET" envDefault:"minute"`
	StatsTrackKeys     bool          `env:"STATS_REDIS_TRACK_KEYS" envDefault:"false"`

	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Nodes é preenchido a partir de URL e URL_<MODE>.
	Nodes map[string]string
}

// readConfig lê o ambiente. environ vem no formato de os.Environ().
func readConfig(environ []string) (config, error) {
	vars := env.ToMap(environ)

	var cfg config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.DefaultNetwork = strings.ToLower(strings.TrimSpace(cfg.DefaultNetwork))
	cfg.Nodes = map[string]string{cfg.DefaultNetwork: strings.TrimRight(cfg.NodeURL, "/")}
	for k, v := range vars {
		mode, ok := strings.CutPrefix(k, "URL_")
		if !ok || mode == "" || strings.TrimSpace(v) == "" {
			continue
		}
		cfg.Nodes[strings.ToLower(mode)] = strings.TrimRight(v, "/")
	}
	cfg.SignerURL = strings.TrimRight(cfg.SignerURL, "/")

	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	for mode, u := range c.Nodes {
		if _, err := url.ParseRequestURI(u); err != nil {
			return fmt.Errorf("invalid node url for %q: %w", mode, err)
		}
	}
	if _, err := url.ParseRequestURI(c.SignerURL); err != nil {
		return fmt.Errorf("invalid SIGNER_URL: %w", err)
	}
	if c.GrantAmount == 0 {
		return errors.New("GRANT_AMOUNT must be > 0")
	}
	if c.QuotaWindow <= 0 {
		return errors.New("QUOTA_WINDOW must be > 0")
	}
	if c.QuotaMaxGrants <= 0 {
		return errors.New("QUOTA_MAX_GRANTS must be > 0")
	}
	if c.BroadcastTimeout <= 0 {
		return errors.New("BROADCAST_TIMEOUT must be > 0")
	}
	if c.ShieldEnabled && c.ShieldRPS <= 0 {
		return errors.New("SHIELD_RPS must be > 0")
	}
	if c.ShieldEnabled && c.ShieldBurst <= 0 {
		return errors.New("SHIELD_BURST must be > 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.StatsRedisEnabled && strings.TrimSpace(c.StatsRedisAddr) == "" {
		return errors.New("STATS_REDIS_ADDR is required when STATS_REDIS_ENABLED=true")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

func (c config) networks() []string {
	out := make([]string, 0, len(c.Nodes))
	for n := range c.Nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
