package certmanager

import (
	"time"

	"github.com/go-acme/lego/v4/lego"
)

// Config tunes certificate issuance and renewal.
type Config struct {
	// Email is the ACME account contact.
	Email string `env:"ACME_EMAIL,required"`

	// CADirectoryURL is the ACME v2 directory endpoint.
	CADirectoryURL string `env:"ACME_DIRECTORY_URL" envDefault:"https://acme-v02.api.letsencrypt.org/directory"`

	// ChallengeTTL bounds how long an HTTP-01 token stays retrievable.
	ChallengeTTL time.Duration `env:"ACME_CHALLENGE_TTL" envDefault:"10m"`

	// RenewalWindow is how far before expiry the sweep renews certificates.
	RenewalWindow time.Duration `env:"CERT_RENEWAL_WINDOW" envDefault:"720h"`

	// SweepInterval is the fixed period of the renewal sweep, independent
	// of request volume.
	SweepInterval time.Duration `env:"CERT_SWEEP_INTERVAL" envDefault:"12h"`

	// StuckTimeout is how long a domain may sit in validating or issuing
	// before an interrupted issuance is declared failed and retried.
	StuckTimeout time.Duration `env:"CERT_STUCK_TIMEOUT" envDefault:"30m"`

	// IssuanceTimeout bounds one full order against the CA.
	IssuanceTimeout time.Duration `env:"CERT_ISSUANCE_TIMEOUT" envDefault:"5m"`

	// CNAMETarget is the hostname tenant domains should CNAME to.
	CNAMETarget string `env:"GATEWAY_CNAME_TARGET"`

	// GatewayIPs are the addresses tenant apex domains should point at.
	GatewayIPs []string `env:"GATEWAY_IPS" envSeparator:","`

	// DNSResolver is the host:port of the resolver used for validation
	// queries. Empty selects the system resolver configuration.
	DNSResolver string `env:"DNS_RESOLVER"`
}

func (cfg *Config) applyDefaults() {
	if cfg.CADirectoryURL == "" {
		cfg.CADirectoryURL = lego.LEDirectoryProduction
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 10 * time.Minute
	}
	if cfg.RenewalWindow <= 0 {
		cfg.RenewalWindow = 30 * 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 12 * time.Hour
	}
	if cfg.StuckTimeout <= 0 {
		cfg.StuckTimeout = 30 * time.Minute
	}
	if cfg.IssuanceTimeout <= 0 {
		cfg.IssuanceTimeout = 5 * time.Minute
	}
}
