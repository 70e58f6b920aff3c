// Package certmanager owns the per-domain certificate state machine:
// DNS validation of tenant domains, ACME issuance through the CA, renewal
// sweeps, and certificate persistence. It runs independently of the
// request path; a certificate failure never takes down request serving.
package certmanager

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/origan-dev/gateway/internal/challenge"
	"github.com/origan-dev/gateway/internal/domain"
	"github.com/origan-dev/gateway/internal/logger"
	"github.com/origan-dev/gateway/internal/storage"
)

// ACMEClient is the slice of the ACME protocol the manager drives.
// The production implementation wraps lego; tests substitute fakes.
type ACMEClient interface {
	Obtain(request certificate.ObtainRequest) (*certificate.Resource, error)
}

// Manager drives certificate issuance and renewal for custom domains.
type Manager struct {
	cfg        Config
	repo       domain.Repository
	store      storage.ObjectStore
	challenges challenge.Store
	verifier   DNSVerifier
	log        *slog.Logger

	clientMu sync.Mutex
	client   ACMEClient

	// certs memoizes parsed TLS certificates for the handshake path.
	certs sync.Map // domain name -> *tls.Certificate
}

// Option configures the manager.
type Option func(*Manager)

// WithLogger sets the logger for issuance and sweep activity.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithACMEClient replaces the lego-backed client, for tests.
func WithACMEClient(client ACMEClient) Option {
	return func(m *Manager) {
		m.client = client
	}
}

// WithDNSVerifier replaces the DNS verifier, for tests.
func WithDNSVerifier(v DNSVerifier) Option {
	return func(m *Manager) {
		m.verifier = v
	}
}

// New creates a certificate manager.
func New(cfg Config, repo domain.Repository, store storage.ObjectStore, challenges challenge.Store, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(cfg.Email) == "" {
		return nil, ErrEmailRequired
	}
	cfg.applyDefaults()

	m := &Manager{
		cfg:        cfg,
		repo:       repo,
		store:      store,
		challenges: challenges,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.verifier == nil {
		m.verifier = NewVerifier(cfg)
	}
	return m, nil
}

// AttachDomain registers a tenant custom domain. DNS verification is
// synchronous and blocking: on mismatch the attachment is rejected with
// ErrDNSVerificationFailed and no record is created. On success the record
// is created in Pending state and issuance proceeds asynchronously.
func (m *Manager) AttachDomain(ctx context.Context, name, projectID string) (*domain.Domain, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrDomainNameRequired
	}

	if err := m.verifier.Verify(ctx, name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &domain.Domain{
		Name:              name,
		ProjectID:         projectID,
		IsCustom:          true,
		CertificateStatus: domain.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	go m.issueDetached(name)

	return d, nil
}

// DetachDomain removes a custom domain. Certificate cleanup from storage
// is best-effort; a cleanup failure never blocks record removal.
func (m *Manager) DetachDomain(ctx context.Context, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ErrDomainNameRequired
	}

	for _, key := range []string{certObjectKey(name), keyObjectKey(name)} {
		if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			m.log.Warn("certificate cleanup failed",
				logger.Component("certmanager"), logger.Domain(name),
				logger.Key(key), logger.Error(err))
		}
	}
	m.certs.Delete(name)

	return m.repo.Delete(ctx, name)
}

// Run executes the renewal sweep on a fixed interval until ctx is
// canceled. One sweep runs immediately so restarts pick up interrupted
// issuances without waiting a full interval.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	m.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep recovers interrupted issuances, expires overdue certificates, and
// renews certificates inside the renewal window. Failed domains are only
// ever retried here, never immediately, to avoid hammering the CA.
func (m *Manager) sweep(ctx context.Context) {
	now := time.Now().UTC()

	stuck, err := m.repo.ListStuck(ctx, now.Add(-m.cfg.StuckTimeout))
	if err != nil {
		m.log.Error("sweep: listing stuck domains failed",
			logger.Component("certmanager"), logger.Error(err))
	}
	for _, d := range stuck {
		if err := d.Fail(ErrIssuanceInterrupted); err != nil {
			continue
		}
		if err := m.repo.Update(ctx, d); err != nil {
			m.log.Error("sweep: marking interrupted domain failed",
				logger.Component("certmanager"), logger.Domain(d.Name), logger.Error(err))
		}
	}

	renewable, err := m.repo.ListRenewable(ctx, now.Add(m.cfg.RenewalWindow))
	if err != nil {
		m.log.Error("sweep: listing renewable domains failed",
			logger.Component("certmanager"), logger.Error(err))
		return
	}

	for _, d := range renewable {
		if ctx.Err() != nil {
			return
		}

		if d.CertificateStatus == domain.StatusValid && !d.CertificateExpiresAt.IsZero() &&
			d.CertificateExpiresAt.Before(now) {
			if err := d.Transition(domain.StatusExpired); err == nil {
				_ = m.repo.Update(ctx, d)
			}
		}

		if err := m.Issue(ctx, d.Name); err != nil {
			m.log.Warn("sweep: renewal failed",
				logger.Component("certmanager"), logger.Domain(d.Name), logger.Error(err))
		}
	}
}

func (m *Manager) issueDetached(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.IssuanceTimeout)
	defer cancel()

	if err := m.Issue(ctx, name); err != nil {
		m.log.Warn("initial issuance failed",
			logger.Component("certmanager"), logger.Domain(name), logger.Error(err))
	}
}

// Issue runs one full issuance for name: re-validate DNS, order through
// the CA with the HTTP-01 token parked in the ChallengeStore, persist the
// resulting chain and key, and record the certificate window. Any
// unrecoverable error transitions the domain to Failed with the cause
// retained; the failure is retried on the next sweep.
func (m *Manager) Issue(ctx context.Context, name string) error {
	d, err := m.repo.Get(ctx, name)
	if err != nil {
		return err
	}

	if err := d.Transition(domain.StatusValidating); err != nil {
		return err
	}
	if err := m.repo.Update(ctx, d); err != nil {
		return err
	}

	if err := m.verifier.Verify(ctx, name); err != nil {
		return m.fail(ctx, d, err)
	}

	if err := d.Transition(domain.StatusIssuing); err != nil {
		return m.fail(ctx, d, err)
	}
	if err := m.repo.Update(ctx, d); err != nil {
		return err
	}

	client, err := m.acmeClient(ctx)
	if err != nil {
		return m.fail(ctx, d, err)
	}

	res, err := client.Obtain(certificate.ObtainRequest{
		Domains: []string{name},
		Bundle:  true,
	})
	if err != nil {
		return m.fail(ctx, d, err)
	}

	notBefore, notAfter, err := certificateWindow(res.Certificate)
	if err != nil {
		return m.fail(ctx, d, err)
	}

	if err := m.store.Put(ctx, certObjectKey(name), res.Certificate, "application/x-pem-file"); err != nil {
		return m.fail(ctx, d, err)
	}
	if err := m.store.Put(ctx, keyObjectKey(name), res.PrivateKey, "application/x-pem-file"); err != nil {
		return m.fail(ctx, d, err)
	}

	if err := d.Transition(domain.StatusValid); err != nil {
		return m.fail(ctx, d, err)
	}
	d.CertificateIssuedAt = notBefore
	d.CertificateExpiresAt = notAfter
	d.LastCertificateError = ""
	if err := m.repo.Update(ctx, d); err != nil {
		return err
	}

	// Drop any memoized handshake certificate so the fresh one is loaded.
	m.certs.Delete(name)

	m.log.Info("certificate issued",
		logger.Component("certmanager"), logger.Domain(name),
		slog.Time("expires_at", notAfter))
	return nil
}

// fail records the failure cause and returns it. Serving continues: the
// domain stays on plain HTTP or its last valid certificate.
func (m *Manager) fail(ctx context.Context, d *domain.Domain, cause error) error {
	if err := d.Fail(cause); err != nil {
		return errors.Join(cause, err)
	}
	if err := m.repo.Update(ctx, d); err != nil {
		return errors.Join(cause, err)
	}

	m.log.Warn("certificate operation failed",
		logger.Component("certmanager"), logger.Domain(d.Name), logger.Error(cause))
	return cause
}

// acmeClient lazily builds the lego client: the shared account key is
// loaded (or created) from the object store, the account is resolved or
// registered with the CA, and the HTTP-01 provider is pointed at the
// ChallengeStore.
func (m *Manager) acmeClient(ctx context.Context) (ACMEClient, error) {
	m.clientMu.Lock()
	defer m.clientMu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	key, err := loadOrCreateAccountKey(ctx, m.store)
	if err != nil {
		return nil, err
	}

	user := &account{email: m.cfg.Email, key: key}

	legoCfg := lego.NewConfig(user)
	legoCfg.CADirURL = m.cfg.CADirectoryURL
	legoCfg.Certificate.KeyType = certcrypto.EC256

	client, err := lego.NewClient(legoCfg)
	if err != nil {
		return nil, fmt.Errorf("create acme client: %w", err)
	}

	if err := client.Challenge.SetHTTP01Provider(&storeProvider{
		store: m.challenges,
		ttl:   m.cfg.ChallengeTTL,
	}); err != nil {
		return nil, fmt.Errorf("configure http-01 provider: %w", err)
	}

	reg, err := client.Registration.ResolveAccountByKey()
	if err != nil {
		reg, err = client.Registration.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
		if err != nil {
			return nil, fmt.Errorf("register acme account: %w", err)
		}
	}
	user.registration = reg

	m.client = &legoAdapter{client: client}
	return m.client, nil
}

type legoAdapter struct {
	client *lego.Client
}

func (a *legoAdapter) Obtain(request certificate.ObtainRequest) (*certificate.Resource, error) {
	return a.client.Certificate.Obtain(request)
}

// certificateWindow extracts the validity window from the leaf of a PEM
// chain.
func certificateWindow(pemChain []byte) (notBefore, notAfter time.Time, err error) {
	block, _ := pem.Decode(pemChain)
	if block == nil {
		return time.Time{}, time.Time{}, errors.New("certificate chain is not PEM encoded")
	}
	leaf, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse leaf certificate: %w", err)
	}
	return leaf.NotBefore, leaf.NotAfter, nil
}

func certObjectKey(name string) string {
	return "certs/" + name
}

func keyObjectKey(name string) string {
	return "certs/" + name + ".key"
}
