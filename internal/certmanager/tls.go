package certmanager

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"
)

const handshakeLookupTimeout = 5 * time.Second

// GetCertificate serves the gateway's own TLS handshakes from stored
// certificates. It reads the object store directly and memoizes parsed
// pairs; the domain table is deliberately not consulted so a database
// problem cannot break handshakes for already-issued certificates.
// Unknown domains return an error and the connection falls back according
// to the server's TLS configuration.
func (m *Manager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	name := strings.ToLower(strings.TrimSpace(hello.ServerName))
	if name == "" {
		return nil, ErrNoServerName
	}

	if cached, ok := m.certs.Load(name); ok {
		return cached.(*tls.Certificate), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handshakeLookupTimeout)
	defer cancel()

	certPEM, err := m.store.Get(ctx, certObjectKey(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCertificateNotFound, name)
	}
	keyPEM, err := m.store.Get(ctx, keyObjectKey(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s (missing key)", ErrCertificateNotFound, name)
	}

	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("load certificate for %s: %w", name, err)
	}

	m.certs.Store(name, &pair)
	return &pair, nil
}
