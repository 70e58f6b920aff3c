package certmanager

import (
	"context"
	"fmt"
	"time"

	"github.com/origan-dev/gateway/internal/challenge"
)

// storeProvider satisfies lego's challenge.Provider by writing HTTP-01
// tokens to the shared ChallengeStore. The gateway serves them from there
// on /.well-known/acme-challenge/{token}, decoupled from domain routing,
// so validation works before any certificate exists.
type storeProvider struct {
	store challenge.Store
	ttl   time.Duration
}

const providerOpTimeout = 10 * time.Second

func (p *storeProvider) Present(domainName, token, keyAuth string) error {
	ctx, cancel := context.WithTimeout(context.Background(), providerOpTimeout)
	defer cancel()

	if err := p.store.Put(ctx, token, keyAuth, time.Now().Add(p.ttl)); err != nil {
		return fmt.Errorf("present challenge for %s: %w", domainName, err)
	}
	return nil
}

func (p *storeProvider) CleanUp(domainName, token, keyAuth string) error {
	ctx, cancel := context.WithTimeout(context.Background(), providerOpTimeout)
	defer cancel()

	if err := p.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("clean up challenge for %s: %w", domainName, err)
	}
	return nil
}
