package certmanager

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/go-acme/lego/v4/registration"

	"github.com/origan-dev/gateway/internal/storage"
)

// accountKeyObjectKey is where the ACME account key lives in the object
// store, so all gateway instances share one CA account.
const accountKeyObjectKey = "acme/account.key"

// account satisfies registration.User for the lego client.
type account struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (a *account) GetEmail() string {
	return a.email
}

func (a *account) GetRegistration() *registration.Resource {
	return a.registration
}

func (a *account) GetPrivateKey() crypto.PrivateKey {
	return a.key
}

// loadOrCreateAccountKey returns the shared ACME account key, generating
// and persisting an ECDSA P-256 key on first use.
func loadOrCreateAccountKey(ctx context.Context, store storage.ObjectStore) (crypto.PrivateKey, error) {
	data, err := store.Get(ctx, accountKeyObjectKey)
	if err == nil {
		return parseAccountKey(data)
	}
	if !errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("load account key: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate account key: %w", err)
	}

	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("encode account key: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	if err := store.Put(ctx, accountKeyObjectKey, pemBytes, "application/x-pem-file"); err != nil {
		return nil, fmt.Errorf("persist account key: %w", err)
	}
	return key, nil
}

func parseAccountKey(pemBytes []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("account key is not PEM encoded")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse account key: %w", err)
	}
	return key, nil
}
