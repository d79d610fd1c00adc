package acme

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/c360/wordstream/errors"
	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/registration"
)

// Account is the ACME account identity persisted under the storage path.
// It implements lego's registration.User interface.
type Account struct {
	Email        string                 `json:"email"`
	Registration *registration.Resource `json:"registration"`
	key          crypto.PrivateKey
}

// GetEmail returns the account email address.
func (a *Account) GetEmail() string { return a.Email }

// GetRegistration returns the ACME registration resource.
func (a *Account) GetRegistration() *registration.Resource { return a.Registration }

// GetPrivateKey returns the account private key.
func (a *Account) GetPrivateKey() crypto.PrivateKey { return a.key }

// store handles on-disk persistence of the account and issued certificates.
// Layout under the root directory:
//
//	account.json     account metadata and registration
//	account.key      account private key (PEM)
//	certificate.pem  current certificate chain
//	certificate.key  current certificate private key
type store struct {
	root string
}

func newStore(root string) (*store, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, errors.WrapFatal(err, "acme.store", "newStore", "create storage directory")
	}
	return &store{root: root}, nil
}

func (s *store) accountPath() string    { return filepath.Join(s.root, "account.json") }
func (s *store) accountKeyPath() string { return filepath.Join(s.root, "account.key") }
func (s *store) certPath() string       { return filepath.Join(s.root, "certificate.pem") }
func (s *store) certKeyPath() string    { return filepath.Join(s.root, "certificate.key") }

// loadAccount reads a previously saved account. Returns (nil, nil) when no
// account exists yet.
func (s *store) loadAccount() (*Account, error) {
	if _, err := os.Stat(s.accountPath()); err != nil {
		return nil, nil
	}

	data, err := os.ReadFile(s.accountPath())
	if err != nil {
		return nil, errors.WrapFatal(err, "acme.store", "loadAccount", "read account file")
	}

	var account Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, errors.WrapFatal(err, "acme.store", "loadAccount", "unmarshal account")
	}

	keyData, err := os.ReadFile(s.accountKeyPath())
	if err != nil {
		return nil, errors.WrapFatal(err, "acme.store", "loadAccount", "read account key")
	}

	key, err := certcrypto.ParsePEMPrivateKey(keyData)
	if err != nil {
		return nil, errors.WrapFatal(err, "acme.store", "loadAccount", "parse account key")
	}

	account.key = key
	return &account, nil
}

// createAccount generates a fresh P-256 account key and persists the new
// account. Registration is filled in later once the CA accepts it.
func (s *store) createAccount(email string) (*Account, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.WrapFatal(err, "acme.store", "createAccount", "generate account key")
	}

	account := &Account{Email: email, key: key}
	if err := s.saveAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *store) saveAccount(account *Account) error {
	data, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return errors.WrapFatal(err, "acme.store", "saveAccount", "marshal account")
	}

	if err := os.WriteFile(s.accountPath(), data, 0600); err != nil {
		return errors.WrapFatal(err, "acme.store", "saveAccount", "write account file")
	}

	keyData := certcrypto.PEMEncode(account.key)
	if err := os.WriteFile(s.accountKeyPath(), keyData, 0600); err != nil {
		return errors.WrapFatal(err, "acme.store", "saveAccount", "write account key")
	}

	return nil
}

// saveCertificate persists an issued certificate and its private key.
func (s *store) saveCertificate(certPEM, keyPEM []byte) error {
	if err := os.WriteFile(s.certPath(), certPEM, 0644); err != nil {
		return errors.WrapFatal(err, "acme.store", "saveCertificate", "write certificate")
	}
	if err := os.WriteFile(s.certKeyPath(), keyPEM, 0600); err != nil {
		return errors.WrapFatal(err, "acme.store", "saveCertificate", "write certificate key")
	}
	return nil
}

// hasCertificate reports whether a certificate has been stored.
func (s *store) hasCertificate() bool {
	_, err := os.Stat(s.certPath())
	return err == nil
}
