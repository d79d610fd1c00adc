// Package acme automates TLS certificate issuance and renewal against an
// ACME directory (Let's Encrypt or a private CA such as step-ca). Accounts
// and certificates persist under a storage directory so restarts reuse the
// existing identity instead of re-registering.
package acme

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/c360/wordstream/errors"
	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge/http01"
	"github.com/go-acme/lego/v4/challenge/tlsalpn01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"
)

const defaultRenewBefore = 8 * time.Hour

// Config holds ACME client settings.
type Config struct {
	DirectoryURL  string
	Email         string
	Domains       []string
	ChallengeType string // "http-01" (default) or "tls-alpn-01"
	RenewBefore   time.Duration
	StoragePath   string
	CABundle      string // extra CA bundle for reaching a private directory
}

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	if c.DirectoryURL == "" {
		return errors.WrapInvalid(
			fmt.Errorf("directory_url is required"),
			"acme.Config", "Validate", "check directory URL")
	}
	if c.Email == "" {
		return errors.WrapInvalid(
			fmt.Errorf("email is required"),
			"acme.Config", "Validate", "check email")
	}
	if len(c.Domains) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("at least one domain is required"),
			"acme.Config", "Validate", "check domains")
	}
	switch c.ChallengeType {
	case "", "http-01", "tls-alpn-01":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("challenge_type must be 'http-01' or 'tls-alpn-01'"),
			"acme.Config", "Validate", "check challenge type")
	}
	if c.StoragePath == "" {
		return errors.WrapInvalid(
			fmt.Errorf("storage_path is required"),
			"acme.Config", "Validate", "check storage path")
	}
	if c.RenewBefore <= 0 {
		c.RenewBefore = defaultRenewBefore
	}
	return nil
}

// Client obtains and renews certificates for a fixed set of domains.
type Client struct {
	config Config
	store  *store
	lego   *lego.Client
	user   *Account
}

// NewClient loads or creates the ACME account under the storage path and
// registers it with the directory if needed.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := newStore(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	account, err := st.loadAccount()
	if err != nil {
		return nil, err
	}
	if account == nil {
		account, err = st.createAccount(cfg.Email)
		if err != nil {
			return nil, err
		}
	}

	client := &Client{config: cfg, store: st, user: account}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

// connect builds the lego client, wires the challenge solver and registers
// the account on first use.
func (c *Client) connect() error {
	legoCfg := lego.NewConfig(c.user)
	legoCfg.CADirURL = c.config.DirectoryURL
	legoCfg.Certificate.KeyType = certcrypto.EC256

	if c.config.CABundle != "" {
		httpClient, err := buildHTTPClient(c.config.CABundle)
		if err != nil {
			return err
		}
		legoCfg.HTTPClient = httpClient
	}

	legoClient, err := lego.NewClient(legoCfg)
	if err != nil {
		return errors.WrapFatal(err, "acme.Client", "connect", "create lego client")
	}

	switch c.config.ChallengeType {
	case "", "http-01":
		err = legoClient.Challenge.SetHTTP01Provider(http01.NewProviderServer("", "80"))
	case "tls-alpn-01":
		err = legoClient.Challenge.SetTLSALPN01Provider(tlsalpn01.NewProviderServer("", "443"))
	}
	if err != nil {
		return errors.WrapFatal(err, "acme.Client", "connect", "setup challenge provider")
	}

	if c.user.Registration == nil {
		reg, err := legoClient.Registration.Register(
			registration.RegisterOptions{TermsOfServiceAgreed: true})
		if err != nil {
			return errors.WrapTransient(err, "acme.Client", "connect", "register account")
		}
		c.user.Registration = reg
		if err := c.store.saveAccount(c.user); err != nil {
			return err
		}
	}

	c.lego = legoClient
	return nil
}

// buildHTTPClient returns an HTTP client that trusts the given CA bundle,
// for directories signed by a private CA.
func buildHTTPClient(caBundle string) (*http.Client, error) {
	pem, err := os.ReadFile(caBundle)
	if err != nil {
		return nil, errors.WrapFatal(err, "acme.Client", "buildHTTPClient", "read CA bundle")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.WrapFatal(
			fmt.Errorf("no certificates parsed from %s", caBundle),
			"acme.Client", "buildHTTPClient", "parse CA bundle")
	}

	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		},
	}, nil
}

// ObtainCertificate requests a new certificate for the configured domains
// and persists it to the storage path.
func (c *Client) ObtainCertificate(_ context.Context) (*tls.Certificate, error) {
	res, err := c.lego.Certificate.Obtain(certificate.ObtainRequest{
		Domains: c.config.Domains,
		Bundle:  true,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "acme.Client", "ObtainCertificate", "obtain certificate")
	}

	if err := c.store.saveCertificate(res.Certificate, res.PrivateKey); err != nil {
		return nil, err
	}

	tlsCert, err := tls.X509KeyPair(res.Certificate, res.PrivateKey)
	if err != nil {
		return nil, errors.WrapFatal(err, "acme.Client", "ObtainCertificate", "load certificate")
	}
	return &tlsCert, nil
}

// RenewCertificateIfNeeded loads the stored certificate and renews it when
// it is within RenewBefore of expiry. Returns (nil, false, nil) when no
// certificate exists yet, or (cert, false, nil) when the current one is
// still fresh.
func (c *Client) RenewCertificateIfNeeded(_ context.Context) (*tls.Certificate, bool, error) {
	if !c.store.hasCertificate() {
		return nil, false, nil
	}

	tlsCert, err := tls.LoadX509KeyPair(c.store.certPath(), c.store.certKeyPath())
	if err != nil {
		return nil, false, errors.WrapFatal(err, "acme.Client", "RenewCertificateIfNeeded",
			"load stored certificate")
	}

	leaf, err := x509.ParseCertificate(tlsCert.Certificate[0])
	if err != nil {
		return nil, false, errors.WrapFatal(err, "acme.Client", "RenewCertificateIfNeeded",
			"parse certificate")
	}

	if time.Now().Before(leaf.NotAfter.Add(-c.config.RenewBefore)) {
		return &tlsCert, false, nil
	}

	certPEM, err := os.ReadFile(c.store.certPath())
	if err != nil {
		return nil, false, errors.WrapFatal(err, "acme.Client", "RenewCertificateIfNeeded",
			"read certificate for renewal")
	}

	renewed, err := c.lego.Certificate.Renew(certificate.Resource{
		Domain:      c.config.Domains[0],
		Certificate: certPEM,
	}, true, false, "")
	if err != nil {
		return nil, false, errors.WrapTransient(err, "acme.Client", "RenewCertificateIfNeeded",
			"renew certificate")
	}

	if err := c.store.saveCertificate(renewed.Certificate, renewed.PrivateKey); err != nil {
		return nil, false, err
	}

	renewedCert, err := tls.X509KeyPair(renewed.Certificate, renewed.PrivateKey)
	if err != nil {
		return nil, false, errors.WrapFatal(err, "acme.Client", "RenewCertificateIfNeeded",
			"load renewed certificate")
	}
	return &renewedCert, true, nil
}

// StartRenewalLoop periodically checks for expiry until the context ends.
// onRenewal is invoked with each renewed certificate; transient renewal
// errors are swallowed so the loop keeps running.
func (c *Client) StartRenewalLoop(ctx context.Context, checkInterval time.Duration,
	onRenewal func(*tls.Certificate)) error {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cert, renewed, err := c.RenewCertificateIfNeeded(ctx)
			if err != nil {
				continue
			}
			if renewed && onRenewal != nil {
				onRenewal(cert)
			}
		}
	}
}
