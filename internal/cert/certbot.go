package cert

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultCertbotBinary   = "certbot"
	defaultLiveDir         = "/etc/letsencrypt/live"
	defaultPropagation     = 30 * time.Second
	defaultCommandTimeout  = 300 * time.Second
	credentialsFilePattern = "cloudflare-credentials-*.ini"
)

// commandRunner executes a certbot invocation and returns its combined
// output. Indirection exists so tests do not shell out.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CertbotProvider issues certificates through certbot's dns-cloudflare
// plugin, completing the DNS-01 challenge against the same zone the tenant
// record lives in.
type CertbotProvider struct {
	cloudflareAPIToken string
	email              string
	binary             string
	liveDir            string
	propagation        time.Duration
	commandTimeout     time.Duration
	run                commandRunner
}

type CertbotOptions struct {
	CloudflareAPIToken string
	Email              string
	Binary             string
	LiveDir            string
	Propagation        time.Duration
	CommandTimeout     time.Duration
}

func NewCertbotProvider(opts CertbotOptions) *CertbotProvider {
	if opts.Binary == "" {
		opts.Binary = defaultCertbotBinary
	}
	if opts.LiveDir == "" {
		opts.LiveDir = defaultLiveDir
	}
	if opts.Propagation == 0 {
		opts.Propagation = defaultPropagation
	}
	if opts.CommandTimeout == 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	return &CertbotProvider{
		cloudflareAPIToken: opts.CloudflareAPIToken,
		email:              opts.Email,
		binary:             opts.Binary,
		liveDir:            opts.LiveDir,
		propagation:        opts.Propagation,
		commandTimeout:     opts.CommandTimeout,
		run:                execRunner,
	}
}

func (p *CertbotProvider) IsConfigured() bool {
	return p.cloudflareAPIToken != "" && p.email != ""
}

func (p *CertbotProvider) Issue(ctx context.Context, domain string) error {
	return p.obtain(ctx, "issue", domain, domain)
}

// IssueWildcard obtains a certificate covering the base domain and all of its
// first-level subdomains in a single DNS-01 order.
func (p *CertbotProvider) IssueWildcard(ctx context.Context, baseDomain string) error {
	return p.obtain(ctx, "issue_wildcard", baseDomain, baseDomain, "*."+baseDomain)
}

func (p *CertbotProvider) Renew(ctx context.Context, domain string) error {
	return p.obtain(ctx, "renew", domain, domain)
}

// Revoke invalidates the domain's certificate with the ACME server. A domain
// that never had a certificate revokes to a no-op.
func (p *CertbotProvider) Revoke(ctx context.Context, domain string) error {
	if !p.IsConfigured() {
		return ErrNotConfigured
	}

	certPath := filepath.Join(p.liveDir, domain, "fullchain.pem")
	if _, err := os.Stat(certPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	args := []string{
		"revoke",
		"--non-interactive",
		"--cert-path", certPath,
		"--delete-after-revoke",
	}

	runCtx, cancel := context.WithTimeout(ctx, p.commandTimeout)
	defer cancel()

	log.WithContext(ctx).WithFields(log.Fields{"domain": domain, "operation": "revoke"}).Info("running certbot")
	output, err := p.run(runCtx, p.binary, args...)
	if err != nil {
		return &ProviderError{Domain: domain, Operation: "revoke", Output: string(output), Err: fmt.Errorf("running certbot: %w", err)}
	}

	log.WithContext(ctx).WithField("domain", domain).Info("certificate revoked")
	return nil
}

func (p *CertbotProvider) obtain(ctx context.Context, operation, certName string, domains ...string) error {
	if !p.IsConfigured() {
		return ErrNotConfigured
	}

	credentialsPath, cleanup, err := p.writeCredentialsFile()
	if err != nil {
		return &ProviderError{Domain: certName, Operation: operation, Err: err}
	}
	defer cleanup()

	args := []string{
		"certonly",
		"--non-interactive",
		"--agree-tos",
		"--email", p.email,
		"--dns-cloudflare",
		"--dns-cloudflare-credentials", credentialsPath,
		"--dns-cloudflare-propagation-seconds", strconv.Itoa(int(p.propagation.Seconds())),
		"--keep-until-expiring",
	}
	for _, d := range domains {
		args = append(args, "-d", d)
	}

	runCtx, cancel := context.WithTimeout(ctx, p.commandTimeout)
	defer cancel()

	log.WithContext(ctx).WithFields(log.Fields{"domain": certName, "operation": operation}).Info("running certbot")
	output, err := p.run(runCtx, p.binary, args...)
	if err != nil {
		return &ProviderError{Domain: certName, Operation: operation, Output: string(output), Err: fmt.Errorf("running certbot: %w", err)}
	}

	log.WithContext(ctx).WithField("domain", certName).Info("certificate obtained")
	return nil
}

// writeCredentialsFile materializes the Cloudflare API token into a 0600
// temporary file for the dns-cloudflare plugin, removed after the run.
func (p *CertbotProvider) writeCredentialsFile() (string, func(), error) {
	f, err := os.CreateTemp("", credentialsFilePattern)
	if err != nil {
		return "", nil, fmt.Errorf("creating credentials file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if err = f.Chmod(0o600); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("setting credentials file permissions: %w", err)
	}
	if _, err = fmt.Fprintf(f, "dns_cloudflare_api_token = %s\n", p.cloudflareAPIToken); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing credentials file: %w", err)
	}
	if err = f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing credentials file: %w", err)
	}
	return path, cleanup, nil
}

// GetStatus inspects the certificate on disk without contacting the ACME
// server.
func (p *CertbotProvider) GetStatus(ctx context.Context, domain string) (*Info, error) {
	certPath := filepath.Join(p.liveDir, domain, "fullchain.pem")
	pemBytes, err := os.ReadFile(certPath)
	if errors.Is(err, os.ErrNotExist) {
		return &Info{Domain: domain, Status: StatusNotIssued}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading certificate for %q: %w", domain, err)
	}

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM data in certificate for %q", domain)
	}
	parsed, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate for %q: %w", domain, err)
	}

	info := &Info{
		Domain:    domain,
		NotAfter:  &parsed.NotAfter,
		NotBefore: &parsed.NotBefore,
		Issuer:    parsed.Issuer.CommonName,
	}
	now := time.Now()
	switch {
	case now.After(parsed.NotAfter):
		info.Status = StatusExpired
	case now.Add(ExpiringSoonWindow).After(parsed.NotAfter):
		info.Status = StatusExpiringSoon
	default:
		info.Status = StatusValid
	}
	return info, nil
}

var _ Provider = (*CertbotProvider)(nil)
