package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/config"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

// refreshBuffer renews tokens this long before their server-side expiry so a
// token never goes stale mid-cycle.
const refreshBuffer = 5 * time.Minute

// scheme selects the password used for token issuance. Object storage has
// its own API password and its token carries the storage catalog endpoint.
type scheme string

const (
	schemeIdentity scheme = "identity"
	schemeStorage  scheme = "storage"
)

// credential is one issued token with its catalog-derived storage URL.
type credential struct {
	token      string
	storageURL string
	expiresAt  time.Time
}

// Provider issues and caches IAM tokens against the identity v2 API. Tokens
// for the identity and storage schemes are cached separately; concurrent
// acquisitions of the same scheme collapse into a single outbound issuance.
type Provider struct {
	cfg    config.IdentityConfig
	client *nhn.Client
	now    func() time.Time

	group singleflight.Group

	mu    sync.Mutex
	creds map[scheme]credential
}

// NewProvider returns a Provider issuing tokens at cfg.AuthURL + "/tokens".
func NewProvider(cfg config.IdentityConfig, timeout time.Duration) *Provider {
	return &Provider{
		cfg:    cfg,
		client: nhn.New(cfg.AuthURL, timeout, nil),
		now:    time.Now,
		creds:  make(map[scheme]credential),
	}
}

// TokenSource returns an nhn.AuthSource that sends X-Auth-Token with an
// identity-scheme token.
func (p *Provider) TokenSource() nhn.AuthSource {
	return &tokenSource{p: p, scheme: schemeIdentity}
}

// StorageSource returns an nhn.AuthSource for object storage calls, sending
// X-Auth-Token with a storage-scheme token.
func (p *Provider) StorageSource() nhn.AuthSource {
	return &tokenSource{p: p, scheme: schemeStorage}
}

// StorageURL returns the object storage account endpoint from the service
// catalog, acquiring a storage token if needed. Empty when the catalog has
// no object-store entry.
func (p *Provider) StorageURL(ctx context.Context) (string, error) {
	cred, err := p.acquire(ctx, schemeStorage)
	if err != nil {
		return "", err
	}
	return cred.storageURL, nil
}

func (p *Provider) acquire(ctx context.Context, s scheme) (credential, error) {
	p.mu.Lock()
	cred, ok := p.creds[s]
	p.mu.Unlock()
	if ok && p.now().Add(refreshBuffer).Before(cred.expiresAt) {
		return cred, nil
	}

	v, err, _ := p.group.Do(string(s), func() (interface{}, error) {
		// Re-check under the flight: another caller may have refreshed while
		// we waited for the lock.
		p.mu.Lock()
		cred, ok := p.creds[s]
		p.mu.Unlock()
		if ok && p.now().Add(refreshBuffer).Before(cred.expiresAt) {
			return cred, nil
		}

		fresh, err := p.issue(ctx, s)
		if err != nil {
			return credential{}, err
		}
		p.mu.Lock()
		p.creds[s] = fresh
		p.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return credential{}, err
	}
	return v.(credential), nil
}

// invalidate drops the cached token for the scheme so the next acquisition
// issues a fresh one. Called after a 401 from a service API.
func (p *Provider) invalidate(s scheme) {
	p.mu.Lock()
	delete(p.creds, s)
	p.mu.Unlock()
}

// tokenRequest is the identity v2 token issuance body.
type tokenRequest struct {
	Auth struct {
		TenantID            string `json:"tenantId"`
		PasswordCredentials struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"passwordCredentials"`
	} `json:"auth"`
}

type tokenResponse struct {
	Access struct {
		Token struct {
			ID      string `json:"id"`
			Expires string `json:"expires"`
		} `json:"token"`
		ServiceCatalog []struct {
			Type      string `json:"type"`
			Endpoints []struct {
				PublicURL   string `json:"publicURL"`
				InternalURL string `json:"internalURL"`
			} `json:"endpoints"`
		} `json:"serviceCatalog"`
	} `json:"access"`
}

func (p *Provider) issue(ctx context.Context, s scheme) (credential, error) {
	password := p.cfg.Password()
	if s == schemeStorage {
		if sp := p.cfg.StoragePassword(); sp != "" {
			password = sp
		} else {
			slog.Warn("auth: object storage API password not set, using IAM password; storage calls may be denied")
		}
	}
	if p.cfg.TenantID == "" || p.cfg.Username == "" || password == "" {
		return credential{}, fmt.Errorf("%w: IAM credentials not configured (tenant id, username, password)", nhn.ErrAuth)
	}

	var req tokenRequest
	req.Auth.TenantID = p.cfg.TenantID
	req.Auth.PasswordCredentials.Username = p.cfg.Username
	req.Auth.PasswordCredentials.Password = password

	var resp tokenResponse
	if err := p.client.PostJSON(ctx, "/tokens", req, &resp); err != nil {
		return credential{}, fmt.Errorf("issue token: %w", err)
	}
	if resp.Access.Token.ID == "" {
		return credential{}, fmt.Errorf("%w: token response missing token id", nhn.ErrAuth)
	}

	cred := credential{token: resp.Access.Token.ID}

	if ts := resp.Access.Token.Expires; ts != "" {
		exp, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return credential{}, fmt.Errorf("parse token expiry %q: %w", ts, err)
		}
		cred.expiresAt = exp
	} else {
		cred.expiresAt = p.now().Add(time.Hour)
	}

	for _, svc := range resp.Access.ServiceCatalog {
		if svc.Type != "object-store" || len(svc.Endpoints) == 0 {
			continue
		}
		if u := svc.Endpoints[0].PublicURL; u != "" {
			cred.storageURL = u
		} else {
			cred.storageURL = svc.Endpoints[0].InternalURL
		}
		break
	}

	slog.Debug("auth: token issued", "scheme", string(s), "expires", cred.expiresAt)
	return cred, nil
}

// tokenSource adapts a Provider scheme to the client's AuthSource.
type tokenSource struct {
	p      *Provider
	scheme scheme
}

func (t *tokenSource) Headers(ctx context.Context) (http.Header, error) {
	cred, err := t.p.acquire(ctx, t.scheme)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("X-Auth-Token", cred.token)
	return h, nil
}

func (t *tokenSource) Invalidate() { t.p.invalidate(t.scheme) }

// AppKeySource returns an nhn.AuthSource sending X-TC-APP-KEY. The key is
// resolved per request so environment changes are picked up without restart.
func AppKeySource(resolve func() string) nhn.AuthSource {
	return appKeySource{resolve: resolve}
}

type appKeySource struct{ resolve func() string }

func (a appKeySource) Headers(context.Context) (http.Header, error) {
	key := a.resolve()
	if key == "" {
		return nil, fmt.Errorf("%w: app key not configured", nhn.ErrAuth)
	}
	h := http.Header{}
	h.Set("X-TC-APP-KEY", key)
	return h, nil
}

func (appKeySource) Invalidate() {}

// RDSSource returns an nhn.AuthSource for the RDS API: the app key plus the
// access key pair when both halves are configured, otherwise the app key
// plus an IAM token.
func (p *Provider) RDSSource(appKey func() string, access config.AccessKeyConfig) nhn.AuthSource {
	return &rdsSource{p: p, appKey: appKey, access: access}
}

type rdsSource struct {
	p      *Provider
	appKey func() string
	access config.AccessKeyConfig
}

func (r *rdsSource) Headers(ctx context.Context) (http.Header, error) {
	key := r.appKey()
	if key == "" {
		return nil, fmt.Errorf("%w: RDS app key not configured", nhn.ErrAuth)
	}
	h := http.Header{}
	h.Set("X-TC-APP-KEY", key)

	if id, secret := r.access.ID(), r.access.Secret(); id != "" && secret != "" {
		h.Set("X-TC-AUTHENTICATION-ID", id)
		h.Set("X-TC-AUTHENTICATION-SECRET", secret)
		return h, nil
	}

	cred, err := r.p.acquire(ctx, schemeIdentity)
	if err != nil {
		return nil, err
	}
	h.Set("X-Auth-Token", cred.token)
	return h, nil
}

func (r *rdsSource) Invalidate() { r.p.invalidate(schemeIdentity) }
