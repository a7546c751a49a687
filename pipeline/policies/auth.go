package policies

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/conduit/pipeline"
)

// tokenRefreshWindow is how close to expiry a cached token is considered
// stale.
const tokenRefreshWindow = 2 * time.Minute

// TokenRequestOptions parameterizes a token acquisition.
type TokenRequestOptions struct {
	Scopes []string
	// EnableCAE requests a token subject to continuous access evaluation.
	EnableCAE bool
	// Claims carries the claims challenge from a 401, verbatim.
	Claims string
}

// Token is an access token with its expiry.
type Token struct {
	Value     string
	ExpiresOn time.Time
}

// Credential acquires tokens. Acquisition logic (caching aside) lives
// outside the pipeline; implementations wrap whatever identity system the
// application uses.
type Credential interface {
	GetToken(ctx context.Context, opts TokenRequestOptions) (Token, error)
}

// BearerAuth attaches an Authorization: Bearer header before the send. The
// token cache is shared across calls and internally synchronized. On a 401
// carrying a claims challenge the policy re-acquires with the challenge
// claims and re-sends once.
type BearerAuth struct {
	pipeline.ChainedPolicy
	credential Credential
	scopes     []string

	mu     sync.Mutex
	cached Token
}

// NewBearerAuth creates the policy.
func NewBearerAuth(credential Credential, scopes ...string) *BearerAuth {
	return &BearerAuth{credential: credential, scopes: scopes}
}

func (p *BearerAuth) Send(req *pipeline.Request) (*pipeline.Response, error) {
	enableCAE := req.Context.Bool(pipeline.OptionEnableCAE)

	token, err := p.token(req.Context.Context(), enableCAE, "")
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}
	req.HTTPRequest.Header.Set("Authorization", "Bearer "+token.Value)

	resp, err := p.Next().Send(req)
	if err != nil || resp.HTTPResponse.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	claims := challengeClaims(resp.HTTPResponse.Header.Get("WWW-Authenticate"))
	if claims == "" {
		return resp, nil
	}

	// Claims challenge: re-acquire with CAE forced on and re-send once.
	_, _ = resp.HTTPResponse.Drain()
	token, err = p.token(req.Context.Context(), true, claims)
	if err != nil {
		return nil, fmt.Errorf("acquire token for claims challenge: %w", err)
	}

	retry := &pipeline.Request{
		HTTPRequest: req.HTTPRequest.Clone(),
		Context:     req.Context,
	}
	retry.HTTPRequest.Header.Set("Authorization", "Bearer "+token.Value)
	return p.Next().Send(retry)
}

// token returns the cached token when fresh, otherwise acquires a new one.
// Challenge-driven acquisitions always bypass the cache.
func (p *BearerAuth) token(ctx context.Context, enableCAE bool, claims string) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if claims == "" && p.cached.Value != "" && time.Until(p.cached.ExpiresOn) > tokenRefreshWindow {
		return p.cached, nil
	}

	token, err := p.credential.GetToken(ctx, TokenRequestOptions{
		Scopes:    p.scopes,
		EnableCAE: enableCAE,
		Claims:    claims,
	})
	if err != nil {
		return Token{}, err
	}
	p.cached = token
	return token, nil
}

// challengeClaims extracts the claims parameter from a WWW-Authenticate
// challenge, quoted or bare.
func challengeClaims(challenge string) string {
	const marker = "claims="
	idx := strings.Index(challenge, marker)
	if idx < 0 {
		return ""
	}
	rest := challenge[idx+len(marker):]
	if strings.HasPrefix(rest, `"`) {
		rest = rest[1:]
		if end := strings.Index(rest, `"`); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	if end := strings.IndexAny(rest, ", "); end >= 0 {
		return rest[:end]
	}
	return rest
}
