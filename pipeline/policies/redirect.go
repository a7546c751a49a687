package policies

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/conduit/pipeline"
)

// Redirect follows 3xx responses up to MaxRedirects hops. The transport
// never follows redirects itself; this policy owns the behavior so the
// rest of the chain below it sees every hop.
//
// When a hop lands on a different domain the policy sets the
// insecure_domain_change flag in the option bag, which tells the
// sensitive-header cleanup policy to strip credentials before the wire.
type Redirect struct {
	pipeline.ChainedPolicy
	maxRedirects int
}

// NewRedirect creates the policy. max <= 0 defaults to 10 hops.
func NewRedirect(max int) *Redirect {
	if max <= 0 {
		max = 10
	}
	return &Redirect{maxRedirects: max}
}

func (p *Redirect) Send(req *pipeline.Request) (*pipeline.Response, error) {
	attempt := req

	for hops := 0; ; hops++ {
		resp, err := p.Next().Send(attempt)
		if err != nil {
			return nil, err
		}

		location := redirectLocation(resp.HTTPResponse)
		if location == "" || hops >= p.maxRedirects {
			return resp, nil
		}

		// An unresolvable Location ends the chase with the redirect
		// response intact, body included.
		target, err := resolveLocation(attempt.HTTPRequest.URL, location)
		if err != nil {
			return resp, nil
		}

		// The redirect response body is not surfaced; drain it so the
		// underlying connection can be reused.
		_, _ = resp.HTTPResponse.Drain()

		next := attempt.HTTPRequest.Clone()
		next.URL = target

		// 301/302/303 rewrite non-safe methods to GET and drop the body.
		switch resp.HTTPResponse.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
			if next.Method != http.MethodGet && next.Method != http.MethodHead {
				next.Method = http.MethodGet
				next.Body = nil
				next.Header.Del("Content-Type")
				next.Header.Del("Content-Length")
			}
		}

		if crossDomain(attempt.HTTPRequest.URL, next.URL) {
			req.Context.Options[pipeline.OptionInsecureDomainChange] = true
		}

		attempt = &pipeline.Request{HTTPRequest: next, Context: req.Context}
	}
}

func redirectLocation(resp *pipeline.HTTPResponse) string {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return resp.Header.Get("Location")
	}
	return ""
}

func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(ref).String(), nil
}

func crossDomain(from, to string) bool {
	fromURL, err := url.Parse(from)
	if err != nil {
		return true
	}
	toURL, err := url.Parse(to)
	if err != nil {
		return true
	}
	return !strings.EqualFold(fromURL.Hostname(), toURL.Hostname())
}
