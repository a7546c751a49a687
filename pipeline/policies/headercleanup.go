package policies

import (
	"github.com/GriffinCanCode/conduit/pipeline"
)

// DefaultSensitiveHeaders are stripped on cross-domain redirects.
var DefaultSensitiveHeaders = []string{
	"Authorization",
	"Proxy-Authorization",
	"Cookie",
}

// SensitiveHeaderCleanup removes credential-bearing headers when an earlier
// policy flagged a cross-domain redirect. Place it nearest the transport so
// the flag set during a redirect re-send is visible before the wire.
type SensitiveHeaderCleanup struct {
	pipeline.BasePolicy
	headers []string
}

// NewSensitiveHeaderCleanup creates the policy. A nil list uses
// DefaultSensitiveHeaders.
func NewSensitiveHeaderCleanup(headers []string) *SensitiveHeaderCleanup {
	if headers == nil {
		headers = DefaultSensitiveHeaders
	}
	return &SensitiveHeaderCleanup{headers: headers}
}

func (p *SensitiveHeaderCleanup) OnRequest(req *pipeline.Request) error {
	if !req.Context.Bool(pipeline.OptionInsecureDomainChange) {
		return nil
	}
	delete(req.Context.Options, pipeline.OptionInsecureDomainChange)
	for _, h := range p.headers {
		req.HTTPRequest.Header.Del(h)
	}
	return nil
}
