package pipeline

// Request is the envelope threaded down the policy chain: the outbound
// HTTP request paired with its per-call Context. One envelope exists per
// attempt; chaining policies build new envelopes around cloned requests
// for retried or redirected attempts.
type Request struct {
	HTTPRequest *HTTPRequest
	Context     *Context
}

// Response is the envelope propagated back up the chain: the original
// request, the raw transport response, and the Context. Policies may
// inspect and mutate the parts but the triple itself is invariant.
type Response struct {
	HTTPRequest  *HTTPRequest
	HTTPResponse *HTTPResponse
	Context      *Context
}
