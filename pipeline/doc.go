// Package pipeline implements a policy-chained HTTP client pipeline.
//
// A Pipeline owns a Transport and an ordered list of policies. Each call to
// Run threads one request through the chain: every policy sees the request on
// the way down, the transport performs the single network send, and the
// response unwinds back up through the same policies in reverse order.
//
// Two policy flavors exist:
//   - Policy: sans-IO, inspect/mutate only (OnRequest, OnResponse, OnError)
//   - ChainingPolicy: full control over calling the next link, the basis for
//     retry, redirect, and circuit-breaking behaviors
//
// Wrap adapts a Policy into a ChainingPolicy so both flavors link into the
// same chain. The chain is assembled once at construction and is immutable
// afterwards, so a single Pipeline is safe for concurrent Run calls; all
// per-call state lives in the Context created for each Run.
//
// Example:
//
//	pipe := pipeline.New(transport.NewDefault(),
//	    pipeline.Wrap(policies.NewLogging(logger)),
//	    policies.NewRetry(policies.RetryOptions{MaxAttempts: 3}),
//	    pipeline.Wrap(policies.NewSensitiveHeaderCleanup(nil)),
//	)
//	if err := pipe.Open(); err != nil { ... }
//	defer pipe.Close()
//
//	req := pipeline.NewHTTPRequest(http.MethodGet, "https://example.com")
//	resp, err := pipe.Run(ctx, req, pipeline.WithTimeout(10*time.Second))
package pipeline
