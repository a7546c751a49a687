// Package policies ships the standard policy suite for the pipeline.
//
// Simple (sans-IO) policies: RequestID, Tracing, Logging, Metrics,
// Throttle, Hook, Decompress, SensitiveHeaderCleanup. Wrap them with
// pipeline.Wrap before linking.
//
// Chaining policies: Breaker, Retry, BearerAuth, Redirect. These control
// the downstream send themselves and link directly.
//
// Recommended order for a fully loaded pipeline, head to transport:
// RequestID, Tracing, Logging, Metrics, Throttle, Breaker, Retry,
// BearerAuth, Redirect, Hook, Decompress, SensitiveHeaderCleanup.
// The cleanup policy sits nearest the transport so it sees the
// cross-domain flag set by the redirect policy on re-sends.
package policies
