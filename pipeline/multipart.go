package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// defaultPrepareConcurrency bounds the multipart preparation fan-out. The
// bound is deliberately conservative; raise it per bundle with
// WithPrepareConcurrency when profiling shows preparation dominating.
const defaultPrepareConcurrency = 4

// multipartMixed describes a batch of independent sub-requests carried as a
// single multipart/mixed body. Sub-policies run against every part during a
// concurrent prepare phase before the composite body is serialized; the
// main chain then sends the composite as one request.
type multipartMixed struct {
	parts       []*HTTPRequest
	policies    []Policy
	options     map[string]any
	boundary    string
	concurrency int
}

// MultipartOption customizes a multipart bundle.
type MultipartOption func(*multipartMixed)

// WithBoundary overrides the generated multipart boundary. Useful for
// nested changesets, which conventionally use a changeset_ prefix.
func WithBoundary(boundary string) MultipartOption {
	return func(m *multipartMixed) {
		m.boundary = boundary
	}
}

// WithPrepareConcurrency sets the worker bound for the prepare fan-out.
func WithPrepareConcurrency(n int) MultipartOption {
	return func(m *multipartMixed) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithPartOptions seeds the option bag each sub-request's Context starts
// from during preparation.
func WithPartOptions(options map[string]any) MultipartOption {
	return func(m *multipartMixed) {
		m.options = options
	}
}

// SetMultipartMixed marks the request as a batch of sub-requests. Each
// policy in policies has its OnRequest hook applied to every part before
// the composite body is built. A part may itself be multipart (a
// changeset); its own bundle is prepared recursively.
func (r *HTTPRequest) SetMultipartMixed(parts []*HTTPRequest, policies []Policy, opts ...MultipartOption) {
	m := &multipartMixed{
		parts:       parts,
		policies:    policies,
		boundary:    "batch_" + uuid.NewString(),
		concurrency: defaultPrepareConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}
	r.multipart = m
}

// prepareMultipart runs the prepare phase and serializes the composite
// body. No-op for ordinary requests.
func prepareMultipart(ctx context.Context, req *HTTPRequest) error {
	if req.multipart == nil {
		return nil
	}
	if err := req.multipart.prepare(ctx); err != nil {
		return err
	}
	return req.multipart.serialize(req)
}

// prepare applies the sub-policy pre-send hooks to every part with bounded
// concurrency. Parts are independent, so completion order does not matter;
// serialization only starts after every part finished.
func (m *multipartMixed) prepare(ctx context.Context) error {
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(m.concurrency)

	for _, part := range m.parts {
		grp.Go(func() error {
			if part.multipart != nil {
				return part.multipart.prepare(gctx)
			}

			// Each part gets its own Context so concurrent preparation
			// never shares an option bag. No transport: prepare is sans-IO.
			callCtx := NewContext(gctx, nil)
			for k, v := range m.options {
				callCtx.Options[k] = v
			}
			env := &Request{HTTPRequest: part, Context: callCtx}
			for _, policy := range m.policies {
				if err := policy.OnRequest(env); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return grp.Wait()
}

// serialize builds the multipart/mixed body on r. Ordinary parts are
// embedded as application/http with a positional Content-ID; changeset
// parts serialize their own bundle first and embed it as nested
// multipart/mixed.
func (m *multipartMixed) serialize(r *HTTPRequest) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.SetBoundary(m.boundary); err != nil {
		return fmt.Errorf("set boundary: %w", err)
	}

	for i, part := range m.parts {
		header := make(textproto.MIMEHeader)

		if part.multipart != nil {
			if err := part.multipart.serialize(part); err != nil {
				return err
			}
			header.Set("Content-Type", part.Header.Get("Content-Type"))
			pw, err := writer.CreatePart(header)
			if err != nil {
				return err
			}
			if _, err := pw.Write(part.Body); err != nil {
				return err
			}
			continue
		}

		header.Set("Content-Type", "application/http")
		header.Set("Content-Transfer-Encoding", "binary")
		header.Set("Content-ID", strconv.Itoa(i))
		pw, err := writer.CreatePart(header)
		if err != nil {
			return err
		}
		if err := writeEmbeddedRequest(pw, part); err != nil {
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}

	r.Body = buf.Bytes()
	r.Header.Set("Content-Type", "multipart/mixed; boundary="+m.boundary)
	return nil
}

// writeEmbeddedRequest serializes one sub-request in application/http form:
// request line, headers in stable order, blank line, body.
func writeEmbeddedRequest(w io.Writer, part *HTTPRequest) error {
	target := part.URL
	if u, err := url.Parse(part.URL); err == nil && u.Path != "" {
		target = u.RequestURI()
	}
	if _, err := fmt.Fprintf(w, "%s %s HTTP/1.1\r\n", part.Method, target); err != nil {
		return err
	}

	keys := make([]string, 0, len(part.Header))
	for k := range part.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range part.Header[k] {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
				return err
			}
		}
	}

	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	if len(part.Body) > 0 {
		if _, err := w.Write(part.Body); err != nil {
			return err
		}
	}
	return nil
}
