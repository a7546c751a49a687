package pipeline

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
)

// HTTPRequest is an outbound HTTP request. It is owned by the caller until
// handed to Run, after which policies may mutate it during pre-send
// processing (header injection, URL rewriting on redirect, and so on).
//
// The body is held as a byte slice so chaining policies can replay the
// request without caller involvement.
type HTTPRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	multipart *multipartMixed
}

// NewHTTPRequest creates a request with an empty header and no body.
func NewHTTPRequest(method, url string) *HTTPRequest {
	return &HTTPRequest{
		Method: method,
		URL:    url,
		Header: make(http.Header),
	}
}

// Clone returns a deep copy of the request. Chaining policies clone before
// mutating so each attempt gets its own header and body.
func (r *HTTPRequest) Clone() *HTTPRequest {
	clone := &HTTPRequest{
		Method:    r.Method,
		URL:       r.URL,
		Header:    r.Header.Clone(),
		multipart: r.multipart,
	}
	if clone.Header == nil {
		clone.Header = make(http.Header)
	}
	if r.Body != nil {
		clone.Body = make([]byte, len(r.Body))
		copy(clone.Body, r.Body)
	}
	return clone
}

// SetBody sets the request body and Content-Type header.
func (r *HTTPRequest) SetBody(body []byte, contentType string) {
	r.Body = body
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
}

// SetJSONBody marshals v and sets an application/json body.
func (r *HTTPRequest) SetJSONBody(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	r.SetBody(data, "application/json")
	return nil
}

// SetDetectedBody sets the body and sniffs the Content-Type from its leading
// bytes. An existing Content-Type header wins over detection.
func (r *HTTPRequest) SetDetectedBody(body []byte) {
	r.Body = body
	if r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", mimetype.Detect(body).String())
	}
}
