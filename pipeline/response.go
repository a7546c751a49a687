package pipeline

import (
	"io"
	"net/http"
)

// HTTPResponse is the raw transport result for one send. Non-2xx status
// codes are not errors at this layer; mapping them to failures belongs to
// the caller.
type HTTPResponse struct {
	StatusCode    int
	Status        string
	Header        http.Header
	Body          io.ReadCloser
	ContentLength int64
}

// Drain reads the full body and closes it. Returns nil for a nil body.
func (r *HTTPResponse) Drain() ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
