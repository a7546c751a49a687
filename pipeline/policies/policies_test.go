package policies

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/GriffinCanCode/conduit/pipeline"
)

// stubSender is a scripted chain tail for exercising chaining policies.
type stubSender struct {
	reqs []*pipeline.Request
	fn   func(req *pipeline.Request) (*pipeline.Response, error)
}

func (s *stubSender) Send(req *pipeline.Request) (*pipeline.Response, error) {
	s.reqs = append(s.reqs, req)
	return s.fn(req)
}

func newEnvelope(method, url string, opts ...pipeline.CallOption) *pipeline.Request {
	return &pipeline.Request{
		HTTPRequest: pipeline.NewHTTPRequest(method, url),
		Context:     pipeline.NewContext(context.Background(), nil, opts...),
	}
}

func respond(req *pipeline.Request, status int) *pipeline.Response {
	return respondWith(req, status, make(http.Header), "")
}

func respondWith(req *pipeline.Request, status int, header http.Header, body string) *pipeline.Response {
	return &pipeline.Response{
		HTTPRequest: req.HTTPRequest,
		HTTPResponse: &pipeline.HTTPResponse{
			StatusCode:    status,
			Status:        http.StatusText(status),
			Header:        header,
			Body:          io.NopCloser(strings.NewReader(body)),
			ContentLength: int64(len(body)),
		},
		Context: req.Context,
	}
}
