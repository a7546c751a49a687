package policies

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/conduit/pipeline"
)

// Decompress advertises gzip and zstd support and transparently unwraps
// encoded response bodies. Content-Encoding and Content-Length are dropped
// from the response header once the body is wrapped, since both describe
// the encoded form.
type Decompress struct {
	pipeline.BasePolicy
}

// NewDecompress creates the policy.
func NewDecompress() *Decompress {
	return &Decompress{}
}

func (p *Decompress) OnRequest(req *pipeline.Request) error {
	if req.HTTPRequest.Header.Get("Accept-Encoding") == "" {
		req.HTTPRequest.Header.Set("Accept-Encoding", "gzip, zstd")
	}
	return nil
}

func (p *Decompress) OnResponse(req *pipeline.Request, resp *pipeline.Response) error {
	raw := resp.HTTPResponse
	if raw.Body == nil {
		return nil
	}

	switch strings.ToLower(raw.Header.Get("Content-Encoding")) {
	case "gzip":
		reader, err := gzip.NewReader(raw.Body)
		if err != nil {
			return fmt.Errorf("gzip reader: %w", err)
		}
		raw.Body = &decodedBody{reader: reader, underlying: raw.Body}
	case "zstd":
		decoder, err := zstd.NewReader(raw.Body)
		if err != nil {
			return fmt.Errorf("zstd reader: %w", err)
		}
		raw.Body = &decodedBody{reader: decoder.IOReadCloser(), underlying: raw.Body}
	default:
		return nil
	}

	raw.Header.Del("Content-Encoding")
	raw.Header.Del("Content-Length")
	raw.ContentLength = -1
	return nil
}

// decodedBody closes both the decoder and the wire body.
type decodedBody struct {
	reader     io.ReadCloser
	underlying io.ReadCloser
}

func (b *decodedBody) Read(p []byte) (int, error) {
	return b.reader.Read(p)
}

func (b *decodedBody) Close() error {
	err := b.reader.Close()
	if cerr := b.underlying.Close(); err == nil {
		err = cerr
	}
	return err
}
