package policies

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/pipeline"
)

// per-call bag key; set in OnRequest, consumed on the way back up.
const loggingStartKey = "logging_start"

// Logging emits structured request/response logs through zap. Header values
// are never logged, so secrets in Authorization or Cookie cannot leak into
// log output.
type Logging struct {
	logger *zap.Logger
}

// NewLogging creates the policy. A nil logger disables output.
func NewLogging(logger *zap.Logger) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logging{logger: logger}
}

func (p *Logging) OnRequest(req *pipeline.Request) error {
	req.Context.Options[loggingStartKey] = time.Now()
	p.logger.Debug("request started",
		zap.String("method", req.HTTPRequest.Method),
		zap.String("url", req.HTTPRequest.URL),
		zap.String("request_id", req.HTTPRequest.Header.Get(DefaultRequestIDHeader)),
	)
	return nil
}

func (p *Logging) OnResponse(req *pipeline.Request, resp *pipeline.Response) error {
	p.logger.Info("request completed",
		zap.String("method", req.HTTPRequest.Method),
		zap.String("url", req.HTTPRequest.URL),
		zap.Int("status", resp.HTTPResponse.StatusCode),
		zap.Int64("content_length", resp.HTTPResponse.ContentLength),
		zap.Duration("duration", p.elapsed(req)),
	)
	return nil
}

func (p *Logging) OnError(req *pipeline.Request, err error) {
	p.logger.Warn("request failed",
		zap.String("method", req.HTTPRequest.Method),
		zap.String("url", req.HTTPRequest.URL),
		zap.Duration("duration", p.elapsed(req)),
		zap.Error(err),
	)
}

func (p *Logging) elapsed(req *pipeline.Request) time.Duration {
	if start, ok := req.Context.Options[loggingStartKey].(time.Time); ok {
		return time.Since(start)
	}
	return 0
}
