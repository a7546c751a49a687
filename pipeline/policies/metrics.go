package policies

import (
	"strconv"
	"time"

	"github.com/GriffinCanCode/conduit/metrics"
	"github.com/GriffinCanCode/conduit/pipeline"
)

const metricsStartKey = "metrics_start"

// Metrics records Prometheus counters and histograms for every send.
// Failed sends are labeled with status "error".
type Metrics struct {
	collectors *metrics.Metrics
}

// NewMetrics creates the policy around a collector set.
func NewMetrics(collectors *metrics.Metrics) *Metrics {
	return &Metrics{collectors: collectors}
}

func (p *Metrics) OnRequest(req *pipeline.Request) error {
	req.Context.Options[metricsStartKey] = time.Now()
	p.collectors.Inflight.Inc()
	return nil
}

func (p *Metrics) OnResponse(req *pipeline.Request, resp *pipeline.Response) error {
	p.collectors.Inflight.Dec()
	p.collectors.RecordSend(
		req.HTTPRequest.Method,
		strconv.Itoa(resp.HTTPResponse.StatusCode),
		p.elapsed(req),
		resp.HTTPResponse.ContentLength,
	)
	return nil
}

func (p *Metrics) OnError(req *pipeline.Request, err error) {
	p.collectors.Inflight.Dec()
	p.collectors.RecordSend(req.HTTPRequest.Method, "error", p.elapsed(req), -1)
}

func (p *Metrics) elapsed(req *pipeline.Request) time.Duration {
	if start, ok := req.Context.Options[metricsStartKey].(time.Time); ok {
		return time.Since(start)
	}
	return 0
}
