package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPCollector interface {
	ObserveUpstreamLatency(statusCode int, startTime time.Time)
	IncUpstreamRequest(statusCode int)
}

// NewHTTPTransport counts and times the requests made through transport.
// Requests that fail before a response is received are not recorded.
func NewHTTPTransport(transport http.RoundTripper, collector HTTPCollector) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return promhttp.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := transport.RoundTrip(r)
		if err != nil {
			return resp, err
		}

		collector.ObserveUpstreamLatency(resp.StatusCode, start)
		collector.IncUpstreamRequest(resp.StatusCode)

		return resp, nil
	})
}
