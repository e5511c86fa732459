// Package reliability labels upstream inference failures.
package reliability

import (
	"context"
	"errors"
	"net"
)

// Failure reasons reported on logs and the upstream error counter.
const (
	ReasonCanceled    = "canceled"
	ReasonTimeout     = "timeout"
	ReasonRateLimited = "rate_limited"
	ReasonServer      = "upstream_5xx"
	ReasonClient      = "upstream_4xx"
	ReasonTransport   = "transport"
	ReasonUnusable    = "unusable_response"
	ReasonUnknown     = "unknown"
)

// statusCoder is implemented by errors that carry an upstream HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// Classify maps an inference error to one of the Reason constants.
func Classify(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		code := sc.HTTPStatus()
		switch {
		case code == 429:
			return ReasonRateLimited
		case code >= 500:
			return ReasonServer
		case code >= 400:
			return ReasonClient
		}
		return ReasonUnknown
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return ReasonTimeout
		}
		return ReasonTransport
	}
	return ReasonUnknown
}
