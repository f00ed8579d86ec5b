package observability

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/baxromumarov/fresher-hunter/internal/httpx"
)

const (
	ErrorNetwork   = "network"
	ErrorTimeout   = "timeout"
	ErrorHTTP      = "http"
	ErrorRobots    = "robots"
	ErrorParsing   = "parsing"
	ErrorRateLimit = "rate_limit"
	ErrorStore     = "store"
	ErrorSink      = "sink"
	ErrorUnknown   = "unknown"
)

// ClassifyFetch maps a failed fetch to an error kind. Successful results return "".
func ClassifyFetch(res httpx.FetchResult) string {
	switch res.Status {
	case httpx.StatusOK:
		return ""
	case httpx.StatusTimeout:
		return ErrorTimeout
	case httpx.StatusHTTPError:
		if errors.Is(res.Err, httpx.ErrRobotsDisallowed) {
			return ErrorRobots
		}
		if res.Code == http.StatusTooManyRequests {
			return ErrorRateLimit
		}
		return ErrorHTTP
	case httpx.StatusNetworkError:
		return ErrorNetwork
	}
	return ClassifyFetchError(res.Err)
}

func ClassifyFetchError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		if fe.Status == http.StatusTooManyRequests {
			return ErrorRateLimit
		}
		return ErrorHTTP
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	if errors.Is(err, httpx.ErrRobotsDisallowed) {
		return ErrorRobots
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "parse failed") ||
		strings.Contains(msg, "decode failed") ||
		strings.Contains(msg, "unmarshal") ||
		strings.Contains(msg, "invalid character") {
		return ErrorParsing
	}
	return ErrorUnknown
}
