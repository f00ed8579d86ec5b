package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

type FetchStatus string

const (
	StatusOK           FetchStatus = "ok"
	StatusTimeout      FetchStatus = "timeout"
	StatusHTTPError    FetchStatus = "http_error"
	StatusNetworkError FetchStatus = "network_error"
)

// ErrRobotsDisallowed marks an http_error result that was never sent.
var ErrRobotsDisallowed = errors.New("blocked by robots.txt")

// FetchResult is the outcome of one URL fetch. Failures are variants, not errors.
type FetchResult struct {
	URL         string
	Status      FetchStatus
	Code        int
	ContentType string
	Body        []byte
	Err         error
	FetchedAt   time.Time
	Attempts    int
}

func (r FetchResult) OK() bool {
	return r.Status == StatusOK
}

type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch error (status %d)", e.Status)
	}
	return fmt.Sprintf("fetch error (status %d): %v", e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CollyFetcher wraps Colly for polite HTML fetching with per-host rate limits.
type CollyFetcher struct {
	userAgent    string
	transport    http.RoundTripper
	retryDelay   time.Duration
	robots       *RobotsGate
	respectRobot bool
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
	hosts        map[string]*hostPolicy
	now          func() time.Time
}

type hostPolicy struct {
	limiter     *rate.Limiter
	nextAllowed time.Time
	mu          sync.Mutex
}

type Option func(*CollyFetcher)

// WithTransport routes every request (robots.txt included) through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *CollyFetcher) { f.transport = rt }
}

func WithHostRate(perSecond float64, burst int) Option {
	return func(f *CollyFetcher) {
		if perSecond > 0 {
			f.defaultRate = rate.Limit(perSecond)
		}
		if burst > 0 {
			f.defaultBurst = burst
		}
	}
}

func WithRobots(enabled bool) Option {
	return func(f *CollyFetcher) { f.respectRobot = enabled }
}

func WithRetryDelay(d time.Duration) Option {
	return func(f *CollyFetcher) { f.retryDelay = d }
}

func NewCollyFetcher(userAgent string, opts ...Option) *CollyFetcher {
	if userAgent == "" {
		userAgent = "fresher-hunter-bot/1.0"
	}
	f := &CollyFetcher{
		userAgent:    userAgent,
		retryDelay:   300 * time.Millisecond,
		respectRobot: true,
		defaultRate:  rate.Every(time.Second),
		defaultBurst: 2,
		hosts:        make(map[string]*hostPolicy),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.respectRobot {
		f.robots = NewRobotsGate(f.userAgent, f.transport, f.waitForHost)
	}
	return f
}

// Fetch GETs rawURL with the given per-request timeout. A transient network error is
// retried once; timeouts and HTTP error statuses are not. A cancelled ctx stops the
// fetch before anything is sent.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) FetchResult {
	result := FetchResult{URL: rawURL}
	target, err := normalizeURL(rawURL)
	if err != nil {
		result.Status = StatusNetworkError
		result.Err = err
		result.FetchedAt = f.now()
		return result
	}
	result.URL = target
	host := hostKey(target)

	if err := ctx.Err(); err != nil {
		return f.finish(result, StatusNetworkError, err)
	}
	if f.robots != nil && !f.robots.Allowed(ctx, target, timeout) {
		if err := ctx.Err(); err != nil {
			return f.finish(result, StatusNetworkError, err)
		}
		return f.finish(result, StatusHTTPError, ErrRobotsDisallowed)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return f.finish(result, StatusNetworkError, err)
		}
		if err := f.waitForHost(ctx, host); err != nil {
			return f.finish(result, StatusNetworkError, err)
		}
		attempts := result.Attempts + 1
		result = f.fetchOnce(ctx, target, timeout)
		result.Attempts = attempts

		if result.Status != StatusNetworkError || ctx.Err() != nil {
			break
		}
		if attempt == 0 {
			if err := sleepWithContext(ctx, f.retryDelay); err != nil {
				break
			}
		}
	}

	if shouldBackoff(result.Code) {
		f.applyBackoff(host, 0)
	}
	result.FetchedAt = f.now()
	return result
}

func (f *CollyFetcher) finish(result FetchResult, status FetchStatus, err error) FetchResult {
	result.Status = status
	result.Err = err
	result.FetchedAt = f.now()
	return result
}

func (f *CollyFetcher) fetchOnce(ctx context.Context, target string, timeout time.Duration) FetchResult {
	c := f.newCollector(timeout)

	var (
		status      int
		body        []byte
		contentType string
		reqErr      error
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	collyCtx := colly.NewContext()
	collyCtx.Put("ctx", ctx)

	err := c.Request(http.MethodGet, target, nil, collyCtx, nil)
	if err == nil {
		err = reqErr
	}

	result := FetchResult{URL: target, Code: status}
	switch {
	case err == nil && status == 0 && ctx.Err() != nil:
		// aborted in OnRequest
		result.Status = StatusNetworkError
		result.Err = ctx.Err()
	case err == nil && status < 400:
		if status == 0 {
			result.Code = http.StatusOK
		}
		result.Status = StatusOK
		result.Body = body
		result.ContentType = contentType
	case status >= 400:
		if err == nil {
			err = errors.New(http.StatusText(status))
		}
		result.Status = StatusHTTPError
		result.Err = &FetchError{Status: status, Err: err}
	case isTimeout(err):
		result.Status = StatusTimeout
		result.Err = err
	default:
		if err == nil {
			err = fmt.Errorf("status %d", status)
		}
		result.Status = StatusNetworkError
		result.Err = err
	}
	return result
}

func (f *CollyFetcher) newCollector(timeout time.Duration) *colly.Collector {
	c := colly.NewCollector(colly.UserAgent(f.userAgent))
	// robots.txt is answered by RobotsGate so a block becomes a result variant.
	c.IgnoreRobotsTxt = true
	c.DetectCharset = true
	// every status reaches OnResponse; fetchOnce decides what counts as an error
	c.ParseHTTPErrorResponse = true
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	if f.transport != nil {
		c.WithTransport(f.transport)
	}

	c.OnRequest(func(r *colly.Request) {
		ctx := context.Background()
		if v := r.Ctx.GetAny("ctx"); v != nil {
			if reqCtx, ok := v.(context.Context); ok {
				ctx = reqCtx
			}
		}
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	return c
}

func (f *CollyFetcher) waitForHost(ctx context.Context, host string) error {
	policy := f.hostPolicy(host)
	if err := policy.waitBackoff(ctx); err != nil {
		return err
	}
	return policy.limiter.Wait(ctx)
}

func (f *CollyFetcher) hostPolicy(host string) *hostPolicy {
	key := normalizeHost(host)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getOrCreatePolicyLocked(key)
}

func (f *CollyFetcher) getOrCreatePolicyLocked(host string) *hostPolicy {
	if host == "" {
		host = "default"
	}
	if policy, ok := f.hosts[host]; ok {
		return policy
	}
	policy := &hostPolicy{
		limiter: rate.NewLimiter(f.defaultRate, f.defaultBurst),
	}
	f.hosts[host] = policy
	return policy
}

func (f *CollyFetcher) applyBackoff(host string, attempt int) {
	if attempt < 0 {
		attempt = 0
	}
	policy := f.hostPolicy(host)
	delay := time.Duration(500*(1<<attempt)) * time.Millisecond
	policy.mu.Lock()
	next := time.Now().Add(delay)
	if next.After(policy.nextAllowed) {
		policy.nextAllowed = next
	}
	policy.mu.Unlock()
}

func normalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String(), nil
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	return host
}

func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "default"
	}
	return normalizeHost(u.Hostname())
}

func shouldBackoff(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if status >= 500 && status <= 599 {
		return true
	}
	return false
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *hostPolicy) waitBackoff(ctx context.Context) error {
	for {
		p.mu.Lock()
		next := p.nextAllowed
		p.mu.Unlock()
		now := time.Now()
		if !now.Before(next) {
			return nil
		}
		if err := sleepWithContext(ctx, next.Sub(now)); err != nil {
			return err
		}
	}
}
