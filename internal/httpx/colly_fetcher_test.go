package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

type route func(*http.Request) (*http.Response, error)

// fakeTransport serves requests by path and counts calls per path.
type fakeTransport struct {
	mu     sync.Mutex
	routes map[string]route
	calls  map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{routes: map[string]route{}, calls: map[string]int{}}
}

func (f *fakeTransport) handle(path string, r route) {
	f.routes[path] = r
}

func (f *fakeTransport) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.calls[req.URL.Path]++
	r, ok := f.routes[req.URL.Path]
	f.mu.Unlock()
	if !ok {
		return respond(req, http.StatusNotFound, "text/plain", "not found"), nil
	}
	return r(req)
}

func respond(req *http.Request, code int, contentType, body string) *http.Response {
	h := http.Header{}
	h.Set("Content-Type", contentType)
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func static(code int, body string) route {
	return func(req *http.Request) (*http.Response, error) {
		return respond(req, code, "text/html; charset=utf-8", body), nil
	}
}

func newTestFetcher(rt http.RoundTripper, opts ...Option) *CollyFetcher {
	base := []Option{
		WithTransport(rt),
		WithHostRate(1000, 100),
		WithRetryDelay(0),
		WithRobots(false),
	}
	return NewCollyFetcher("test-bot/1.0", append(base, opts...)...)
}

func TestFetchStatuses(t *testing.T) {
	rt := newFakeTransport()
	rt.handle("/careers", static(http.StatusOK, "<html><body>jobs</body></html>"))
	rt.handle("/broken", static(http.StatusInternalServerError, "oops"))
	rt.handle("/mirror", static(http.StatusNonAuthoritativeInfo, "<html><body>cached jobs</body></html>"))
	rt.handle("/empty", static(http.StatusNoContent, ""))
	f := newTestFetcher(rt)

	tests := []struct {
		name     string
		url      string
		status   FetchStatus
		code     int
		attempts int
	}{
		{name: "ok", url: "https://acme.example/careers", status: StatusOK, code: 200, attempts: 1},
		{name: "non-authoritative", url: "https://acme.example/mirror", status: StatusOK, code: 203, attempts: 1},
		{name: "no content", url: "https://acme.example/empty", status: StatusOK, code: 204, attempts: 1},
		{name: "not found", url: "https://acme.example/missing", status: StatusHTTPError, code: 404, attempts: 1},
		{name: "server error", url: "https://acme.example/broken", status: StatusHTTPError, code: 500, attempts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.Fetch(context.Background(), tt.url, 2*time.Second)
			if res.Status != tt.status {
				t.Fatalf("status = %s, want %s (err %v)", res.Status, tt.status, res.Err)
			}
			if res.Code != tt.code {
				t.Fatalf("code = %d, want %d", res.Code, tt.code)
			}
			if res.Attempts != tt.attempts {
				t.Fatalf("attempts = %d, want %d", res.Attempts, tt.attempts)
			}
			if res.FetchedAt.IsZero() {
				t.Fatal("FetchedAt not set")
			}
		})
	}

	ok := f.Fetch(context.Background(), "https://acme.example/careers", time.Second)
	if !strings.Contains(string(ok.Body), "jobs") {
		t.Fatalf("body = %q", ok.Body)
	}
	if !strings.HasPrefix(ok.ContentType, "text/html") {
		t.Fatalf("content type = %q", ok.ContentType)
	}
	if rt.count("/broken") != 1 {
		t.Fatalf("5xx was retried: %d calls", rt.count("/broken"))
	}
	var fe *FetchError
	res := f.Fetch(context.Background(), "https://other.example/missing", time.Second)
	if !errors.As(res.Err, &fe) || fe.Status != http.StatusNotFound {
		t.Fatalf("err = %v, want FetchError 404", res.Err)
	}
}

func TestFetchRetriesNetworkErrorOnce(t *testing.T) {
	rt := newFakeTransport()
	var mu sync.Mutex
	failures := 1
	rt.handle("/jobs", func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return nil, errors.New("connection reset by peer")
		}
		return respond(req, http.StatusOK, "text/html", "<a>Intern</a>"), nil
	})
	rt.handle("/down", func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	f := newTestFetcher(rt)

	res := f.Fetch(context.Background(), "https://acme.example/jobs", time.Second)
	if res.Status != StatusOK || res.Attempts != 2 {
		t.Fatalf("got status %s after %d attempts, want ok after 2 (err %v)", res.Status, res.Attempts, res.Err)
	}

	res = f.Fetch(context.Background(), "https://acme.example/down", time.Second)
	if res.Status != StatusNetworkError {
		t.Fatalf("status = %s, want network_error", res.Status)
	}
	if got := rt.count("/down"); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestFetchTimeoutIsNotRetried(t *testing.T) {
	rt := newFakeTransport()
	rt.handle("/slow", func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})
	f := newTestFetcher(rt)

	res := f.Fetch(context.Background(), "https://slow.example/slow", 50*time.Millisecond)
	if res.Status != StatusTimeout {
		t.Fatalf("status = %s, want timeout (err %v)", res.Status, res.Err)
	}
	if got := rt.count("/slow"); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestFetchCanceledContextSendsNothing(t *testing.T) {
	rt := newFakeTransport()
	rt.handle("/careers", static(http.StatusOK, "ok"))
	f := newTestFetcher(rt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := f.Fetch(ctx, "https://acme.example/careers", time.Second)
	if res.Status != StatusNetworkError || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("got %s / %v, want network_error wrapping context.Canceled", res.Status, res.Err)
	}
	if got := rt.count("/careers"); got != 0 {
		t.Fatalf("calls = %d, want 0", got)
	}
}

func TestFetchRespectsRobots(t *testing.T) {
	rt := newFakeTransport()
	rt.handle("/robots.txt", func(req *http.Request) (*http.Response, error) {
		return respond(req, http.StatusOK, "text/plain", "User-agent: *\nDisallow: /private\n"), nil
	})
	rt.handle("/private/jobs", static(http.StatusOK, "secret"))
	rt.handle("/careers", static(http.StatusOK, "open"))
	f := newTestFetcher(rt, WithRobots(true))

	res := f.Fetch(context.Background(), "https://acme.example/private/jobs", time.Second)
	if res.Status != StatusHTTPError || !errors.Is(res.Err, ErrRobotsDisallowed) {
		t.Fatalf("got %s / %v, want robots denial", res.Status, res.Err)
	}
	if rt.count("/private/jobs") != 0 {
		t.Fatal("disallowed URL was requested")
	}

	res = f.Fetch(context.Background(), "https://acme.example/careers", time.Second)
	if !res.OK() {
		t.Fatalf("allowed URL failed: %s / %v", res.Status, res.Err)
	}
	if got := rt.count("/robots.txt"); got != 1 {
		t.Fatalf("robots.txt fetched %d times, want 1", got)
	}
}

func TestHostPoliciesUseConfiguredRate(t *testing.T) {
	f := NewCollyFetcher("", WithHostRate(5, 3))
	a := f.hostPolicy("WWW.Acme.example")
	b := f.hostPolicy("beta.example")
	if a == b {
		t.Fatal("hosts share a policy")
	}
	if f.hostPolicy("acme.example") != a {
		t.Fatal("www and bare host should share a policy")
	}
	if a.limiter.Limit() != 5 || a.limiter.Burst() != 3 {
		t.Fatalf("limiter = %v/%d, want 5/3", a.limiter.Limit(), a.limiter.Burst())
	}
}

func TestShouldBackoff(t *testing.T) {
	for code, want := range map[int]bool{200: false, 404: false, 429: true, 500: true, 503: true} {
		if got := shouldBackoff(code); got != want {
			t.Errorf("shouldBackoff(%d) = %v, want %v", code, got, want)
		}
	}
}
