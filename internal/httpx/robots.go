package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsGate answers robots.txt questions per host, caching one RobotsData per host.
// It fails open: an unreachable or broken robots.txt allows everything.
type RobotsGate struct {
	client *http.Client
	ua     string
	wait   func(ctx context.Context, host string) error
	cache  map[string]*robotstxt.RobotsData
	mu     sync.Mutex
}

func NewRobotsGate(userAgent string, transport http.RoundTripper, wait func(context.Context, string) error) *RobotsGate {
	client := &http.Client{}
	if transport != nil {
		client.Transport = transport
	}
	return &RobotsGate{
		client: client,
		ua:     userAgent,
		wait:   wait,
		cache:  map[string]*robotstxt.RobotsData{},
	}
}

// Allowed reports whether a GET of rawURL is permitted for the gate's user agent.
func (g *RobotsGate) Allowed(ctx context.Context, rawURL string, timeout time.Duration) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	data := g.robotsFor(ctx, u, timeout)
	if data == nil {
		return true
	}
	group := data.FindGroup(g.ua)
	if group == nil {
		group = data.FindGroup("*")
	}
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

func (g *RobotsGate) robotsFor(ctx context.Context, u *url.URL, timeout time.Duration) *robotstxt.RobotsData {
	key := strings.ToLower(u.Host)
	g.mu.Lock()
	if data, ok := g.cache[key]; ok {
		g.mu.Unlock()
		return data
	}
	g.mu.Unlock()

	data, err := g.download(ctx, u, timeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		slog.Debug("robots.txt unavailable, allowing", "host", u.Host, "error", err)
	}

	g.mu.Lock()
	g.cache[key] = data
	g.mu.Unlock()
	return data
}

func (g *RobotsGate) download(ctx context.Context, u *url.URL, timeout time.Duration) (*robotstxt.RobotsData, error) {
	if g.wait != nil {
		if err := g.wait(ctx, u.Hostname()); err != nil {
			return nil, err
		}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.ua)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// 5xx would make robotstxt disallow the whole host; treat it like a missing file.
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("robots.txt status %d", resp.StatusCode)
	}
	return robotstxt.FromResponse(resp)
}
