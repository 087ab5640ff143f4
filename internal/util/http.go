package util

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
)

const DefaultUserAgent = "Mozilla/5.0 (compatible; GithubActionsLinkChecker/1.0)"

type HTTPClientOptions struct {
	Timeout         time.Duration
	UserAgent       string
	MaxConnsPerHost int
	// BasicAuth is "user:password", sent only to AuthHost.
	BasicAuth string
	AuthHost  string
	// CloudflareBypass wraps the transport so that external hosts fronted
	// by Cloudflare's browser check answer like they would to a browser.
	CloudflareBypass bool
	Transport        http.RoundTripper
	DebugLogger      interface {
		Debugf(string, ...any)
	}
}

func NewHTTPClient(opts HTTPClientOptions) (*http.Client, error) {
	var baseTransport http.RoundTripper
	if opts.Transport != nil {
		baseTransport = opts.Transport
	} else {
		perHost := opts.MaxConnsPerHost
		if perHost <= 0 {
			perHost = 100
		}
		baseTransport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxConnsPerHost:     perHost,
			MaxIdleConnsPerHost: perHost,
			ForceAttemptHTTP2:   true,
		}
	}

	if opts.CloudflareBypass {
		baseTransport = cloudflarebp.AddCloudFlareByPass(baseTransport)
	}

	user, pass, _ := strings.Cut(opts.BasicAuth, ":")

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: roundTripper{
			base:     baseTransport,
			ua:       opts.UserAgent,
			user:     user,
			pass:     pass,
			authHost: opts.AuthHost,
			log:      opts.DebugLogger,
		},
	}

	if opts.DebugLogger != nil {
		opts.DebugLogger.Debugf("HTTP client initialized (timeout=%s, ua=%q, cf_bypass=%t)",
			opts.Timeout, opts.UserAgent, opts.CloudflareBypass)
	}

	return client, nil
}

type roundTripper struct {
	base       http.RoundTripper
	ua         string
	user, pass string
	authHost   string
	log        interface{ Debugf(string, ...any) }
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.ua != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", rt.ua)
	}

	if rt.user != "" && rt.authHost != "" && strings.EqualFold(req.URL.Host, rt.authHost) {
		req.SetBasicAuth(rt.user, rt.pass)
	}

	if rt.log != nil {
		rt.log.Debugf("HTTP %s %s", req.Method, req.URL.Redacted())
	}

	return rt.base.RoundTrip(req)
}

// Retryable reports whether a response status is worth another attempt.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry executes req, retrying transport errors, 429 and 5xx with
// linear backoff. Requests with a body must have GetBody set, which
// http.NewRequest does for in-memory readers. The last response is returned
// as-is so callers can inspect its status.
func DoWithRetry(ctx context.Context, c *http.Client, req *http.Request, attempts int, backoff time.Duration) (*http.Response, error) {
	if attempts < 1 {
		attempts = 1
	}

	var resp *http.Response
	var err error

	for i := 1; i <= attempts; i++ {
		if i > 1 && req.GetBody != nil {
			body, gerr := req.GetBody()
			if gerr != nil {
				return nil, gerr
			}
			req.Body = body
		}

		resp, err = c.Do(req.WithContext(ctx))
		if err == nil && !Retryable(resp.StatusCode) {
			return resp, nil
		}
		if i == attempts {
			break
		}

		wait := backoff * time.Duration(i)
		if resp != nil {
			if ra := retryAfter(resp); ra > 0 {
				wait = ra
			}
			_ = resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("after %d attempts: %w", attempts, err)
	}

	return resp, nil
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
		return min(time.Duration(sec)*time.Second, time.Minute)
	}
	return 0
}

func PickUserAgent(override string) string {
	if override != "" {
		return override
	}

	return DefaultUserAgent
}
