package linkedin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://www.linkedin.com/jobs/search"

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Search is the fixed query a run watches.
type Search struct {
	BaseURL  string
	Keywords string
	Location string
	GeoID    string
	Recency  string // f_TPR value, e.g. r86400 for the last 24h
}

// URL builds the public guest search URL.
func (s Search) URL() string {
	base := s.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	q := url.Values{}
	if s.Keywords != "" {
		q.Set("keywords", s.Keywords)
	}
	if s.Location != "" {
		q.Set("location", s.Location)
	}
	if s.GeoID != "" {
		q.Set("geoId", s.GeoID)
	}
	if s.Recency != "" {
		q.Set("f_TPR", s.Recency)
	}
	if len(q) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

type Config struct {
	Search    Search
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64

	// RequestsPerSecond paces attempts against the search host; 0 means unpaced.
	RequestsPerSecond float64
	// Retries is the number of extra attempts after a 429, a 5xx or a
	// transport error.
	Retries int
}

// Fetcher GETs the search page. It stands in for a browser: the guest search
// page is server-rendered, so the card markup is present without scripts.
type Fetcher struct {
	cfg     Config
	hc      *http.Client
	limiter *rate.Limiter
}

func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 8 << 20
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	r := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		r = rate.Inf
	}
	return &Fetcher{
		cfg:     cfg,
		hc:      &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(r, 1),
	}
}

func (f *Fetcher) Name() string { return "linkedin" }

var ErrEmptyPage = errors.New("linkedin search returned an empty page")

func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	u := f.cfg.Search.URL()

	var lastErr error
	for attempt := 0; attempt <= f.cfg.Retries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return "", fmt.Errorf("linkedin rate limit wait: %w (last error: %v)", err, lastErr)
			}
			return "", fmt.Errorf("linkedin rate limit wait: %w", err)
		}

		body, retryable, err := f.fetchOnce(ctx, u)
		if err == nil {
			return body, nil
		}
		if !retryable || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// fetchOnce does a single GET. retryable is true for throttling, server
// errors and transport failures.
func (f *Fetcher) fetchOnce(ctx context.Context, u string) (body string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, fmt.Errorf("linkedin build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	res, err := f.hc.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("linkedin get search: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 256))
		retry := res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500
		return "", retry, fmt.Errorf("linkedin search status %d: %q", res.StatusCode, string(b))
	}

	b, err := io.ReadAll(io.LimitReader(res.Body, f.cfg.MaxBytes))
	if err != nil {
		return "", true, fmt.Errorf("linkedin read search: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return "", false, ErrEmptyPage
	}
	return string(b), false, nil
}
