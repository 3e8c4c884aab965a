package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ppiankov/kgframe/internal/logging"
	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/util"
	"github.com/ppiankov/kgframe/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

const maxFetchAttempts = 3

// fetchSleepFunc is swapped out by tests
var fetchSleepFunc = time.Sleep

// Document is a fetched remote document
type Document struct {
	Name        string
	Data        []byte
	ContentType string
	FinalURL    string
}

// Fetcher downloads documents politely: robots.txt, per-host rate limits
// and a size cap
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
}

// NewFetcher creates a fetcher from the import config. limiter may be nil.
func NewFetcher(cfg model.ImportConfig, limiter *worker.Limiter) *Fetcher {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 || maxBytes > MaxFileSize {
		maxBytes = MaxFileSize
	}

	client := util.NewHTTPClient(cfg.HTTPProxy, cfg.HTTPSProxy, "")
	client.Timeout = timeout
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		limiter:    limiter,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, client, 10*time.Second)
	}
	return f
}

// Fetch retrieves rawURL, retrying transient failures
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	var delay time.Duration
	if f.robots != nil {
		allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		delay = crawlDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
				return nil, err
			}
		}
		doc, retry, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retry || attempt == maxFetchAttempts {
			break
		}
		logging.Debug("Retrying fetch", "url", rawURL, "attempt", attempt, "err", err)
		fetchSleepFunc(time.Duration(attempt) * time.Second)
	}
	return nil, lastErr
}

// fetchOnce reports whether a failure is worth retrying
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*Document, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,application/vnd.openxmlformats-officedocument.wordprocessingml.document,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, false, fmt.Errorf("%s exceeds size limit of %d bytes", rawURL, f.maxBytes)
	}

	finalURL := resp.Request.URL.String()
	return &Document{
		Name:        documentName(finalURL),
		Data:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
	}, false, nil
}

// documentName is the last path segment, or the host for a bare domain
func documentName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	base := path.Base(parsed.Path)
	if base == "/" || base == "." || base == "" {
		return parsed.Host
	}
	return base
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
