// Package upstream talks to the release-metadata endpoint, the artifact
// download host and the AUR reference recipe.
//
// The release feed is the load-bearing call: if it never yields a
// well-formed {version, url} pair with an extractable commit, the whole run
// fails. The AUR snapshot is a best-effort secondary signal used only for
// manual-bump detection.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/curbot/curbot/internal/config"
	"github.com/curbot/curbot/internal/httputil"
	"github.com/curbot/curbot/internal/log"
	"github.com/curbot/curbot/internal/pkgbuild"
)

const (
	// userAgent matches what the upstream API expects from a browser-like
	// client; the feed has been observed to reject generic Go user agents.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36" +
		" (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"

	// releaseRetries is the number of additional attempts after the first
	// release-feed request fails.
	releaseRetries = 2

	// releaseRetryDelay is the fixed sleep between release-feed attempts.
	releaseRetryDelay = 5 * time.Second

	// maxMetadataResponse caps metadata response bodies.
	maxMetadataResponse = 1 * 1024 * 1024
)

// commitPathRe extracts the 40-hex commit from the update URL path, e.g.
// /production/<commit>/linux/x64/Cursor-<version>-x86_64.AppImage.zsync
var commitPathRe = regexp.MustCompile(`/production/([a-f0-9]{40})/`)

// Release is a read-only snapshot of the latest upstream release. Fetched
// fresh on every run, never persisted.
type Release struct {
	Version     string
	Commit      string
	DownloadURL string
}

// updateResponse is the release feed's JSON shape.
type updateResponse struct {
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Client fetches upstream metadata and artifacts.
type Client struct {
	cfg      *config.Config
	api      *http.Client
	download *http.Client
	logger   log.Logger
	sleep    func(time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithSleep replaces the retry delay function, used in tests to avoid
// real sleeps.
func WithSleep(f func(time.Duration)) Option {
	return func(c *Client) { c.sleep = f }
}

// WithHTTPClient replaces both HTTP clients, used in tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.api = h
		c.download = h
	}
}

// NewClient builds a Client with hardened HTTP clients: a short-timeout
// one for metadata and a long-timeout one for artifact downloads.
func NewClient(cfg *config.Config, logger log.Logger, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		api:      httputil.NewClient(httputil.ClientOptions{Timeout: cfg.APITimeout}),
		download: httputil.NewClient(httputil.ClientOptions{Timeout: cfg.DownloadTimeout}),
		logger:   logger,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DownloadURL builds the canonical .deb location for a commit/version pair.
func DownloadURL(base, commit, version string) string {
	return fmt.Sprintf("%s/production/%s/linux/x64/deb/amd64/deb/cursor_%s_amd64.deb",
		base, commit, version)
}

// LatestRelease queries the update API for {version, url}, extracts the
// commit from the URL path and constructs the .deb download URL. Transient
// failures are retried with a fixed delay; exhausting all attempts returns
// the last error.
func (c *Client) LatestRelease(ctx context.Context) (*Release, error) {
	var lastErr error
	for attempt := 0; attempt <= releaseRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying release feed", "attempt", attempt+1, "delay", releaseRetryDelay)
			c.sleep(releaseRetryDelay)
		}

		rel, err := c.fetchRelease(ctx)
		if err == nil {
			c.logger.Debug("release feed resolved",
				"version", rel.Version, "commit", rel.Commit, "download_url", rel.DownloadURL)
			return rel, nil
		}
		c.logger.Warn("release feed request failed", "attempt", attempt+1, "error", err)
		lastErr = err
	}
	return nil, fmt.Errorf("failed to get download link after all retry attempts: %w", lastErr)
}

func (c *Client) fetchRelease(ctx context.Context) (*Release, error) {
	c.logger.Debug("requesting release feed", "url", c.cfg.UpdateAPIURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UpdateAPIURL, nil)
	if err != nil {
		return nil, wrapNetwork(err, "update-api", "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, wrapNetwork(err, "update-api", "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		typ := ErrTypeNetwork
		if resp.StatusCode == http.StatusNotFound {
			typ = ErrTypeNotFound
		}
		return nil, &FetchError{
			Type:     typ,
			Endpoint: "update-api",
			Message:  fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataResponse))
	if err != nil {
		return nil, wrapNetwork(err, "update-api", "reading response body")
	}

	var data updateResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &FetchError{Type: ErrTypeParsing, Endpoint: "update-api", Message: "invalid JSON", Err: err}
	}
	if data.Version == "" || data.URL == "" {
		return nil, &FetchError{Type: ErrTypeParsing, Endpoint: "update-api", Message: "response missing version or url"}
	}

	m := commitPathRe.FindStringSubmatch(data.URL)
	if m == nil {
		return nil, &FetchError{Type: ErrTypeParsing, Endpoint: "update-api", Message: "failed to extract commit from update URL"}
	}
	commit := m[1]

	return &Release{
		Version:     data.Version,
		Commit:      commit,
		DownloadURL: DownloadURL(c.cfg.DownloadsBaseURL, commit, data.Version),
	}, nil
}

// AURSnapshot fetches the reference PKGBUILD from the AUR and parses its
// version, release counter and commit. Returns nil with a warning when the
// snapshot is unavailable; manual-bump detection then simply does not
// trigger.
func (c *Client) AURSnapshot(ctx context.Context) *pkgbuild.Info {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.AURPkgbuildURL, nil)
	if err != nil {
		c.logger.Warn("error fetching AUR PKGBUILD", "error", err)
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.api.Do(req)
	if err != nil {
		c.logger.Warn("error fetching AUR PKGBUILD", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("error fetching AUR PKGBUILD", "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataResponse))
	if err != nil {
		c.logger.Warn("error reading AUR PKGBUILD", "error", err)
		return nil
	}

	info, err := pkgbuild.Parse(string(body))
	if err != nil {
		c.logger.Warn("unable to find version, release, or commit in AUR PKGBUILD")
		return nil
	}
	return &info
}

// DownloadArtifact fetches url fully into memory. The caller hashes and
// introspects the bytes; nothing is streamed to disk here.
func (c *Client) DownloadArtifact(ctx context.Context, url string) ([]byte, error) {
	c.logger.Debug("downloading artifact", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrapNetwork(err, "downloads", "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, wrapNetwork(err, "downloads", "artifact download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		typ := ErrTypeNetwork
		if resp.StatusCode == http.StatusNotFound {
			typ = ErrTypeNotFound
		}
		return nil, &FetchError{
			Type:     typ,
			Endpoint: "downloads",
			Message:  fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapNetwork(err, "downloads", "reading artifact body")
	}
	c.logger.Debug("artifact downloaded", "bytes", len(data))
	return data, nil
}

// Probe issues a HEAD request against url and reports whether it is
// reachable. Used by the validator's advisory liveness check.
func (c *Client) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return wrapNetwork(err, "downloads", "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.api.Do(req)
	if err != nil {
		return wrapNetwork(err, "downloads", "probe failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &FetchError{
			Type:     ErrTypeNetwork,
			Endpoint: "downloads",
			Message:  fmt.Sprintf("probe returned status %d", resp.StatusCode),
		}
	}
	return nil
}
