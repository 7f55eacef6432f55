package electron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/curbot/curbot/internal/archive"
	"github.com/curbot/curbot/internal/config"
	"github.com/curbot/curbot/internal/httputil"
	"github.com/curbot/curbot/internal/log"
)

const (
	// FallbackTag is returned when the Electron version cannot be
	// determined. Never load-bearing for the update decision itself.
	FallbackTag = "electron28"

	// resolverRetries is the number of additional attempts after the
	// first tarball fetch or lockfile parse fails.
	resolverRetries = 3

	// resolverRetryDelay is the fixed sleep between attempts.
	resolverRetryDelay = 2 * time.Second
)

// Resolver fetches the VSCode source tarball for a given version and reads
// the pinned Electron version out of its package-lock.json.
type Resolver struct {
	http        *http.Client
	gh          *github.Client
	repo        string // owner/name
	tarballBase string // scheme://host prefix for the public archive URL
	logger      log.Logger
	sleep       func(time.Duration)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTarballBase overrides the public archive host, used in tests.
func WithTarballBase(base string) ResolverOption {
	return func(r *Resolver) { r.tarballBase = base }
}

// WithSleep replaces the retry delay function, used in tests.
func WithSleep(f func(time.Duration)) ResolverOption {
	return func(r *Resolver) { r.sleep = f }
}

// WithHTTPClient replaces the HTTP client, used in tests.
func WithHTTPClient(h *http.Client) ResolverOption {
	return func(r *Resolver) { r.http = h }
}

// NewResolver builds a Resolver. When a GitHub token is configured, tarball
// locations are resolved through the API (authenticated, immune to
// anonymous rate limits); otherwise the public archive URL is used.
func NewResolver(cfg *config.Config, logger log.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		http:        httputil.NewClient(httputil.ClientOptions{Timeout: cfg.DownloadTimeout}),
		repo:        cfg.VSCodeRepo,
		tarballBase: "https://github.com",
		logger:      logger,
		sleep:       time.Sleep,
	}
	if cfg.GitHubToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
		r.gh = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DerivedTag resolves the Electron major-version tag for the given VSCode
// version, e.g. "electron34". Never fails: after exhausting retries (or
// given an empty version) it returns FallbackTag.
func (r *Resolver) DerivedTag(ctx context.Context, vscodeVersion string) string {
	if vscodeVersion == "" {
		r.logger.Debug("no VSCode version available, using fallback", "tag", FallbackTag)
		return FallbackTag
	}

	for attempt := 0; attempt <= resolverRetries; attempt++ {
		if attempt > 0 {
			r.logger.Debug("retrying electron resolution", "attempt", attempt+1, "delay", resolverRetryDelay)
			r.sleep(resolverRetryDelay)
		}

		tag, err := r.resolve(ctx, vscodeVersion)
		if err == nil {
			r.logger.Debug("resolved electron tag", "tag", tag, "vscode_version", vscodeVersion)
			return tag
		}
		r.logger.Warn("electron resolution attempt failed",
			"attempt", attempt+1, "vscode_version", vscodeVersion, "error", err)
	}

	r.logger.Warn("failed to determine electron version after all retries", "fallback", FallbackTag)
	return FallbackTag
}

func (r *Resolver) resolve(ctx context.Context, vscodeVersion string) (string, error) {
	data, err := r.fetchTarball(ctx, vscodeVersion)
	if err != nil {
		return "", err
	}

	member := fmt.Sprintf("vscode-%s/package-lock.json", vscodeVersion)
	lockData, err := archive.TarMember(bytes.NewReader(data), "vscode.tar.gz", member)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", member, err)
	}

	version, err := electronVersion(lockData)
	if err != nil {
		return "", err
	}

	major, _, _ := strings.Cut(version, ".")
	return "electron" + major, nil
}

// fetchTarball downloads the source tree archive for the tagged version.
func (r *Resolver) fetchTarball(ctx context.Context, vscodeVersion string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/archive/refs/tags/%s.tar.gz", r.tarballBase, r.repo, vscodeVersion)

	if r.gh != nil {
		if resolved := r.archiveLinkViaAPI(ctx, vscodeVersion); resolved != "" {
			url = resolved
		}
	}

	r.logger.Debug("downloading vscode tarball", "url", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating tarball request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading tarball: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tarball download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tarball body: %w", err)
	}
	return data, nil
}

// archiveLinkViaAPI asks the GitHub API for the tarball location. Returns
// "" on any failure; the caller keeps the public URL.
func (r *Resolver) archiveLinkViaAPI(ctx context.Context, vscodeVersion string) string {
	owner, name, ok := strings.Cut(r.repo, "/")
	if !ok {
		return ""
	}
	u, _, err := r.gh.Repositories.GetArchiveLink(ctx, owner, name, github.Tarball,
		&github.RepositoryContentGetOptions{Ref: "refs/tags/" + vscodeVersion}, 1)
	if err != nil {
		r.logger.Debug("archive link lookup failed, using public URL", "error", err)
		return ""
	}
	return u.String()
}

// lockPackage is one entry of package-lock.json's "packages" map.
type lockPackage struct {
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// packageLock covers the lockfile shapes across npm lockfile versions.
type packageLock struct {
	Dependencies map[string]struct {
		Version string `json:"version"`
	} `json:"dependencies"`
	Packages map[string]lockPackage `json:"packages"`
}

// electronVersion reads the pinned electron version out of a
// package-lock.json, trying the known manifest shapes in priority order
// and using the first that yields a value:
//
//  1. top-level dependencies.electron.version (lockfile v1)
//  2. packages[""].dependencies.electron, falling back to
//     packages[""].devDependencies.electron (lockfile v2/v3 root package)
//  3. packages["node_modules/electron"].version
func electronVersion(data []byte) (string, error) {
	var lock packageLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return "", fmt.Errorf("parsing package-lock.json: %w", err)
	}

	if dep, ok := lock.Dependencies["electron"]; ok && dep.Version != "" {
		return dep.Version, nil
	}
	if root, ok := lock.Packages[""]; ok {
		if v := root.Dependencies["electron"]; v != "" {
			return v, nil
		}
		if v := root.DevDependencies["electron"]; v != "" {
			return v, nil
		}
	}
	if pkg, ok := lock.Packages["node_modules/electron"]; ok && pkg.Version != "" {
		return pkg.Version, nil
	}
	return "", fmt.Errorf("electron dependency not found in package-lock.json")
}
