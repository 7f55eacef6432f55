// Package config builds the single explicit configuration struct for a
// curbot run. All environment and file reads happen here, once, at process
// start; no other package reads ambient state.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// EnvDebug enables verbose decision tracing.
	EnvDebug = "DEBUG"

	// EnvVersionProtection requires a strictly higher upstream version in
	// version-based fallback mode.
	EnvVersionProtection = "VERSION_PROTECTION"

	// EnvCommitBasedUpdates selects commit-based update detection.
	// Defaults to true.
	EnvCommitBasedUpdates = "COMMIT_BASED_UPDATES"

	// EnvAPITimeout configures the per-request timeout for metadata calls.
	EnvAPITimeout = "CURBOT_API_TIMEOUT"

	// EnvDownloadTimeout configures the timeout for artifact and source
	// tarball downloads.
	EnvDownloadTimeout = "CURBOT_DOWNLOAD_TIMEOUT"

	// EnvConfigFile overrides the config file location.
	EnvConfigFile = "CURBOT_CONFIG"

	// EnvGitHubToken authenticates tarball link resolution against the
	// GitHub API, avoiding anonymous rate limits.
	EnvGitHubToken = "GITHUB_TOKEN"

	// DefaultAPITimeout bounds every metadata request. The original
	// workflow left the update check unbounded; here every call has a
	// deadline.
	DefaultAPITimeout = 30 * time.Second

	// DefaultDownloadTimeout bounds artifact downloads. The .deb is on the
	// order of 150MB, so this is deliberately generous.
	DefaultDownloadTimeout = 5 * time.Minute

	// DefaultConfigFile is looked for in the working directory.
	DefaultConfigFile = "curbot.toml"
)

// Config carries everything a run needs. Constructed once by Load and
// passed by pointer into every component.
type Config struct {
	// Debug mirrors the DEBUG environment flag.
	Debug bool

	// VersionProtection: in fallback mode, only a strictly higher version
	// triggers an update.
	VersionProtection bool

	// CommitBasedUpdates selects the detection mode (default true).
	CommitBasedUpdates bool

	APITimeout      time.Duration
	DownloadTimeout time.Duration

	// UpdateAPIURL is the upstream release-metadata endpoint.
	UpdateAPIURL string

	// AURPkgbuildURL serves the reference PKGBUILD used for manual-bump
	// detection.
	AURPkgbuildURL string

	// DownloadsBaseURL is the root of the artifact download host.
	DownloadsBaseURL string

	// VSCodeRepo is the owner/name of the companion source tree the
	// electron resolver introspects.
	VSCodeRepo string

	// GitHubToken, when set, authenticates GitHub API calls.
	GitHubToken string
}

// fileConfig is the shape of the optional curbot.toml.
type fileConfig struct {
	Endpoints struct {
		UpdateAPI     string `toml:"update_api"`
		AURPkgbuild   string `toml:"aur_pkgbuild"`
		DownloadsBase string `toml:"downloads_base"`
		VSCodeRepo    string `toml:"vscode_repo"`
	} `toml:"endpoints"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CommitBasedUpdates: true,
		APITimeout:         DefaultAPITimeout,
		DownloadTimeout:    DefaultDownloadTimeout,
		UpdateAPIURL:       "https://api2.cursor.sh/updates/api/update/linux-x64/cursor/1.0.0/hash/stable",
		AURPkgbuildURL:     "https://aur.archlinux.org/cgit/aur.git/plain/PKGBUILD?h=cursor-bin",
		DownloadsBaseURL:   "https://downloads.cursor.com",
		VSCodeRepo:         "microsoft/vscode",
	}
}

// Load builds the configuration: defaults, then the optional TOML file,
// then environment overrides (highest precedence).
func Load() (*Config, error) {
	cfg := Default()

	path := os.Getenv(EnvConfigFile)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.applyFile(path); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing TOML: %w", err)
	}
	if fc.Endpoints.UpdateAPI != "" {
		c.UpdateAPIURL = fc.Endpoints.UpdateAPI
	}
	if fc.Endpoints.AURPkgbuild != "" {
		c.AURPkgbuildURL = fc.Endpoints.AURPkgbuild
	}
	if fc.Endpoints.DownloadsBase != "" {
		c.DownloadsBaseURL = fc.Endpoints.DownloadsBase
	}
	if fc.Endpoints.VSCodeRepo != "" {
		c.VSCodeRepo = fc.Endpoints.VSCodeRepo
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Debug = envBool(EnvDebug, c.Debug)
	c.VersionProtection = envBool(EnvVersionProtection, c.VersionProtection)
	c.CommitBasedUpdates = envBool(EnvCommitBasedUpdates, c.CommitBasedUpdates)
	c.APITimeout = envDuration(EnvAPITimeout, c.APITimeout)
	c.DownloadTimeout = envDuration(EnvDownloadTimeout, c.DownloadTimeout)
	if tok := os.Getenv(EnvGitHubToken); tok != "" {
		c.GitHubToken = tok
	}
}

// envBool reads a boolean flag; only the literal "true" (any case)
// enables it, matching the original workflow's semantics.
func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// envDuration reads a duration like "30s" or "2m", clamped to a sane
// range. Invalid values keep the fallback with a warning on stderr.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using %v\n", key, v, fallback)
		return fallback
	}
	if d < time.Second {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum 1s\n", key, d)
		return time.Second
	}
	if d > 10*time.Minute {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum 10m\n", key, d)
		return 10 * time.Minute
	}
	return d
}
