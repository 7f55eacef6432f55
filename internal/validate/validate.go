// Package validate checks a patched PKGBUILD against the values the update
// run computed for it. Checks never short-circuit: every check runs and
// reports, so one broken field does not hide another.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Sentinels frame the JSON report on stdout so a capturing harness can cut
// it out of surrounding log noise.
const (
	SentinelStart = "=== PKGBUILD_VALIDATION_START ==="
	SentinelEnd   = "=== PKGBUILD_VALIDATION_END ==="
)

// Check statuses.
const (
	StatusPass = "pass"
	StatusFail = "fail"
	StatusWarn = "warn"
)

// Expected holds the values the recipe must carry after an update.
type Expected struct {
	Version  string
	Rel      string
	Commit   string
	Electron string
	Checksum string
}

// Check is one validation result.
type Check struct {
	Check   string `json:"check"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Report is the full validation outcome. Advisory checks report with
// StatusWarn and never flip ValidationSuccessful.
type Report struct {
	ValidationSuccessful bool     `json:"validation_successful"`
	Checks               []Check  `json:"checks"`
	PkgbuildContent      string   `json:"pkgbuild_content"`
	Errors               []string `json:"errors"`
}

var (
	versionRe  = regexp.MustCompile(`(?m)^pkgver=(\S+)`)
	relRe      = regexp.MustCompile(`(?m)^pkgrel=(\S+)`)
	commitRe   = regexp.MustCompile(`(?m)^_commit=(\S+)`)
	electronRe = regexp.MustCompile(`(?m)^\s*_electron=(\S+)`)

	semverRe   = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	hexCommit  = regexp.MustCompile(`^[a-f0-9]{40}$`)
	hexSHA512  = regexp.MustCompile(`^[a-f0-9]{128}$`)
	titlebarRe = regexp.MustCompile(`(?is)sed -i.*l\.frame=!1.*native.*titlebar`)
)

func (r *Report) add(name, status, message string) {
	r.Checks = append(r.Checks, Check{Check: name, Status: status, Message: message})
	if status == StatusFail {
		r.ValidationSuccessful = false
	}
}

// Run validates content against the expected values and returns the report.
// The recipe fields are re-derived from the content with this package's own
// patterns rather than trusting the patcher's bookkeeping.
func Run(content string, expect Expected) *Report {
	r := &Report{ValidationSuccessful: true, PkgbuildContent: content, Errors: []string{}, Checks: []Check{}}

	checkField(r, "version", versionRe, content, expect.Version, func(v string) string {
		if !semverRe.MatchString(v) {
			return fmt.Sprintf("version %q is not in major.minor.patch form", v)
		}
		return ""
	})

	checkField(r, "pkgrel", relRe, content, expect.Rel, func(v string) string {
		if n, err := strconv.Atoi(v); err != nil || n < 1 {
			return fmt.Sprintf("pkgrel %q is not a positive integer", v)
		}
		return ""
	})

	checkField(r, "commit", commitRe, content, expect.Commit, func(v string) string {
		if !hexCommit.MatchString(v) {
			return fmt.Sprintf("commit %q is not a 40-character hex hash", v)
		}
		return ""
	})

	checkField(r, "electron", electronRe, content, expect.Electron, nil)

	if expect.Checksum != "" && !hexSHA512.MatchString(expect.Checksum) {
		r.add("checksum", StatusFail, fmt.Sprintf("expected checksum %q is not a 128-character hex digest", expect.Checksum))
	} else if expect.Checksum == "" {
		r.add("checksum", StatusWarn, "no expected checksum provided, skipping")
	} else if strings.Contains(content, expect.Checksum) {
		r.add("checksum", StatusPass, "SHA512 checksum is correct")
	} else {
		r.add("checksum", StatusFail, "SHA512 checksum is incorrect")
	}

	if titlebarRe.MatchString(content) {
		r.add("titlebar_fix", StatusPass, "Native titlebar fix is present")
	} else if strings.Contains(content, "Fix native title bar") {
		r.add("titlebar_fix", StatusPass, "Native titlebar fix comment found")
	} else {
		r.add("titlebar_fix", StatusFail, "Native titlebar fix is missing")
	}

	if strings.Contains(content, ".deb") && !strings.Contains(content, "AppImage") {
		r.add("deb_format", StatusPass, "Using .deb format (not AppImage)")
	} else {
		r.add("deb_format", StatusFail, "Not using .deb format or still references AppImage")
	}

	if strings.Contains(content, "bsdtar -xf data.tar.xz") {
		r.add("extraction", StatusPass, "Using bsdtar for .deb extraction")
	} else {
		r.add("extraction", StatusFail, "Not using bsdtar for .deb extraction")
	}

	if strings.Contains(content, `ln -sf /usr/share/cursor/cursor "$pkgdir"/usr/bin/cursor`) {
		r.add("binary_link", StatusPass, "Binary symlink is correct")
	} else {
		r.add("binary_link", StatusFail, "Binary symlink is missing or incorrect")
	}

	return r
}

// checkField extracts the field with re, applies the format check when one
// is given and then compares against the expected value. An empty expected
// value turns the comparison into a warn-only presence check.
func checkField(r *Report, name string, re *regexp.Regexp, content, expected string, format func(string) string) {
	m := re.FindStringSubmatch(content)
	if m == nil {
		r.add(name, StatusFail, fmt.Sprintf("%s field not found", name))
		return
	}
	value := m[1]
	if format != nil {
		if msg := format(value); msg != "" {
			r.add(name, StatusFail, msg)
			return
		}
	}
	if expected == "" {
		r.add(name, StatusWarn, fmt.Sprintf("%s is %s (no expected value to compare)", name, value))
		return
	}
	if value != expected {
		r.add(name, StatusFail, fmt.Sprintf("%s is %s, expected %s", name, value, expected))
		return
	}
	r.add(name, StatusPass, fmt.Sprintf("%s is %s", name, value))
}

// Prober reports whether a URL is reachable.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

// ProbeDownload runs the advisory reachability check for the release
// artifact. It records an outcome but never flips ValidationSuccessful.
func (r *Report) ProbeDownload(ctx context.Context, p Prober, url string) {
	if url == "" {
		return
	}
	if err := p.Probe(ctx, url); err != nil {
		r.add("download_probe", StatusWarn, fmt.Sprintf("download URL not confirmed reachable: %v", err))
		return
	}
	r.add("download_probe", StatusPass, "download URL is reachable")
}

// Write emits the sentinel-framed indented JSON report.
func (r *Report) Write(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n%s\n%s\n", SentinelStart, data, SentinelEnd); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

