// Package detect implements the update decision policy.
//
// Two mutually exclusive detection modes exist per run: commit-based
// (default), keyed on upstream source-control identity, and version-based
// fallback, keyed on semantic version ordering. Both also consider a
// manual release bump: a human incremented pkgrel out-of-band, visible as
// the local recipe being ahead of the AUR reference snapshot while version
// and commit are identical.
package detect

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Masterminds/semver/v3"

	"github.com/curbot/curbot/internal/config"
	"github.com/curbot/curbot/internal/log"
	"github.com/curbot/curbot/internal/pkgbuild"
	"github.com/curbot/curbot/internal/upstream"
)

// ErrVersionConflict reports the fallback-mode conflict state: upstream
// published the same version under a different commit, so pkgrel cannot be
// safely auto-incremented. Requires human intervention.
var ErrVersionConflict = errors.New("same version with different commit requires manual pkgrel adjustment")

// Decision is the record handed from the detector to the patcher. Created
// once per run, written to the transport file, read once, discarded.
// Release counters travel as strings to match the recipe's textual fields.
type Decision struct {
	UpdateNeeded bool   `json:"update_needed"`
	LocalVersion string `json:"local_version"`
	LocalRel     string `json:"local_rel"`
	LocalCommit  string `json:"local_commit"`
	DownloadURL  string `json:"download_url"`
	NewVersion   string `json:"new_version"`
	NewRel       string `json:"new_rel"`
	NewCommit    string `json:"new_commit"`

	LatestVersion string `json:"latest_version"`
	LatestCommit  string `json:"latest_commit"`

	AURVersion string `json:"aur_version"`
	AURRel     string `json:"aur_rel"`
	AURCommit  string `json:"aur_commit"`

	// ManualRelUpdate records whether the manual-bump signal fired.
	// Diagnostic only; not part of the transport contract.
	ManualRelUpdate bool `json:"-"`
}

// Detect compares local recipe state against the latest upstream release
// and the optional AUR reference snapshot, and produces the Decision.
// Returns ErrVersionConflict (wrapped) in the fallback-mode conflict state.
func Detect(local pkgbuild.Info, latest upstream.Release, aur *pkgbuild.Info, cfg *config.Config, logger log.Logger) (Decision, error) {
	d := Decision{
		LocalVersion:  local.Version,
		LocalRel:      local.Rel,
		LocalCommit:   local.Commit,
		DownloadURL:   latest.DownloadURL,
		LatestVersion: latest.Version,
		LatestCommit:  latest.Commit,
	}
	if aur != nil {
		d.AURVersion = aur.Version
		d.AURRel = aur.Rel
		d.AURCommit = aur.Commit
	}

	d.ManualRelUpdate = isManualRelUpdate(local, aur)
	commitChanged := latest.Commit != local.Commit

	logger.Debug("detection inputs",
		"local_version", local.Version, "local_rel", local.Rel, "local_commit", local.Commit,
		"latest_version", latest.Version, "latest_commit", latest.Commit,
		"commit_based", cfg.CommitBasedUpdates, "version_protection", cfg.VersionProtection)
	logger.Debug("commit update needed", "value", commitChanged)
	logger.Debug("manual release update needed", "value", d.ManualRelUpdate)

	if cfg.CommitBasedUpdates {
		detectCommitBased(&d, local, latest, commitChanged, logger)
	} else {
		if err := detectVersionBased(&d, local, latest, commitChanged, cfg, logger); err != nil {
			return Decision{}, err
		}
	}

	logger.Debug("decision",
		"update_needed", d.UpdateNeeded,
		"new_version", d.NewVersion, "new_rel", d.NewRel, "new_commit", d.NewCommit)
	return d, nil
}

// detectCommitBased applies the default policy. A genuine upstream commit
// change always wins over a simultaneous manual-bump signal; the manual
// branch is taken only when it is the sole trigger.
func detectCommitBased(d *Decision, local pkgbuild.Info, latest upstream.Release, commitChanged bool, logger log.Logger) {
	d.UpdateNeeded = commitChanged || d.ManualRelUpdate

	switch {
	case commitChanged:
		d.NewVersion = latest.Version
		d.NewCommit = latest.Commit
		if latest.Version != local.Version {
			// New upstream version: release counter resets.
			d.NewRel = "1"
			logger.Debug("version changed, resetting pkgrel")
		} else {
			// Same version under a new commit: rebuild, counter increments.
			d.NewRel = incrementRel(local.Rel)
			logger.Debug("same version with new commit, incrementing pkgrel")
		}
	case d.ManualRelUpdate:
		// Recipe already correct; the counter was bumped by hand.
		d.NewVersion = local.Version
		d.NewCommit = local.Commit
		d.NewRel = local.Rel
		logger.Debug("manual release bump only, keeping local state")
	default:
		d.NewVersion = local.Version
		d.NewCommit = local.Commit
		d.NewRel = local.Rel
	}
}

// detectVersionBased applies the fallback policy keyed on version strings.
func detectVersionBased(d *Decision, local pkgbuild.Info, latest upstream.Release, commitChanged bool, cfg *config.Config, logger log.Logger) error {
	versionChanged := latest.Version != local.Version
	if versionChanged && cfg.VersionProtection {
		versionChanged = versionHigher(latest.Version, local.Version, logger)
	}

	d.UpdateNeeded = versionChanged || commitChanged || d.ManualRelUpdate

	switch {
	case versionChanged:
		d.NewVersion = latest.Version
		d.NewCommit = latest.Commit
		d.NewRel = "1"
	case commitChanged:
		logger.Error("fallback mode detected same version with different commit",
			"local_version", local.Version, "local_commit", local.Commit,
			"latest_version", latest.Version, "latest_commit", latest.Commit)
		return fmt.Errorf("%w: local %s@%s, latest %s@%s", ErrVersionConflict,
			local.Version, local.Commit, latest.Version, latest.Commit)
	case d.ManualRelUpdate:
		d.NewVersion = local.Version
		d.NewCommit = local.Commit
		d.NewRel = local.Rel
	default:
		d.NewVersion = local.Version
		d.NewCommit = local.Commit
		d.NewRel = local.Rel
	}
	return nil
}

// isManualRelUpdate reports whether the local recipe is version- and
// commit-identical to the AUR snapshot but carries a strictly higher
// release counter.
func isManualRelUpdate(local pkgbuild.Info, aur *pkgbuild.Info) bool {
	if aur == nil || aur.Rel == "" || local.Rel == "" {
		return false
	}
	if aur.Version != local.Version || aur.Commit != local.Commit {
		return false
	}
	localRel, err1 := strconv.Atoi(local.Rel)
	aurRel, err2 := strconv.Atoi(aur.Rel)
	if err1 != nil || err2 != nil {
		return false
	}
	return localRel > aurRel
}

// incrementRel bumps the textual release counter by one.
func incrementRel(rel string) string {
	n, err := strconv.Atoi(rel)
	if err != nil {
		// Unparseable counter: a rebuild is still a rebuild.
		return "2"
	}
	return strconv.Itoa(n + 1)
}

// versionHigher reports whether a is strictly higher than b.
// Unparseable versions compare as not-higher.
func versionHigher(a, b string, logger log.Logger) bool {
	va, err := semver.NewVersion(a)
	if err != nil {
		logger.Warn("invalid version format", "version", a)
		return false
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		logger.Warn("invalid version format", "version", b)
		return false
	}
	return va.GreaterThan(vb)
}
