package functional

import (
	"context"
	"errors"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/curbot/curbot/internal/detect"
	"github.com/curbot/curbot/internal/log"
	"github.com/curbot/curbot/internal/pkgbuild"
	"github.com/curbot/curbot/internal/upstream"
	"github.com/curbot/curbot/internal/validate"
)

func aLocalRecipe(ctx context.Context, version, rel, commit string) error {
	state := getState(ctx)
	state.local = pkgbuild.Info{Version: version, Rel: rel, Commit: commit}
	return nil
}

func theLatestRelease(ctx context.Context, version, commit string) error {
	state := getState(ctx)
	state.latest = upstream.Release{
		Version:     version,
		Commit:      commit,
		DownloadURL: upstream.DownloadURL(state.cfg.DownloadsBaseURL, commit, version),
	}
	return nil
}

func theAURSnapshot(ctx context.Context, version, rel, commit string) error {
	state := getState(ctx)
	state.aur = &pkgbuild.Info{Version: version, Rel: rel, Commit: commit}
	return nil
}

func theAURSnapshotIsUnavailable(ctx context.Context) error {
	getState(ctx).aur = nil
	return nil
}

func commitBasedUpdatesAreDisabled(ctx context.Context) error {
	getState(ctx).cfg.CommitBasedUpdates = false
	return nil
}

func versionProtectionIsEnabled(ctx context.Context) error {
	getState(ctx).cfg.VersionProtection = true
	return nil
}

func iRunUpdateDetection(ctx context.Context) error {
	state := getState(ctx)
	state.decision, state.err = detect.Detect(state.local, state.latest, state.aur, state.cfg, log.NewNoop())
	return nil
}

func anUpdateIsNeeded(ctx context.Context) error {
	state := getState(ctx)
	if state.err != nil {
		return fmt.Errorf("detection failed: %w", state.err)
	}
	if !state.decision.UpdateNeeded {
		return fmt.Errorf("expected an update, decision was %+v", state.decision)
	}
	return nil
}

func noUpdateIsNeeded(ctx context.Context) error {
	state := getState(ctx)
	if state.err != nil {
		return fmt.Errorf("detection failed: %w", state.err)
	}
	if state.decision.UpdateNeeded {
		return fmt.Errorf("expected no update, decision was %+v", state.decision)
	}
	return nil
}

func theNewVersionIs(ctx context.Context, version, rel string) error {
	state := getState(ctx)
	if state.decision.NewVersion != version {
		return fmt.Errorf("new version is %q, expected %q", state.decision.NewVersion, version)
	}
	if state.decision.NewRel != rel {
		return fmt.Errorf("new rel is %q, expected %q", state.decision.NewRel, rel)
	}
	return nil
}

func theNewCommitIs(ctx context.Context, commit string) error {
	state := getState(ctx)
	if state.decision.NewCommit != commit {
		return fmt.Errorf("new commit is %q, expected %q", state.decision.NewCommit, commit)
	}
	return nil
}

func detectionFailsWithAVersionConflict(ctx context.Context) error {
	state := getState(ctx)
	if !errors.Is(state.err, detect.ErrVersionConflict) {
		return fmt.Errorf("expected a version conflict, got err=%v decision=%+v", state.err, state.decision)
	}
	return nil
}

func aPatchedRecipe(ctx context.Context, doc *godog.DocString) error {
	getState(ctx).content = doc.Content
	return nil
}

func iValidateIt(ctx context.Context, version, rel, commit, electron string) error {
	state := getState(ctx)
	state.report = validate.Run(state.content, validate.Expected{
		Version:  version,
		Rel:      rel,
		Commit:   commit,
		Electron: electron,
	})
	return nil
}

func validationSucceeds(ctx context.Context) error {
	state := getState(ctx)
	if !state.report.ValidationSuccessful {
		return fmt.Errorf("validation failed: %+v", state.report.Checks)
	}
	return nil
}

func validationFailsOn(ctx context.Context, name string) error {
	state := getState(ctx)
	if state.report.ValidationSuccessful {
		return fmt.Errorf("expected validation to fail on %q", name)
	}
	for _, c := range state.report.Checks {
		if c.Check == name && c.Status == validate.StatusFail {
			return nil
		}
	}
	return fmt.Errorf("check %q did not fail: %+v", name, state.report.Checks)
}
