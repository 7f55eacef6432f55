// Package patcher applies a detected update to a PKGBUILD on disk. It owns
// the full sequence: fetch the release artifact, checksum it, introspect it
// for the bundled VSCode version, resolve the Electron tag, and rewrite the
// recipe. The artifact is downloaded exactly once and the recipe is only
// written after every earlier step has succeeded.
package patcher

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/curbot/curbot/internal/detect"
	"github.com/curbot/curbot/internal/electron"
	"github.com/curbot/curbot/internal/log"
	"github.com/curbot/curbot/internal/pkgbuild"
)

// Downloader fetches a release artifact into memory.
type Downloader interface {
	DownloadArtifact(ctx context.Context, url string) ([]byte, error)
}

// TagResolver maps a VSCode version to an Electron build tag.
type TagResolver interface {
	DerivedTag(ctx context.Context, vscodeVersion string) string
}

// Result records what Apply computed, for display and for validation.
type Result struct {
	SHA512        string
	VSCodeVersion string
	ElectronTag   string
	BackupPath    string
}

// Patcher rewrites PKGBUILDs from detector decisions.
type Patcher struct {
	downloader Downloader
	resolver   TagResolver
	logger     log.Logger
}

// New builds a Patcher from its collaborators.
func New(downloader Downloader, resolver TagResolver, logger log.Logger) *Patcher {
	return &Patcher{downloader: downloader, resolver: resolver, logger: logger}
}

// Apply downloads the artifact named by the decision, derives the new
// recipe fields and rewrites the PKGBUILD at path. When backup is set the
// previous content is kept alongside for Restore. The write is atomic;
// a failure at any step leaves the recipe untouched.
func (p *Patcher) Apply(ctx context.Context, path string, d detect.Decision, backup bool) (*Result, error) {
	if !d.UpdateNeeded {
		return nil, fmt.Errorf("decision does not call for an update")
	}
	if d.DownloadURL == "" {
		return nil, fmt.Errorf("decision has no download URL")
	}

	p.logger.Info("downloading release artifact", "url", d.DownloadURL)
	data, err := p.downloader.DownloadArtifact(ctx, d.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("downloading artifact: %w", err)
	}
	p.logger.Info("artifact downloaded", "bytes", len(data))

	sum := sha512.Sum512(data)
	checksum := hex.EncodeToString(sum[:])
	p.logger.Debug("computed artifact checksum", "sha512", checksum)

	vscodeVersion := p.introspect(data)
	tag := p.resolver.DerivedTag(ctx, vscodeVersion)
	p.logger.Info("resolved electron tag", "tag", tag, "vscode_version", vscodeVersion)

	lines, err := pkgbuild.ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe: %w", err)
	}

	result := &Result{SHA512: checksum, VSCodeVersion: vscodeVersion, ElectronTag: tag}
	if backup {
		backupPath, err := pkgbuild.Backup(path)
		if err != nil {
			return nil, fmt.Errorf("backing up recipe: %w", err)
		}
		result.BackupPath = backupPath
	}

	patched := pkgbuild.Patch(lines, pkgbuild.Fields{
		Version:     d.NewVersion,
		Rel:         d.NewRel,
		Commit:      d.NewCommit,
		DownloadURL: d.DownloadURL,
		SHA512:      checksum,
		ElectronTag: tag,
	})

	if err := pkgbuild.WriteLines(path, patched); err != nil {
		return nil, fmt.Errorf("writing recipe: %w", err)
	}
	p.logger.Info("recipe updated",
		"version", d.NewVersion, "rel", d.NewRel, "commit", d.NewCommit, "electron", tag)
	return result, nil
}

// introspect writes the artifact to a scratch file and reads the bundled
// VSCode version out of it. Best effort: returns "" when the artifact
// cannot be opened, which downstream turns into the fallback tag.
func (p *Patcher) introspect(data []byte) string {
	tmp, err := os.CreateTemp("", "curbot-*.deb")
	if err != nil {
		p.logger.Warn("cannot create scratch file for artifact introspection", "error", err)
		return ""
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		p.logger.Warn("cannot write scratch artifact", "error", err)
		return ""
	}
	if err := tmp.Close(); err != nil {
		p.logger.Warn("cannot close scratch artifact", "error", err)
		return ""
	}

	version, ok := electron.VSCodeVersionFromDeb(tmp.Name(), p.logger)
	if !ok {
		return ""
	}
	return version
}
