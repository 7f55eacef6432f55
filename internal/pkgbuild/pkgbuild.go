// Package pkgbuild reads and rewrites the cursor-bin PKGBUILD.
//
// The file is treated as line-oriented text: parsing pulls out the three
// fields the update decision needs, and patching rewrites exactly the
// recognized field lines while preserving every other byte. Nothing here
// touches the network; the patch transformation is pure.
package pkgbuild

import (
	"fmt"
	"regexp"
	"strings"
)

// Info is the locally recorded package state: version, release counter and
// upstream commit. It is parsed fresh from the PKGBUILD on every run; the
// file is the single source of truth between runs.
type Info struct {
	Version string
	Rel     string
	Commit  string
}

var (
	pkgverRe  = regexp.MustCompile(`(?m)^pkgver=([^\n]+)`)
	pkgrelRe  = regexp.MustCompile(`(?m)^pkgrel=(\d+)`)
	commitRe  = regexp.MustCompile(`(?m)^_commit=([a-f0-9]+)`)
)

// Parse extracts version, release counter and commit from PKGBUILD content.
// All three must be present.
func Parse(content string) (Info, error) {
	ver := pkgverRe.FindStringSubmatch(content)
	rel := pkgrelRe.FindStringSubmatch(content)
	commit := commitRe.FindStringSubmatch(content)
	if ver == nil || rel == nil || commit == nil {
		return Info{}, fmt.Errorf("unable to find pkgver, pkgrel, or _commit in PKGBUILD")
	}
	return Info{
		Version: strings.TrimSpace(ver[1]),
		Rel:     rel[1],
		Commit:  commit[1],
	}, nil
}
