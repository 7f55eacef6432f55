package pkgbuild

import "strings"

// CompanionSHA512 is the pinned checksum of the second source entry
// (the Arch packaging code.sh launcher). It is not derived from the
// release artifact and never changes with an update.
const CompanionSHA512 = "937299c6cb6be2f8d25f7dbc95cf77423875c5f8353b8bd6cd7cc8e5603cbf8405b14dbf8bd615db2e3b36ed680fc8e1909410815f7f8587b7267a699e00ab37"

// secondSourcePrefix identifies the code.sh source line, which is passed
// through unchanged.
const secondSourcePrefix = "https://gitlab.archlinux.org"

// Fields holds the resolved values a patch writes into the recipe.
type Fields struct {
	Version     string
	Rel         string
	Commit      string
	DownloadURL string // canonical .deb URL for Version/Commit
	SHA512      string // computed hash of the downloaded artifact
	ElectronTag string // derived runtime tag, e.g. "electron34"
}

// Patch rewrites the recognized field lines of a PKGBUILD and returns the
// new line slice. All unrecognized lines pass through verbatim.
//
// The sha512sums block is always emitted as exactly two entries: the
// computed artifact hash and the pinned companion checksum. Whatever entry
// lines the input block carried between its opening and closing lines are
// dropped.
func Patch(lines []string, f Fields) []string {
	updated := make([]string, 0, len(lines))
	inSha := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "pkgver="):
			updated = append(updated, "pkgver="+f.Version)
		case strings.HasPrefix(line, "pkgrel="):
			updated = append(updated, "pkgrel="+f.Rel)
		case strings.HasPrefix(line, "_commit="):
			updated = append(updated, "_commit="+f.Commit+" # sed'ded at GitHub WF")
		case strings.HasPrefix(line, "source="):
			updated = append(updated, `source=("`+f.DownloadURL+`"`)
		case strings.HasPrefix(line, secondSourcePrefix):
			updated = append(updated, line)
		case strings.HasPrefix(line, "sha512sums="):
			updated = append(updated, "sha512sums=('"+f.SHA512+"'")
			inSha = true
		case inSha && strings.HasSuffix(strings.TrimSpace(line), ")"):
			// Closing line of the checksum block: append the pinned
			// companion entry and close.
			updated = append(updated, "            '"+CompanionSHA512+"')")
			inSha = false
		case strings.HasPrefix(line, "  _electron="):
			updated = append(updated, "  _electron="+f.ElectronTag)
		case !inSha:
			updated = append(updated, line)
		}
	}

	return updated
}
