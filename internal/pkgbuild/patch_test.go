package pkgbuild

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFields = Fields{
	Version:     "1.6.0",
	Rel:         "1",
	Commit:      "de327274300c6f38ec9f4240d11e82c3b0660b29",
	DownloadURL: "https://downloads.cursor.com/production/de327274300c6f38ec9f4240d11e82c3b0660b29/linux/x64/deb/amd64/deb/cursor_1.6.0_amd64.deb",
	SHA512:      strings.Repeat("0123456789abcdef", 8),
	ElectronTag: "electron34",
}

func patchTestdata(t *testing.T, f Fields) []string {
	t.Helper()
	return Patch(strings.Split(readTestdata(t), "\n"), f)
}

func TestPatchRewritesFields(t *testing.T) {
	out := strings.Join(patchTestdata(t, testFields), "\n")

	assert.Contains(t, out, "pkgver=1.6.0\n")
	assert.Contains(t, out, "pkgrel=1\n")
	assert.Contains(t, out, "_commit=de327274300c6f38ec9f4240d11e82c3b0660b29 # sed'ded at GitHub WF\n")
	assert.Contains(t, out, `source=("`+testFields.DownloadURL+`"`)
	assert.Contains(t, out, "sha512sums=('"+testFields.SHA512+"'")
	assert.Contains(t, out, "  _electron=electron34\n")
}

func TestPatchPreservesUnrelatedLines(t *testing.T) {
	out := strings.Join(patchTestdata(t, testFields), "\n")

	// Boilerplate outside the recognized field lines is byte-preserved.
	assert.Contains(t, out, "# Maintainer: Arch Cursor Maintainers")
	assert.Contains(t, out, "bsdtar -xf data.tar.xz")
	assert.Contains(t, out, `ln -sf /usr/share/cursor/cursor "$pkgdir"/usr/bin/cursor`)
	assert.Contains(t, out, "  echo $_electron\n")
	assert.Contains(t, out, "https://gitlab.archlinux.org/archlinux/packaging/packages/code/-/raw/main/code.sh)")
}

func TestPatchChecksumBlockAlwaysTwoEntries(t *testing.T) {
	hexRe := regexp.MustCompile(`'([0-9a-f]{128})'`)

	// Inflate the source block to four checksum entries; the patched block
	// must still come out with exactly two.
	lines := strings.Split(readTestdata(t), "\n")
	var inflated []string
	for _, line := range lines {
		if strings.HasPrefix(line, "sha512sums=") {
			inflated = append(inflated,
				"sha512sums=('"+strings.Repeat("aa", 64)+"'",
				"            '"+strings.Repeat("bb", 64)+"'",
				"            '"+strings.Repeat("cc", 64)+"'")
			continue
		}
		inflated = append(inflated, line)
	}

	out := Patch(inflated, testFields)
	matches := hexRe.FindAllStringSubmatch(strings.Join(out, "\n"), -1)
	require.Len(t, matches, 2)
	assert.Equal(t, testFields.SHA512, matches[0][1])
	assert.Equal(t, CompanionSHA512, matches[1][1])
}

func TestPatchIdempotent(t *testing.T) {
	once := patchTestdata(t, testFields)
	twice := Patch(once, testFields)
	assert.Equal(t, once, twice, "re-patching with the same fields must be byte-identical")
}

func TestPatchedOutputParsesBack(t *testing.T) {
	out := strings.Join(patchTestdata(t, testFields), "\n")
	info, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, Info{Version: "1.6.0", Rel: "1", Commit: "de327274300c6f38ec9f4240d11e82c3b0660b29"}, info)
}
