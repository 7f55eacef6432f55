package patcher

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/curbot/curbot/internal/detect"
	"github.com/curbot/curbot/internal/log"
	"github.com/curbot/curbot/internal/pkgbuild"
)

const recipeBefore = `pkgname=cursor-bin
pkgver=1.5.5
pkgrel=1
_commit=aaaabbbbccccddddeeeeffff0000111122223333 # sed'ded at GitHub WF
source=("https://downloads.cursor.com/production/aaaabbbbccccddddeeeeffff0000111122223333/linux/x64/deb/amd64/deb/cursor_1.5.5_amd64.deb"
        "https://gitlab.archlinux.org/archlinux/packaging/packages/code/-/raw/main/code.sh")
sha512sums=('000000'
            '937299c6cb6be2f8d25f7dbc95cf77423875c5f8353b8bd6cd7cc8e5603cbf8405b14dbf8bd615db2e3b36ed680fc8e1909410815f7f8587b7267a699e00ab37')

prepare() {
  _electron=electron28
  echo $_electron
}
`

// fakeDeb builds a .deb whose data layer carries the given product.json.
func fakeDeb(t *testing.T, productJSON string) []byte {
	t.Helper()
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "./usr/share/cursor/resources/app/product.json",
		Mode:     0o644,
		Size:     int64(len(productJSON)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte(productJSON))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	var xzBuf bytes.Buffer
	xw, err := xz.NewWriter(&xzBuf)
	require.NoError(t, err)
	_, err = xw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, xw.Close())

	var deb bytes.Buffer
	w := ar.NewWriter(&deb)
	require.NoError(t, w.WriteGlobalHeader())
	for _, m := range []struct {
		name string
		body []byte
	}{
		{"debian-binary", []byte("2.0\n")},
		{"data.tar.xz", xzBuf.Bytes()},
	} {
		require.NoError(t, w.WriteHeader(&ar.Header{
			Name:    m.name,
			ModTime: time.Unix(0, 0),
			Mode:    0o644,
			Size:    int64(len(m.body)),
		}))
		_, err := w.Write(m.body)
		require.NoError(t, err)
	}
	return deb.Bytes()
}

type stubDownloader struct {
	data []byte
	err  error
	url  string
}

func (s *stubDownloader) DownloadArtifact(_ context.Context, url string) ([]byte, error) {
	s.url = url
	return s.data, s.err
}

type stubResolver struct {
	tag string
	got string
}

func (s *stubResolver) DerivedTag(_ context.Context, vscodeVersion string) string {
	s.got = vscodeVersion
	return s.tag
}

func writeRecipe(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "PKGBUILD")
	require.NoError(t, os.WriteFile(path, []byte(recipeBefore), 0o644))
	return path
}

func decision() detect.Decision {
	return detect.Decision{
		UpdateNeeded: true,
		NewVersion:   "1.6.0",
		NewRel:       "1",
		NewCommit:    "1111222233334444555566667777888899990000",
		DownloadURL:  "https://downloads.cursor.com/production/1111222233334444555566667777888899990000/linux/x64/deb/amd64/deb/cursor_1.6.0_amd64.deb",
	}
}

func TestApplyRewritesRecipe(t *testing.T) {
	deb := fakeDeb(t, `{"vscodeVersion":"1.96.2"}`)
	dl := &stubDownloader{data: deb}
	res := &stubResolver{tag: "electron34"}
	path := writeRecipe(t)
	d := decision()

	result, err := New(dl, res, log.NewNoop()).Apply(context.Background(), path, d, false)
	require.NoError(t, err)

	assert.Equal(t, d.DownloadURL, dl.url)
	assert.Equal(t, "1.96.2", res.got, "introspected VSCode version feeds the resolver")
	assert.Equal(t, "1.96.2", result.VSCodeVersion)
	assert.Equal(t, "electron34", result.ElectronTag)

	sum := sha512.Sum512(deb)
	assert.Equal(t, hex.EncodeToString(sum[:]), result.SHA512)

	info, err := pkgbuild.Parse(readFile(t, path))
	require.NoError(t, err)
	assert.Equal(t, "1.6.0", info.Version)
	assert.Equal(t, "1", info.Rel)
	assert.Equal(t, d.NewCommit, info.Commit)

	content := readFile(t, path)
	assert.Contains(t, content, fmt.Sprintf("source=(\"%s\"", d.DownloadURL))
	assert.Contains(t, content, "sha512sums=('"+result.SHA512+"'")
	assert.Contains(t, content, pkgbuild.CompanionSHA512)
	assert.Contains(t, content, "  _electron=electron34")
	assert.NotContains(t, content, "000000")
}

func TestApplyBackup(t *testing.T) {
	dl := &stubDownloader{data: fakeDeb(t, `{"vscodeVersion":"1.96.2"}`)}
	path := writeRecipe(t)

	result, err := New(dl, &stubResolver{tag: "electron34"}, log.NewNoop()).
		Apply(context.Background(), path, decision(), true)
	require.NoError(t, err)
	require.NotEmpty(t, result.BackupPath)

	backup, err := os.ReadFile(result.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, recipeBefore, string(backup))
	assert.NotEqual(t, recipeBefore, readFile(t, path))
}

func TestApplyUnreadableArtifactStillPatches(t *testing.T) {
	// A structurally broken artifact yields an empty VSCode version; the
	// resolver decides what tag that becomes. The recipe is still patched.
	dl := &stubDownloader{data: []byte("not an ar archive")}
	res := &stubResolver{tag: "electron28"}
	path := writeRecipe(t)

	result, err := New(dl, res, log.NewNoop()).Apply(context.Background(), path, decision(), false)
	require.NoError(t, err)
	assert.Equal(t, "", res.got)
	assert.Equal(t, "", result.VSCodeVersion)
	assert.Contains(t, readFile(t, path), "  _electron=electron28")
}

func TestApplyFailuresLeaveRecipeUntouched(t *testing.T) {
	tests := []struct {
		name string
		dl   Downloader
		d    detect.Decision
	}{
		{"no update needed", &stubDownloader{}, detect.Decision{UpdateNeeded: false}},
		{"missing download URL", &stubDownloader{}, detect.Decision{UpdateNeeded: true}},
		{"download fails", &stubDownloader{err: errors.New("boom")}, decision()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRecipe(t)
			_, err := New(tt.dl, &stubResolver{tag: "electron28"}, log.NewNoop()).
				Apply(context.Background(), path, tt.d, false)
			require.Error(t, err)
			assert.Equal(t, recipeBefore, readFile(t, path))
		})
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
