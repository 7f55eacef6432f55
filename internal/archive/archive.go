// Package archive reads single members out of compressed tarballs.
//
// curbot never unpacks whole trees: the introspector needs one manifest out
// of a .deb data layer and the resolver needs one lockfile out of a source
// tarball. Members are streamed, so the multi-hundred-megabyte archives are
// never fully materialized.
package archive

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"
)

// maxMemberSize caps how much of a single member is read into memory.
// Guards against decompression bombs; the largest member curbot reads is
// vscode's package-lock.json at roughly 10MB.
const maxMemberSize = 64 * 1024 * 1024

// ErrMemberNotFound reports that the archive ended without the requested
// member.
var ErrMemberNotFound = fmt.Errorf("archive member not found")

// OpenCompressed wraps r with the decompressor implied by name's suffix
// (.tar.gz/.tgz, .tar.xz/.txz, .tar.bz2, .tar.zst, .tar.lz, plain .tar).
func OpenCompressed(r io.Reader, name string) (io.Reader, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzr, nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzr, nil
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return bzip2.NewReader(r), nil
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	case strings.HasSuffix(lower, ".tar.lz"), strings.HasSuffix(lower, ".tlz"):
		lr, err := lzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create lzip reader: %w", err)
		}
		return lr, nil
	case strings.HasSuffix(lower, ".tar"):
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", name)
	}
}

// TarMember decompresses r (format chosen by name) and returns the contents
// of the single tar member at path member. Leading "./" segments in entry
// names are ignored, matching how dpkg-built data archives are laid out.
// Returns ErrMemberNotFound if the archive has no such regular file.
func TarMember(r io.Reader, name, member string) ([]byte, error) {
	dec, err := OpenCompressed(r, name)
	if err != nil {
		return nil, err
	}

	want := strings.TrimPrefix(member, "./")
	tr := tar.NewReader(dec)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if strings.TrimPrefix(header.Name, "./") != want {
			continue
		}
		if header.Size > maxMemberSize {
			return nil, fmt.Errorf("member %s too large: %d bytes", member, header.Size)
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxMemberSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read member %s: %w", member, err)
		}
		if len(data) > maxMemberSize {
			return nil, fmt.Errorf("member %s too large", member)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, member)
}
