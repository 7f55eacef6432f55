// Package electron derives the bundled Electron runtime tag for a release.
//
// The tag is resolved in two hops: the .deb artifact embeds the editor's
// VSCode baseline version (product.json), and the matching VSCode source
// tree's package-lock.json pins the Electron version. The whole pipeline is
// best-effort; callers fall back to a fixed tag when any hop fails.
package electron

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/blakesmith/ar"

	"github.com/curbot/curbot/internal/archive"
	"github.com/curbot/curbot/internal/log"
)

// productJSONPath locates the product manifest inside the .deb data layer.
const productJSONPath = "usr/share/cursor/resources/app/product.json"

// productManifest is the subset of product.json the introspector reads.
type productManifest struct {
	VSCodeVersion string `json:"vscodeVersion"`
}

// VSCodeVersionFromDeb extracts the embedded VSCode baseline version from a
// .deb file on disk. The .deb is an ar container holding a data.tar.*
// member; product.json is pulled out of that layer by path.
//
// Structural failures (missing member, malformed manifest) return ok=false
// rather than an error: the derived tag is best-effort and the caller
// applies a fallback.
func VSCodeVersionFromDeb(path string, logger log.Logger) (version string, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		logger.Debug("introspection: cannot open artifact", "error", err)
		return "", false
	}
	defer f.Close()

	rd := ar.NewReader(f)
	for {
		header, err := rd.Next()
		if errors.Is(err, io.EOF) {
			logger.Debug("introspection: no data.tar member in artifact")
			return "", false
		}
		if err != nil {
			logger.Debug("introspection: reading ar header", "error", err)
			return "", false
		}

		// GNU ar pads member names with trailing slashes or spaces.
		name := strings.TrimRight(strings.TrimSpace(header.Name), "/")
		if !strings.HasPrefix(name, "data.tar") {
			continue
		}

		logger.Debug("introspection: found data layer", "member", name)
		data, err := archive.TarMember(rd, name, productJSONPath)
		if err != nil {
			logger.Debug("introspection: extracting product.json", "error", err)
			return "", false
		}

		var manifest productManifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			logger.Debug("introspection: parsing product.json", "error", err)
			return "", false
		}
		if manifest.VSCodeVersion == "" {
			logger.Debug("introspection: vscodeVersion not found in product.json")
			return "", false
		}
		logger.Debug("introspection: found VSCode version", "version", manifest.VSCodeVersion)
		return manifest.VSCodeVersion, true
	}
}
