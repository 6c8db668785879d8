// Package version resolves the dht binary version.
package version

import (
	_ "embed"
	"strings"
)

// embedded is the VERSION file contents, used when the build was not
// stamped with ldflags (e.g. go install).
//
//go:embed VERSION
var embedded string

// Resolve picks the ldflags-stamped value when present and falls back
// to the embedded VERSION file, normalized to a "v" prefix.
func Resolve(stamped string) string {
	v := strings.TrimSpace(stamped)
	if v == "" {
		v = strings.TrimSpace(embedded)
	}
	return "v" + strings.TrimPrefix(v, "v")
}
