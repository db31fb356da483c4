// Package version reports the build version.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Version is set at build time with -ldflags "-X .../version.Version=1.2.3".
var Version = "dev"

// Normalize ensures the version has the "v" prefix semver expects.
// Examples: "1.2.3" -> "v1.2.3", "v1.2.3" -> "v1.2.3"
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

// String returns the canonical build version, or the raw value for
// non-release builds such as "dev".
func String() string {
	v := Normalize(Version)
	if semver.IsValid(v) {
		return semver.Canonical(v)
	}
	return strings.TrimSpace(Version)
}
