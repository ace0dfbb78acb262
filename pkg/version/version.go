// Package version reports the finplan build version.
package version

import "runtime/debug"

// Set at build time with
// -ldflags "-X github.com/rshade/finplan/pkg/version.version=v1.2.3".
//
//nolint:gochecknoglobals // overridden by the linker
var version = ""

const devVersion = "dev"

// GetVersion returns the linker-provided version, the module version
// recorded in the build info, or "dev".
func GetVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return devVersion
}
