// Package version reports build information about the running binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/zircuit-labs/l2-tracecache/params"
)

const ourPath = "github.com/zircuit-labs/l2-tracecache"

// ClientName creates a software name/version identifier, as used in
// user agents and the version command.
func ClientName(clientIdentifier string) string {
	return fmt.Sprintf("%s/%v/%v",
		clientIdentifier,
		params.VersionWithMeta,
		runtime.GOARCH,
	)
}

// Info returns the version string and, when the binary was built from this
// module with VCS stamping, the commit it was built from.
func Info() (version, vcs string) {
	version = fmt.Sprintf("tracecache %s", params.VersionWithMeta)

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok || buildInfo.Main.Path != ourPath {
		return version, ""
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key == "vcs.revision" {
			vcs = setting.Value
		}
	}
	return version, vcs
}
