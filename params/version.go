// Package params holds the build information of the tracecache binary.
package params

import (
	"encoding/json"
	"os"
	"time"

	"github.com/zircuit-labs/zkr-go-common/version"
	"github.com/zircuit-labs/zkr-go-common/xerrors/stacktrace"
)

// VersionFile is written into the container image by the release pipeline.
const VersionFile = "/etc/version.json"

var (
	Info            version.VersionInformation
	VersionWithMeta = "unknown-version"
)

func init() {
	info, err := LoadVersion(VersionFile)
	if err != nil {
		return
	}
	Info = info
	VersionWithMeta = FormatVersion(info)
}

// LoadVersion reads build information from a JSON version file.
func LoadVersion(path string) (version.VersionInformation, error) {
	var info version.VersionInformation

	file, err := os.ReadFile(path)
	if err != nil {
		return info, stacktrace.Wrap(err)
	}
	if err := json.Unmarshal(file, &info); err != nil {
		return info, stacktrace.Wrap(err)
	}
	info.Date = time.Unix(info.GitDate, 0).UTC()
	return info, nil
}

// FormatVersion renders the version with the variant suffix, if any.
func FormatVersion(info version.VersionInformation) string {
	if info.Version == "" {
		return "unknown-version"
	}
	if info.Variant != "" {
		return info.Version + "-" + info.Variant
	}
	return info.Version
}
