// Package version reports the running build.
package version

import (
	"encoding/json"
	"fmt"
	"os"
)

// Version is injected at build time with
// -ldflags "-X github.com/anikkhan0099/moviehubbd/internal/version.Version=1.2.0".
var Version = ""

const fallback = "0.0.0"

type Info struct {
	Version string `json:"version"`
}

// Load returns the linker-injected version, then the one in the version.json
// file at path. A missing or broken file yields 0.0.0 and the reason.
func Load(path string) (Info, error) {
	if Version != "" {
		return Info{Version: Version}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{Version: fallback}, fmt.Errorf("read %s: %w", path, err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil || info.Version == "" {
		return Info{Version: fallback}, fmt.Errorf("parse %s: invalid version file", path)
	}
	return info, nil
}
