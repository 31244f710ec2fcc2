package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	// Version is set by -ldflags or taken from the module build info.
	Version   = "(dev)"
	buildInfo = debug.BuildInfo{}
)

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		buildInfo = *bi
		if len(bi.Main.Version) > 0 && bi.Main.Version != "(devel)" {
			Version = bi.Main.Version
		}
	}
}

// Short is the bare version reported to MCP clients.
func Short() string {
	return strings.TrimPrefix(Version, "v")
}

// GetMore returns the version line, or the module list when mod is set.
func GetMore(mod bool) string {
	if mod {
		mod := buildInfo.String()
		if len(mod) > 0 {
			return fmt.Sprintf("\t%s\n", strings.ReplaceAll(mod[:len(mod)-1], "\n", "\n\t"))
		}
	}
	return fmt.Sprintf("mcpkit %s %s %s/%s\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
