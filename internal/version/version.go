package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Version information for the bitspec CLI.
// These variables can be overridden at build time via -ldflags.

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with major, minor and patch in separate colours.
// Anything that is not a plain x.y.z prefix is printed unchanged.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version
	}
	out := versionMajorColor.Sprint(parts[0]) + "." + versionMinorColor.Sprint(parts[1]) + "." + versionPatchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Line is the full `bitspec version` output.
func Line() string {
	line := fmt.Sprintf("bitspec %s", Colored())
	if GitCommit != "" {
		line += fmt.Sprintf(" (%s)", GitCommit)
	}
	if BuildDate != "" {
		line += " built " + BuildDate
	}
	return line
}
