// SPDX-License-Identifier: MIT
//
// Package build manages build information embedded into the binary at
// compile time using linker flags: application name, build timestamp, Git
// commit hash, and semantic version. The information is used for version
// output and log context.
package build

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation, for example:
//
//	go build -ldflags "-X voicepipe/pkg/build.buildVersion=0.3.0"
//
// Unset flags keep their development defaults.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "voicepipe",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies build information from the ldflags variables into the
// buildFlags struct. It must be called early in program startup. Flags left
// unset by the build keep their development defaults, so a plain `go build`
// still produces a working binary.
func Initialize() {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build information. Call Initialize
// first; the returned struct must not be mutated.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
