// Package version carries build metadata for the anvil CLI. The variables
// are overridden at build time via -ldflags.
package version

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.3.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	labelColor   = color.New(color.Bold)
	versionColor = color.New(color.FgGreen, color.Bold)
)

// Info is the build metadata as one value.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"commit,omitempty"`
	BuildDate string `json:"date,omitempty"`
	GoVersion string `json:"go"`
}

// Current returns the running binary's metadata.
func Current() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// Short is "anvil <version>" with the commit abbreviated when known.
func (i Info) Short() string {
	s := "anvil " + i.Version
	if i.GitCommit != "" {
		s += " (" + abbrev(i.GitCommit) + ")"
	}
	return s
}

// Write prints i one field per line. Colour follows color.NoColor.
func (i Info) Write(w io.Writer) error {
	lines := [][2]string{
		{"version", versionColor.Sprint(i.Version)},
		{"commit", i.GitCommit},
		{"built", i.BuildDate},
		{"go", i.GoVersion},
	}
	for _, l := range lines {
		if l[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", labelColor.Sprintf("%-8s", l[0]+":"), l[1]); err != nil {
			return err
		}
	}
	return nil
}

func abbrev(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
