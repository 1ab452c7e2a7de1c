// Package version identifies the reports build that produced a report run.
// Local builds report "dev"; the container image pipeline stamps the tag,
// commit and build date in with -ldflags "-X".
package version

import "fmt"

// Build metadata, stamped by the image pipeline.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the text reports version prints: the tag on the first line, then
// the commit and build date.
func Info() string {
	return fmt.Sprintf("reports version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
