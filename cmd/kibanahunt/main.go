// Command kibanahunt scans network ranges for exposed Kibana and
// Elasticsearch services.
package main

import "github.com/anstrom/kibanahunt/cmd/cli"

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
