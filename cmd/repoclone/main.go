package main

import (
	"repoclone/internal/cli"
)

// Set at build time, e.g. -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD)".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	cli.Execute()
}
