// cmd/chatbench/main.go
package main

import (
	cmd "github.com/mwiater/chatbench/internal/cli"
)

// Set via -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	setVersionInfo = cmd.SetVersionInfo
	executeCmd     = cmd.Execute
)

// main injects build metadata and delegates to the cobra root command defined in
// the chatbench package.
func main() {
	setVersionInfo(version, commit, date)
	executeCmd()
}
