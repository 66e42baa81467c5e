// Package main implements changelogd, a small HTTP service that stores
// versioned plain-text artifacts (changelogs, release notes) per module
// and serves the latest one by version order.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│              changelogd                 │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    GET /{module}           - latest     │
//	│    GET /{module}/{version} - one        │
//	│    PUT /{module}/{version} - publish    │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    server   - CORS, logging, pool       │
//	│    router   - path and verb dispatch    │
//	│    auth     - shared write key          │
//	│    storage  - {dir}/{module}/{ver}.txt  │
//	└─────────────────────────────────────────┘
//
// Example usage:
//
//	# Start the server
//	changelogd serve -s s3cret -d /var/lib/changelogd
//
//	# Publish and read back
//	changelogd push app 1.2.0 CHANGELOG.md -s s3cret
//	curl localhost:8080/app
package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
)

// Version is the build version, set via -ldflags.
var Version = "dev"

// exit is a variable so tests can intercept process termination.
var exit = os.Exit

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		exit(1)
	}
}
