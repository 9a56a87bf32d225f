// ABOUTME: Entry point for the capture tool
// ABOUTME: Hands off to the cobra command tree
package main

import (
	"os"

	"github.com/Resonate-Protocol/resonate-capture/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
