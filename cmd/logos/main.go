// Command logos serves the health routes and any route table named in
// its configuration.
package main

import (
	"fmt"
	"os"

	"github.com/IntellionInc/logos/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "logos:", err)
		os.Exit(1)
	}
}
