// Command pdbsync acquires and maintains a local mirror of the Protein
// Data Bank archive over rsync, driven by a config.toml describing one
// or more named sync jobs.
package main

import (
	"fmt"
	"os"

	"github.com/pdbsync/pdbsync/internal/cli"
)

func main() {
	err := cli.Execute()
	if err != nil && !cli.IsExitCodeError(err) {
		fmt.Fprintln(os.Stderr, "pdbsync:", err)
	}
	os.Exit(cli.ExitCode(err))
}
