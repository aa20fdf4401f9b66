// Command schedmap maps scheduler Job and Plan XML documents into SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/schedmap/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
