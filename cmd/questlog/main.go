// Command questlog serves and edits the daily quest tracker.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/questlog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "questlog:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
