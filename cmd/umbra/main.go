// Command umbra runs and inspects shadow variable propagation scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/umbra/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
