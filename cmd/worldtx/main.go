// Command worldtx runs and inspects world transaction capture scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/SpongePowered/Common-sub001/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
