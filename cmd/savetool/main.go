package main

import (
	"fmt"
	"os"

	"github.com/l1jgo/lockstep/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "savetool: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
