package main

import (
	"fmt"
	"os"

	"github.com/arbiter-run/arbiter/cmd/arbiterd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
