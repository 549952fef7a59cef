package main

import (
	"fmt"
	"os"

	"terangahub.app/push/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pushctl:", err)
		os.Exit(1)
	}
}
