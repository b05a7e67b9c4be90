package main

import (
	"fmt"
	"os"

	"github.com/Ramsey-B/thistle/pkg/errors"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(errors.ExitCode(err))
	}
}
