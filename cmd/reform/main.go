// Command reform renders, validates and saves documents through form schemas
// declared in YAML catalogs.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Build information injected via ldflags at build time.
var version = "dev"

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	root.Version = version
	if err := root.Execute(); err != nil {
		if errors.Is(err, errInvalid) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "reform:", err)
		os.Exit(2)
	}
}
