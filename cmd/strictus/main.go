// Command strictus checks YAML and JSON documents against record types
// declared in a schema file.
package main

import (
	"fmt"
	"os"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "strictus:", err)
		os.Exit(1)
	}
}
