// Command threatscore profiles threat-actor groups from the configured
// reference datasets and prints the analyses as JSON.
package main

import (
	"fmt"
	"os"
	"runtime"
)

const (
	Version = "0.1.0"
	appName = "threatscore"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
