// Command ridge searches for minimal-energy shapes of a discretized clamped
// elastic rod.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
