// Command xfrctl builds signed transfer transactions from the command line.
package main

import (
	"os"
)

func main() {
	if err := NewArguments().MakeCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
