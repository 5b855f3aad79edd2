package main

import (
	"fmt"
	"os"

	"github.com/L-Strobel/omod-sub001/cmd/omod/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
