package main

import (
	"fmt"
	"os"

	"github.com/mmcdole/showsync/internal/tui/styles"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
