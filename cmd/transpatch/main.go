package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/transpatch/transpatch/internal/logging"
)

// Version will be set at build time via -ldflags
var Version = "v0.0.1-alpha"

func main() {
	// Handle subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("transpatch %s\n", Version)
			fmt.Println("Installer for the DELTARUNE French translation patch")
			return
		case "install":
			// Handle transpatch install subcommand
			if err := runInstall(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "uninstall":
			// Handle transpatch uninstall subcommand
			if err := runUninstall(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	// Default: show help
	fmt.Println("transpatch - installer for the DELTARUNE French translation patch")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  transpatch --version               Show version information")
	fmt.Println("  transpatch install -d <dir>        Download and install the latest patch")
	fmt.Println("  transpatch uninstall -d <dir>      Remove the patch and restore original files")
	fmt.Println()
	fmt.Println("Run 'transpatch install --help' or 'transpatch uninstall --help' for options.")
}

// newLogger builds the structured logger handed to the internal
// packages. Progress output goes to stdout separately; the log stream on
// stderr carries the detail.
func newLogger(verbose bool) logging.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return logging.NewSlog(slog.New(handler))
}
