package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/transpatch/transpatch/internal/restore"
)

type uninstallOptions struct {
	gameDir string
	verbose bool
}

func parseUninstallArgs(args []string) (*uninstallOptions, bool, error) {
	opts := &uninstallOptions{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			return nil, true, nil
		case "--game-dir", "-d":
			if i+1 >= len(args) {
				return nil, false, fmt.Errorf("%s requires a directory argument", args[i])
			}
			i++
			opts.gameDir = args[i]
		case "--verbose", "-v":
			opts.verbose = true
		default:
			return nil, false, fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if opts.gameDir == "" {
		return nil, false, fmt.Errorf("the game directory is required (use -d <dir>)")
	}
	return opts, false, nil
}

// runUninstall handles the `transpatch uninstall` subcommand
func runUninstall(args []string) error {
	opts, showHelp, err := parseUninstallArgs(args)
	if showHelp {
		printUninstallHelp()
		return nil
	}
	if err != nil {
		return err
	}

	info, err := os.Stat(opts.gameDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a valid game directory", opts.gameDir)
	}

	fmt.Printf("Restoring original files in %s...\n", opts.gameDir)
	report, err := restore.New(newLogger(opts.verbose)).Run(opts.gameDir)
	if report != nil && report.Restored > 0 {
		color.Green("✓ %d file(s) restored", report.Restored)
	}
	if err != nil {
		color.Red("✗ Uninstall incomplete; rerun after fixing the reported files")
		return err
	}

	if report.Restored == 0 {
		fmt.Println("No backup files found; nothing to restore.")
	} else {
		color.Green("Uninstall complete.")
	}
	return nil
}

func printUninstallHelp() {
	fmt.Println("Usage: transpatch uninstall -d <dir> [options]")
	fmt.Println()
	fmt.Println("Restore the original game files from the backups the installer left.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -d, --game-dir <dir>  Directory containing the game executable (required)")
	fmt.Println("  -v, --verbose         Enable debug logging")
	fmt.Println("  -h, --help            Show this help")
}
