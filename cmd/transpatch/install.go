package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/transpatch/transpatch/internal/archive"
	"github.com/transpatch/transpatch/internal/download"
	"github.com/transpatch/transpatch/internal/engine"
	"github.com/transpatch/transpatch/internal/extras"
	"github.com/transpatch/transpatch/internal/manifest"
	"github.com/transpatch/transpatch/internal/platform"
	"github.com/transpatch/transpatch/internal/signature"
)

// DefaultIndexURL is the published location of the patch index.
const DefaultIndexURL = "https://deltarune-fr.com/patch-files/linux/patch_index.json"

// installTimeout bounds the whole install, download included.
const installTimeout = 5 * time.Minute

type installOptions struct {
	gameDir     string
	indexURL    string
	selector    string
	keyring     string
	keepStaging bool
	verbose     bool
}

// parseInstallArgs parses the install flags. The second return value is
// true when help was requested.
func parseInstallArgs(args []string) (*installOptions, bool, error) {
	opts := &installOptions{indexURL: DefaultIndexURL}

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
		case "--index-url":
			if i+1 >= len(args) {
				return nil, false, fmt.Errorf("--index-url requires a URL argument")
			}
			i++
			opts.indexURL = args[i]
		case "--selector":
			if i+1 >= len(args) {
				return nil, false, fmt.Errorf("--selector requires a script path argument")
			}
			i++
			opts.selector = args[i]
		case "--keyring":
			if i+1 >= len(args) {
				return nil, false, fmt.Errorf("--keyring requires a key file argument")
			}
			i++
			opts.keyring = args[i]
		case "--keep-staging":
			opts.keepStaging = true
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

// runInstall handles the `transpatch install` subcommand
func runInstall(args []string) error {
	opts, showHelp, err := parseInstallArgs(args)
	if showHelp {
		printInstallHelp()
		return nil
	}
	if err != nil {
		return err
	}

	info, err := os.Stat(opts.gameDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a valid game directory", opts.gameDir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), installTimeout)
	defer cancel()

	log := newLogger(opts.verbose)

	// Staging directory: unique per run so a crashed run never pollutes
	// the next one.
	staging := filepath.Join(os.TempDir(), "transpatch-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	if opts.keepStaging {
		fmt.Printf("Staging directory kept at %s\n", staging)
	} else {
		defer os.RemoveAll(staging)
	}

	downloader := download.New()

	// Step 1: fetch the patch index
	fmt.Printf("Fetching patch index from %s...\n", opts.indexURL)
	index, err := manifest.Fetch(ctx, downloader, opts.indexURL)
	if err != nil {
		return fmt.Errorf("fetch patch index: %w", err)
	}

	// Step 2: pick the platform entry
	hostInfo, err := platform.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect platform: %w", err)
	}
	variant, err := platform.SelectVariant(opts.selector, opts.gameDir, hostInfo)
	if err != nil {
		return fmt.Errorf("select variant: %w", err)
	}
	entry, err := index.Platform(variant)
	if err != nil {
		return err
	}
	color.Green("✓ Using the %s patch", variant)

	// Step 3: download the archive
	archivePath := filepath.Join(staging, "patch.zip")
	fmt.Printf("Downloading %s...\n", entry.FileURL)
	if err := downloader.DownloadToFile(ctx, entry.FileURL, archivePath); err != nil {
		return fmt.Errorf("download patch archive: %w", err)
	}
	color.Green("✓ Archive downloaded")

	// Step 4: optional signature verification
	if err := verifyArchive(ctx, downloader, opts, entry, staging, archivePath); err != nil {
		return err
	}

	// Step 5: extract
	extractDir := filepath.Join(staging, "patch_files")
	if err := archive.NewExtractor().ExtractZip(archivePath, extractDir); err != nil {
		return fmt.Errorf("extract archive: %w", err)
	}

	// Step 6: apply the patches
	fmt.Println("Applying patches...")
	pairs := make([]engine.Pair, 0, len(entry.Patches))
	for _, p := range entry.Patches {
		pairs = append(pairs, engine.Pair{PatchPath: p.PatchPath, SourcePath: p.SourcePath})
	}
	report, err := engine.New(extractDir, opts.gameDir, log).Run(pairs)
	if err != nil {
		color.Red("✗ Patch application aborted; your installation was not fully patched")
		return err
	}
	color.Green("✓ %d patch(es) applied, %d skipped", report.Applied, report.Skipped)

	// Step 7: copy extra files
	copyReport, err := extras.New(log).Run(extractDir, opts.gameDir)
	if err != nil {
		return fmt.Errorf("copy extra files: %w", err)
	}
	color.Green("✓ %d extra file(s) copied", copyReport.Copied)

	fmt.Println()
	color.Green("Installation complete. Run 'transpatch uninstall -d %s' to revert.", opts.gameDir)
	return nil
}

// verifyArchive runs GPG verification when both a signature URL and a
// keyring are available. One without the other is reported but not
// fatal; a failed verification is.
func verifyArchive(ctx context.Context, downloader *download.Downloader, opts *installOptions, entry manifest.Platform, staging, archivePath string) error {
	switch {
	case entry.SignatureURL == "" && opts.keyring == "":
		return nil
	case entry.SignatureURL == "":
		color.Yellow("⚠ A keyring was given but the index publishes no signature; skipping verification")
		return nil
	case opts.keyring == "":
		color.Yellow("⚠ The index publishes a signature but no keyring was given; skipping verification")
		return nil
	}

	sigPath := filepath.Join(staging, "patch.zip.sig")
	if err := downloader.DownloadToFile(ctx, entry.SignatureURL, sigPath); err != nil {
		return fmt.Errorf("download signature: %w", err)
	}

	verifier, err := signature.NewVerifier(opts.keyring)
	if err != nil {
		return fmt.Errorf("load keyring: %w", err)
	}
	if err := verifier.VerifyFile(archivePath, sigPath); err != nil {
		color.Red("✗ Signature verification failed; the archive was not touched further")
		return fmt.Errorf("verify archive: %w", err)
	}
	color.Green("✓ Archive signature verified")
	return nil
}

func printInstallHelp() {
	fmt.Println("Usage: transpatch install -d <dir> [options]")
	fmt.Println()
	fmt.Println("Download the latest patch and apply it to a game installation.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -d, --game-dir <dir>   Directory containing the game executable (required)")
	fmt.Println("      --index-url <url>  Patch index to use instead of the default")
	fmt.Println("      --selector <file>  Lua script overriding the Steam/itch detection")
	fmt.Println("      --keyring <file>   GPG public key(s) for archive verification")
	fmt.Println("      --keep-staging     Keep the staging directory for inspection")
	fmt.Println("  -v, --verbose          Enable debug logging")
	fmt.Println("  -h, --help             Show this help")
}
