// Package engine orchestrates patch application: for each (source, patch)
// pair, verify the source checksum against the container, create a
// copy-based backup, apply the delta in place, and restore from the
// backup if the apply step fails. Files are processed sequentially in
// manifest order; a later patch may depend on an earlier one having
// succeeded, so pipelines never interleave.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/transpatch/transpatch/internal/backup"
	"github.com/transpatch/transpatch/internal/bps"
	"github.com/transpatch/transpatch/internal/logging"
)

// ErrVerificationMismatch indicates a source file whose checksum
// disagrees with the value embedded in its patch container. This aborts
// the whole run with zero mutation for the mismatched file and all later
// files.
var ErrVerificationMismatch = errors.New("source checksum does not match patch")

// Engine applies an ordered patch set. Relative pair paths are resolved
// against PatchRoot (the extracted archive) and GameRoot (the install
// directory).
type Engine struct {
	patchRoot string
	gameRoot  string
	log       logging.Logger
}

// New creates an Engine. A nil logger disables logging.
func New(patchRoot, gameRoot string, log logging.Logger) *Engine {
	if log == nil {
		log = logging.Noop()
	}
	return &Engine{
		patchRoot: patchRoot,
		gameRoot:  gameRoot,
		log:       log,
	}
}

// Run processes pairs in order. Missing files skip to the next pair;
// verification and apply failures abort the run and are returned as the
// error alongside the partial report.
func (e *Engine) Run(pairs []Pair) (*Report, error) {
	report := &Report{}

	for _, pair := range pairs {
		patchPath := filepath.Join(e.patchRoot, pair.PatchPath)
		sourcePath := filepath.Join(e.gameRoot, pair.SourcePath)

		if !fileExists(patchPath) {
			e.log.Error("patch file not found in archive; skipping",
				"patch", pair.PatchPath)
			report.record(pair, OutcomeSkippedMissingPatch, fmt.Errorf("patch file %s not found", pair.PatchPath))
			continue
		}
		if !fileExists(sourcePath) {
			e.log.Error("source file not found in game directory; skipping",
				"source", pair.SourcePath)
			report.record(pair, OutcomeSkippedMissingSource, fmt.Errorf("source file %s not found", pair.SourcePath))
			continue
		}

		container, err := bps.Load(patchPath)
		if err != nil {
			err = fmt.Errorf("load patch %s: %w", pair.PatchPath, err)
			report.record(pair, OutcomeVerificationFailed, err)
			report.Aborted = true
			return report, err
		}

		// Read fresh before each verify/apply cycle; nothing is cached.
		source, err := os.ReadFile(sourcePath)
		if err != nil {
			err = fmt.Errorf("read source %s: %w", pair.SourcePath, err)
			report.record(pair, OutcomeVerificationFailed, err)
			report.Aborted = true
			return report, err
		}

		actual := bps.Checksum(source)
		expected := container.ExpectedSourceCRC()
		if actual != expected {
			e.log.Error("source checksum does not match patch",
				"source", pair.SourcePath,
				"patch", pair.PatchPath,
				"actualCrc", fmt.Sprintf("%08X", actual),
				"expectedCrc", fmt.Sprintf("%08X", expected))
			err = fmt.Errorf("%w: %s has CRC32 %08X, patch %s expects %08X",
				ErrVerificationMismatch, pair.SourcePath, actual, pair.PatchPath, expected)
			report.record(pair, OutcomeVerificationFailed, err)
			report.Aborted = true
			return report, err
		}
		e.log.Info("source checksum matches patch",
			"source", pair.SourcePath,
			"crc", fmt.Sprintf("%08X", actual))

		// Copy-based backup: the original must stay readable at its own
		// path for the delta apply. Backup failure does not block the
		// patch; deliberate policy carried over from the original tool.
		if err := backup.Copy(sourcePath); err != nil {
			e.log.Warn("backup failed; continuing without backup",
				"source", pair.SourcePath, "error", err)
		}

		output, applyErr := container.Apply(source)
		if applyErr == nil {
			applyErr = writeInPlace(sourcePath, output)
		}
		if applyErr != nil {
			e.log.Error("patch application failed",
				"source", pair.SourcePath, "patch", pair.PatchPath, "error", applyErr)
			applyErr = fmt.Errorf("apply patch %s to %s: %w", pair.PatchPath, pair.SourcePath, applyErr)

			if restoreErr := backup.Restore(sourcePath); restoreErr != nil {
				e.log.Error("restore from backup failed; file may be left inconsistent",
					"source", pair.SourcePath, "error", restoreErr)
				report.record(pair, OutcomeApplyFailedUnrestorable, applyErr)
			} else {
				e.log.Warn("source restored from backup after failed apply",
					"source", pair.SourcePath)
				report.record(pair, OutcomeApplyFailedRestored, applyErr)
			}

			// One failed mutation aborts the run: continuing could apply
			// later patches against already-corrupted state.
			report.Aborted = true
			return report, applyErr
		}

		e.log.Info("patch applied", "source", pair.SourcePath, "patch", pair.PatchPath)
		report.record(pair, OutcomeApplied, nil)
	}

	return report, nil
}

// writeInPlace writes data over path, keeping the file's previous
// permission bits when they can be read.
func writeInPlace(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("write patched output: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
