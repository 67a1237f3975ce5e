// Package restore reverses an installation by scanning a directory tree
// for backup files and renaming each one back over its original path.
// It shares only the backup naming convention with the install flow; no
// other state is consulted.
package restore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/transpatch/transpatch/internal/backup"
	"github.com/transpatch/transpatch/internal/logging"
)

// EntryOutcome is the terminal state of one backup file.
type EntryOutcome string

const (
	// EntryRestored means the current file was removed and the backup
	// renamed into place.
	EntryRestored EntryOutcome = "restored"
	// EntryRestoredMissingCurrent means the original file was already
	// absent; noted, and the backup was restored anyway.
	EntryRestoredMissingCurrent EntryOutcome = "restored-missing-current"
	// EntryAmbiguousName means the original path could not be derived
	// from the backup name. No restoration is attempted.
	EntryAmbiguousName EntryOutcome = "ambiguous-name"
	// EntryCannotRemoveCurrent means the patched file could not be
	// deleted. The backup is preserved for a later attempt.
	EntryCannotRemoveCurrent EntryOutcome = "cannot-remove-current"
	// EntryCannotRenameBackup means the rename into place failed. The
	// backup is left on disk; original and backup state is unresolved.
	EntryCannotRenameBackup EntryOutcome = "cannot-rename-backup"
)

// Entry is the recorded outcome for one backup file.
type Entry struct {
	BackupPath   string
	OriginalPath string
	Outcome      EntryOutcome
	Err          error
}

// Report aggregates restoration counts for a run.
type Report struct {
	Entries  []Entry
	Restored int
	Errors   int
}

// ErrIncomplete reports that at least one backup could not be restored.
// Partial success is still a reported failure.
var ErrIncomplete = errors.New("uninstall finished with errors")

// Engine walks a game directory and restores backups.
type Engine struct {
	log logging.Logger
}

// New creates an Engine. A nil logger disables logging.
func New(log logging.Logger) *Engine {
	if log == nil {
		log = logging.Noop()
	}
	return &Engine{log: log}
}

// Run walks root and restores every backup file found. The walk order is
// filesystem-default and not significant. Per-entry failures never stop
// the walk, but any failure makes the aggregate run an error.
func (e *Engine) Run(root string) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	report := &Report{}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.log.Warn("cannot read directory entry; skipping", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !backup.IsBackup(path) {
			return nil
		}

		e.restoreOne(path, report)
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	if report.Errors > 0 {
		return report, fmt.Errorf("%w: %d of %d backups not restored",
			ErrIncomplete, report.Errors, report.Errors+report.Restored)
	}
	return report, nil
}

func (e *Engine) restoreOne(bakPath string, report *Report) {
	original, err := backup.Original(bakPath)
	if err != nil {
		e.log.Error("cannot determine original name for backup; skipping",
			"backup", bakPath, "error", err)
		report.add(Entry{BackupPath: bakPath, Outcome: EntryAmbiguousName, Err: err})
		return
	}

	e.log.Info("backup found", "backup", bakPath)

	outcome := EntryRestored
	if fileExists(original) {
		e.log.Info("removing current patched file", "path", original)
		if err := os.Remove(original); err != nil {
			e.log.Error("cannot remove current file; keeping backup",
				"path", original, "error", err)
			report.add(Entry{
				BackupPath:   bakPath,
				OriginalPath: original,
				Outcome:      EntryCannotRemoveCurrent,
				Err:          fmt.Errorf("remove current file: %w", err),
			})
			return
		}
	} else {
		e.log.Info("current file already absent; restoring anyway", "path", original)
		outcome = EntryRestoredMissingCurrent
	}

	if err := os.Rename(bakPath, original); err != nil {
		e.log.Error("cannot rename backup into place; backup kept",
			"backup", bakPath, "path", original, "error", err)
		report.add(Entry{
			BackupPath:   bakPath,
			OriginalPath: original,
			Outcome:      EntryCannotRenameBackup,
			Err:          fmt.Errorf("rename backup: %w", err),
		})
		return
	}

	e.log.Info("file restored", "path", original)
	report.add(Entry{BackupPath: bakPath, OriginalPath: original, Outcome: outcome})
}

func (r *Report) add(entry Entry) {
	r.Entries = append(r.Entries, entry)
	switch entry.Outcome {
	case EntryRestored, EntryRestoredMissingCurrent:
		r.Restored++
	default:
		r.Errors++
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
