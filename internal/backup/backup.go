// Package backup implements the reversible-mutation protocol shared by
// the install and uninstall flows. The on-disk backup file is the only
// record that a file was modified: no separate manifest is persisted, and
// the naming convention is the wire contract between the two flows.
//
// Two strategies exist and are both needed. The patch-application flow
// uses a copy-based backup because the original must remain readable at
// its own path while the delta is applied against it. The ancillary-copy
// flow uses a rename-based backup because the destination is about to be
// replaced wholesale.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Suffix is appended after a file's full name (extension included) to
// form its backup path: game.exe -> game.exe.bak.
const Suffix = ".bak"

var (
	// ErrAmbiguousName indicates a backup file whose original path cannot
	// be derived (a file literally named ".bak" with no stem).
	ErrAmbiguousName = errors.New("cannot derive original name for backup file")

	// ErrNoBackup indicates a restore was requested but no backup exists.
	ErrNoBackup = errors.New("no backup file exists")
)

// Path returns the backup path for target.
func Path(target string) string {
	return target + Suffix
}

// IsBackup reports whether path carries the backup extension.
func IsBackup(path string) bool {
	return filepath.Ext(path) == Suffix
}

// Original derives the original path for a backup file by stripping the
// trailing Suffix. Fails with ErrAmbiguousName when stripping would be a
// no-op or leave an empty file name.
func Original(bakPath string) (string, error) {
	if !strings.HasSuffix(bakPath, Suffix) {
		return "", fmt.Errorf("%w: %s has no %s suffix", ErrAmbiguousName, bakPath, Suffix)
	}
	stem := strings.TrimSuffix(filepath.Base(bakPath), Suffix)
	if stem == "" {
		return "", fmt.Errorf("%w: %s", ErrAmbiguousName, bakPath)
	}
	return strings.TrimSuffix(bakPath, Suffix), nil
}

// Exists reports whether a backup exists for target.
func Exists(target string) bool {
	info, err := os.Stat(Path(target))
	return err == nil && !info.IsDir()
}

// Copy creates a copy-based backup of target, replacing any stale backup.
// Backups are not versioned: last one wins. The original stays readable
// at its own path.
func Copy(target string) error {
	bak := Path(target)
	os.Remove(bak) // stale backup, no error if absent

	if err := copyFile(target, bak); err != nil {
		return fmt.Errorf("create backup %s: %w", bak, err)
	}
	return nil
}

// Stash creates a rename-based backup: removes any stale backup, then
// atomically renames target out of the way.
func Stash(target string) error {
	bak := Path(target)
	os.Remove(bak)

	if err := os.Rename(target, bak); err != nil {
		return fmt.Errorf("rename %s to backup: %w", target, err)
	}
	return nil
}

// Restore copies the backup back over target. This is a best-effort
// recovery action, never the primary success path; the backup file is
// left in place for the uninstall flow.
func Restore(target string) error {
	bak := Path(target)
	if _, err := os.Stat(bak); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoBackup, bak)
		}
		return fmt.Errorf("stat backup %s: %w", bak, err)
	}

	if err := copyFile(bak, target); err != nil {
		return fmt.Errorf("restore %s from backup: %w", target, err)
	}
	return nil
}

// copyFile copies src to dst, carrying over the source's permission bits.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
