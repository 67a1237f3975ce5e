// Package extras copies the non-patch files of an extracted archive
// (translated assets, fonts, readmes) into the game directory. Patch
// containers themselves are consumed by the apply step and never copied.
package extras

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/transpatch/transpatch/internal/backup"
	"github.com/transpatch/transpatch/internal/logging"
)

// patchExt marks files that belong to the apply step, not the copy step.
const patchExt = ".bps"

// Report counts the copy outcomes for one run.
type Report struct {
	Copied  int
	Skipped int
}

// Copier mirrors extra files from a source tree into the game tree.
type Copier struct {
	log logging.Logger
}

// New creates a Copier. A nil logger disables logging.
func New(log logging.Logger) *Copier {
	if log == nil {
		log = logging.Noop()
	}
	return &Copier{log: log}
}

// Run copies every regular non-patch file under srcRoot to the same
// relative path under gameRoot. An existing destination is first renamed
// aside as a backup; if that rename fails the file is skipped rather
// than overwritten. Per-file copy failures are logged and skipped, so a
// run always processes every candidate.
func (c *Copier) Run(srcRoot, gameRoot string) (*Report, error) {
	report := &Report{}

	err := filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.EqualFold(filepath.Ext(path), patchExt) {
			return nil
		}

		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			c.log.Warn("cannot determine relative path; skipping", "path", path, "error", err)
			report.Skipped++
			return nil
		}
		dest := filepath.Join(gameRoot, rel)

		// Parent creation failure means the whole destination tree is
		// unusable; stop instead of skipping every file one by one.
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", dest, err)
		}

		if fileExists(dest) {
			c.log.Info("existing file renamed to backup", "path", dest, "backup", backup.Path(dest))
			if err := backup.Stash(dest); err != nil {
				c.log.Error("cannot back up existing file; not copying over it",
					"path", dest, "error", err)
				report.Skipped++
				return nil
			}
		}

		if err := copyFile(path, dest); err != nil {
			c.log.Error("copy failed; skipping", "source", path, "dest", dest, "error", err)
			report.Skipped++
			return nil
		}

		c.log.Info("extra file copied", "path", rel)
		report.Copied++
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("copy extra files: %w", err)
	}
	return report, nil
}

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

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
