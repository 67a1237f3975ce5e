package restore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/transpatch/transpatch/internal/testutil"
)

func TestRunRestores(t *testing.T) {
	t.Run("removes patched files and renames backups back", func(t *testing.T) {
		root := t.TempDir()
		testutil.WriteFile(t, filepath.Join(root, "data.win"), []byte("patched"))
		testutil.WriteFile(t, filepath.Join(root, "data.win.bak"), []byte("original"))
		testutil.WriteFile(t, filepath.Join(root, "mods", "lang_en.json"), []byte("patched json"))
		testutil.WriteFile(t, filepath.Join(root, "mods", "lang_en.json.bak"), []byte("original json"))

		report, err := New(nil).Run(root)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Restored != 2 || report.Errors != 0 {
			t.Errorf("report = %+v", report)
		}

		got := testutil.ReadFile(t, filepath.Join(root, "data.win"))
		if !bytes.Equal(got, []byte("original")) {
			t.Errorf("data.win = %q, want original", got)
		}
		got = testutil.ReadFile(t, filepath.Join(root, "mods", "lang_en.json"))
		if !bytes.Equal(got, []byte("original json")) {
			t.Errorf("lang_en.json = %q, want original json", got)
		}
		for _, bak := range []string{"data.win.bak", filepath.Join("mods", "lang_en.json.bak")} {
			if _, err := os.Stat(filepath.Join(root, bak)); !os.IsNotExist(err) {
				t.Errorf("backup %s still present after restore", bak)
			}
		}
	})

	t.Run("restores a backup whose current file is already gone", func(t *testing.T) {
		root := t.TempDir()
		testutil.WriteFile(t, filepath.Join(root, "readme.txt.bak"), []byte("old readme"))

		report, err := New(nil).Run(root)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Restored != 1 || report.Errors != 0 {
			t.Errorf("report = %+v", report)
		}
		if report.Entries[0].Outcome != EntryRestoredMissingCurrent {
			t.Errorf("outcome = %s", report.Entries[0].Outcome)
		}
		got := testutil.ReadFile(t, filepath.Join(root, "readme.txt"))
		if !bytes.Equal(got, []byte("old readme")) {
			t.Errorf("readme.txt = %q", got)
		}
	})

	t.Run("leaves unrelated files alone", func(t *testing.T) {
		root := t.TempDir()
		testutil.WriteFile(t, filepath.Join(root, "save.dat"), []byte("save"))
		testutil.WriteFile(t, filepath.Join(root, "archive.bak.zip"), []byte("not a backup"))

		report, err := New(nil).Run(root)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Restored != 0 || report.Errors != 0 {
			t.Errorf("report = %+v", report)
		}
		if _, err := os.Stat(filepath.Join(root, "archive.bak.zip")); err != nil {
			t.Errorf("archive.bak.zip was touched: %v", err)
		}
	})

	t.Run("second run finds nothing to restore", func(t *testing.T) {
		root := t.TempDir()
		testutil.WriteFile(t, filepath.Join(root, "data.win"), []byte("patched"))
		testutil.WriteFile(t, filepath.Join(root, "data.win.bak"), []byte("original"))

		if _, err := New(nil).Run(root); err != nil {
			t.Fatalf("first Run failed: %v", err)
		}
		report, err := New(nil).Run(root)
		if err != nil {
			t.Fatalf("second Run failed: %v", err)
		}
		if report.Restored != 0 || report.Errors != 0 {
			t.Errorf("second run report = %+v", report)
		}
	})
}

func TestRunFailures(t *testing.T) {
	t.Run("a file literally named .bak is an error", func(t *testing.T) {
		root := t.TempDir()
		testutil.WriteFile(t, filepath.Join(root, ".bak"), []byte("orphan"))

		report, err := New(nil).Run(root)
		if !errors.Is(err, ErrIncomplete) {
			t.Fatalf("expected ErrIncomplete, got %v", err)
		}
		if report.Errors != 1 {
			t.Errorf("report = %+v", report)
		}
		if report.Entries[0].Outcome != EntryAmbiguousName {
			t.Errorf("outcome = %s", report.Entries[0].Outcome)
		}
		// The orphan stays on disk untouched.
		got := testutil.ReadFile(t, filepath.Join(root, ".bak"))
		if !bytes.Equal(got, []byte("orphan")) {
			t.Error("ambiguous backup was modified")
		}
	})

	t.Run("unremovable current file keeps the backup", func(t *testing.T) {
		root := t.TempDir()
		// A non-empty directory squatting on the original path cannot be
		// removed with a plain remove.
		testutil.WriteFile(t, filepath.Join(root, "data.win", "child"), []byte("x"))
		testutil.WriteFile(t, filepath.Join(root, "data.win.bak"), []byte("original"))

		report, err := New(nil).Run(root)
		if !errors.Is(err, ErrIncomplete) {
			t.Fatalf("expected ErrIncomplete, got %v", err)
		}
		if report.Entries[len(report.Entries)-1].Outcome != EntryCannotRemoveCurrent {
			t.Errorf("entries = %+v", report.Entries)
		}
		got := testutil.ReadFile(t, filepath.Join(root, "data.win.bak"))
		if !bytes.Equal(got, []byte("original")) {
			t.Error("backup must be preserved when the current file cannot be removed")
		}
	})

	t.Run("one failure does not stop other restorations", func(t *testing.T) {
		root := t.TempDir()
		testutil.WriteFile(t, filepath.Join(root, ".bak"), []byte("orphan"))
		testutil.WriteFile(t, filepath.Join(root, "data.win"), []byte("patched"))
		testutil.WriteFile(t, filepath.Join(root, "data.win.bak"), []byte("original"))

		report, err := New(nil).Run(root)
		if !errors.Is(err, ErrIncomplete) {
			t.Fatalf("expected ErrIncomplete, got %v", err)
		}
		if report.Restored != 1 || report.Errors != 1 {
			t.Errorf("report = %+v", report)
		}
		got := testutil.ReadFile(t, filepath.Join(root, "data.win"))
		if !bytes.Equal(got, []byte("original")) {
			t.Error("good backup was not restored despite the unrelated failure")
		}
	})

	t.Run("missing root is an error", func(t *testing.T) {
		if _, err := New(nil).Run(filepath.Join(t.TempDir(), "absent")); err == nil {
			t.Error("expected an error for a missing root")
		}
	})
}
