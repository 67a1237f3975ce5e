// Package testutil builds fixture data for testing transpatch in
// isolation: minimal valid BPS containers and on-disk game trees.
package testutil

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
)

// LiteralBPS builds a minimal valid BPS patch that transforms source into
// target using a single literal (TargetRead) action. The footer carries
// the real CRC-32 values, so containers built from it pass both the
// compatibility gate and the decoder's internal checks.
func LiteralBPS(source, target []byte) []byte {
	p := []byte("BPS1")
	p = appendNum(p, uint64(len(source)))
	p = appendNum(p, uint64(len(target)))
	p = appendNum(p, 0) // no metadata
	if len(target) > 0 {
		p = appendNum(p, uint64(len(target)-1)<<2|1) // TargetRead
		p = append(p, target...)
	}
	p = binary.LittleEndian.AppendUint32(p, crc32.ChecksumIEEE(source))
	p = binary.LittleEndian.AppendUint32(p, crc32.ChecksumIEEE(target))
	return binary.LittleEndian.AppendUint32(p, crc32.ChecksumIEEE(p))
}

// appendNum encodes v in the BPS variable-length integer format.
func appendNum(b []byte, v uint64) []byte {
	for {
		x := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, x|0x80)
		}
		b = append(b, x)
		v--
	}
}

// WriteFile writes a file, creating parent directories, failing the test
// on error.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile reads a file, failing the test on error.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
