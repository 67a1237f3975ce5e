package bps

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
)

// footerSize is the fixed trailer of every BPS container:
// source CRC-32, target CRC-32, patch CRC-32, little-endian.
const footerSize = 12

// ErrMalformedContainer indicates a buffer too short to hold the checksum
// footer. Nothing can be verified against such a container.
var ErrMalformedContainer = errors.New("container too short to hold checksum footer")

// Checksum returns the CRC-32 (ISO-HDLC) of data. Deterministic and
// order-dependent; identical input always yields the same 32-bit value.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Container is one immutable binary-diff unit. It owns its raw buffer;
// nothing beyond the footer is parsed until Apply.
type Container struct {
	raw []byte
}

// New wraps raw patch bytes in a Container. Fails with
// ErrMalformedContainer when the buffer cannot hold the footer.
func New(raw []byte) (*Container, error) {
	if len(raw) < footerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedContainer, len(raw))
	}
	return &Container{raw: raw}, nil
}

// Load reads a patch file from disk and wraps it in a Container.
func Load(path string) (*Container, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patch file: %w", err)
	}
	return New(raw)
}

// Len returns the container's raw length in bytes.
func (c *Container) Len() int {
	return len(c.raw)
}

// ExpectedSourceCRC returns the checksum the pre-patch source file must
// have, read from offset len-12 of the raw buffer.
func (c *Container) ExpectedSourceCRC() uint32 {
	return binary.LittleEndian.Uint32(c.raw[len(c.raw)-12:])
}

// ExpectedTargetCRC returns the checksum the patched output must have,
// read from offset len-8 of the raw buffer.
func (c *Container) ExpectedTargetCRC() uint32 {
	return binary.LittleEndian.Uint32(c.raw[len(c.raw)-8:])
}

// PatchCRC returns the checksum of the container itself (all bytes except
// the final four), read from offset len-4 of the raw buffer.
func (c *Container) PatchCRC() uint32 {
	return binary.LittleEndian.Uint32(c.raw[len(c.raw)-4:])
}

// VerifySource reports whether source matches the checksum embedded in
// the container. Pure predicate: no filesystem side effects.
func (c *Container) VerifySource(source []byte) bool {
	return Checksum(source) == c.ExpectedSourceCRC()
}
