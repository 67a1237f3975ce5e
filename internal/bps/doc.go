// Package bps loads BPS binary-diff containers and applies them to source
// file contents.
//
// A BPS container carries a 12-byte footer: the CRC-32 of the expected
// pre-patch source, the CRC-32 of the produced target, and the CRC-32 of
// the patch itself, each little-endian. The source checksum doubles as the
// compatibility gate: callers verify it against the actual file bytes
// before any mutation happens. All checksums use CRC-32/ISO-HDLC, the
// standard reflected-0xEDB88320 variant implemented by hash/crc32.
package bps
