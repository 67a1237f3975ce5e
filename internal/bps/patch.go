package bps

import (
	"errors"
	"fmt"
)

// magic identifies a BPS version 1 stream.
const magic = "BPS1"

// Delta actions, encoded in the low two bits of each action word.
const (
	actionSourceRead = 0
	actionTargetRead = 1
	actionSourceCopy = 2
	actionTargetCopy = 3
)

// maxOutputSize bounds the declared source/target sizes so a corrupt
// header cannot drive a huge allocation.
const maxOutputSize = 1 << 31

// ErrCorruptPatch indicates the delta stream failed one of its internal
// structural checks. This can happen even after the source checksum gate
// passed, so callers must treat Apply as fallible regardless.
var ErrCorruptPatch = errors.New("corrupt patch")

// byteReader walks the action stream. It carries its error so decode
// loops stay flat; callers check err once per logical read.
type byteReader struct {
	buf []byte
	off int
	err error
}

func (r *byteReader) done() bool {
	return r.err != nil || r.off >= len(r.buf)
}

func (r *byteReader) readByte() byte {
	if r.err != nil {
		return 0
	}
	if r.off >= len(r.buf) {
		r.err = fmt.Errorf("%w: truncated action stream", ErrCorruptPatch)
		return 0
	}
	b := r.buf[r.off]
	r.off++
	return b
}

// readNum decodes the BPS variable-length integer: little-endian base-128
// groups with the high bit terminating, and an implicit +1 carried into
// every continued group.
func (r *byteReader) readNum() uint64 {
	var data uint64
	shift := uint64(1)
	for {
		x := r.readByte()
		if r.err != nil {
			return 0
		}
		data += uint64(x&0x7f) * shift
		if x&0x80 != 0 {
			return data
		}
		shift <<= 7
		data += shift
		if shift > maxOutputSize {
			r.err = fmt.Errorf("%w: oversized number", ErrCorruptPatch)
			return 0
		}
	}
}

// Apply decodes the container's delta against source and returns the
// patched output bytes. The source must match both the declared size and
// the embedded checksum; the produced output is checked against the
// target checksum before being returned.
func (c *Container) Apply(source []byte) ([]byte, error) {
	if len(c.raw) < len(magic)+footerSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for a header", ErrCorruptPatch, len(c.raw))
	}
	if string(c.raw[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptPatch, c.raw[:len(magic)])
	}
	if actual := Checksum(c.raw[:len(c.raw)-4]); actual != c.PatchCRC() {
		return nil, fmt.Errorf("%w: patch checksum %08x does not match footer %08x",
			ErrCorruptPatch, actual, c.PatchCRC())
	}

	r := &byteReader{buf: c.raw[len(magic) : len(c.raw)-footerSize]}

	sourceSize := r.readNum()
	targetSize := r.readNum()
	metaSize := r.readNum()
	if r.err != nil {
		return nil, r.err
	}
	if sourceSize > maxOutputSize || targetSize > maxOutputSize {
		return nil, fmt.Errorf("%w: declared sizes %d/%d out of range", ErrCorruptPatch, sourceSize, targetSize)
	}
	if metaSize > uint64(len(r.buf)-r.off) {
		return nil, fmt.Errorf("%w: metadata length %d exceeds stream", ErrCorruptPatch, metaSize)
	}
	r.off += int(metaSize)

	if uint64(len(source)) != sourceSize {
		return nil, fmt.Errorf("%w: source is %d bytes, patch expects %d",
			ErrCorruptPatch, len(source), sourceSize)
	}
	if !c.VerifySource(source) {
		return nil, fmt.Errorf("%w: source checksum %08x does not match expected %08x",
			ErrCorruptPatch, Checksum(source), c.ExpectedSourceCRC())
	}

	target := make([]byte, targetSize)
	var outputOffset, sourceOffset, targetOffset int

	for !r.done() {
		word := r.readNum()
		if r.err != nil {
			return nil, r.err
		}
		length := int(word>>2) + 1
		if outputOffset+length > len(target) {
			return nil, fmt.Errorf("%w: action writes past end of target", ErrCorruptPatch)
		}

		switch word & 3 {
		case actionSourceRead:
			if outputOffset+length > len(source) {
				return nil, fmt.Errorf("%w: source read past end of source", ErrCorruptPatch)
			}
			copy(target[outputOffset:], source[outputOffset:outputOffset+length])
			outputOffset += length

		case actionTargetRead:
			if r.off+length > len(r.buf) {
				return nil, fmt.Errorf("%w: literal data past end of stream", ErrCorruptPatch)
			}
			copy(target[outputOffset:], r.buf[r.off:r.off+length])
			r.off += length
			outputOffset += length

		case actionSourceCopy:
			offset := r.readNum()
			if r.err != nil {
				return nil, r.err
			}
			sourceOffset += signedOffset(offset)
			if sourceOffset < 0 || sourceOffset+length > len(source) {
				return nil, fmt.Errorf("%w: source copy out of range", ErrCorruptPatch)
			}
			copy(target[outputOffset:], source[sourceOffset:sourceOffset+length])
			sourceOffset += length
			outputOffset += length

		case actionTargetCopy:
			offset := r.readNum()
			if r.err != nil {
				return nil, r.err
			}
			targetOffset += signedOffset(offset)
			if targetOffset < 0 || targetOffset >= outputOffset {
				return nil, fmt.Errorf("%w: target copy out of range", ErrCorruptPatch)
			}
			// Byte-at-a-time: the region may overlap its own output.
			for i := 0; i < length; i++ {
				target[outputOffset] = target[targetOffset]
				outputOffset++
				targetOffset++
			}
		}
	}

	if outputOffset != len(target) {
		return nil, fmt.Errorf("%w: produced %d of %d target bytes", ErrCorruptPatch, outputOffset, len(target))
	}
	if actual := Checksum(target); actual != c.ExpectedTargetCRC() {
		return nil, fmt.Errorf("%w: output checksum %08x does not match expected %08x",
			ErrCorruptPatch, actual, c.ExpectedTargetCRC())
	}

	return target, nil
}

// signedOffset unpacks the sign-and-magnitude relative offset used by the
// copy actions: bit 0 is the sign, the rest is the magnitude.
func signedOffset(v uint64) int {
	magnitude := int(v >> 1)
	if v&1 != 0 {
		return -magnitude
	}
	return magnitude
}
