package bps

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// appendNum encodes v in the BPS variable-length integer format, the
// inverse of byteReader.readNum.
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

// appendFooter closes a patch body with the three footer checksums.
func appendFooter(p []byte, source, target []byte) []byte {
	p = binary.LittleEndian.AppendUint32(p, Checksum(source))
	p = binary.LittleEndian.AppendUint32(p, Checksum(target))
	return binary.LittleEndian.AppendUint32(p, Checksum(p))
}

// literalPatch builds a minimal valid patch that produces target from
// source using a single TargetRead action.
func literalPatch(t *testing.T, source, target []byte) []byte {
	t.Helper()
	p := []byte(magic)
	p = appendNum(p, uint64(len(source)))
	p = appendNum(p, uint64(len(target)))
	p = appendNum(p, 0) // no metadata
	if len(target) > 0 {
		p = appendNum(p, uint64(len(target)-1)<<2|actionTargetRead)
		p = append(p, target...)
	}
	return appendFooter(p, source, target)
}

func mustContainer(t *testing.T, raw []byte) *Container {
	t.Helper()
	c, err := New(raw)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestReadNum(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 129, 300, 16383, 16384, 1 << 20}
	for _, v := range values {
		encoded := appendNum(nil, v)
		r := &byteReader{buf: encoded}
		got := r.readNum()
		if r.err != nil {
			t.Errorf("value %d: decode error: %v", v, r.err)
			continue
		}
		if got != v {
			t.Errorf("value %d: round-tripped to %d", v, got)
		}
	}

	t.Run("truncated number fails", func(t *testing.T) {
		r := &byteReader{buf: []byte{0x00}} // continuation byte, no terminator
		r.readNum()
		if !errors.Is(r.err, ErrCorruptPatch) {
			t.Errorf("expected ErrCorruptPatch, got %v", r.err)
		}
	})
}

func TestApply(t *testing.T) {
	t.Run("applies a literal patch", func(t *testing.T) {
		source := []byte("AAAA")
		target := []byte("BBBB")
		c := mustContainer(t, literalPatch(t, source, target))

		if !c.VerifySource(source) {
			t.Fatal("expected source verification to pass")
		}
		out, err := c.Apply(source)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if !bytes.Equal(out, target) {
			t.Errorf("expected %q, got %q", target, out)
		}
	})

	t.Run("applies all four delta actions", func(t *testing.T) {
		source := []byte("abcdef")
		target := []byte("abcXYZabcXYZ")

		p := []byte(magic)
		p = appendNum(p, uint64(len(source)))
		p = appendNum(p, uint64(len(target)))
		p = appendNum(p, 0)
		// SourceRead 3: "abc" from source at the output offset.
		p = appendNum(p, uint64(3-1)<<2|actionSourceRead)
		// TargetRead 3: literal "XYZ".
		p = appendNum(p, uint64(3-1)<<2|actionTargetRead)
		p = append(p, 'X', 'Y', 'Z')
		// SourceCopy 3 from relative offset 0: "abc" again.
		p = appendNum(p, uint64(3-1)<<2|actionSourceCopy)
		p = appendNum(p, 0)
		// TargetCopy 3 from relative offset +3: already-written "XYZ".
		p = appendNum(p, uint64(3-1)<<2|actionTargetCopy)
		p = appendNum(p, 3<<1)
		p = appendFooter(p, source, target)

		out, err := mustContainer(t, p).Apply(source)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if !bytes.Equal(out, target) {
			t.Errorf("expected %q, got %q", target, out)
		}
	})

	t.Run("target copy may overlap its own output", func(t *testing.T) {
		// Run-length expansion: one literal byte repeated via TargetCopy.
		source := []byte{}
		target := []byte("aaaaa")

		p := []byte(magic)
		p = appendNum(p, 0)
		p = appendNum(p, uint64(len(target)))
		p = appendNum(p, 0)
		p = appendNum(p, uint64(1-1)<<2|actionTargetRead)
		p = append(p, 'a')
		p = appendNum(p, uint64(4-1)<<2|actionTargetCopy)
		p = appendNum(p, 0)
		p = appendFooter(p, source, target)

		out, err := mustContainer(t, p).Apply(source)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if !bytes.Equal(out, target) {
			t.Errorf("expected %q, got %q", target, out)
		}
	})

	t.Run("skips metadata", func(t *testing.T) {
		source := []byte("AAAA")
		target := []byte("BBBB")

		meta := []byte(`{"made-with":"test"}`)
		p := []byte(magic)
		p = appendNum(p, uint64(len(source)))
		p = appendNum(p, uint64(len(target)))
		p = appendNum(p, uint64(len(meta)))
		p = append(p, meta...)
		p = appendNum(p, uint64(len(target)-1)<<2|actionTargetRead)
		p = append(p, target...)
		p = appendFooter(p, source, target)

		out, err := mustContainer(t, p).Apply(source)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if !bytes.Equal(out, target) {
			t.Errorf("expected %q, got %q", target, out)
		}
	})
}

func TestApplyFailures(t *testing.T) {
	source := []byte("AAAA")
	target := []byte("BBBB")

	t.Run("rejects a source with the wrong checksum", func(t *testing.T) {
		c := mustContainer(t, literalPatch(t, source, target))
		_, err := c.Apply([]byte("AAAB"))
		if !errors.Is(err, ErrCorruptPatch) {
			t.Errorf("expected ErrCorruptPatch, got %v", err)
		}
	})

	t.Run("rejects a source with the wrong length", func(t *testing.T) {
		c := mustContainer(t, literalPatch(t, source, target))
		_, err := c.Apply([]byte("AAAAA"))
		if !errors.Is(err, ErrCorruptPatch) {
			t.Errorf("expected ErrCorruptPatch, got %v", err)
		}
	})

	t.Run("rejects a bad magic", func(t *testing.T) {
		p := literalPatch(t, source, target)
		p[0] = 'X'
		// Fix up the patch CRC so only the magic is wrong.
		binary.LittleEndian.PutUint32(p[len(p)-4:], Checksum(p[:len(p)-4]))
		_, err := mustContainer(t, p).Apply(source)
		if !errors.Is(err, ErrCorruptPatch) {
			t.Errorf("expected ErrCorruptPatch, got %v", err)
		}
	})

	t.Run("rejects a flipped body byte via the patch checksum", func(t *testing.T) {
		p := literalPatch(t, source, target)
		p[6] ^= 0x40
		_, err := mustContainer(t, p).Apply(source)
		if !errors.Is(err, ErrCorruptPatch) {
			t.Errorf("expected ErrCorruptPatch, got %v", err)
		}
	})

	t.Run("rejects a stream that underfills the target", func(t *testing.T) {
		// Declares five output bytes but only writes four. The checksum
		// gate still passes: internal structural checks are separate.
		declared := []byte("BBBBB")
		p := []byte(magic)
		p = appendNum(p, uint64(len(source)))
		p = appendNum(p, uint64(len(declared)))
		p = appendNum(p, 0)
		p = appendNum(p, uint64(len(target)-1)<<2|actionTargetRead)
		p = append(p, target...)
		p = appendFooter(p, source, declared)

		c := mustContainer(t, p)
		if !c.VerifySource(source) {
			t.Fatal("checksum gate should pass for this container")
		}
		_, err := c.Apply(source)
		if !errors.Is(err, ErrCorruptPatch) {
			t.Errorf("expected ErrCorruptPatch, got %v", err)
		}
	})

	t.Run("rejects an action that writes past the target", func(t *testing.T) {
		p := []byte(magic)
		p = appendNum(p, uint64(len(source)))
		p = appendNum(p, 2)
		p = appendNum(p, 0)
		p = appendNum(p, uint64(4-1)<<2|actionTargetRead)
		p = append(p, target...)
		p = appendFooter(p, source, []byte("BB"))

		_, err := mustContainer(t, p).Apply(source)
		if !errors.Is(err, ErrCorruptPatch) {
			t.Errorf("expected ErrCorruptPatch, got %v", err)
		}
	})

	t.Run("rejects a source copy out of range", func(t *testing.T) {
		p := []byte(magic)
		p = appendNum(p, uint64(len(source)))
		p = appendNum(p, 4)
		p = appendNum(p, 0)
		p = appendNum(p, uint64(4-1)<<2|actionSourceCopy)
		p = appendNum(p, 10<<1) // relative offset +10, past end of source
		p = appendFooter(p, source, target)

		_, err := mustContainer(t, p).Apply(source)
		if !errors.Is(err, ErrCorruptPatch) {
			t.Errorf("expected ErrCorruptPatch, got %v", err)
		}
	})
}

func TestLiteralPatchHelperIsValid(t *testing.T) {
	// Guards the helper the tests above depend on.
	src := []byte("helper source")
	dst := []byte("helper target bytes")
	c := mustContainer(t, literalPatch(t, src, dst))
	out, err := c.Apply(src)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !bytes.Equal(out, dst) {
		t.Errorf("expected %q, got %q", dst, out)
	}
}
