package codec

import (
	"bytes"
	"errors"
	"testing"
)

func TestCursor_ReadFixed(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}

	t.Run("reads and advances", func(t *testing.T) {
		c := NewCursor(buf, 1)
		got, err := c.ReadFixed(3)
		if err != nil {
			t.Fatalf("ReadFixed failed: %v", err)
		}
		if !bytes.Equal(got, []byte{2, 3, 4}) {
			t.Errorf("got %v, want [2 3 4]", got)
		}
		if c.Offset() != 4 {
			t.Errorf("offset: got %d, want 4", c.Offset())
		}
		if c.Remaining() != 1 {
			t.Errorf("remaining: got %d, want 1", c.Remaining())
		}
	})

	t.Run("zero length read", func(t *testing.T) {
		c := NewCursor(buf, 5)
		got, err := c.ReadFixed(0)
		if err != nil {
			t.Fatalf("ReadFixed(0) failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty slice, got %v", got)
		}
	})

	t.Run("out of bounds leaves offset", func(t *testing.T) {
		c := NewCursor(buf, 3)
		_, err := c.ReadFixed(3)
		if !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds, got %v", err)
		}
		if c.Offset() != 3 {
			t.Errorf("offset moved to %d after failed read", c.Offset())
		}
	})

	t.Run("negative length", func(t *testing.T) {
		c := NewCursor(buf, 0)
		if _, err := c.ReadFixed(-1); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("expected ErrOutOfBounds, got %v", err)
		}
	})

	t.Run("returned slice cannot grow into buffer", func(t *testing.T) {
		c := NewCursor(buf, 0)
		got, _ := c.ReadFixed(2)
		if cap(got) != 2 {
			t.Errorf("cap: got %d, want 2", cap(got))
		}
	})
}

func TestNewCursor_ClampsOffset(t *testing.T) {
	if c := NewCursor([]byte{1, 2}, -4); c.Offset() != 0 {
		t.Errorf("negative offset: got %d, want 0", c.Offset())
	}
	if c := NewCursor([]byte{1, 2}, 9); c.Offset() != 2 || c.Remaining() != 0 {
		t.Errorf("past-end offset: got %d remaining %d", c.Offset(), c.Remaining())
	}
}

func TestCursor_Integers(t *testing.T) {
	buf := []byte{
		0x7F,                   // u8
		0x78, 0x56, 0x34, 0x12, // u32 0x12345678
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // i64 -1
	}
	c := NewCursor(buf, 0)

	u8, err := c.ReadUint8()
	if err != nil || u8 != 0x7F {
		t.Fatalf("ReadUint8: got %d, %v", u8, err)
	}

	u32, err := c.ReadUint32LE()
	if err != nil || u32 != 0x12345678 {
		t.Fatalf("ReadUint32LE: got %#x, %v", u32, err)
	}

	i64, err := c.ReadInt64LE()
	if err != nil || i64 != -1 {
		t.Fatalf("ReadInt64LE: got %d, %v", i64, err)
	}

	if _, err := c.ReadUint8(); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds at end, got %v", err)
	}
}

func TestCursor_ShortIntegers(t *testing.T) {
	if _, err := NewCursor([]byte{1, 2, 3}, 0).ReadUint32LE(); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("u32: expected ErrOutOfBounds, got %v", err)
	}
	if _, err := NewCursor([]byte{1, 2, 3, 4, 5, 6, 7}, 0).ReadInt64LE(); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("i64: expected ErrOutOfBounds, got %v", err)
	}
	if _, err := NewCursor(nil, 0).ReadUint8(); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("u8: expected ErrOutOfBounds, got %v", err)
	}
}

func TestCursor_ReadLengthPrefixedBytes(t *testing.T) {
	t.Run("payload", func(t *testing.T) {
		c := NewCursor([]byte{3, 0, 0, 0, 'a', 'b', 'c', 'x'}, 0)
		got, err := c.ReadLengthPrefixedBytes()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if string(got) != "abc" {
			t.Errorf("got %q, want %q", got, "abc")
		}
		if c.Offset() != 7 {
			t.Errorf("offset: got %d, want 7", c.Offset())
		}
	})

	t.Run("empty payload consumes only the prefix", func(t *testing.T) {
		c := NewCursor([]byte{0, 0, 0, 0, 9}, 0)
		got, err := c.ReadLengthPrefixedBytes()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(got) != 0 || c.Offset() != 4 {
			t.Errorf("got %v at offset %d", got, c.Offset())
		}
	})

	t.Run("length past end", func(t *testing.T) {
		c := NewCursor([]byte{0xFF, 0xFF, 0xFF, 0xFF, 'a'}, 0)
		_, err := c.ReadLengthPrefixedBytes()
		if !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds, got %v", err)
		}
		if c.Offset() != 0 {
			t.Errorf("offset moved to %d after failed read", c.Offset())
		}
	})

	t.Run("truncated prefix", func(t *testing.T) {
		c := NewCursor([]byte{1, 0}, 0)
		if _, err := c.ReadLengthPrefixedBytes(); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("expected ErrOutOfBounds, got %v", err)
		}
	})
}

func TestReadString(t *testing.T) {
	bad := []byte{2, 0, 0, 0, 0xFF, 0xFE}

	t.Run("lenient passes bytes through", func(t *testing.T) {
		s, err := ReadString(NewCursor(bad, 0), false)
		if err != nil {
			t.Fatalf("lenient read failed: %v", err)
		}
		if s != "\xff\xfe" {
			t.Errorf("got %q", s)
		}
	})

	t.Run("strict rejects", func(t *testing.T) {
		c := NewCursor(bad, 0)
		_, err := ReadString(c, true)
		if !errors.Is(err, ErrInvalidUTF8) {
			t.Fatalf("expected ErrInvalidUTF8, got %v", err)
		}
		if c.Offset() != len(bad) {
			t.Errorf("strict read should consume the field, offset %d", c.Offset())
		}
	})

	t.Run("strict accepts unicode", func(t *testing.T) {
		c := NewCursor(newRecord(0).str("héllo 🔑").bytes(), 1)
		s, err := ReadString(c, true)
		if err != nil || s != "héllo 🔑" {
			t.Errorf("got %q, %v", s, err)
		}
	})
}

func TestReadIdentifier(t *testing.T) {
	buf := newRecord(0).id(0x42).bytes()
	c := NewCursor(buf, 1)

	id, err := ReadIdentifier(c)
	if err != nil {
		t.Fatalf("ReadIdentifier failed: %v", err)
	}
	if id != filled(0x42) {
		t.Errorf("got %x", id[:])
	}

	// identifiers are copies
	buf[1] = 0
	if id[0] != 0x42 {
		t.Error("identifier aliases the input buffer")
	}

	if _, err := ReadIdentifier(NewCursor(make([]byte, 31), 0)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds for 31 bytes, got %v", err)
	}
}
