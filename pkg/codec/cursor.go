package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrOutOfBounds is returned when a read would run past the end of the buffer
	ErrOutOfBounds = errors.New("read out of bounds")

	// ErrInvalidUTF8 is returned by strict string reads on malformed UTF-8
	ErrInvalidUTF8 = errors.New("invalid utf-8")
)

// Cursor reads fields sequentially from an immutable byte buffer.
// The offset only moves forward, and a failed read leaves it unchanged.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor creates a cursor over buf starting at off
func NewCursor(buf []byte, off int) *Cursor {
	if off < 0 {
		off = 0
	}
	if off > len(buf) {
		off = len(buf)
	}
	return &Cursor{buf: buf, off: off}
}

// Offset returns the offset of the next unread byte
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of unread bytes
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

// ReadFixed returns the next n bytes and advances past them.
// The returned slice aliases the underlying buffer.
func (c *Cursor) ReadFixed(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrOutOfBounds, n, c.off, c.Remaining())
	}
	b := c.buf[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

// ReadUint8 reads a single byte
func (c *Cursor) ReadUint8() (uint8, error) {
	b, err := c.ReadFixed(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint32LE reads a little-endian uint32
func (c *Cursor) ReadUint32LE() (uint32, error) {
	b, err := c.ReadFixed(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadInt64LE reads a little-endian two's complement int64
func (c *Cursor) ReadInt64LE() (int64, error) {
	b, err := c.ReadFixed(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// ReadLengthPrefixedBytes reads a uint32 length followed by that many bytes.
// If the payload does not fit, the offset is restored to the length prefix.
func (c *Cursor) ReadLengthPrefixedBytes() ([]byte, error) {
	start := c.off
	n, err := c.ReadUint32LE()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(c.Remaining()) {
		rem := c.Remaining()
		c.off = start
		return nil, fmt.Errorf("%w: length prefix %d at offset %d exceeds %d remaining bytes",
			ErrOutOfBounds, n, start, rem)
	}
	return c.ReadFixed(int(n))
}

// ReadIdentifier reads a 32-byte identifier. Any 32 bytes are valid.
func ReadIdentifier(c *Cursor) (Identifier, error) {
	var id Identifier
	b, err := c.ReadFixed(IdentifierSize)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// ReadString reads a length-prefixed string. Malformed UTF-8 is passed through
// unchanged unless strict is set, in which case ErrInvalidUTF8 is returned
// after the bytes have been consumed.
func ReadString(c *Cursor, strict bool) (string, error) {
	b, err := c.ReadLengthPrefixedBytes()
	if err != nil {
		return "", err
	}
	if strict && !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}
