package codec

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// IdentifierSize is the encoded size of an Identifier in bytes
const IdentifierSize = 32

// ErrInvalidIdentifier is returned when text does not decode to a 32-byte identifier
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Identifier is a 32-byte account address or public key.
// It is opaque: two identifiers are equal when their bytes are equal.
type Identifier [IdentifierSize]byte

// ParseIdentifier decodes a base-58 identifier
func ParseIdentifier(s string) (Identifier, error) {
	var id Identifier
	b, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("%w %q: %v", ErrInvalidIdentifier, s, err)
	}
	if len(b) != IdentifierSize {
		return id, fmt.Errorf("%w %q: decoded to %d bytes, want %d", ErrInvalidIdentifier, s, len(b), IdentifierSize)
	}
	copy(id[:], b)
	return id, nil
}

// MustParseIdentifier is like ParseIdentifier but panics on error.
// It is meant for well-known constants.
func MustParseIdentifier(s string) Identifier {
	id, err := ParseIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the base-58 form
func (id Identifier) String() string {
	return base58.Encode(id[:])
}

// Bytes returns a copy of the raw bytes
func (id Identifier) Bytes() []byte {
	b := make([]byte, IdentifierSize)
	copy(b, id[:])
	return b
}

// IsZero reports whether all bytes are zero
func (id Identifier) IsZero() bool {
	return id == Identifier{}
}

// MarshalText implements encoding.TextMarshaler
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
