package codec

import (
	"errors"
	"fmt"
)

// RecordCodec decodes SAS account data
type RecordCodec struct {
	strictUTF8 bool
}

// Option configures a RecordCodec
type Option func(*RecordCodec)

// WithStrictUTF8 rejects string fields that are not valid UTF-8
func WithStrictUTF8() Option {
	return func(c *RecordCodec) {
		c.strictUTF8 = true
	}
}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec(opts ...Option) *RecordCodec {
	c := &RecordCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StrictUTF8 reports whether string fields are validated
func (c *RecordCodec) StrictUTF8() bool {
	return c.strictUTF8
}

var defaultCodec = NewRecordCodec()

// Decode decodes data with the default, lenient codec
func Decode(data []byte) (Record, error) {
	return defaultCodec.Decode(data)
}

// PeekTag returns the record tag without decoding the rest of the data
func PeekTag(data []byte) (Tag, error) {
	if len(data) == 0 {
		return 0, ErrEmptyBuffer
	}
	tag := Tag(data[0])
	if !tag.Valid() {
		return tag, &UnknownTagError{Tag: data[0]}
	}
	return tag, nil
}

// Decode reads the tag at offset 0 and decodes the matching record layout
func (c *RecordCodec) Decode(data []byte) (Record, error) {
	tag, err := PeekTag(data)
	if err != nil {
		return nil, err
	}

	// Each case returns explicitly so a failed decode yields a nil Record,
	// not an interface holding a nil pointer.
	cur := NewCursor(data, 1)
	switch tag {
	case TagCredential:
		rec, err := decodeCredential(cur, c.strictUTF8)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case TagSchema:
		rec, err := decodeSchema(cur, c.strictUTF8)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case TagAttestation:
		rec, err := decodeAttestation(cur, c.strictUTF8)
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, &UnknownTagError{Tag: uint8(tag)}
}

// fieldReader reads named fields from a cursor and keeps the first error.
// After a failure every further read is a no-op returning a zero value.
type fieldReader struct {
	cur    *Cursor
	tag    Tag
	strict bool
	err    error
}

func (r *fieldReader) fail(field string, off int, err error) {
	if errors.Is(err, ErrInvalidUTF8) {
		r.err = &InvalidUTF8Error{Tag: r.tag, Field: field, Offset: off}
		return
	}
	r.err = &TruncatedRecordError{Tag: r.tag, Field: field, Offset: off, Err: err}
}

func (r *fieldReader) id(field string) Identifier {
	if r.err != nil {
		return Identifier{}
	}
	off := r.cur.Offset()
	id, err := ReadIdentifier(r.cur)
	if err != nil {
		r.fail(field, off, err)
	}
	return id
}

func (r *fieldReader) str(field string) string {
	if r.err != nil {
		return ""
	}
	off := r.cur.Offset()
	s, err := ReadString(r.cur, r.strict)
	if err != nil {
		r.fail(field, off, err)
	}
	return s
}

func (r *fieldReader) u8(field string) uint8 {
	if r.err != nil {
		return 0
	}
	off := r.cur.Offset()
	v, err := r.cur.ReadUint8()
	if err != nil {
		r.fail(field, off, err)
	}
	return v
}

func (r *fieldReader) u32(field string) uint32 {
	if r.err != nil {
		return 0
	}
	off := r.cur.Offset()
	v, err := r.cur.ReadUint32LE()
	if err != nil {
		r.fail(field, off, err)
	}
	return v
}

func (r *fieldReader) i64(field string) int64 {
	if r.err != nil {
		return 0
	}
	off := r.cur.Offset()
	v, err := r.cur.ReadInt64LE()
	if err != nil {
		r.fail(field, off, err)
	}
	return v
}

// decodeCredential reads authority, name, then a counted list of signers
func decodeCredential(cur *Cursor, strict bool) (*Credential, error) {
	r := &fieldReader{cur: cur, tag: TagCredential, strict: strict}

	authority := r.id("authority")
	name := r.str("name")
	count := r.u32("authorizedSigners.count")
	if r.err != nil {
		return nil, r.err
	}

	// Reject impossible counts before allocating for them
	if uint64(count)*IdentifierSize > uint64(cur.Remaining()) {
		r.fail("authorizedSigners", cur.Offset(), fmt.Errorf("%w: %d signers need %d bytes, have %d",
			ErrOutOfBounds, count, uint64(count)*IdentifierSize, cur.Remaining()))
		return nil, r.err
	}

	signers := make([]Identifier, 0, count)
	for i := uint32(0); i < count; i++ {
		off := cur.Offset()
		id, err := ReadIdentifier(cur)
		if err != nil {
			r.fail(fmt.Sprintf("authorizedSigners[%d]", i), off, err)
			return nil, r.err
		}
		signers = append(signers, id)
	}

	return &Credential{
		Authority:         authority,
		Name:              name,
		AuthorizedSigners: signers,
	}, nil
}

// decodeSchema reads the credential, four strings, then the paused flag and version
func decodeSchema(cur *Cursor, strict bool) (*Schema, error) {
	r := &fieldReader{cur: cur, tag: TagSchema, strict: strict}

	credential := r.id("credential")
	name := r.str("name")
	description := r.str("description")
	layout := r.str("layout")
	fieldNames := r.str("fieldNames")
	paused := r.u8("isPaused")
	version := r.u8("version")
	if r.err != nil {
		return nil, r.err
	}

	return &Schema{
		Credential:  credential,
		Name:        name,
		Description: description,
		Layout:      layout,
		FieldNames:  fieldNames,
		IsPaused:    paused == 1,
		Version:     version,
	}, nil
}

// decodeAttestation reads the attestation fields; ExpiryDate is derived from Expiry
func decodeAttestation(cur *Cursor, strict bool) (*Attestation, error) {
	r := &fieldReader{cur: cur, tag: TagAttestation, strict: strict}

	nonce := r.id("nonce")
	credential := r.id("credential")
	schema := r.id("schema")
	data := r.str("data")
	signer := r.id("signer")
	expiry := r.i64("expiry")
	tokenAccount := r.id("tokenAccount")
	if r.err != nil {
		return nil, r.err
	}

	return &Attestation{
		Nonce:        nonce,
		Credential:   credential,
		Schema:       schema,
		Data:         data,
		Signer:       signer,
		Expiry:       expiry,
		ExpiryDate:   expiryDate(expiry),
		TokenAccount: tokenAccount,
	}, nil
}
