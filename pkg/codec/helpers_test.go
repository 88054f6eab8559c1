package codec

import (
	"bytes"
	"encoding/binary"
)

// recordBuilder assembles account data by hand for tests
type recordBuilder struct {
	buf bytes.Buffer
}

func newRecord(tag Tag) *recordBuilder {
	b := &recordBuilder{}
	b.buf.WriteByte(byte(tag))
	return b
}

func (b *recordBuilder) id(fill byte) *recordBuilder {
	b.buf.Write(bytes.Repeat([]byte{fill}, IdentifierSize))
	return b
}

func (b *recordBuilder) ident(id Identifier) *recordBuilder {
	b.buf.Write(id[:])
	return b
}

func (b *recordBuilder) str(s string) *recordBuilder {
	return b.raw([]byte(s))
}

func (b *recordBuilder) raw(p []byte) *recordBuilder {
	b.u32(uint32(len(p)))
	b.buf.Write(p)
	return b
}

func (b *recordBuilder) u8(v uint8) *recordBuilder {
	b.buf.WriteByte(v)
	return b
}

func (b *recordBuilder) u32(v uint32) *recordBuilder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *recordBuilder) i64(v int64) *recordBuilder {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	b.buf.Write(tmp[:])
	return b
}

func (b *recordBuilder) bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

func filled(fill byte) Identifier {
	var id Identifier
	for i := range id {
		id[i] = fill
	}
	return id
}

func sampleCredential() []byte {
	return newRecord(TagCredential).
		id(0xA1).
		str("Acme Issuer").
		u32(2).
		id(0xB1).
		id(0xB2).
		bytes()
}

func sampleSchema() []byte {
	return newRecord(TagSchema).
		id(0xC1).
		str("kyc").
		str("Know your customer").
		raw([]byte{12, 0}).
		str(`["name","country"]`).
		u8(1).
		u8(3).
		bytes()
}

func sampleAttestation() []byte {
	return newRecord(TagAttestation).
		id(0x01).
		id(0x02).
		id(0x03).
		str("verified").
		id(0x04).
		i64(1700000000).
		id(0x05).
		bytes()
}
