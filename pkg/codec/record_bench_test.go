//go:build bench
// +build bench

package codec

import (
	"bytes"
	"testing"
)

func BenchmarkRecordCodec_Decode(b *testing.B) {
	codec := NewRecordCodec()

	many := newRecord(TagCredential).id(1).str("issuer").u32(64)
	for i := 0; i < 64; i++ {
		many.id(byte(i))
	}

	benchmarks := []struct {
		name string
		data []byte
	}{
		{name: "credential", data: sampleCredential()},
		{name: "credential_64_signers", data: many.bytes()},
		{name: "schema", data: sampleSchema()},
		{name: "attestation", data: sampleAttestation()},
		{
			name: "attestation_large_data",
			data: newRecord(TagAttestation).id(1).id(2).id(3).
				str(string(bytes.Repeat([]byte("d"), 4096))).
				id(4).i64(1700000000).id(5).bytes(),
		},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			b.SetBytes(int64(len(bm.data)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := codec.Decode(bm.data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRecordCodec_DecodeStrict(b *testing.B) {
	codec := NewRecordCodec(WithStrictUTF8())
	data := sampleSchema()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Decode(data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCursor_ReadIdentifier(b *testing.B) {
	data := newRecord(0).id(9).bytes()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := NewCursor(data, 1)
		if _, err := ReadIdentifier(c); err != nil {
			b.Fatal(err)
		}
	}
}
