// Package codec decodes Solana Attestation Service (SAS) account data.
//
// SAS program accounts hold one of three record kinds. The first byte of the
// account data is a tag selecting the layout of the bytes that follow:
//
//	0 = Credential
//	1 = Schema
//	2 = Attestation
//
// # Record Formats
//
// All integers are little-endian. Identifiers are 32 raw bytes (a public key).
// Strings are a 4-byte length followed by that many bytes of UTF-8.
//
//	Credential:  [Tag(1)][Authority(32)][Name(str)][SignerCount(4)][Signer(32)]*SignerCount
//	Schema:      [Tag(1)][Credential(32)][Name(str)][Description(str)][Layout(str)]
//	             [FieldNames(str)][IsPaused(1)][Version(1)]
//	Attestation: [Tag(1)][Nonce(32)][Credential(32)][Schema(32)][Data(str)]
//	             [Signer(32)][Expiry(8, signed)][TokenAccount(32)]
//
// An attestation Expiry of 0 means the attestation never expires; any other
// value is a Unix timestamp in seconds and is exposed as ExpiryDate.
// IsPaused is true only when the stored byte is exactly 1.
//
// Bytes after the last field are ignored, since accounts are usually allocated
// larger than the record they hold.
//
// # Usage
//
//	rec, err := codec.Decode(accountData)
//	if err != nil {
//	    return err
//	}
//
//	switch r := rec.(type) {
//	case *codec.Credential:
//	    fmt.Println(r.Name, len(r.AuthorizedSigners))
//	case *codec.Schema:
//	    fmt.Println(r.Name, r.Version)
//	case *codec.Attestation:
//	    fmt.Println(r.Signer, r.ExpiryDate)
//	}
//
// # Error Handling
//
// Decoding never returns a partially populated record. Failures are reported as:
//   - ErrEmptyBuffer when there is no tag byte
//   - *UnknownTagError when the tag is not 0, 1 or 2
//   - *TruncatedRecordError (unwraps to ErrOutOfBounds) when a field runs past
//     the end of the buffer; it names the field and its offset
//   - *InvalidUTF8Error (unwraps to ErrInvalidUTF8) for malformed strings, only
//     when the codec was built with WithStrictUTF8
//
// By default strings are not validated, matching how existing on-chain data is
// read by other SAS clients.
//
// # Thread Safety
//
// RecordCodec holds no mutable state and is safe for concurrent use. Each
// Decode call owns its Cursor. Decoded records copy everything they need out of
// the input buffer and never alias it.
package codec
