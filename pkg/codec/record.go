package codec

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tag identifies the record kind stored in an account
type Tag uint8

const (
	TagCredential  Tag = 0
	TagSchema      Tag = 1
	TagAttestation Tag = 2
)

// Minimum encoded sizes, tag byte included
const (
	credentialMinSize  = 1 + IdentifierSize + 4 + 4
	schemaMinSize      = 1 + IdentifierSize + 4*4 + 1 + 1
	attestationMinSize = 1 + 3*IdentifierSize + 4 + IdentifierSize + 8 + IdentifierSize
)

// Valid reports whether t is one of the known record tags
func (t Tag) Valid() bool {
	return t <= TagAttestation
}

func (t Tag) String() string {
	switch t {
	case TagCredential:
		return "credential"
	case TagSchema:
		return "schema"
	case TagAttestation:
		return "attestation"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// MinSize returns the smallest possible encoding of a record with tag t,
// counting empty strings and an empty signer list.
func MinSize(t Tag) (int, bool) {
	switch t {
	case TagCredential:
		return credentialMinSize, true
	case TagSchema:
		return schemaMinSize, true
	case TagAttestation:
		return attestationMinSize, true
	default:
		return 0, false
	}
}

// Record is a decoded SAS account. It is implemented only by
// *Credential, *Schema and *Attestation.
type Record interface {
	Tag() Tag
	isRecord()
}

// Credential is an issuing authority and the signers it allows
type Credential struct {
	Authority         Identifier   `json:"authority"`
	Name              string       `json:"name"`
	AuthorizedSigners []Identifier `json:"authorizedSigners"`
}

// Schema describes the layout of attestation data for a credential
type Schema struct {
	Credential  Identifier `json:"credential"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Layout      string     `json:"layout"`
	FieldNames  string     `json:"fieldNames"`
	IsPaused    bool       `json:"isPaused"`
	Version     uint8      `json:"version"`
}

// Attestation is a signed statement made against a schema
type Attestation struct {
	Nonce        Identifier `json:"nonce"`
	Credential   Identifier `json:"credential"`
	Schema       Identifier `json:"schema"`
	Data         string     `json:"data"`
	Signer       Identifier `json:"signer"`
	Expiry       int64      `json:"expiry"`
	ExpiryDate   *time.Time `json:"expiryDate"`
	TokenAccount Identifier `json:"tokenAccount"`
}

func (*Credential) Tag() Tag  { return TagCredential }
func (*Schema) Tag() Tag      { return TagSchema }
func (*Attestation) Tag() Tag { return TagAttestation }

func (*Credential) isRecord()  {}
func (*Schema) isRecord()      {}
func (*Attestation) isRecord() {}

// Expires reports whether the attestation has an expiry
func (a *Attestation) Expires() bool {
	return a.ExpiryDate != nil
}

// ExpiredAt reports whether the attestation has expired at t
func (a *Attestation) ExpiredAt(t time.Time) bool {
	return a.ExpiryDate != nil && !t.Before(*a.ExpiryDate)
}

// expiryDate converts a stored expiry into a timestamp; 0 means none
func expiryDate(expiry int64) *time.Time {
	if expiry == 0 {
		return nil
	}
	t := time.Unix(expiry, 0).UTC()
	return &t
}

// The JSON forms carry the record type so a bare record is self-describing.

func (c Credential) MarshalJSON() ([]byte, error) {
	type alias Credential
	signers := c.AuthorizedSigners
	if signers == nil {
		signers = []Identifier{}
	}
	a := alias(c)
	a.AuthorizedSigners = signers
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"Credential", a})
}

func (s Schema) MarshalJSON() ([]byte, error) {
	type alias Schema
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"Schema", alias(s)})
}

func (a Attestation) MarshalJSON() ([]byte, error) {
	type alias Attestation
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"Attestation", alias(a)})
}
