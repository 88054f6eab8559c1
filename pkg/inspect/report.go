package inspect

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/sasinspect/pkg/codec"
)

// Where the account bytes of a report came from
const (
	SourceInput  = "input"
	SourceCache  = "cache"
	SourceLedger = "ledger"
)

var storedCodec = codec.NewRecordCodec()

// Report is the outcome of inspecting one account
type Report struct {
	ID        ksuid.KSUID       `json:"id"`
	Address   *codec.Identifier `json:"address,omitempty"`
	Owner     *codec.Identifier `json:"owner,omitempty"`
	Slot      uint64            `json:"slot,omitempty"`
	Signature string            `json:"signature,omitempty"`
	Source    string            `json:"source"`

	// Kind is the record tag name, or unknown(N) when Recognized is false
	Kind       string       `json:"kind"`
	Recognized bool         `json:"recognized"`
	Record     codec.Record `json:"record,omitempty"`

	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stored reports whether the report has been persisted
func (r *Report) Stored() bool {
	return !r.ID.IsNil()
}

// UnmarshalReport restores a stored report. The record is rebuilt from the
// raw account bytes rather than from its JSON form, always with the lenient
// codec: the bytes were accepted when the report was made, and turning on
// strict UTF-8 later must not hide older reports.
func UnmarshalReport(data []byte) (*Report, error) {
	type plain Report
	var stored struct {
		plain
		Record json.RawMessage `json:"record,omitempty"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	r := Report(stored.plain)
	if !r.Recognized {
		return &r, nil
	}

	rec, err := storedCodec.Decode(r.Data)
	if err != nil {
		return nil, fmt.Errorf("stored report %s no longer decodes: %w", r.ID, err)
	}
	r.Record = rec
	return &r, nil
}

// newReport classifies data into a report. Structural decode errors are
// returned; an unknown tag is a report with Recognized false.
func newReport(rc *codec.RecordCodec, data []byte, source string) (*Report, error) {
	r := &Report{
		Source:    source,
		Data:      append([]byte(nil), data...),
		CreatedAt: time.Now().UTC(),
	}

	rec, err := rc.Decode(data)
	switch {
	case err == nil:
		r.Kind = rec.Tag().String()
		r.Recognized = true
		r.Record = rec
	case codec.IsUnrecognized(err):
		r.Kind = codec.Tag(data[0]).String()
	default:
		return nil, err
	}
	return r, nil
}
