// Package scan models Solana blocks as returned by getBlock with jsonParsed
// encoding and finds the SAS accounts created inside them.
package scan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoBlock is returned when a block document holds no block, e.g. a
// JSON-RPC response whose result is null because the slot was skipped
var ErrNoBlock = errors.New("no block in document")

// Block is a confirmed block. Only the fields the scanner needs are modelled.
type Block struct {
	Slot              uint64        `json:"slot,omitempty"`
	Blockhash         string        `json:"blockhash"`
	PreviousBlockhash string        `json:"previousBlockhash"`
	ParentSlot        uint64        `json:"parentSlot"`
	BlockHeight       *uint64       `json:"blockHeight"`
	BlockTime         *int64        `json:"blockTime"`
	Transactions      []Transaction `json:"transactions"`
}

// Transaction pairs a transaction with its execution metadata
type Transaction struct {
	Meta        *TransactionMeta    `json:"meta"`
	Transaction TransactionEnvelope `json:"transaction"`
}

// TransactionEnvelope holds the signed transaction
type TransactionEnvelope struct {
	Signatures []string `json:"signatures"`
}

// Signature returns the first signature, which identifies the transaction
func (t *Transaction) Signature() string {
	if len(t.Transaction.Signatures) == 0 {
		return ""
	}
	return t.Transaction.Signatures[0]
}

// TransactionMeta is the execution status of a transaction
type TransactionMeta struct {
	Err               json.RawMessage     `json:"err"`
	InnerInstructions []InnerInstructions `json:"innerInstructions"`
}

// Failed reports whether the transaction returned an error
func (m *TransactionMeta) Failed() bool {
	return len(m.Err) > 0 && !bytes.Equal(m.Err, []byte("null"))
}

// InnerInstructions are the instructions invoked by top-level instruction Index
type InnerInstructions struct {
	Index        int           `json:"index"`
	Instructions []Instruction `json:"instructions"`
}

// Instruction is a single (possibly parsed) instruction
type Instruction struct {
	Program     string             `json:"program,omitempty"`
	ProgramID   string             `json:"programId"`
	Parsed      *ParsedInstruction `json:"parsed,omitempty"`
	StackHeight *int               `json:"stackHeight,omitempty"`
}

// ParsedInstruction is the RPC node's decoding of a known program's instruction.
// Info is kept raw because its shape depends on the program and Type.
type ParsedInstruction struct {
	Type string          `json:"type"`
	Info json.RawMessage `json:"info"`
}

// UnmarshalJSON accepts the object form only. Some programs (memo, for one)
// report a bare string as "parsed"; those decode to an empty instruction.
func (p *ParsedInstruction) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*p = ParsedInstruction{}
		return nil
	}
	type plain ParsedInstruction
	return json.Unmarshal(trimmed, (*plain)(p))
}

// CreateAccountInfo is the info payload of a system program createAccount
type CreateAccountInfo struct {
	Source     string `json:"source"`
	NewAccount string `json:"newAccount"`
	Owner      string `json:"owner"`
	Lamports   uint64 `json:"lamports"`
	Space      uint64 `json:"space"`
}

// CreateAccount returns the createAccount payload, if this is one
func (p *ParsedInstruction) CreateAccount() (CreateAccountInfo, bool) {
	var info CreateAccountInfo
	if p == nil || p.Type != CreateAccountType || len(p.Info) == 0 {
		return info, false
	}
	if err := json.Unmarshal(p.Info, &info); err != nil {
		return info, false
	}
	return info, true
}

// LoadBlockFile reads a block document from disk; see DecodeBlock
func LoadBlockFile(path string) (*Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open block file: %w", err)
	}
	defer f.Close()

	block, err := DecodeBlock(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load block file %s: %w", path, err)
	}
	return block, nil
}

// DecodeBlock reads a block in any of the shapes it is usually saved in:
// a captured response {"slot": N, "block": {...}}, a JSON-RPC envelope
// {"result": {...}}, or a bare block object.
func DecodeBlock(r io.Reader) (*Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read block: %w", err)
	}

	var doc struct {
		Slot   *uint64         `json:"slot"`
		Block  json.RawMessage `json:"block"`
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse block: %w", err)
	}

	raw := data
	switch {
	case len(doc.Block) > 0:
		raw = doc.Block
	case len(doc.Result) > 0:
		raw = doc.Result
	case len(doc.Error) > 0 && !isNull(doc.Error):
		return nil, fmt.Errorf("%w: rpc error %s", ErrNoBlock, doc.Error)
	}
	if isNull(raw) {
		return nil, ErrNoBlock
	}

	var block Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, fmt.Errorf("failed to parse block: %w", err)
	}
	if doc.Slot != nil && block.Slot == 0 {
		block.Slot = *doc.Slot
	}
	return &block, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
