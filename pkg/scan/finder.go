package scan

import (
	"errors"
	"fmt"

	"github.com/ssargent/sasinspect/pkg/codec"
)

const (
	// SystemProgramID is the address of the native system program
	SystemProgramID = "11111111111111111111111111111111"

	// DefaultProgramID is the Solana Attestation Service program on mainnet
	DefaultProgramID = "22zoJMtdu4tQc2PzL74ZUT7FrwgB1Udec8DdW4yw4BdG"

	// CreateAccountType is the parsed type of a system createAccount instruction
	CreateAccountType = "createAccount"
)

// ErrNoMatch is returned when a block creates no account owned by the program
var ErrNoMatch = errors.New("no matching createAccount instruction")

// Match is a createAccount instruction that created an account for the program
type Match struct {
	Address  codec.Identifier `json:"address"`
	Owner    codec.Identifier `json:"owner"`
	Source   string           `json:"source,omitempty"`
	Lamports uint64           `json:"lamports"`
	Space    uint64           `json:"space"`

	// Transaction and Instruction are slice positions in the block and in
	// the inner instruction list. Group is the index of the top-level
	// instruction that invoked it, as reported by the node, not a slice
	// position.
	Transaction int    `json:"transaction"`
	Group       int    `json:"group"`
	Instruction int    `json:"instruction"`
	Signature   string `json:"signature,omitempty"`
}

// FindCreatedAccount returns the first account created for owner, walking
// transactions, then inner instruction groups, then instructions, in order.
// Later matches are not examined. Failed transactions are skipped since
// their account creation was rolled back.
func FindCreatedAccount(block *Block, owner codec.Identifier) (Match, error) {
	var found Match
	ok := false
	err := walk(block, owner, func(m Match) bool {
		found = m
		ok = true
		return false
	})
	if err != nil {
		return Match{}, err
	}
	if !ok {
		return Match{}, ErrNoMatch
	}
	return found, nil
}

// FindCreatedAccounts returns every account created for owner, in the same
// order FindCreatedAccount visits them. The result is empty, not an error,
// when nothing matches.
func FindCreatedAccounts(block *Block, owner codec.Identifier) ([]Match, error) {
	var matches []Match
	err := walk(block, owner, func(m Match) bool {
		matches = append(matches, m)
		return true
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// walk calls visit for each match until it returns false
func walk(block *Block, owner codec.Identifier, visit func(Match) bool) error {
	if block == nil {
		return ErrNoBlock
	}
	want := owner.String()

	for ti := range block.Transactions {
		tx := &block.Transactions[ti]
		if tx.Meta == nil || tx.Meta.Failed() {
			continue
		}
		for gi, group := range tx.Meta.InnerInstructions {
			for ii, ix := range group.Instructions {
				if ix.ProgramID != SystemProgramID {
					continue
				}
				info, ok := ix.Parsed.CreateAccount()
				if !ok || info.Owner != want || info.NewAccount == "" {
					continue
				}

				addr, err := codec.ParseIdentifier(info.NewAccount)
				if err != nil {
					return fmt.Errorf("transaction %d group %d instruction %d: new account: %w", ti, gi, ii, err)
				}

				m := Match{
					Address:     addr,
					Owner:       owner,
					Source:      info.Source,
					Lamports:    info.Lamports,
					Space:       info.Space,
					Transaction: ti,
					Group:       group.Index,
					Instruction: ii,
					Signature:   tx.Signature(),
				}
				if !visit(m) {
					return nil
				}
			}
		}
	}
	return nil
}
