package ledger

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

// Code classifies why the ledger refused a transaction.
type Code int

const (
	CodeUnknown Code = iota
	CodeAccountExists
	CodeAccountNotFound
	CodeInsufficientFunds
	CodeMissingSignature
	CodeInvalidSignature
	CodeDifficultyNotMet
	CodeFeePayerUnderfunded
	CodeInvalidInstruction
	CodeUnknownProgram
	CodeCongested
)

var codeNames = map[Code]string{
	CodeUnknown:             "unknown",
	CodeAccountExists:       "account_exists",
	CodeAccountNotFound:     "account_not_found",
	CodeInsufficientFunds:   "insufficient_funds",
	CodeMissingSignature:    "missing_signature",
	CodeInvalidSignature:    "invalid_signature",
	CodeDifficultyNotMet:    "difficulty_not_met",
	CodeFeePayerUnderfunded: "fee_payer_underfunded",
	CodeInvalidInstruction:  "invalid_instruction",
	CodeUnknownProgram:      "unknown_program",
	CodeCongested:           "congested",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognised names decode
// to CodeUnknown.
func (c *Code) UnmarshalText(text []byte) error {
	for code, name := range codeNames {
		if name == string(text) {
			*c = code
			return nil
		}
	}
	*c = CodeUnknown
	return nil
}

// Rejection is the typed refusal of a transaction. Instruction is the index of
// the failing instruction, or -1 for transaction-level checks.
type Rejection struct {
	Code        Code             `json:"code"`
	Instruction int              `json:"instruction"`
	Account     solana.PublicKey `json:"account"`
	Message     string           `json:"message,omitempty"`
}

func (r *Rejection) Error() string {
	s := "transaction rejected: " + r.Code.String()
	if r.Instruction >= 0 {
		s += fmt.Sprintf(" (instruction %d)", r.Instruction)
	}
	if !r.Account.IsZero() {
		s += " account " + r.Account.String()
	}
	if r.Message != "" {
		s += ": " + r.Message
	}
	return s
}

// Reject builds an instruction-level rejection. The ledger fills in the index.
func Reject(code Code, account solana.PublicKey, format string, args ...interface{}) *Rejection {
	return &Rejection{
		Code:        code,
		Instruction: -1,
		Account:     account,
		Message:     fmt.Sprintf(format, args...),
	}
}

// AsRejection extracts a *Rejection from anywhere in err's chain.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
