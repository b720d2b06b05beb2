package faucet

import (
	"math"
	"strconv"

	"github.com/Amr-9/powfaucet/pkg/ledger"
)

// LamportsFromSOL converts a SOL amount to lamports, rounding to the nearest
// lamport. Negative and NaN inputs give 0.
func LamportsFromSOL(sol float64) uint64 {
	if math.IsNaN(sol) || sol <= 0 {
		return 0
	}
	lamports := math.Round(sol * float64(ledger.LamportsPerSOL))
	if lamports >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(lamports)
}

// SOLFromLamports converts lamports to SOL.
func SOLFromLamports(lamports uint64) float64 {
	return float64(lamports) / float64(ledger.LamportsPerSOL)
}

// FormatSOL renders lamports as a SOL amount without trailing zeros.
func FormatSOL(lamports uint64) string {
	whole := lamports / ledger.LamportsPerSOL
	frac := lamports % ledger.LamportsPerSOL
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	s := strconv.FormatUint(frac+ledger.LamportsPerSOL, 10)[1:]
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return strconv.FormatUint(whole, 10) + "." + s
}
