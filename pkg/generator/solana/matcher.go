package solana

import (
	"strings"
)

// Base58 alphabet (Bitcoin/Solana style - excludes 0, O, I, l)
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// DifficultyMatcher decides whether a candidate public key meets a faucet
// difficulty. It rejects most candidates with two byte comparisons and only
// renders the survivors, so Passes stays the single authority.
type DifficultyMatcher struct {
	difficulty uint8
	ranges     []Base58Range
}

// NewDifficultyMatcher creates a matcher for the given difficulty.
func NewDifficultyMatcher(difficulty uint8) *DifficultyMatcher {
	m := &DifficultyMatcher{difficulty: difficulty}
	if difficulty == 0 || difficulty > MaxDifficulty {
		return m
	}
	ranges, err := CalculateBase58Ranges(strings.Repeat(string(Sentinel), int(difficulty)))
	if err == nil {
		m.ranges = ranges
	}
	return m
}

// Difficulty returns the target difficulty.
func (m *DifficultyMatcher) Difficulty() uint8 {
	return m.difficulty
}

// Matches checks a raw 32-byte public key.
func (m *DifficultyMatcher) Matches(pub []byte) bool {
	if m.difficulty == 0 {
		return true
	}
	if m.ranges != nil {
		inside := false
		for _, r := range m.ranges {
			if r.Contains(pub) {
				inside = true
				break
			}
		}
		if !inside {
			return false
		}
	}
	return Passes(pub, m.difficulty)
}

// IsValidBase58 checks if a string contains only valid Base58 characters.
// Base58 excludes: 0 (zero), O (uppercase o), I (uppercase i), l (lowercase L)
func IsValidBase58(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune(base58Alphabet, c) {
			return false
		}
	}
	return true
}

// InvalidBase58Chars returns any invalid Base58 characters in the input.
// Useful for providing helpful error messages to users.
func InvalidBase58Chars(s string) []rune {
	var invalid []rune
	for _, c := range s {
		if !strings.ContainsRune(base58Alphabet, c) {
			invalid = append(invalid, c)
		}
	}
	return invalid
}
