package solana

import (
	"bytes"
	"strings"

	"github.com/mr-tron/base58"
)

// Base58 character constants (using alphabet from matcher.go)
const (
	base58MinChar = '1' // Smallest Base58 character (value 0)
	base58MaxChar = 'z' // Largest Base58 character (value 57)

	// A 32-byte key without a leading zero byte renders to 43 or 44 characters.
	minAddrLen = 43
	maxAddrLen = 44
)

// Base58Range is the inclusive interval of 32-byte big-endian public keys
// whose rendering has exactly Length characters and starts with a prefix.
type Base58Range struct {
	MinBytes  []byte // prefix + "111...1"
	MaxBytes  []byte // prefix + "zzz...z"
	Length    int    // Rendering length this interval covers
	PrefixLen int    // Original prefix length
}

// Contains reports whether key falls inside the interval.
func (r Base58Range) Contains(key []byte) bool {
	return bytes.Compare(key, r.MinBytes) >= 0 && bytes.Compare(key, r.MaxBytes) <= 0
}

// CalculateBase58Ranges converts a Base58 prefix into the byte intervals that
// produce it, one per possible rendering length. Comparing raw key bytes
// against these bounds is far cheaper than encoding every candidate.
//
// Example:
//
//	prefix = "AA"
//	44 chars: decode("AA111...1") <= key <= decode("AAzzz...z")
//	43 chars: decode("AA11...1")  <= key <= decode("AAzz...z")
//
// The intervals are exact for prefixes that do not start with '1': every key
// inside renders with the prefix and every key rendering with it is inside.
func CalculateBase58Ranges(prefix string) ([]Base58Range, error) {
	for _, c := range prefix {
		if !strings.ContainsRune(base58Alphabet, c) {
			return nil, &InvalidBase58Error{Char: c}
		}
	}
	if prefix == "" || prefix[0] == base58MinChar {
		return nil, &UnsupportedPrefixError{Prefix: prefix}
	}

	floor := make([]byte, PublicKeySize)
	floor[0] = 0x01 // keys below this have a leading zero byte and render with '1'
	ceil := bytes.Repeat([]byte{0xff}, PublicKeySize)

	var ranges []Base58Range
	for length := minAddrLen; length <= maxAddrLen; length++ {
		paddingLen := length - len(prefix)
		if paddingLen < 0 {
			continue
		}

		minStr := prefix + strings.Repeat(string(base58MinChar), paddingLen)
		maxStr := prefix + strings.Repeat(string(base58MaxChar), paddingLen)

		minBytes, err := base58.Decode(minStr)
		if err != nil {
			return nil, err
		}
		maxBytes, err := base58.Decode(maxStr)
		if err != nil {
			return nil, err
		}

		if len(minBytes) > PublicKeySize {
			// the whole interval lies above 2^256
			continue
		}
		minBytes = padTo32(minBytes)
		if len(maxBytes) > PublicKeySize {
			maxBytes = ceil
		} else {
			maxBytes = padTo32(maxBytes)
		}
		if bytes.Compare(maxBytes, floor) < 0 {
			continue
		}
		if bytes.Compare(minBytes, floor) < 0 {
			minBytes = floor
		}

		ranges = append(ranges, Base58Range{
			MinBytes:  minBytes,
			MaxBytes:  maxBytes,
			Length:    length,
			PrefixLen: len(prefix),
		})
	}
	return ranges, nil
}

// padTo32 left-pads a big-endian byte slice with zeros to 32 bytes.
func padTo32(b []byte) []byte {
	if len(b) >= PublicKeySize {
		return b[:PublicKeySize]
	}
	result := make([]byte, PublicKeySize)
	copy(result[PublicKeySize-len(b):], b)
	return result
}

// InvalidBase58Error represents an invalid Base58 character error
type InvalidBase58Error struct {
	Char rune
}

func (e *InvalidBase58Error) Error() string {
	return "invalid Base58 character: " + string(e.Char)
}

// UnsupportedPrefixError is returned for prefixes the interval math cannot
// express exactly (empty, or starting with the zero digit '1').
type UnsupportedPrefixError struct {
	Prefix string
}

func (e *UnsupportedPrefixError) Error() string {
	return "prefix has no exact byte range: " + e.Prefix
}
