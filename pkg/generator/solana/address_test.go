package solana

import (
	"math/big"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode32(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base58.Decode(s)
	require.NoError(t, err)
	require.Len(t, b, PublicKeySize, "fixture %s must decode to 32 bytes", s)
	return b
}

func TestPasses(t *testing.T) {
	aaa := decode32(t, "AAA"+strings.Repeat("2", 41))

	tests := []struct {
		name       string
		address    []byte
		difficulty uint8
		want       bool
	}{
		{"zero difficulty always passes", make([]byte, PublicKeySize), 0, true},
		{"zero difficulty on nil", nil, 0, true},
		{"exact prefix", aaa, 3, true},
		{"shorter prefix", aaa, 1, true},
		{"prefix too long", aaa, 4, false},
		{"all zero bytes render as ones", make([]byte, PublicKeySize), 1, false},
		{"difficulty beyond rendering", aaa, 45, false},
		{"difficulty beyond max", aaa, 255, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Passes(tt.address, tt.difficulty))
		})
	}
}

func TestPassesLeadingZeroByte(t *testing.T) {
	// the tail alone would render with a leading 'A'; the zero byte in front
	// shifts the rendering to start with '1'
	tail := decode32(t, "A"+strings.Repeat("z", 42))
	require.True(t, Passes(tail, 1))

	withZero := append([]byte{0x00}, tail[1:]...)
	assert.Equal(t, byte('1'), base58.Encode(withZero)[0])
	assert.False(t, Passes(withZero, 1))
	assert.Equal(t, 0, LeadingRun(withZero))
}

func TestPassesMatchesRendering(t *testing.T) {
	for i := 0; i < 2000; i++ {
		kp, err := NewKeypair()
		require.NoError(t, err)
		pub := kp.PublicKey()
		rendered := pub.String()
		for d := uint8(0); d <= 3; d++ {
			want := strings.HasPrefix(rendered, strings.Repeat("A", int(d)))
			assert.Equal(t, want, Passes(pub[:], d), "address %s difficulty %d", rendered, d)
		}
	}
}

func TestLeadingRun(t *testing.T) {
	assert.Equal(t, 3, LeadingRun(decode32(t, "AAA"+strings.Repeat("2", 41))))
	assert.Equal(t, 0, LeadingRun(decode32(t, "B"+strings.Repeat("A", 42))))
}

func TestExpectedAttempts(t *testing.T) {
	assert.Equal(t, 1.0, ExpectedAttempts(0))
	assert.Equal(t, 58.0, ExpectedAttempts(1))
	assert.Equal(t, 58.0*58.0*58.0, ExpectedAttempts(3))
}

func TestPublicKeyText(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)
	pub := kp.PublicKey()

	parsed, err := PublicKeyFromBase58(pub.String())
	require.NoError(t, err)
	assert.Equal(t, pub, parsed)

	text, err := pub.MarshalText()
	require.NoError(t, err)
	var decoded PublicKey
	require.NoError(t, decoded.UnmarshalText(text))
	assert.True(t, decoded.Equals(pub))

	_, err = PublicKeyFromBase58("0OIl")
	assert.True(t, errors.Is(err, ErrInvalidPublicKey))

	_, err = PublicKeyFromBase58("abc")
	assert.True(t, errors.Is(err, ErrInvalidPublicKey))
}

func TestDifficultyMatcherAgreesWithPasses(t *testing.T) {
	for _, d := range []uint8{0, 1, 2} {
		m := NewDifficultyMatcher(d)
		for i := 0; i < 3000; i++ {
			kp, err := NewKeypair()
			require.NoError(t, err)
			pub := kp.PublicKey()
			assert.Equal(t, Passes(pub[:], d), m.Matches(pub[:]), "difficulty %d address %s", d, pub)
		}
	}
}

func TestBase58RangeBoundaries(t *testing.T) {
	ranges, err := CalculateBase58Ranges("AAA")
	require.NoError(t, err)
	require.Len(t, ranges, 2)

	for _, r := range ranges {
		assert.True(t, Passes(r.MinBytes, 3), "min of length %d", r.Length)
		assert.True(t, Passes(r.MaxBytes, 3), "max of length %d", r.Length)
		assert.Len(t, base58.Encode(r.MinBytes), r.Length)

		below := new(big.Int).SetBytes(r.MinBytes)
		below.Sub(below, big.NewInt(1))
		belowBytes := padTo32(below.Bytes())
		assert.False(t, r.Contains(belowBytes))
		assert.False(t, Passes(belowBytes, 3))

		above := new(big.Int).SetBytes(r.MaxBytes)
		above.Add(above, big.NewInt(1))
		aboveBytes := padTo32(above.Bytes())
		assert.False(t, r.Contains(aboveBytes))
		assert.False(t, Passes(aboveBytes, 3))
	}
}

func TestCalculateBase58RangesRejects(t *testing.T) {
	_, err := CalculateBase58Ranges("A0")
	var invalid *InvalidBase58Error
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, '0', invalid.Char)

	_, err = CalculateBase58Ranges("1A")
	var unsupported *UnsupportedPrefixError
	assert.True(t, errors.As(err, &unsupported))
}
