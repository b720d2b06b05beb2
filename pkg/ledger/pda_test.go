package ledger

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

func TestCreateProgramAddress(t *testing.T) {
	programID := solana.MustPublicKey("BPFLoaderUpgradeab1e11111111111111111111111")
	seedKey := solana.MustPublicKey("SeedPubey1111111111111111111111111111111111")

	tests := []struct {
		seeds [][]byte
		want  string
	}{
		{[][]byte{{}, {1}}, "BwqrghZA2htAcqq8dzP1WDAhTXYTYWj7CHxF5j7TDBAe"},
		{[][]byte{[]byte("☉"), {0}}, "13yWmRpaTR4r5nAktwLqMpRNr28tnVUZw26rTvPSSB19"},
		{[][]byte{[]byte("Talking"), []byte("Squirrels")}, "2fnQrngrQT4SeLcdToJAD96phoEjNL2man2kfRLCASVk"},
		{[][]byte{seedKey[:], {1}}, "976ymqVnfE32QFe6NfGDctSvVa36LWnvYxhU6G2232YL"},
	}

	for _, tt := range tests {
		addr, err := CreateProgramAddress(tt.seeds, programID)
		require.NoError(t, err)
		assert.Equal(t, tt.want, addr.String())
	}
}

func TestCreateProgramAddressLimits(t *testing.T) {
	programID := solana.MustPublicKey("BPFLoaderUpgradeab1e11111111111111111111111")

	_, err := CreateProgramAddress([][]byte{bytes.Repeat([]byte{1}, MaxSeedLength+1)}, programID)
	assert.True(t, errors.Is(err, ErrInvalidSeeds))

	tooMany := make([][]byte, MaxSeeds+1)
	_, err = CreateProgramAddress(tooMany, programID)
	assert.True(t, errors.Is(err, ErrInvalidSeeds))

	_, _, err = FindProgramAddress(make([][]byte, MaxSeeds), programID)
	assert.True(t, errors.Is(err, ErrInvalidSeeds))
}

func TestFindProgramAddress(t *testing.T) {
	programID := solana.MustPublicKey("BPFLoaderUpgradeab1e11111111111111111111111")

	for i := 0; i < 200; i++ {
		seeds := [][]byte{[]byte("spec"), {byte(i)}}
		addr, bump, err := FindProgramAddress(seeds, programID)
		require.NoError(t, err)
		assert.False(t, IsOnCurve(addr[:]))

		again, err := CreateProgramAddress(append(seeds, []byte{bump}), programID)
		require.NoError(t, err)
		assert.Equal(t, addr, again)

		same, sameBump, err := FindProgramAddress(seeds, programID)
		require.NoError(t, err)
		assert.Equal(t, addr, same)
		assert.Equal(t, bump, sameBump)
	}
}

func TestIsOnCurve(t *testing.T) {
	kp, err := solana.NewKeypair()
	require.NoError(t, err)
	pub := kp.PublicKey()
	assert.True(t, IsOnCurve(pub[:]))
	assert.False(t, IsOnCurve([]byte{1, 2, 3}))
}
