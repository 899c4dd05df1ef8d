package address_test

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/token/address"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"with prefix", "0x00112233445566778899aabbccddeeff00112233", false},
		{"without prefix", "00112233445566778899aabbccddeeff00112233", false},
		{"upper case", "0x00112233445566778899AABBCCDDEEFF00112233", false},
		{"too short", "0x0011", true},
		{"bad hex", "0xzz112233445566778899aabbccddeeff00112233", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := address.Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "0x00112233445566778899aabbccddeeff00112233", a.String())
		})
	}
}

func TestFromPublicKeyDeterministic(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	a1 := address.FromPublicKey(pub)
	a2 := address.FromPublicKey(pub)
	require.Equal(t, a1, a2)
	require.False(t, a1.IsZero())

	seed[0] = 1
	other := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	require.NotEqual(t, a1, address.FromPublicKey(other))
}

func TestZero(t *testing.T) {
	var a address.Address
	require.True(t, a.IsZero())
	require.Equal(t, "0x"+strings.Repeat("0", 40), a.String())
}

func TestTextRoundTrip(t *testing.T) {
	a := address.MustParse("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	data, err := a.MarshalText()
	require.NoError(t, err)

	var restored address.Address
	require.NoError(t, restored.UnmarshalText(data))
	require.Equal(t, a, restored)
}

func TestScan(t *testing.T) {
	a := address.MustParse("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")

	var fromString address.Address
	require.NoError(t, fromString.Scan(a.String()))
	require.Equal(t, a, fromString)

	var fromRaw address.Address
	require.NoError(t, fromRaw.Scan(a.Bytes()))
	require.Equal(t, a, fromRaw)

	var fromNil address.Address
	require.NoError(t, fromNil.Scan(nil))
	require.True(t, fromNil.IsZero())

	require.Error(t, fromNil.Scan(42))
}

func TestUsableAsMapKey(t *testing.T) {
	a := address.MustParse("0x0000000000000000000000000000000000000001")
	b := address.MustParse("0x0000000000000000000000000000000000000001")

	m := map[address.Address]uint64{a: 10}
	require.Equal(t, uint64(10), m[b])
}
