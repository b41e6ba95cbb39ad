package address

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw := make([]byte, Size)
	for i := range raw {
		raw[i] = byte(i)
	}
	addr := FromBytes(raw)

	encoded, err := Encode(addr)
	require.NoError(t, err, "Encode")

	decoded, err := Decode(encoded)
	require.NoError(t, err, "Decode")
	require.Equal(t, addr, decoded)
}

func TestIsZero(t *testing.T) {
	var addr Address
	require.True(t, addr.IsZero())

	addr[0] = 1
	require.False(t, addr.IsZero())
}

func TestUsableAsMapKey(t *testing.T) {
	m := make(map[Address]int)
	a := FromBytes([]byte{1, 2, 3})
	b := FromBytes([]byte{1, 2, 3})
	m[a] = 1
	m[b] = 2
	require.Len(t, m, 1, "identical byte contents must collide to the same map key")
}
