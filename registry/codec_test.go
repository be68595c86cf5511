package registry

import (
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestWalletMapCodec(t *testing.T) {
	m := make(walletMap)

	data, err := encodeWalletMap(m)
	require.NoError(t, err)
	require.Equal(t, []byte{0}, data)

	for i := range 300 {
		var pk Passkey
		pk[0] = 0x04
		pk[1], pk[2] = byte(i>>8), byte(i)

		m[pk] = util.Uint160{byte(i)}
	}

	data, err = encodeWalletMap(m)
	require.NoError(t, err)
	require.Len(t, data, varUintSize(300)+300*encodedPairLen)

	again, err := encodeWalletMap(m)
	require.NoError(t, err)
	require.Equal(t, data, again, "encoding must be deterministic")

	res, err := decodeWalletMap(data)
	require.NoError(t, err)
	require.Equal(t, m, res)

	t.Run("corrupted", func(t *testing.T) {
		for name, b := range map[string][]byte{
			"empty":     {},
			"truncated": data[:len(data)-1],
			"trailing":  append(append([]byte{}, data...), 0),
			"huge":      {0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		} {
			_, err := decodeWalletMap(b)
			require.Error(t, err, name)
		}

		// two equal records
		dup := append([]byte{2}, data[1:1+encodedPairLen]...)
		dup = append(dup, data[1:1+encodedPairLen]...)
		_, err := decodeWalletMap(dup)
		require.Error(t, err)
	})
}

func TestVarUintSize(t *testing.T) {
	for n, l := range map[uint64]int{
		0:           1,
		0xfc:        1,
		0xfd:        3,
		0xffff:      3,
		0x10000:     5,
		0xffffffff:  5,
		0x100000000: 9,
	} {
		require.Equal(t, l, varUintSize(n), n)
	}
}
