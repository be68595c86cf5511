package registry

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// walletMap binds passkeys to wallet addresses.
type walletMap map[Passkey]util.Uint160

// encodedPairLen is the length of single encoded map record.
const encodedPairLen = PasskeyLen + util.Uint160Size

// encodeWalletMap serializes m in a deterministic way: var-uint length followed
// by records sorted by passkey.
func encodeWalletMap(m walletMap) ([]byte, error) {
	pks := make([]Passkey, 0, len(m))
	for pk := range m {
		pks = append(pks, pk)
	}

	slices.SortFunc(pks, func(a, b Passkey) int {
		return bytes.Compare(a[:], b[:])
	})

	w := io.NewBufBinWriter()
	w.WriteVarUint(uint64(len(pks)))

	for i := range pks {
		addr := m[pks[i]]
		w.WriteBytes(pks[i][:])
		w.WriteBytes(addr[:])
	}

	if w.Err != nil {
		return nil, w.Err
	}

	return w.Bytes(), nil
}

// decodeWalletMap is the inverse of encodeWalletMap.
func decodeWalletMap(data []byte) (walletMap, error) {
	r := io.NewBinReaderFromBuf(data)

	n := r.ReadVarUint()
	if r.Err != nil {
		return nil, fmt.Errorf("read map length: %w", r.Err)
	}

	rest := uint64(len(data) - varUintSize(n))
	if n > rest/encodedPairLen || n*encodedPairLen != rest {
		return nil, fmt.Errorf("map of %d records doesn't fit %d bytes", n, rest)
	}

	m := make(walletMap, n)

	var prev Passkey
	for i := uint64(0); i < n; i++ {
		var (
			pk   Passkey
			addr util.Uint160
		)

		r.ReadBytes(pk[:])
		r.ReadBytes(addr[:])
		if r.Err != nil {
			return nil, fmt.Errorf("read record #%d: %w", i, r.Err)
		}

		if i > 0 && bytes.Compare(prev[:], pk[:]) >= 0 {
			return nil, errors.New("map records are not strictly ordered")
		}

		m[pk] = addr
		prev = pk
	}

	return m, nil
}

// initializedFlag is a stored value of the initialization flag.
func initializedFlag() []byte {
	w := io.NewBufBinWriter()
	w.WriteBool(true)
	return w.Bytes()
}

// varUintSize returns the length of n encoded by io.BinWriter.WriteVarUint.
func varUintSize(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
