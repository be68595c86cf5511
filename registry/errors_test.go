package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	for c, e := range map[Code]*Error{
		1: ErrNotInited,
		2: ErrAlreadyInited,
		3: ErrPasskeyAlreadyRegistered,
		4: ErrPasskeyNotRegistered,
		5: ErrInvalidCaller,
	} {
		require.Equal(t, c, e.Code())

		res, err := ErrorByCode(c)
		require.NoError(t, err)
		require.Same(t, e, res)

		wrapped := fmt.Errorf("invocation: %w", e)
		require.ErrorIs(t, wrapped, e)

		code, ok := CodeOf(wrapped)
		require.True(t, ok)
		require.Equal(t, c, code)

		res, ok = ErrorByMessage("at instruction 42 (THROW): unhandled exception: \"" + e.Error() + "\"")
		require.True(t, ok)
		require.Same(t, e, res)
	}

	_, err := ErrorByCode(0)
	require.Error(t, err)
	_, err = ErrorByCode(6)
	require.Error(t, err)

	_, ok := CodeOf(ErrInvalidPasskey)
	require.False(t, ok)

	_, ok = ErrorByMessage("out of gas")
	require.False(t, ok)
}
