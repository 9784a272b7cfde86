package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"
)

func TestKeyringRoundTrip(t *testing.T) {
	t.Parallel()

	k := New(keyring.NewArrayKeyring(nil))

	_, err := k.Get(TokenKey)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, k.Set(TokenKey, "secret-token"))
	got, err := k.Get(TokenKey)
	require.NoError(t, err)
	require.Equal(t, "secret-token", got)

	require.NoError(t, k.Delete(TokenKey))
	require.NoError(t, k.Delete(TokenKey))

	_, err = k.Get(TokenKey)
	require.ErrorIs(t, err, ErrNotFound)
}
