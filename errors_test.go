package passhash

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorSentinels_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrMalformedHash,
		ErrInvalidSetting,
		ErrUnknownIdent,
		ErrUnsupportedVariant,
		ErrPasswordTooLong,
		ErrPasswordTruncated,
		ErrMissingBackend,
		ErrInternalBackend,
		ErrConfigNotHash,
		ErrCannotEnable,
		ErrSchemeNotFound,
		ErrNilHandler,
	}

	for i, a := range sentinels {
		require.Contains(t, a.Error(), "passhash:")
		for j, b := range sentinels {
			if i != j {
				require.NotErrorIs(t, a, b)
			}
		}
	}
}

func TestPasswordSizeError(t *testing.T) {
	err := &PasswordSizeError{MaxSize: 4096}
	require.ErrorIs(t, err, ErrPasswordTooLong)
	require.NotErrorIs(t, err, ErrPasswordTruncated)
	require.Contains(t, err.Error(), "4096")
}

func TestPasswordTruncatedError(t *testing.T) {
	err := &PasswordTruncatedError{Scheme: "bcrypt", TruncateSize: 72}
	require.ErrorIs(t, err, ErrPasswordTruncated)
	// a truncated password is not an oversized one; callers distinguish them
	require.NotErrorIs(t, err, ErrPasswordTooLong)
	require.Contains(t, err.Error(), "bcrypt")
	require.Contains(t, err.Error(), "72")
}

func TestBackendError(t *testing.T) {
	cause := errors.New("boom")
	err := &BackendError{Backend: "builtin", Err: cause}
	require.ErrorIs(t, err, ErrInternalBackend)
	require.Contains(t, err.Error(), `"builtin"`)
	require.Contains(t, err.Error(), "boom")

	bare := &BackendError{Backend: "builtin"}
	require.ErrorIs(t, bare, ErrInternalBackend)
	require.Contains(t, bare.Error(), "failed")
}

func TestWrappedSentinels_SurviveFmtErrorf(t *testing.T) {
	err := fmt.Errorf("%w: extra context", ErrMalformedHash)
	require.ErrorIs(t, err, ErrMalformedHash)
}
