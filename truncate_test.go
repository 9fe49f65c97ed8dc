package passhash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncationPolicy_CheckHash(t *testing.T) {
	long := strings.Repeat("x", 100)

	t.Run("silent truncation", func(t *testing.T) {
		p := TruncationPolicy{Size: 72}
		got, err := p.checkHash("bcrypt", long)
		require.NoError(t, err)
		require.Equal(t, long[:72], got)
	})

	t.Run("short secrets untouched", func(t *testing.T) {
		p := TruncationPolicy{Size: 72, Error: true}
		got, err := p.checkHash("bcrypt", "hunter2")
		require.NoError(t, err)
		require.Equal(t, "hunter2", got)
	})

	t.Run("exact boundary untouched", func(t *testing.T) {
		p := TruncationPolicy{Size: 72, Error: true}
		secret := strings.Repeat("x", 72)
		got, err := p.checkHash("bcrypt", secret)
		require.NoError(t, err)
		require.Equal(t, secret, got)
	})

	t.Run("error policy", func(t *testing.T) {
		p := TruncationPolicy{Size: 72, Error: true}
		_, err := p.checkHash("bcrypt", long)
		require.ErrorIs(t, err, ErrPasswordTruncated)

		var te *PasswordTruncatedError
		require.ErrorAs(t, err, &te)
		require.Equal(t, "bcrypt", te.Scheme)
		require.Equal(t, 72, te.TruncateSize)
	})

	t.Run("size zero never truncates", func(t *testing.T) {
		p := TruncationPolicy{}
		got, err := p.checkHash("bcrypt-sha256", long)
		require.NoError(t, err)
		require.Equal(t, long, got)
	})
}

func TestTruncationPolicy_CheckVerify(t *testing.T) {
	long := strings.Repeat("x", 100)

	t.Run("error policy does not block verify", func(t *testing.T) {
		// old hashes of long passwords must keep verifying
		p := TruncationPolicy{Size: 72, Error: true}
		got, err := p.checkVerify("bcrypt", long)
		require.NoError(t, err)
		require.Equal(t, long[:72], got)
	})

	t.Run("verify reject opts out", func(t *testing.T) {
		p := TruncationPolicy{Size: 72, VerifyReject: true}
		_, err := p.checkVerify("bcrypt", long)
		require.ErrorIs(t, err, ErrPasswordTruncated)
	})
}
