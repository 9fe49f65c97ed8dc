package passhash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_Schemes(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	require.Equal(t,
		[]string{SchemeBcrypt, SchemeBcryptSHA256, SchemeUnixDisabled},
		r.Schemes())
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.ErrorIs(t, r.Register(nil), ErrNilHandler)

	h, err := NewBcrypt()
	require.NoError(t, err)
	require.NoError(t, r.Register(h))

	// first registration becomes the default
	got, err := r.Get(SchemeBcrypt)
	require.NoError(t, err)
	require.Equal(t, h, got)

	// re-registration replaces without duplicating the order entry
	h2, err := NewBcrypt(WithRounds(4))
	require.NoError(t, err)
	require.NoError(t, r.Register(h2))
	require.Equal(t, []string{SchemeBcrypt}, r.Schemes())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("scrypt")
	require.ErrorIs(t, err, ErrSchemeNotFound)
	require.ErrorIs(t, r.SetDefault("scrypt"), ErrSchemeNotFound)
}

func TestRegistry_Identify(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	tests := []struct {
		name string
		hash string
		want string
	}{
		{"bcrypt", "$2b$12$" + strings.Repeat(".", 53), SchemeBcrypt},
		{"bcrypt legacy", "$2a$05$c92SVSfjeiCD6F2nAD6y0uBpJDjdRkt0EgeC4/31Rf2LUZbDRDE.O", SchemeBcrypt},
		{"bcrypt sha256", "$bcrypt-sha256$v=2,t=2b,r=5$5Hg1DKFqPE8C2aflZ5vVoe$wOK1VFFtS8IGTrGa7.h5fs0u84qyPbS", SchemeBcryptSHA256},
		{"disabled", "!", SchemeUnixDisabled},
		{"disabled star", "*LK*", SchemeUnixDisabled},
		{"empty field", "", SchemeUnixDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := r.Identify(tt.hash)
			require.NoError(t, err)
			require.Equal(t, tt.want, h.Name())
		})
	}

	_, err = r.Identify("$md5$abc")
	require.ErrorIs(t, err, ErrSchemeNotFound)
}

func TestRegistry_HashUsesDefaultScheme(t *testing.T) {
	r := NewRegistry()
	h, err := NewBcrypt(WithRounds(4))
	require.NoError(t, err)
	require.NoError(t, r.Register(h))

	hash, err := r.Hash("secret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$2b$04$"))

	ok, err := r.Verify("secret", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRegistry_HashWithoutDefault(t *testing.T) {
	r := NewRegistry()
	_, err := r.Hash("secret")
	require.ErrorIs(t, err, ErrSchemeNotFound)
}

func TestRegistry_VerifyDispatches(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	// bcrypt hash routed to bcrypt
	ok, err := r.Verify("U*U", "$2a$05$CCCCCCCCCCCCCCCCCCCCC.E5YPO9kmyuRGyh0XouQYb4YMJKvyOeW")
	require.NoError(t, err)
	require.True(t, ok)

	// bcrypt-sha256 hash routed to its own scheme
	ok, err = r.Verify("password", "$bcrypt-sha256$v=2,t=2b,r=5$5Hg1DKFqPE8C2aflZ5vVoe$wOK1VFFtS8IGTrGa7.h5fs0u84qyPbS")
	require.NoError(t, err)
	require.True(t, ok)

	// disabled accounts always fail without erroring
	ok, err = r.Verify("anything", "!")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegistry_NeedsUpdate(t *testing.T) {
	r := NewRegistry()
	bcrypt, err := NewBcrypt(WithRounds(4))
	require.NoError(t, err)
	sha, err := NewBcryptSHA256(WithRounds(4))
	require.NoError(t, err)
	disabled, err := NewUnixDisabled()
	require.NoError(t, err)
	for _, h := range []Handler{bcrypt, sha, disabled} {
		require.NoError(t, r.Register(h))
	}

	// in-range hash of the default scheme: current
	require.False(t, r.NeedsUpdate("$2a$05$CCCCCCCCCCCCCCCCCCCCC.E5YPO9kmyuRGyh0XouQYb4YMJKvyOeW"))

	// non-default scheme: migrate
	require.True(t, r.NeedsUpdate("$bcrypt-sha256$v=2,t=2b,r=5$5Hg1DKFqPE8C2aflZ5vVoe$wOK1VFFtS8IGTrGa7.h5fs0u84qyPbS"))

	// unidentifiable: migrate
	require.True(t, r.NeedsUpdate("$md5$abc"))

	// disabled markers are never rehashed
	require.False(t, r.NeedsUpdate("!"))
}

func TestRegistry_VerifyAndUpdate(t *testing.T) {
	r := NewRegistry()
	h, err := NewBcrypt(WithRounds(4), WithMinDesiredRounds(4))
	require.NoError(t, err)
	require.NoError(t, r.Register(h))

	current, err := r.Hash("secret")
	require.NoError(t, err)

	// current hash: verified, no replacement offered
	ok, updated, err := r.VerifyAndUpdate("secret", current)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, updated)

	// stale hash (rounds below desired): verified and replaced
	strict := NewRegistry()
	h6, err := NewBcrypt(WithRounds(6), WithMinDesiredRounds(6))
	require.NoError(t, err)
	require.NoError(t, strict.Register(h6))

	ok, updated, err = strict.VerifyAndUpdate("secret", current)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(updated, "$2b$06$"))

	ok2, err := strict.Verify("secret", updated)
	require.NoError(t, err)
	require.True(t, ok2)

	// wrong secret: no replacement
	ok, updated, err = strict.VerifyAndUpdate("wrong", current)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, updated)
}
