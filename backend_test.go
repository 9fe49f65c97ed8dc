package passhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasBackend(t *testing.T) {
	require.True(t, HasBackend(BackendBuiltin))
	require.True(t, HasBackend(BackendXCrypto))
	require.False(t, HasBackend("openssl"))
	require.False(t, HasBackend(""))
}

func TestBackends(t *testing.T) {
	require.Equal(t, []string{BackendBuiltin, BackendXCrypto}, Backends())
}

func TestLookupBackend(t *testing.T) {
	b, err := lookupBackend("")
	require.NoError(t, err)
	require.Equal(t, BackendBuiltin, b.Name())

	b, err = lookupBackend(BackendXCrypto)
	require.NoError(t, err)
	require.Equal(t, BackendXCrypto, b.Name())

	_, err = lookupBackend("openssl")
	require.ErrorIs(t, err, ErrMissingBackend)
}

func TestBuiltinBackend_Compute(t *testing.T) {
	rawSalt, err := decodeBcrypt64("CCCCCCCCCCCCCCCCCCCCC.")
	require.NoError(t, err)

	sum, err := builtinBackend{}.Compute([]byte("U*U"), "2a", 5, rawSalt)
	require.NoError(t, err)
	require.Equal(t, "E5YPO9kmyuRGyh0XouQYb4YMJKvyOeW", sum)
}

func TestBuiltinBackend_RefusesUnknownVariant(t *testing.T) {
	rawSalt := make([]byte, 16)
	_, err := builtinBackend{}.Compute([]byte("secret"), "2x", 5, rawSalt)
	require.ErrorIs(t, err, errBackendRefused)
}

func TestXCryptoBackend_RefusesCompute(t *testing.T) {
	// the x/crypto API seeds its own salt, so fixed-salt computation is
	// always a refusal, never a failure
	_, err := xcryptoBackend{}.Compute([]byte("secret"), "2b", 5, make([]byte, 16))
	require.ErrorIs(t, err, errBackendRefused)
}

func TestXCryptoBackend_CheckHash(t *testing.T) {
	hash := "$2a$05$CCCCCCCCCCCCCCCCCCCCC.E5YPO9kmyuRGyh0XouQYb4YMJKvyOeW"

	match, err := xcryptoBackend{}.CheckHash([]byte("U*U"), hash)
	require.NoError(t, err)
	require.True(t, match)

	match, err = xcryptoBackend{}.CheckHash([]byte("wrong"), hash)
	require.NoError(t, err)
	require.False(t, match)
}

func TestXCryptoBackend_CheckHashRefusesOriginalVariant(t *testing.T) {
	_, err := xcryptoBackend{}.CheckHash([]byte("x"),
		"$2$05$CCCCCCCCCCCCCCCCCCCCC.E5YPO9kmyuRGyh0XouQYb4YMJKvyOeW")
	require.ErrorIs(t, err, errBackendRefused)
}

func TestWraparoundProbe_BuiltinNotVulnerable(t *testing.T) {
	p := newProbedBackend(builtinBackend{})
	require.False(t, p.wraparoundVulnerable())
	// cached verdict, second call must agree
	require.False(t, p.wraparoundVulnerable())
}

func TestWraparoundProbe_DetectsVulnerableEngine(t *testing.T) {
	p := newProbedBackend(wraparoundEngine{})
	require.True(t, p.wraparoundVulnerable())
}

// wraparoundEngine emulates a pre-2b engine whose key length wraps in an
// 8-bit counter: a 255-byte password (length 256 with terminator) keys the
// cipher as if it were its first byte repeated, so the probe secret hashes
// the same as "0"*72.
type wraparoundEngine struct{}

func (wraparoundEngine) Name() string    { return "wraparound-emulation" }
func (wraparoundEngine) Available() bool { return true }

func (wraparoundEngine) Compute(secret []byte, ident string, cost int, rawSalt []byte) (string, error) {
	if len(secret) >= 255 {
		secret = repeatToSize(secret[:1], 72)
	}
	return builtinBackend{}.Compute(secret, ident, cost, rawSalt)
}

func TestWraparoundProbeSecret(t *testing.T) {
	secret := wraparoundProbeSecret()
	require.Len(t, secret, 255)
	require.Equal(t, byte('0'), secret[0])
	require.Equal(t, byte('4'), secret[254])
}
