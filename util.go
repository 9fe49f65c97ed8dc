package passhash

import (
	"crypto/rand"
	"crypto/subtle"
)

// MaxPasswordSize is the global cap on secret length, in bytes, applied to
// every scheme before any per-scheme truncation policy. Secrets beyond this
// size are rejected with a [PasswordSizeError]; no real password is this
// long, and the cap bounds the work an attacker can force per call.
const MaxPasswordSize = 4096

// randomBytes returns n bytes from the system CSPRNG. Salt generation must
// never fall back to a weaker source, so failure panics: a broken CSPRNG is
// not a recoverable condition for a password library.
func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("passhash: crypto/rand failed: " + err.Error())
	}
	return b
}

// consttimeEqual compares two strings in constant time.
func consttimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// repeatToSize cyclically extends b to exactly size bytes. Used to model the
// original $2$ bcrypt key schedule, which cycles the password without a
// terminator, making "abc" and "abcabc" key identically.
func repeatToSize(b []byte, size int) []byte {
	if len(b) == 0 || size <= 0 {
		return nil
	}
	out := make([]byte, size)
	for i := 0; i < size; i += len(b) {
		copy(out[i:], b)
	}
	return out
}

// checkGlobalSize enforces [MaxPasswordSize].
func checkGlobalSize(secret string) error {
	if len(secret) > MaxPasswordSize {
		return &PasswordSizeError{MaxSize: MaxPasswordSize}
	}
	return nil
}
