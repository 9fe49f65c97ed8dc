// Package passhash provides a pluggable password-hashing framework built
// around a uniform handler contract, with production-grade implementations of
// bcrypt, bcrypt-sha256, and the unix disabled-account marker scheme.
//
// Hash strings are treated as self-describing: every parameter needed for
// verification (variant, cost, salt) travels inside the string, so stored
// hashes keep verifying across config changes and handlers stay stateless.
//
// # Basic Usage
//
//	h, err := passhash.NewBcrypt()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Hash with a fresh random salt
//	hash, err := h.Hash("hunter2")
//
//	// Verify
//	ok, err := h.Verify("hunter2", hash)
//
// A handler value is immutable. Deriving one with different defaults goes
// through Using, which returns an independent copy:
//
//	strong, err := h.Using(passhash.WithRounds(14))
//
// # Multiple Schemes
//
// A Registry dispatches stored hashes to the scheme that produced them and
// generates new hashes with a configurable default, so a password column can
// mix schemes during a migration:
//
//	reg, _ := passhash.NewDefaultRegistry()
//	ok, updated, err := reg.VerifyAndUpdate(secret, stored)
//	if ok && updated != "" {
//	    // persist updated in place of stored
//	}
//
// # Hash Maintenance
//
// NeedsUpdate reports whether a hash was generated with parameters weaker
// than the handler currently wants, or in a non-canonical encoding. It never
// affects verification; callers rehash opportunistically after a successful
// login:
//
//	if ok, _ := h.Verify(secret, stored); ok && h.NeedsUpdate(stored) {
//	    stored, _ = h.Hash(secret)
//	}
//
// # bcrypt Variants
//
// The bcrypt handler reads all historical prefixes ($2$, $2a$, $2b$, $2y$)
// and writes $2b$. Hashes carrying the $2x$ prefix were produced by a
// sign-extension bug and are refused rather than guessed at. Non-canonical
// encodings seen in the wild (set padding bits in the salt, the crypt_blowfish
// wraparound defect) verify correctly and are flagged through NeedsUpdate.
//
// bcrypt silently truncates secrets at 72 bytes. WithTruncateError turns that
// into a hard failure; bcrypt-sha256 removes the limit entirely by reducing
// the secret to an HMAC-SHA256 digest before the bcrypt kernel runs.
//
// # Backends
//
// Checksums are computed by a pluggable backend. The builtin backend is a
// pure-Go kernel handling every variant; the xcrypto backend delegates
// verification to golang.org/x/crypto/bcrypt. Each backend is probed at first
// use for the crypt_blowfish wraparound defect and worked around when
// vulnerable. Most callers never touch backend selection.
//
// # Diagnostics
//
// Conditions that are worth reporting but wrong to fail on (a hash with set
// padding bits, a clipped out-of-range setting) surface as Diagnostic values
// from the ...WithDiagnostics method variants, or through a Reporter hook on
// the plain methods. They are never errors.
package passhash
