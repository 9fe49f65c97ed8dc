package passhash

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHash indicates a hash string that is structurally recognized
	// but cannot be decoded (bad character, wrong field length, bad rounds field).
	ErrMalformedHash = errors.New("passhash: malformed hash string")

	// ErrInvalidSetting indicates a setting value outside the policy bounds
	// (rounds, salt size, salt alphabet, unknown option combination).
	ErrInvalidSetting = errors.New("passhash: invalid setting value")

	// ErrUnknownIdent indicates an ident that is not part of the scheme's
	// valid set and is not a registered alias.
	ErrUnknownIdent = errors.New("passhash: unknown ident")

	// ErrUnsupportedVariant indicates an ident that is recognized by the
	// scheme but deliberately not supported for hashing or verification
	// (e.g. bcrypt's insecure "2x").
	ErrUnsupportedVariant = errors.New("passhash: recognized but unsupported variant")

	// ErrPasswordTooLong indicates a secret exceeding the global or
	// scheme-specific maximum size. Returned wrapped in a [PasswordSizeError]
	// carrying the offending bound.
	ErrPasswordTooLong = errors.New("passhash: password exceeds maximum size")

	// ErrPasswordTruncated indicates a secret longer than the scheme's
	// truncation size while the scheme is configured to treat truncation as
	// an error. Returned wrapped in a [PasswordTruncatedError]. Distinct from
	// [ErrPasswordTooLong] so callers can report the two conditions precisely.
	ErrPasswordTruncated = errors.New("passhash: password would be truncated")

	// ErrMissingBackend indicates the requested checksum backend is not
	// registered or reports itself unavailable. Recoverable: the caller may
	// select another backend.
	ErrMissingBackend = errors.New("passhash: backend not available")

	// ErrInternalBackend indicates the selected backend failed unexpectedly or
	// returned a structurally invalid checksum. Returned wrapped in a
	// [BackendError]. Never retried automatically unless an explicit fallback
	// backend is configured.
	ErrInternalBackend = errors.New("passhash: internal backend error")

	// ErrConfigNotHash indicates a config-only string (parameters without a
	// computed checksum) was passed to Verify, which requires a full hash.
	ErrConfigNotHash = errors.New("passhash: config string has no checksum")

	// ErrCannotEnable indicates a disabled-account marker that does not embed
	// the original hash, so the original cannot be recovered.
	ErrCannotEnable = errors.New("passhash: cannot restore original hash from marker")

	// ErrSchemeNotFound is returned by [Registry] lookups for unregistered
	// scheme names.
	ErrSchemeNotFound = errors.New("passhash: scheme not found")

	// ErrNilHandler is returned by [Registry.Register] when a nil handler is
	// supplied.
	ErrNilHandler = errors.New("passhash: handler must not be nil")
)

// PasswordSizeError reports a secret exceeding a hard size bound.
// It unwraps to [ErrPasswordTooLong].
type PasswordSizeError struct {
	// MaxSize is the bound that was exceeded, in bytes.
	MaxSize int
}

func (e *PasswordSizeError) Error() string {
	return fmt.Sprintf("passhash: password exceeds maximum size (%d bytes)", e.MaxSize)
}

func (e *PasswordSizeError) Unwrap() error { return ErrPasswordTooLong }

// PasswordTruncatedError reports a secret longer than the scheme's truncation
// size under a truncate-is-an-error policy. It unwraps to
// [ErrPasswordTruncated], never to [ErrPasswordTooLong]: the two size
// conditions stay distinguishable.
type PasswordTruncatedError struct {
	// Scheme is the handler name enforcing the policy.
	Scheme string
	// TruncateSize is the number of bytes the scheme would have kept.
	TruncateSize int
}

func (e *PasswordTruncatedError) Error() string {
	return fmt.Sprintf("passhash: %s: password longer than %d bytes would be truncated",
		e.Scheme, e.TruncateSize)
}

func (e *PasswordTruncatedError) Unwrap() error { return ErrPasswordTruncated }

// BackendError reports an unexpected failure inside a checksum backend,
// including structurally invalid backend output. It unwraps to
// [ErrInternalBackend].
type BackendError struct {
	// Backend is the name of the failing backend.
	Backend string
	// Err is the underlying cause, if any.
	Err error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("passhash: backend %q: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("passhash: backend %q failed", e.Backend)
}

func (e *BackendError) Unwrap() error { return ErrInternalBackend }
