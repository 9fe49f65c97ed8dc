package passhash

import (
	"fmt"
	"strings"
)

// SchemeUnixDisabled is the registry name of the unix_disabled handler.
const SchemeUnixDisabled = "unix_disabled"

// UnixDisabled handles the disabled-account markers found in unix shadow
// files: an empty field, or a field starting with "!" or "*". It computes no
// checksum. Verify never succeeds against it, which is the point; Disable and
// Enable round-trip the original hash through the marker so an account can be
// re-enabled without a password reset.
type UnixDisabled struct {
	marker   string
	reporter Reporter
}

// NewUnixDisabled constructs the handler. The generated marker defaults to
// "!" (the passwd(1) lock convention) and can be changed with WithMarker;
// "*" is the other value commonly seen.
func NewUnixDisabled(opts ...Option) (*UnixDisabled, error) {
	h := &UnixDisabled{marker: "!"}
	if err := h.apply(collectSettings(opts)); err != nil {
		return nil, err
	}
	return h, nil
}

// Using returns an independent derived handler; h is never modified.
func (h *UnixDisabled) Using(opts ...Option) (*UnixDisabled, error) {
	derived := *h
	if err := derived.apply(collectSettings(opts)); err != nil {
		return nil, err
	}
	return &derived, nil
}

func (h *UnixDisabled) apply(s *settings) error {
	if s.reporter != nil {
		h.reporter = s.reporter
	}
	if s.marker != "" {
		if !identifyDisabled(s.marker) {
			return fmt.Errorf("%w: invalid disabled marker %q",
				ErrInvalidSetting, s.marker)
		}
		h.marker = s.marker
	}
	if s.rounds != nil || s.salt != nil || s.ident != "" || s.version != nil ||
		s.vary != nil || s.minDesired != nil || s.maxDesired != nil ||
		s.truncateError != nil || s.verifyReject != nil ||
		s.backendSet || s.fallbackSet {
		return fmt.Errorf("%w: unix_disabled accepts no hash parameters",
			ErrInvalidSetting)
	}
	return nil
}

func identifyDisabled(hash string) bool {
	return hash == "" || strings.HasPrefix(hash, "!") || strings.HasPrefix(hash, "*")
}

// Name implements [Handler].
func (h *UnixDisabled) Name() string { return SchemeUnixDisabled }

// Identify implements [Handler]. The empty string identifies: shadow files
// with a blank password field mean the account has no usable password.
func (h *UnixDisabled) Identify(hash string) bool {
	return identifyDisabled(hash)
}

// Hash implements [Handler]. The secret is ignored and the stable marker
// returned; there is no salt, so every call yields the same string.
func (h *UnixDisabled) Hash(secret string) (string, error) {
	if err := checkGlobalSize(secret); err != nil {
		return "", err
	}
	return h.marker, nil
}

// Verify implements [Handler]. Any secret fails against a disabled field;
// non-disabled strings error rather than report a mismatch.
func (h *UnixDisabled) Verify(secret, hash string) (bool, error) {
	if !identifyDisabled(hash) {
		return false, fmt.Errorf("%w: not a disabled-account field", ErrMalformedHash)
	}
	if err := checkGlobalSize(secret); err != nil {
		return false, err
	}
	return false, nil
}

// GenHash implements [Handler]. An identified config passes through
// unchanged, preserving any original hash stashed behind the marker.
func (h *UnixDisabled) GenHash(secret, config string) (string, error) {
	if !identifyDisabled(config) {
		return "", fmt.Errorf("%w: not a disabled-account field", ErrMalformedHash)
	}
	if err := checkGlobalSize(secret); err != nil {
		return "", err
	}
	if config == "" {
		return h.marker, nil
	}
	return config, nil
}

// GenConfig implements [Handler].
func (h *UnixDisabled) GenConfig() (string, error) {
	return h.marker, nil
}

// NeedsUpdate implements [Handler]. Disabled fields are never rehashed; doing
// so would destroy the original hash stashed behind the marker.
func (h *UnixDisabled) NeedsUpdate(hash string) bool { return false }

// ParseHash implements [Handler]. The single field "marker" holds the prefix;
// "hash" holds the stashed original when one is present.
func (h *UnixDisabled) ParseHash(hash string, opts ...ParseOption) (map[string]any, error) {
	if !identifyDisabled(hash) {
		return nil, fmt.Errorf("%w: not a disabled-account field", ErrMalformedHash)
	}
	m := map[string]any{}
	if hash == "" {
		m["marker"] = ""
		return m, nil
	}
	m["marker"] = hash[:1]
	if len(hash) > 1 {
		m["hash"] = hash[1:]
	}
	return m, nil
}

// Disable wraps hash into a disabled-account field. A hash that already
// identifies as disabled is returned unchanged; otherwise the marker is
// prepended so Enable can recover it later. An empty hash yields the bare
// marker.
func (h *UnixDisabled) Disable(hash string) string {
	if identifyDisabled(hash) && hash != "" {
		return hash
	}
	return h.marker + hash
}

// Enable reverses Disable, recovering the original hash stashed behind the
// marker. A bare marker (or empty field) has nothing to recover and returns
// ErrCannotEnable.
func (h *UnixDisabled) Enable(hash string) (string, error) {
	if !identifyDisabled(hash) {
		return "", fmt.Errorf("%w: not a disabled-account field", ErrMalformedHash)
	}
	if len(hash) < 2 {
		return "", ErrCannotEnable
	}
	return hash[1:], nil
}
