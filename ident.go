package passhash

import (
	"fmt"
	"strings"
)

// IdentPolicy governs a scheme's format-version prefixes. A scheme may accept
// several idents on input while generating only its default; some idents are
// recognized (so Identify matches them) yet refused for any cryptographic
// work.
type IdentPolicy struct {
	// Valid lists the idents the scheme can hash and verify with.
	Valid []string

	// Default is the ident used when the caller does not choose one.
	// It must be a member of Valid.
	Default string

	// Aliases maps convenience spellings to canonical idents.
	Aliases map[string]string

	// Unsupported lists idents the scheme recognizes structurally but
	// refuses to compute with (e.g. bcrypt's "2x", known insecure).
	Unsupported []string
}

// Normalize resolves an ident through aliasing and validates it. An empty
// ident resolves to the default. A "$...$"-wrapped spelling is accepted as an
// alias of the bare name. Unsupported idents normalize with
// ErrUnsupportedVariant; unknown ones with ErrUnknownIdent.
func (p IdentPolicy) Normalize(ident string) (string, error) {
	if ident == "" {
		return p.Default, nil
	}
	ident = strings.Trim(ident, "$")
	if canonical, ok := p.Aliases[ident]; ok {
		ident = canonical
	}
	for _, v := range p.Valid {
		if ident == v {
			return ident, nil
		}
	}
	for _, u := range p.Unsupported {
		if ident == u {
			return "", fmt.Errorf("%w: ident %q", ErrUnsupportedVariant, ident)
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIdent, ident)
}

// Recognized reports whether ident is either valid or recognized-but-
// unsupported. Identify uses this: a "2x" hash is identified as belonging to
// the scheme even though Verify will refuse it.
func (p IdentPolicy) Recognized(ident string) bool {
	for _, v := range p.Valid {
		if ident == v {
			return true
		}
	}
	for _, u := range p.Unsupported {
		if ident == u {
			return true
		}
	}
	return false
}
