package passhash

import (
	"fmt"
	"strings"
)

// SaltPolicy bounds a scheme's salt: size range, allowed alphabet, and an
// optional raw-byte length for encodings with spare padding bits.
type SaltPolicy struct {
	MinSize     int
	MaxSize     int
	DefaultSize int

	// Alphabet lists the bytes a salt character may take.
	Alphabet string

	// RawLen, when non-zero, marks the salt as a bcrypt-base64 encoding of
	// exactly RawLen raw bytes. Such encodings have spare low bits in their
	// final symbol that must be zero in canonical form; Normalize repairs
	// them and reports a diagnostic.
	RawLen int
}

// Validate checks size and alphabet bounds without normalizing.
func (p SaltPolicy) Validate(salt string) error {
	if len(salt) < p.MinSize || len(salt) > p.MaxSize {
		return fmt.Errorf("%w: salt length %d outside range %d..%d",
			ErrInvalidSetting, len(salt), p.MinSize, p.MaxSize)
	}
	for i := 0; i < len(salt); i++ {
		if strings.IndexByte(p.Alphabet, salt[i]) < 0 {
			return fmt.Errorf("%w: salt contains character %q outside scheme alphabet",
				ErrInvalidSetting, salt[i])
		}
	}
	return nil
}

// Normalize validates a caller-supplied salt and returns its canonical form.
// Oversized salts are an error unless relaxed, in which case they are
// truncated with a DiagSettingClipped diagnostic ("salt too large").
// Undersized salts cannot be repaired and always error. Set padding bits are
// always corrected, with a DiagPaddingBitsCorrected diagnostic, in both
// strict and relaxed mode: historical hashes carry them and must keep
// working.
func (p SaltPolicy) Normalize(salt string, relaxed bool) (string, []Diagnostic, error) {
	var diags []Diagnostic
	if len(salt) > p.MaxSize {
		if !relaxed {
			return "", nil, fmt.Errorf("%w: salt too large (%d > %d)",
				ErrInvalidSetting, len(salt), p.MaxSize)
		}
		diags = append(diags, diagf(DiagSettingClipped,
			"salt too large, truncated from %d to %d characters", len(salt), p.MaxSize))
		salt = salt[:p.MaxSize]
	}
	if err := p.Validate(salt); err != nil {
		return "", nil, err
	}
	if p.RawLen > 0 {
		fixed, changed := repairSpareBits(salt, p.RawLen)
		if changed {
			diags = append(diags, diagf(DiagPaddingBitsCorrected,
				"salt has incorrectly set padding bits, corrected to %q", fixed))
			salt = fixed
		}
	}
	return salt, diags, nil
}

// Generate returns a fresh random salt of DefaultSize. For padded encodings
// the salt is produced by encoding RawLen random bytes, so the result is
// canonical by construction.
func (p SaltPolicy) Generate() string {
	if p.RawLen > 0 {
		return encodeBcrypt64(randomBytes(p.RawLen))
	}
	raw := randomBytes(p.DefaultSize)
	out := make([]byte, p.DefaultSize)
	for i, b := range raw {
		out[i] = p.Alphabet[int(b)%len(p.Alphabet)]
	}
	return string(out)
}
