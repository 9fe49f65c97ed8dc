package passhash

import (
	"errors"
	"fmt"
	"strings"
)

// SchemeBcrypt is the registry name of the bcrypt handler.
const SchemeBcrypt = "bcrypt"

const (
	bcryptSaltChars    = 22
	bcryptSumChars     = 31
	bcryptRawSaltLen   = 16
	bcryptRawSumLen    = 23
	bcryptTruncateSize = 72
)

// Bcrypt implements the bcrypt family of modular-crypt hashes:
//
//	$<ident>$<2-digit cost>$<22-char salt><31-char checksum>
//
// Idents "2", "2a", "2b" (default) and "2y" are supported; "2x" is recognized
// by Identify but refused by every computing operation, since crypt_blowfish
// marked it as the sign-extension-buggy variant. Cost is the base-2 log of the
// iteration count, 4 through 31. Only the first 72 bytes of a secret
// influence the checksum.
//
// A Bcrypt value is immutable; derive adjusted handlers with [Bcrypt.Using].
type Bcrypt struct {
	rounds     RoundsPolicy
	salt       SaltPolicy
	idents     IdentPolicy
	truncate   TruncationPolicy
	ident      string
	pinnedSalt string
	vary       *VarySpec
	backend    *probedBackend
	fallback   *probedBackend
	reporter   Reporter
}

func defaultBcrypt() *Bcrypt {
	return &Bcrypt{
		rounds: RoundsPolicy{Min: 4, Max: 31, Default: 12, Shape: CostLog2},
		salt: SaltPolicy{
			MinSize:     bcryptSaltChars,
			MaxSize:     bcryptSaltChars,
			DefaultSize: bcryptSaltChars,
			Alphabet:    bcrypt64Alphabet,
			RawLen:      bcryptRawSaltLen,
		},
		idents: IdentPolicy{
			Valid:       []string{"2b", "2a", "2y", "2"},
			Default:     "2b",
			Unsupported: []string{"2x"},
		},
		truncate: TruncationPolicy{Size: bcryptTruncateSize},
		ident:    "2b",
		backend:  newProbedBackend(builtinBackend{}),
	}
}

// NewBcrypt constructs a bcrypt handler. With no options the handler
// generates "$2b$12$" hashes using the builtin backend.
func NewBcrypt(opts ...Option) (*Bcrypt, error) {
	h := defaultBcrypt()
	diags, err := h.apply(collectSettings(opts))
	if err != nil {
		return nil, err
	}
	report(h.reporter, diags)
	return h, nil
}

// Using returns an independent handler derived from h with the given
// overrides applied. h itself is never modified, so handing out derived
// handlers is safe while h is in use on other goroutines.
func (h *Bcrypt) Using(opts ...Option) (*Bcrypt, error) {
	derived := *h
	diags, err := derived.apply(collectSettings(opts))
	if err != nil {
		return nil, err
	}
	report(derived.reporter, diags)
	return &derived, nil
}

// apply folds option state into the handler, validating before any
// cryptographic work. Relaxed mode converts out-of-bounds rounds and
// oversized salts into clip-plus-diagnostic instead of an error.
func (h *Bcrypt) apply(s *settings) ([]Diagnostic, error) {
	var diags []Diagnostic
	if s.reporter != nil {
		h.reporter = s.reporter
	}
	if s.version != nil {
		return nil, fmt.Errorf("%w: bcrypt has no format versions", ErrInvalidSetting)
	}
	if s.marker != "" {
		return nil, fmt.Errorf("%w: bcrypt has no disabled marker", ErrInvalidSetting)
	}
	if s.ident != "" {
		ident, err := h.idents.Normalize(s.ident)
		if err != nil {
			return nil, err
		}
		h.ident = ident
	}
	if s.rounds != nil {
		rounds := *s.rounds
		if err := h.rounds.Validate(rounds); err != nil {
			if !s.relaxed {
				return nil, err
			}
			clipped, _ := h.rounds.Clip(rounds)
			diags = append(diags, diagf(DiagSettingClipped,
				"rounds %d clipped to %d", rounds, clipped))
			rounds = clipped
		}
		h.rounds.Default = rounds
	}
	if s.minDesired != nil {
		h.rounds.MinDesired = *s.minDesired
	}
	if s.maxDesired != nil {
		h.rounds.MaxDesired = *s.maxDesired
	}
	if s.vary != nil {
		h.vary = s.vary
	}
	if s.salt != nil {
		salt, saltDiags, err := h.salt.Normalize(*s.salt, s.relaxed)
		if err != nil {
			return nil, err
		}
		diags = append(diags, saltDiags...)
		h.pinnedSalt = salt
	}
	if s.truncateError != nil {
		h.truncate.Error = *s.truncateError
	}
	if s.verifyReject != nil {
		h.truncate.VerifyReject = *s.verifyReject
	}
	if s.backendSet {
		b, err := lookupBackend(s.backend)
		if err != nil {
			return nil, err
		}
		h.backend = newProbedBackend(b)
	}
	if s.fallbackSet {
		b, err := lookupBackend(s.fallbackBackend)
		if err != nil {
			return nil, err
		}
		h.fallback = newProbedBackend(b)
	}
	return diags, nil
}

// Name implements [Handler].
func (h *Bcrypt) Name() string { return SchemeBcrypt }

// Backend returns the name of the selected checksum backend.
func (h *Bcrypt) Backend() string { return h.backend.Name() }

// Identify implements [Handler]. It matches any recognized ident prefix,
// including the unsupported "2x"; unknown letters ("$2f$") do not match.
func (h *Bcrypt) Identify(hash string) bool {
	ident, _, ok := splitIdent(hash)
	return ok && h.idents.Recognized(ident)
}

// splitIdent splits "$<ident>$<rest>" without validating the ident.
func splitIdent(hash string) (ident, rest string, ok bool) {
	if len(hash) < 3 || hash[0] != '$' {
		return "", "", false
	}
	end := strings.IndexByte(hash[1:], '$')
	if end <= 0 {
		return "", "", false
	}
	return hash[1 : 1+end], hash[2+end:], true
}

// bcryptParts is a decoded bcrypt hash or config string.
type bcryptParts struct {
	ident     string
	rounds    int
	salt      string
	checksum  string // empty for config-only strings
	saltDirty bool   // salt padding bits were set
	sumDirty  bool   // checksum padding bits were set
}

func (h *Bcrypt) parse(hash string) (*bcryptParts, error) {
	ident, rest, ok := splitIdent(hash)
	if !ok || !h.idents.Recognized(ident) {
		return nil, fmt.Errorf("%w: not a recognized bcrypt string", ErrMalformedHash)
	}
	// Cost is always exactly two zero-padded digits; "$2a$6$" is malformed.
	if len(rest) < 3 || rest[2] != '$' ||
		rest[0] < '0' || rest[0] > '9' || rest[1] < '0' || rest[1] > '9' {
		return nil, fmt.Errorf("%w: bad rounds field", ErrMalformedHash)
	}
	rounds := int(rest[0]-'0')*10 + int(rest[1]-'0')
	if err := h.rounds.Validate(rounds); err != nil {
		return nil, err
	}
	body := rest[3:]
	if len(body) != bcryptSaltChars && len(body) != bcryptSaltChars+bcryptSumChars {
		return nil, fmt.Errorf("%w: wrong length", ErrMalformedHash)
	}
	if !inBcrypt64Alphabet(body) {
		return nil, fmt.Errorf("%w: character outside bcrypt alphabet", ErrMalformedHash)
	}
	p := &bcryptParts{
		ident:    ident,
		rounds:   rounds,
		salt:     body[:bcryptSaltChars],
		checksum: body[bcryptSaltChars:],
	}
	p.saltDirty = spareBitsSet(p.salt, bcryptRawSaltLen)
	p.sumDirty = p.checksum != "" && spareBitsSet(p.checksum, bcryptRawSumLen)
	return p, nil
}

// canonicalize repairs set padding bits in place, returning diagnostics for
// whatever changed. Decoding such strings must keep working — plenty of them
// were minted by buggy generators — but the canonical form is the repaired one.
func (p *bcryptParts) canonicalize() []Diagnostic {
	var diags []Diagnostic
	if p.saltDirty {
		p.salt, _ = repairSpareBits(p.salt, bcryptRawSaltLen)
		diags = append(diags, diagf(DiagPaddingBitsCorrected,
			"bcrypt salt has incorrectly set padding bits"))
	}
	if p.sumDirty {
		p.checksum, _ = repairSpareBits(p.checksum, bcryptRawSumLen)
		diags = append(diags, diagf(DiagPaddingBitsCorrected,
			"bcrypt checksum has incorrectly set padding bits"))
	}
	return diags
}

func assembleBcrypt(ident string, rounds int, salt, checksum string) string {
	return fmt.Sprintf("$%s$%02d$%s%s", ident, rounds, salt, checksum)
}

func (h *Bcrypt) refuseUnsupported(ident string) error {
	for _, u := range h.idents.Unsupported {
		if ident == u {
			return fmt.Errorf("%w: ident %q", ErrUnsupportedVariant, ident)
		}
	}
	return nil
}

// compute runs the checksum through the selected backend, falling back to the
// configured secondary only when the primary refuses the request, and
// validating the output before anything reaches the caller. A structurally
// bad checksum from a backend is an internal error, never a result.
func (h *Bcrypt) compute(secret []byte, ident string, rounds int, salt string) (string, []Diagnostic, error) {
	var diags []Diagnostic
	rawSalt, err := decodeBcrypt64(salt)
	if err != nil || len(rawSalt) != bcryptRawSaltLen {
		return "", nil, fmt.Errorf("%w: undecodable salt", ErrMalformedHash)
	}
	if (ident == "2" || ident == "2a") && h.backend.wraparoundVulnerable() {
		diags = append(diags, diagf(DiagVulnerableBackend,
			"backend %q is vulnerable to the bsd wraparound bug, clamping secret to 72 bytes",
			h.backend.Name()))
		if len(secret) > bcryptTruncateSize {
			secret = secret[:bcryptTruncateSize]
		}
	}
	sum, err := h.backend.Compute(secret, ident, rounds, rawSalt)
	if errors.Is(err, errBackendRefused) && h.fallback != nil {
		sum, err = h.fallback.Compute(secret, ident, rounds, rawSalt)
	}
	if err != nil {
		var be *BackendError
		if errors.As(err, &be) {
			return "", diags, err
		}
		return "", diags, &BackendError{Backend: h.backend.Name(), Err: err}
	}
	if len(sum) != bcryptSumChars || !inBcrypt64Alphabet(sum) {
		return "", diags, &BackendError{
			Backend: h.backend.Name(),
			Err:     fmt.Errorf("structurally invalid checksum %q", sum),
		}
	}
	return sum, diags, nil
}

// Hash implements [Handler].
func (h *Bcrypt) Hash(secret string) (string, error) {
	out, diags, err := h.HashWithDiagnostics(secret)
	report(h.reporter, diags)
	return out, err
}

// HashWithDiagnostics is Hash returning its warning-class conditions.
func (h *Bcrypt) HashWithDiagnostics(secret string) (string, []Diagnostic, error) {
	if err := checkGlobalSize(secret); err != nil {
		return "", nil, err
	}
	eff, err := h.truncate.checkHash(SchemeBcrypt, secret)
	if err != nil {
		return "", nil, err
	}
	rounds := h.rounds.Default
	if h.vary != nil {
		rounds = h.rounds.Vary(*h.vary)
	}
	salt := h.pinnedSalt
	if salt == "" {
		salt = h.salt.Generate()
	}
	sum, diags, err := h.compute([]byte(eff), h.ident, rounds, salt)
	if err != nil {
		return "", diags, err
	}
	return assembleBcrypt(h.ident, rounds, salt, sum), diags, nil
}

// Verify implements [Handler].
func (h *Bcrypt) Verify(secret, hash string) (bool, error) {
	ok, diags, err := h.VerifyWithDiagnostics(secret, hash)
	report(h.reporter, diags)
	return ok, err
}

// VerifyWithDiagnostics is Verify returning its warning-class conditions
// (padding-bit corrections, vulnerable-backend clamping).
func (h *Bcrypt) VerifyWithDiagnostics(secret, hash string) (bool, []Diagnostic, error) {
	p, err := h.parse(hash)
	if err != nil {
		return false, nil, err
	}
	if p.checksum == "" {
		return false, nil, ErrConfigNotHash
	}
	if err := h.refuseUnsupported(p.ident); err != nil {
		return false, nil, err
	}
	diags := p.canonicalize()
	if err := checkGlobalSize(secret); err != nil {
		return false, diags, err
	}
	eff, err := h.truncate.checkVerify(SchemeBcrypt, secret)
	if err != nil {
		return false, diags, err
	}
	sum, cdiags, err := h.compute([]byte(eff), p.ident, p.rounds, p.salt)
	diags = append(diags, cdiags...)
	if err == nil {
		return consttimeEqual(sum, p.checksum), diags, nil
	}
	// A backend that cannot compute against a fixed salt may still be able
	// to check the assembled hash directly.
	var be *BackendError
	if errors.As(err, &be) && errors.Is(be.Err, errBackendRefused) {
		if cc, ok := h.backend.Backend.(checkCapable); ok {
			match, cerr := cc.CheckHash([]byte(eff),
				assembleBcrypt(p.ident, p.rounds, p.salt, p.checksum))
			if cerr == nil {
				return match, diags, nil
			}
			if !errors.Is(cerr, errBackendRefused) {
				return false, diags, cerr
			}
		}
	}
	return false, diags, err
}

// GenHash implements [Handler]: parameters come entirely from config, which
// may be a config-only string or a full hash. The returned string is always
// canonical even when config carried dirty padding bits.
func (h *Bcrypt) GenHash(secret, config string) (string, error) {
	out, diags, err := h.GenHashWithDiagnostics(secret, config)
	report(h.reporter, diags)
	return out, err
}

// GenHashWithDiagnostics is GenHash returning its warning-class conditions.
func (h *Bcrypt) GenHashWithDiagnostics(secret, config string) (string, []Diagnostic, error) {
	p, err := h.parse(config)
	if err != nil {
		return "", nil, err
	}
	if err := h.refuseUnsupported(p.ident); err != nil {
		return "", nil, err
	}
	diags := p.canonicalize()
	if err := checkGlobalSize(secret); err != nil {
		return "", diags, err
	}
	eff, err := h.truncate.checkHash(SchemeBcrypt, secret)
	if err != nil {
		return "", diags, err
	}
	sum, cdiags, err := h.compute([]byte(eff), p.ident, p.rounds, p.salt)
	diags = append(diags, cdiags...)
	if err != nil {
		return "", diags, err
	}
	return assembleBcrypt(p.ident, p.rounds, p.salt, sum), diags, nil
}

// GenConfig implements [Handler]. The checksum field is a stub of all-zero
// symbols: structurally valid, never verifiable as a real hash.
func (h *Bcrypt) GenConfig() (string, error) {
	salt := h.pinnedSalt
	if salt == "" {
		salt = h.salt.Generate()
	}
	stub := strings.Repeat(string(bcrypt64Alphabet[0]), bcryptSumChars)
	return assembleBcrypt(h.ident, h.rounds.Default, salt, stub), nil
}

// NeedsUpdate implements [Handler]. True for hashes with rounds outside the
// desired range and for hashes carrying set padding bits, whose canonical
// re-encoding differs from the stored string.
func (h *Bcrypt) NeedsUpdate(hash string) bool {
	p, err := h.parse(hash)
	if err != nil {
		return false
	}
	return p.saltDirty || p.sumDirty || h.rounds.NeedsUpdate(p.rounds)
}

// NormHash returns the canonical form of a bcrypt hash, repairing padding
// bits. Strings that do not identify as bcrypt pass through unchanged.
func (h *Bcrypt) NormHash(hash string) (string, error) {
	out, diags, err := h.NormHashWithDiagnostics(hash)
	report(h.reporter, diags)
	return out, err
}

// NormHashWithDiagnostics is NormHash returning its warning-class conditions.
func (h *Bcrypt) NormHashWithDiagnostics(hash string) (string, []Diagnostic, error) {
	if !h.Identify(hash) {
		return hash, nil, nil
	}
	p, err := h.parse(hash)
	if err != nil {
		return "", nil, err
	}
	diags := p.canonicalize()
	return assembleBcrypt(p.ident, p.rounds, p.salt, p.checksum), diags, nil
}

// ParseHash implements [Handler]. Fields: "ident", "rounds", "salt", and
// "checksum" when present.
func (h *Bcrypt) ParseHash(hash string, opts ...ParseOption) (map[string]any, error) {
	o := collectParseOptions(opts)
	p, err := h.parse(hash)
	if err != nil {
		return nil, err
	}
	if p.checksum == "" && !o.withoutChecksum {
		return nil, ErrConfigNotHash
	}
	m := map[string]any{
		"ident":  p.ident,
		"rounds": p.rounds,
		"salt":   p.salt,
	}
	if p.checksum != "" {
		m["checksum"] = p.checksum
	}
	if o.sanitize {
		m["salt"] = maskField(p.salt)
		if p.checksum != "" {
			m["checksum"] = maskField(p.checksum)
		}
	}
	return m, nil
}
