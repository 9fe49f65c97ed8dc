package passhash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// SchemeBcryptSHA256 is the registry name of the bcrypt-sha256 handler.
const SchemeBcryptSHA256 = "bcrypt-sha256"

const bcryptSHA256Prefix = "$" + SchemeBcryptSHA256 + "$"

// BcryptSHA256 wraps bcrypt with a digest pre-hash, removing bcrypt's 72-byte
// secret limit: the secret is reduced to a fixed-length base64 digest which
// is then fed to the bcrypt kernel. Two wire formats exist:
//
//	v1 (legacy):  $bcrypt-sha256$<ident>,<cost>$<salt>$<checksum>
//	v2 (default): $bcrypt-sha256$v=2,t=<ident>,r=<cost>$<salt>$<checksum>
//
// v2 keys the digest as HMAC-SHA256(key=salt, msg=secret), closing the
// hash-shucking hole in v1's unkeyed SHA-256. v1 accepts idents 2a and 2b,
// v2 only 2b. The cost field is never zero-padded; a padded field is
// malformed in both directions.
type BcryptSHA256 struct {
	version    int
	ident      string
	rounds     RoundsPolicy
	salt       SaltPolicy
	pinnedSalt string
	vary       *VarySpec
	engine     *Bcrypt
	reporter   Reporter
}

func defaultBcryptSHA256() *BcryptSHA256 {
	return &BcryptSHA256{
		version: 2,
		ident:   "2b",
		rounds:  RoundsPolicy{Min: 4, Max: 31, Default: 12, Shape: CostLog2},
		salt: SaltPolicy{
			MinSize:     bcryptSaltChars,
			MaxSize:     bcryptSaltChars,
			DefaultSize: bcryptSaltChars,
			Alphabet:    bcrypt64Alphabet,
			RawLen:      bcryptRawSaltLen,
		},
		engine: defaultBcrypt(),
	}
}

// NewBcryptSHA256 constructs a bcrypt-sha256 handler generating v2 hashes
// with ident 2b.
func NewBcryptSHA256(opts ...Option) (*BcryptSHA256, error) {
	h := defaultBcryptSHA256()
	diags, err := h.apply(collectSettings(opts))
	if err != nil {
		return nil, err
	}
	report(h.reporter, diags)
	return h, nil
}

// Using returns an independent derived handler; h is never modified.
func (h *BcryptSHA256) Using(opts ...Option) (*BcryptSHA256, error) {
	derived := *h
	diags, err := derived.apply(collectSettings(opts))
	if err != nil {
		return nil, err
	}
	report(derived.reporter, diags)
	return &derived, nil
}

func (h *BcryptSHA256) validIdents() []string {
	if h.version == 1 {
		return []string{"2a", "2b"}
	}
	return []string{"2b"}
}

func (h *BcryptSHA256) apply(s *settings) ([]Diagnostic, error) {
	var diags []Diagnostic
	if s.reporter != nil {
		h.reporter = s.reporter
	}
	if s.marker != "" {
		return nil, fmt.Errorf("%w: bcrypt-sha256 has no disabled marker", ErrInvalidSetting)
	}
	if s.version != nil {
		switch *s.version {
		case 1, 2:
			h.version = *s.version
		default:
			return nil, fmt.Errorf("%w: unknown bcrypt-sha256 version %d",
				ErrInvalidSetting, *s.version)
		}
	}
	if s.ident != "" {
		valid := h.validIdents()
		var unsupported []string
		for _, v := range []string{"2", "2a", "2b", "2x", "2y"} {
			found := false
			for _, ok := range valid {
				if v == ok {
					found = true
				}
			}
			if !found {
				unsupported = append(unsupported, v)
			}
		}
		pol := IdentPolicy{Valid: valid, Default: "2b", Unsupported: unsupported}
		ident, err := pol.Normalize(s.ident)
		if err != nil {
			return nil, err
		}
		h.ident = ident
	} else if h.version == 2 {
		// A version switch must not leave a v1-only ident behind.
		h.ident = "2b"
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
	if s.truncateError != nil || s.verifyReject != nil {
		return nil, fmt.Errorf("%w: bcrypt-sha256 does not truncate secrets",
			ErrInvalidSetting)
	}
	if s.backendSet || s.fallbackSet {
		engine, err := h.engine.Using(backendOnly(s)...)
		if err != nil {
			return nil, err
		}
		h.engine = engine
	}
	return diags, nil
}

// backendOnly re-extracts just the backend choices from s for the inner
// bcrypt engine.
func backendOnly(s *settings) []Option {
	var opts []Option
	if s.backendSet {
		opts = append(opts, WithBackend(s.backend))
	}
	if s.fallbackSet {
		opts = append(opts, WithFallbackBackend(s.fallbackBackend))
	}
	return opts
}

// Name implements [Handler].
func (h *BcryptSHA256) Name() string { return SchemeBcryptSHA256 }

// Version returns the wire-format version generated by this handler.
func (h *BcryptSHA256) Version() int { return h.version }

// Identify implements [Handler]: prefix match only. Malformed parameter
// sections still identify; they fail later, loudly, in Verify or GenHash.
func (h *BcryptSHA256) Identify(hash string) bool {
	return strings.HasPrefix(hash, bcryptSHA256Prefix)
}

// prehash reduces secret to the fixed-length digest handed to the bcrypt
// kernel. v2 keys an HMAC with the salt string; v1 used a bare SHA-256.
func prehash(version int, secret, salt string) string {
	var digest []byte
	if version == 1 {
		sum := sha256.Sum256([]byte(secret))
		digest = sum[:]
	} else {
		mac := hmac.New(sha256.New, []byte(salt))
		mac.Write([]byte(secret))
		digest = mac.Sum(nil)
	}
	return base64.StdEncoding.EncodeToString(digest)
}

type bcryptSHA256Parts struct {
	version   int
	ident     string
	rounds    int
	salt      string
	checksum  string
	saltDirty bool
	sumDirty  bool
}

// parseCompactRounds parses the non-padded decimal cost field; a leading
// zero is malformed no matter what follows it.
func parseCompactRounds(s string) (int, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, fmt.Errorf("%w: bad rounds field", ErrMalformedHash)
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: bad rounds field", ErrMalformedHash)
		}
		n = n*10 + int(s[i]-'0')
		if n > 99 {
			return 0, fmt.Errorf("%w: bad rounds field", ErrMalformedHash)
		}
	}
	return n, nil
}

// checkVariant classifies the embedded bcrypt variant for a format version.
func checkVariant(ident string, valid ...string) error {
	for _, v := range valid {
		if ident == v {
			return nil
		}
	}
	switch ident {
	case "2", "2a", "2b", "2x", "2y":
		return fmt.Errorf("%w: bcrypt variant %q not allowed here",
			ErrUnsupportedVariant, ident)
	}
	return fmt.Errorf("%w: unrecognized bcrypt variant %q", ErrMalformedHash, ident)
}

func (h *BcryptSHA256) parse(hash string) (*bcryptSHA256Parts, error) {
	rest, ok := strings.CutPrefix(hash, bcryptSHA256Prefix)
	if !ok {
		return nil, fmt.Errorf("%w: not a bcrypt-sha256 string", ErrMalformedHash)
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 2 && len(fields) != 3 {
		return nil, fmt.Errorf("%w: wrong field count", ErrMalformedHash)
	}
	p := &bcryptSHA256Parts{}
	params := fields[0]
	if v, isV2 := strings.CutPrefix(params, "v="); isV2 {
		sub := strings.Split(v, ",")
		if len(sub) != 3 {
			return nil, fmt.Errorf("%w: bad parameter section", ErrMalformedHash)
		}
		if sub[0] != "2" {
			return nil, fmt.Errorf("%w: unsupported version %q in versioned format",
				ErrMalformedHash, sub[0])
		}
		p.version = 2
		ident, ok := strings.CutPrefix(sub[1], "t=")
		if !ok {
			return nil, fmt.Errorf("%w: bad parameter section", ErrMalformedHash)
		}
		if err := checkVariant(ident, "2b"); err != nil {
			return nil, err
		}
		p.ident = ident
		r, ok := strings.CutPrefix(sub[2], "r=")
		if !ok {
			return nil, fmt.Errorf("%w: bad parameter section", ErrMalformedHash)
		}
		rounds, err := parseCompactRounds(r)
		if err != nil {
			return nil, err
		}
		p.rounds = rounds
	} else {
		sub := strings.Split(params, ",")
		if len(sub) != 2 {
			return nil, fmt.Errorf("%w: bad parameter section", ErrMalformedHash)
		}
		p.version = 1
		if err := checkVariant(sub[0], "2a", "2b"); err != nil {
			return nil, err
		}
		p.ident = sub[0]
		rounds, err := parseCompactRounds(sub[1])
		if err != nil {
			return nil, err
		}
		p.rounds = rounds
	}
	if err := h.rounds.Validate(p.rounds); err != nil {
		return nil, err
	}
	p.salt = fields[1]
	if len(p.salt) != bcryptSaltChars || !inBcrypt64Alphabet(p.salt) {
		return nil, fmt.Errorf("%w: bad salt field", ErrMalformedHash)
	}
	if len(fields) == 3 {
		p.checksum = fields[2]
		if len(p.checksum) != bcryptSumChars || !inBcrypt64Alphabet(p.checksum) {
			return nil, fmt.Errorf("%w: bad checksum field", ErrMalformedHash)
		}
	}
	p.saltDirty = spareBitsSet(p.salt, bcryptRawSaltLen)
	p.sumDirty = p.checksum != "" && spareBitsSet(p.checksum, bcryptRawSumLen)
	return p, nil
}

func (p *bcryptSHA256Parts) canonicalize() []Diagnostic {
	var diags []Diagnostic
	if p.saltDirty {
		p.salt, _ = repairSpareBits(p.salt, bcryptRawSaltLen)
		diags = append(diags, diagf(DiagPaddingBitsCorrected,
			"bcrypt-sha256 salt has incorrectly set padding bits"))
	}
	if p.sumDirty {
		p.checksum, _ = repairSpareBits(p.checksum, bcryptRawSumLen)
		diags = append(diags, diagf(DiagPaddingBitsCorrected,
			"bcrypt-sha256 checksum has incorrectly set padding bits"))
	}
	return diags
}

func assembleBcryptSHA256(version int, ident string, rounds int, salt, checksum string) string {
	var b strings.Builder
	b.WriteString(bcryptSHA256Prefix)
	if version == 1 {
		fmt.Fprintf(&b, "%s,%d", ident, rounds)
	} else {
		fmt.Fprintf(&b, "v=2,t=%s,r=%d", ident, rounds)
	}
	b.WriteByte('$')
	b.WriteString(salt)
	if checksum != "" {
		b.WriteByte('$')
		b.WriteString(checksum)
	}
	return b.String()
}

// Hash implements [Handler].
func (h *BcryptSHA256) Hash(secret string) (string, error) {
	out, diags, err := h.HashWithDiagnostics(secret)
	report(h.reporter, diags)
	return out, err
}

// HashWithDiagnostics is Hash returning its warning-class conditions.
func (h *BcryptSHA256) HashWithDiagnostics(secret string) (string, []Diagnostic, error) {
	if err := checkGlobalSize(secret); err != nil {
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
	key := prehash(h.version, secret, salt)
	sum, diags, err := h.engine.compute([]byte(key), h.ident, rounds, salt)
	if err != nil {
		return "", diags, err
	}
	return assembleBcryptSHA256(h.version, h.ident, rounds, salt, sum), diags, nil
}

// Verify implements [Handler].
func (h *BcryptSHA256) Verify(secret, hash string) (bool, error) {
	ok, diags, err := h.VerifyWithDiagnostics(secret, hash)
	report(h.reporter, diags)
	return ok, err
}

// VerifyWithDiagnostics is Verify returning its warning-class conditions.
func (h *BcryptSHA256) VerifyWithDiagnostics(secret, hash string) (bool, []Diagnostic, error) {
	p, err := h.parse(hash)
	if err != nil {
		return false, nil, err
	}
	if p.checksum == "" {
		return false, nil, ErrConfigNotHash
	}
	diags := p.canonicalize()
	if err := checkGlobalSize(secret); err != nil {
		return false, diags, err
	}
	key := prehash(p.version, secret, p.salt)
	sum, cdiags, err := h.engine.compute([]byte(key), p.ident, p.rounds, p.salt)
	diags = append(diags, cdiags...)
	if err != nil {
		return false, diags, err
	}
	return consttimeEqual(sum, p.checksum), diags, nil
}

// GenHash implements [Handler].
func (h *BcryptSHA256) GenHash(secret, config string) (string, error) {
	out, diags, err := h.GenHashWithDiagnostics(secret, config)
	report(h.reporter, diags)
	return out, err
}

// GenHashWithDiagnostics is GenHash returning its warning-class conditions.
func (h *BcryptSHA256) GenHashWithDiagnostics(secret, config string) (string, []Diagnostic, error) {
	p, err := h.parse(config)
	if err != nil {
		return "", nil, err
	}
	diags := p.canonicalize()
	if err := checkGlobalSize(secret); err != nil {
		return "", diags, err
	}
	key := prehash(p.version, secret, p.salt)
	sum, cdiags, err := h.engine.compute([]byte(key), p.ident, p.rounds, p.salt)
	diags = append(diags, cdiags...)
	if err != nil {
		return "", diags, err
	}
	return assembleBcryptSHA256(p.version, p.ident, p.rounds, p.salt, sum), diags, nil
}

// GenConfig implements [Handler].
func (h *BcryptSHA256) GenConfig() (string, error) {
	salt := h.pinnedSalt
	if salt == "" {
		salt = h.salt.Generate()
	}
	stub := strings.Repeat(string(bcrypt64Alphabet[0]), bcryptSumChars)
	return assembleBcryptSHA256(h.version, h.ident, h.rounds.Default, salt, stub), nil
}

// NeedsUpdate implements [Handler]. v1 hashes always want an upgrade once the
// handler defaults to v2.
func (h *BcryptSHA256) NeedsUpdate(hash string) bool {
	p, err := h.parse(hash)
	if err != nil {
		return false
	}
	if p.version < h.version {
		return true
	}
	return p.saltDirty || p.sumDirty || h.rounds.NeedsUpdate(p.rounds)
}

// NormHash returns the canonical form of a bcrypt-sha256 hash, repairing
// padding bits. Strings that do not identify as this scheme pass through
// unchanged.
func (h *BcryptSHA256) NormHash(hash string) (string, error) {
	out, diags, err := h.NormHashWithDiagnostics(hash)
	report(h.reporter, diags)
	return out, err
}

// NormHashWithDiagnostics is NormHash returning its warning-class conditions.
func (h *BcryptSHA256) NormHashWithDiagnostics(hash string) (string, []Diagnostic, error) {
	if !h.Identify(hash) {
		return hash, nil, nil
	}
	p, err := h.parse(hash)
	if err != nil {
		return "", nil, err
	}
	diags := p.canonicalize()
	return assembleBcryptSHA256(p.version, p.ident, p.rounds, p.salt, p.checksum), diags, nil
}

// ParseHash implements [Handler]. Fields: "version", "ident", "rounds",
// "salt", and "checksum" when present.
func (h *BcryptSHA256) ParseHash(hash string, opts ...ParseOption) (map[string]any, error) {
	o := collectParseOptions(opts)
	p, err := h.parse(hash)
	if err != nil {
		return nil, err
	}
	if p.checksum == "" && !o.withoutChecksum {
		return nil, ErrConfigNotHash
	}
	m := map[string]any{
		"version": p.version,
		"ident":   p.ident,
		"rounds":  p.rounds,
		"salt":    p.salt,
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
