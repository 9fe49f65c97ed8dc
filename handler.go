package passhash

// Handler is the uniform contract implemented by every password-hashing
// scheme. A handler value is immutable: adjusting its defaults goes through
// the scheme's Using method, which returns an independent derived handler and
// never touches the original. All methods are safe for concurrent use.
type Handler interface {
	// Name returns the scheme name ("bcrypt", "bcrypt-sha256", ...).
	Name() string

	// Identify reports whether hash structurally belongs to this scheme.
	// It is a pattern match only: it never errors, accepts arbitrary byte
	// garbage, and matching does not imply the hash will verify.
	Identify(hash string) bool

	// Hash generates a fresh salt, computes the checksum for secret, and
	// returns the canonical hash string.
	Hash(secret string) (string, error)

	// Verify recomputes the checksum for secret using the parameters decoded
	// from hash and compares in constant time. It errors — rather than
	// returning false — on strings that do not identify, are malformed, use
	// an unsupported variant, or carry no checksum.
	Verify(secret, hash string) (bool, error)

	// GenHash is Hash with every parameter taken from config instead of the
	// handler's settings; used to reproduce or upgrade hashes against fixed
	// parameters.
	GenHash(secret, config string) (string, error)

	// GenConfig returns a hash string with a fresh salt and a placeholder
	// checksum, used only to pin parameters ahead of hashing.
	GenConfig() (string, error)

	// NeedsUpdate reports whether hash was generated with parameters outside
	// the handler's currently desired range or in a non-canonical encoding.
	// Such hashes still verify; callers rehash opportunistically.
	NeedsUpdate(hash string) bool

	// ParseHash decodes hash into named fields for diagnostics.
	ParseHash(hash string, opts ...ParseOption) (map[string]any, error)
}

// Reporter receives warning-class diagnostics from the plain (non
// ...WithDiagnostics) operations. The default reporter discards them.
type Reporter func(Diagnostic)

// Option adjusts a handler's settings when constructing or deriving one.
// Options only record the request; validation happens inside the scheme
// constructor, before any cryptographic work.
type Option func(*settings)

// settings is the accumulated option state shared by all schemes. Each scheme
// validates the subset it understands and rejects the rest.
type settings struct {
	rounds          *int
	minDesired      *int
	maxDesired      *int
	vary            *VarySpec
	salt            *string
	ident           string
	version         *int
	relaxed         bool
	truncateError   *bool
	verifyReject    *bool
	backend         string
	backendSet      bool
	fallbackBackend string
	fallbackSet     bool
	marker          string
	reporter        Reporter
}

func collectSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithRounds pins the cost parameter for generated hashes.
func WithRounds(n int) Option { return func(s *settings) { s.rounds = &n } }

// WithMinDesiredRounds narrows the bottom of the range NeedsUpdate considers
// current, without changing the hard minimum.
func WithMinDesiredRounds(n int) Option { return func(s *settings) { s.minDesired = &n } }

// WithMaxDesiredRounds narrows the top of the range NeedsUpdate considers
// current, without changing the hard maximum.
func WithMaxDesiredRounds(n int) Option { return func(s *settings) { s.maxDesired = &n } }

// WithVaryRounds jitters the rounds of generated hashes around the default.
func WithVaryRounds(v VarySpec) Option { return func(s *settings) { s.vary = &v } }

// WithSalt pins an explicit salt instead of generating a random one.
// Intended for reproducing known hashes; production hashing should let the
// scheme draw salts from the CSPRNG.
func WithSalt(salt string) Option { return func(s *settings) { s.salt = &salt } }

// WithIdent selects the format-version prefix for generated hashes.
func WithIdent(ident string) Option { return func(s *settings) { s.ident = ident } }

// WithVersion selects a wire-format version for schemes that have more than
// one (bcrypt-sha256).
func WithVersion(v int) Option { return func(s *settings) { s.version = &v } }

// WithRelaxed clips out-of-bounds settings to the nearest hard bound and
// reports a DiagSettingClipped diagnostic instead of failing.
func WithRelaxed() Option { return func(s *settings) { s.relaxed = true } }

// WithTruncateError makes Hash fail with a PasswordTruncatedError for secrets
// longer than the scheme's truncation size, instead of truncating silently.
func WithTruncateError(on bool) Option { return func(s *settings) { s.truncateError = &on } }

// WithTruncateVerifyReject forbids Verify with any secret longer than the
// scheme's truncation size.
func WithTruncateVerifyReject(on bool) Option { return func(s *settings) { s.verifyReject = &on } }

// WithBackend selects the checksum backend by name.
func WithBackend(name string) Option {
	return func(s *settings) { s.backend = name; s.backendSet = true }
}

// WithFallbackBackend configures a backend tried only when the selected one
// refuses a request. Arbitrary failures are never retried; refusal is the
// sole trigger.
func WithFallbackBackend(name string) Option {
	return func(s *settings) { s.fallbackBackend = name; s.fallbackSet = true }
}

// WithMarker sets the disabled-account marker string.
func WithMarker(marker string) Option { return func(s *settings) { s.marker = marker } }

// WithReporter routes diagnostics surfaced by the plain operations.
func WithReporter(r Reporter) Option { return func(s *settings) { s.reporter = r } }

// ParseOption adjusts ParseHash output.
type ParseOption func(*parseOptions)

type parseOptions struct {
	withoutChecksum bool
	sanitize        bool
}

// ParseWithoutChecksum accepts config-only strings (no checksum field).
func ParseWithoutChecksum() ParseOption {
	return func(o *parseOptions) { o.withoutChecksum = true }
}

// ParseSanitized masks the salt and checksum fields down to a short prefix so
// the result is safe to log. All other fields are identical to the
// unsanitized result.
func ParseSanitized() ParseOption {
	return func(o *parseOptions) { o.sanitize = true }
}

func collectParseOptions(opts []ParseOption) parseOptions {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// maskField reduces a sensitive field to at most 4 leading characters.
func maskField(s string) string {
	const keep = 4
	if len(s) <= keep {
		return s
	}
	return s[:keep] + "..."
}

// report sends diags through r when set.
func report(r Reporter, diags []Diagnostic) {
	if r == nil {
		return
	}
	for _, d := range diags {
		r(d)
	}
}
