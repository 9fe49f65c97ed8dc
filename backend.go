package passhash

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	xbcrypt "golang.org/x/crypto/bcrypt"
)

// Backend names. The set is closed: backend selection is a tagged choice, not
// an open plugin surface.
const (
	// BackendBuiltin is the pure-Go EksBlowfish kernel. Always available,
	// services every supported variant with full salt control.
	BackendBuiltin = "builtin"

	// BackendXCrypto wraps golang.org/x/crypto/bcrypt. Its public API offers
	// no fixed-salt computation, so it refuses checksum generation and
	// services verification only, for the modern variants.
	BackendXCrypto = "xcrypto"
)

// errBackendRefused signals that a backend cannot service a particular
// request (variant, salt class, or operation) and a configured fallback may
// be tried. It is deliberately distinct from an internal failure: refusal is
// a capability statement, failure after acceptance is a [BackendError].
var errBackendRefused = errors.New("passhash: backend cannot service this request")

// Backend is one concrete bcrypt checksum engine.
type Backend interface {
	Name() string
	// Available reports whether the backend can be used at all in this
	// process. It never errors.
	Available() bool
	// Compute returns the 31-symbol checksum for secret under the given
	// variant, log2 cost, and 16-byte raw salt. A backend that cannot
	// service the request returns errBackendRefused.
	Compute(secret []byte, ident string, cost int, rawSalt []byte) (string, error)
}

// checkCapable is implemented by backends that can verify a full hash string
// directly even though they cannot compute a checksum for a caller-chosen
// salt.
type checkCapable interface {
	CheckHash(secret []byte, hash string) (bool, error)
}

type builtinBackend struct{}

func (builtinBackend) Name() string    { return BackendBuiltin }
func (builtinBackend) Available() bool { return true }

func (builtinBackend) Compute(secret []byte, ident string, cost int, rawSalt []byte) (string, error) {
	switch ident {
	case "2", "2a", "2b", "2y":
	default:
		return "", errBackendRefused
	}
	digest, err := bcryptKernel(bcryptKey(secret, ident), rawSalt, cost)
	if err != nil {
		return "", err
	}
	return encodeBcrypt64(digest), nil
}

type xcryptoBackend struct{}

func (xcryptoBackend) Name() string    { return BackendXCrypto }
func (xcryptoBackend) Available() bool { return true }

func (xcryptoBackend) Compute(secret []byte, ident string, cost int, rawSalt []byte) (string, error) {
	// x/crypto/bcrypt seeds its own salt and exposes no salted entry point.
	return "", errBackendRefused
}

func (xcryptoBackend) CheckHash(secret []byte, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$2a$"),
		strings.HasPrefix(hash, "$2b$"),
		strings.HasPrefix(hash, "$2y$"):
	default:
		return false, errBackendRefused
	}
	err := xbcrypt.CompareHashAndPassword([]byte(hash), secret)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, xbcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, &BackendError{Backend: BackendXCrypto, Err: err}
}

// backendPriority orders automatic selection: first available wins.
var backendPriority = []string{BackendBuiltin, BackendXCrypto}

var backendTable = map[string]Backend{
	BackendBuiltin: builtinBackend{},
	BackendXCrypto: xcryptoBackend{},
}

// HasBackend reports whether name is a known, currently available backend.
// It is a definite answer and never errors.
func HasBackend(name string) bool {
	b, ok := backendTable[name]
	return ok && b.Available()
}

// Backends lists the known backend names in selection-priority order.
func Backends() []string {
	out := make([]string, len(backendPriority))
	copy(out, backendPriority)
	return out
}

func lookupBackend(name string) (Backend, error) {
	if name == "" {
		for _, n := range backendPriority {
			if b := backendTable[n]; b.Available() {
				return b, nil
			}
		}
		return nil, fmt.Errorf("%w: no backend available", ErrMissingBackend)
	}
	b, ok := backendTable[name]
	if !ok || !b.Available() {
		return nil, fmt.Errorf("%w: %q", ErrMissingBackend, name)
	}
	return b, nil
}

// Wraparound probe. crypt_blowfish-era "2a" implementations wrapped the key
// length in an 8-bit counter, so passwords past 255 bytes keyed the cipher as
// if they were much shorter. Rather than trusting a static capability flag,
// each backend is probed at first use with a 255-byte password against a
// known salt: a vulnerable engine reproduces the known weak checksum.
// Backend versions change behavior over time; the probe does not.
const (
	wraparoundProbeSalt = "R1lJ2gkNaoPGdafE.H.16."
	wraparoundWeakSum   = "nVyh2niHsGJhayOHLMiXlI45o8/DU.6"
)

func wraparoundProbeSecret() []byte {
	return repeatToSize([]byte("0123456789"), 255)
}

// probedBackend caches the wraparound-probe verdict for a backend.
type probedBackend struct {
	Backend
	once       sync.Once
	vulnerable bool
}

func newProbedBackend(b Backend) *probedBackend {
	return &probedBackend{Backend: b}
}

// wraparoundVulnerable runs the probe once and caches the verdict.
func (p *probedBackend) wraparoundVulnerable() bool {
	p.once.Do(func() {
		rawSalt, err := decodeBcrypt64(wraparoundProbeSalt)
		if err != nil {
			return
		}
		secret := wraparoundProbeSecret()
		if sum, err := p.Backend.Compute(secret, "2a", 4, rawSalt); err == nil {
			p.vulnerable = sum == wraparoundWeakSum
			return
		}
		if cc, ok := p.Backend.(checkCapable); ok {
			weak := "$2a$04$" + wraparoundProbeSalt + wraparoundWeakSum
			if match, err := cc.CheckHash(secret, weak); err == nil {
				p.vulnerable = match
			}
		}
	})
	return p.vulnerable
}
