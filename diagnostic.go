package passhash

import "fmt"

// DiagnosticCode classifies a recoverable condition surfaced by a hashing
// operation. Diagnostics never stop execution; they report that the library
// corrected or tolerated something the caller may want to know about.
type DiagnosticCode string

const (
	// DiagPaddingBitsCorrected reports that unused padding bits in a salt or
	// checksum encoding were set and have been canonicalized to zero.
	DiagPaddingBitsCorrected DiagnosticCode = "padding-bits-corrected"

	// DiagSettingClipped reports that a setting outside the hard bounds was
	// clipped to the nearest bound because relaxed mode was enabled.
	DiagSettingClipped DiagnosticCode = "setting-clipped"

	// DiagVulnerableBackend reports that the selected backend exhibits the
	// bsd wraparound bug for pre-2b variants; secrets are clamped to 72 bytes
	// before reaching it.
	DiagVulnerableBackend DiagnosticCode = "vulnerable-backend"
)

// Diagnostic is a warning-class condition attached to an otherwise successful
// result. Callers decide whether to log, ignore, or escalate it.
type Diagnostic struct {
	Code    DiagnosticCode
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// diagf builds a Diagnostic with a formatted message.
func diagf(code DiagnosticCode, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)}
}

// hasDiag reports whether diags contains a diagnostic with the given code.
func hasDiag(diags []Diagnostic, code DiagnosticCode) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}
