package passhash

// TruncationPolicy describes how a scheme handles secrets longer than its
// internal limit. Size zero means the scheme never truncates.
type TruncationPolicy struct {
	// Size is the number of secret bytes that influence the checksum.
	Size int

	// Error raises a PasswordTruncatedError from Hash instead of silently
	// truncating.
	Error bool

	// VerifyReject additionally forbids Verify with any secret longer than
	// Size, even when truncation is otherwise silent.
	VerifyReject bool
}

// checkHash validates a secret for hash generation and returns the bytes the
// checksum will actually cover.
func (p TruncationPolicy) checkHash(scheme, secret string) (string, error) {
	if p.Size == 0 || len(secret) <= p.Size {
		return secret, nil
	}
	if p.Error {
		return "", &PasswordTruncatedError{Scheme: scheme, TruncateSize: p.Size}
	}
	return secret[:p.Size], nil
}

// checkVerify validates a secret for verification. Truncation is normally
// allowed here even under the Error flag: old hashes of long passwords must
// keep verifying. VerifyReject opts out of that.
func (p TruncationPolicy) checkVerify(scheme, secret string) (string, error) {
	if p.Size == 0 || len(secret) <= p.Size {
		return secret, nil
	}
	if p.VerifyReject {
		return "", &PasswordTruncatedError{Scheme: scheme, TruncateSize: p.Size}
	}
	return secret[:p.Size], nil
}
