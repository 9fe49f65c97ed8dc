package passhash

import "golang.org/x/crypto/blowfish"

// "OrpheanBeholderScryDoubt" — the plaintext bcrypt encrypts 64 times with
// the expensively keyed cipher.
var bcryptMagic = []byte{
	0x4f, 0x72, 0x70, 0x68,
	0x65, 0x61, 0x6e, 0x42,
	0x65, 0x68, 0x6f, 0x6c,
	0x64, 0x65, 0x72, 0x53,
	0x63, 0x72, 0x79, 0x44,
	0x6f, 0x75, 0x62, 0x74,
}

// bcryptKey prepares the cipher key bytes for a variant. All variants cap the
// secret at 72 bytes. The original "2" variant keyed the cipher with the bare
// password, cycling it without a terminator (which is why "abc" and "abcabc"
// collide under $2$); every later variant appends a NUL. An empty secret
// always keys with a single NUL, matching the historical C behavior where the
// terminator is part of the key.
func bcryptKey(secret []byte, ident string) []byte {
	if len(secret) > 72 {
		secret = secret[:72]
	}
	if ident == "2" && len(secret) > 0 {
		return secret
	}
	return append(secret[:len(secret):len(secret)], 0)
}

// bcryptKernel runs EksBlowfish over a prepared key and 16-byte raw salt at
// the given log2 cost, returning the raw 23-byte digest.
func bcryptKernel(key, rawSalt []byte, cost int) ([]byte, error) {
	c, err := blowfish.NewSaltedCipher(key, rawSalt)
	if err != nil {
		return nil, err
	}
	rounds := uint64(1) << uint(cost)
	for i := uint64(0); i < rounds; i++ {
		blowfish.ExpandKey(key, c)
		blowfish.ExpandKey(rawSalt, c)
	}

	digest := make([]byte, len(bcryptMagic))
	copy(digest, bcryptMagic)
	for i := 0; i < len(digest); i += 8 {
		for j := 0; j < 64; j++ {
			c.Encrypt(digest[i:i+8], digest[i:i+8])
		}
	}
	// Only 23 of the 24 bytes make it into the hash string.
	return digest[:23], nil
}
