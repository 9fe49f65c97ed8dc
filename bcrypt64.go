package passhash

import (
	"encoding/base64"
	"strings"
)

// bcrypt's base64 variant. Same packing as standard base64, different symbol
// order, no padding characters. Crypt formats built on it (bcrypt,
// bcrypt-sha256) store salts and checksums in this alphabet.
const bcrypt64Alphabet = "./ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// bcrypt64 is deliberately non-strict: decoding tolerates set padding bits so
// historical hashes with dirty trailing symbols still parse. Callers detect
// and repair those bits with spareBitsSet / repairSpareBits.
var bcrypt64 = base64.NewEncoding(bcrypt64Alphabet).WithPadding(base64.NoPadding)

// encodeBcrypt64 encodes raw bytes into the bcrypt alphabet. The output is
// always canonical: unused trailing bits are zero.
func encodeBcrypt64(raw []byte) string {
	return bcrypt64.EncodeToString(raw)
}

// decodeBcrypt64 decodes a bcrypt-alphabet string. Out-of-alphabet symbols
// yield an error; set padding bits do not (see repairSpareBits).
func decodeBcrypt64(s string) ([]byte, error) {
	return bcrypt64.DecodeString(s)
}

// inBcrypt64Alphabet reports whether every byte of s belongs to the bcrypt
// base64 alphabet.
func inBcrypt64Alphabet(s string) bool {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(bcrypt64Alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// spareBitCount returns the number of unused low bits in the final symbol of
// an encoding of rawLen bytes into encLen symbols, or 0 when the encoding is
// dense. A 16-byte bcrypt salt has 4 spare bits in its 22nd symbol; a 23-byte
// checksum has 2 spare bits in its 31st.
func spareBitCount(encLen, rawLen int) int {
	spare := encLen*6 - rawLen*8
	if spare < 0 || spare >= 6 {
		return 0
	}
	return spare
}

// spareBitsSet reports whether the unused padding bits in the final symbol of
// s are non-zero. rawLen is the decoded byte length the string is expected to
// carry.
func spareBitsSet(s string, rawLen int) bool {
	spare := spareBitCount(len(s), rawLen)
	if spare == 0 || len(s) == 0 {
		return false
	}
	idx := strings.IndexByte(bcrypt64Alphabet, s[len(s)-1])
	if idx < 0 {
		return false
	}
	return idx&(1<<spare-1) != 0
}

// repairSpareBits zeroes the unused padding bits in the final symbol of s,
// returning the canonical string and whether anything changed.
func repairSpareBits(s string, rawLen int) (string, bool) {
	spare := spareBitCount(len(s), rawLen)
	if spare == 0 || len(s) == 0 {
		return s, false
	}
	idx := strings.IndexByte(bcrypt64Alphabet, s[len(s)-1])
	if idx < 0 {
		return s, false
	}
	fixed := idx &^ (1<<spare - 1)
	if fixed == idx {
		return s, false
	}
	return s[:len(s)-1] + string(bcrypt64Alphabet[fixed]), true
}
