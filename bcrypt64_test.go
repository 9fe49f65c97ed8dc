package passhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeBcrypt64_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "empty", raw: []byte{}},
		{name: "single byte", raw: []byte{0xff}},
		{name: "salt sized", raw: make([]byte, 16)},
		{name: "checksum sized", raw: []byte("0123456789012345678901p")},
		{name: "binary", raw: []byte{0x00, 0x01, 0x7f, 0x80, 0xfe, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := encodeBcrypt64(tt.raw)
			require.True(t, inBcrypt64Alphabet(enc))

			dec, err := decodeBcrypt64(enc)
			require.NoError(t, err)
			require.Equal(t, tt.raw, dec)

			// canonical by construction
			require.False(t, spareBitsSet(enc, len(tt.raw)))
		})
	}
}

func TestDecodeBcrypt64_RejectsForeignSymbols(t *testing.T) {
	_, err := decodeBcrypt64("abc+")
	require.Error(t, err)
	_, err = decodeBcrypt64("ab=c")
	require.Error(t, err)
}

func TestInBcrypt64Alphabet(t *testing.T) {
	require.True(t, inBcrypt64Alphabet("./AZaz09"))
	require.False(t, inBcrypt64Alphabet("abc!"))
	require.False(t, inBcrypt64Alphabet("abc+"))
	require.False(t, inBcrypt64Alphabet("abc="))
	require.True(t, inBcrypt64Alphabet(""))
}

func TestSpareBitCount(t *testing.T) {
	// 16 raw bytes in 22 symbols leave 4 unused bits; 23 raw bytes in 31
	// symbols leave 2.
	require.Equal(t, 4, spareBitCount(22, 16))
	require.Equal(t, 2, spareBitCount(31, 23))
	// dense encodings have none
	require.Equal(t, 0, spareBitCount(4, 3))
	require.Equal(t, 0, spareBitCount(0, 0))
}

func TestRepairSpareBits(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		rawLen  int
		want    string
		changed bool
	}{
		{
			// salt fixture: trailing 'c' carries dirty low bits, canonical 'O'
			name:    "dirty salt",
			in:      "yjDgE74RJkeqC0/1NheSSc",
			rawLen:  16,
			want:    "yjDgE74RJkeqC0/1NheSSO",
			changed: true,
		},
		{
			name:    "clean salt",
			in:      "yjDgE74RJkeqC0/1NheSSO",
			rawLen:  16,
			want:    "yjDgE74RJkeqC0/1NheSSO",
			changed: false,
		},
		{
			// checksum fixture: trailing 'V' carries dirty low bits, canonical 'S'
			name:    "dirty checksum",
			in:      "rvKeu9IbKDpcQf/Ox3qsrRS/Kw42qIV",
			rawLen:  23,
			want:    "rvKeu9IbKDpcQf/Ox3qsrRS/Kw42qIS",
			changed: true,
		},
		{
			name:    "clean checksum",
			in:      "rvKeu9IbKDpcQf/Ox3qsrRS/Kw42qIS",
			rawLen:  23,
			want:    "rvKeu9IbKDpcQf/Ox3qsrRS/Kw42qIS",
			changed: false,
		},
		{
			name:    "dense encoding untouched",
			in:      "abcd",
			rawLen:  3,
			want:    "abcd",
			changed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := repairSpareBits(tt.in, tt.rawLen)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.changed, changed)
			require.Equal(t, tt.changed, spareBitsSet(tt.in, tt.rawLen))
		})
	}
}

func TestRepairSpareBits_DecodesIdentically(t *testing.T) {
	// A dirty string and its repaired form must decode to the same raw bytes:
	// that is what makes silent repair safe.
	dirty := "yjDgE74RJkeqC0/1NheSSc"
	clean, changed := repairSpareBits(dirty, 16)
	require.True(t, changed)

	a, err := decodeBcrypt64(dirty)
	require.NoError(t, err)
	b, err := decodeBcrypt64(clean)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
