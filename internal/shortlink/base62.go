package shortlink

import (
	"errors"
	"math"
	"strings"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// ErrInvalidBase62 is returned when decoding a string outside the alphabet
// or one that overflows uint64.
var ErrInvalidBase62 = errors.New("invalid base62 string")

// EncodeUint64 encodes n in base62 using the alphabet 0-9A-Za-z.
// The encoding is minimal: 0 -> "0", 61 -> "z", 62 -> "10".
func EncodeUint64(n uint64) string {
	if n == 0 {
		return "0"
	}

	// 62^11 > 2^64, so 11 digits always suffice.
	var buf [11]byte

	i := len(buf)
	for n > 0 {
		i--
		buf[i] = base62Alphabet[n%62]
		n /= 62
	}

	return string(buf[i:])
}

// DecodeUint64 is the inverse of EncodeUint64.
func DecodeUint64(s string) (uint64, error) {
	if s == "" {
		return 0, ErrInvalidBase62
	}

	var n uint64

	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(base62Alphabet, s[i])
		if digit < 0 {
			return 0, ErrInvalidBase62
		}

		if n > (math.MaxUint64-uint64(digit))/62 {
			return 0, ErrInvalidBase62
		}

		n = n*62 + uint64(digit)
	}

	return n, nil
}
