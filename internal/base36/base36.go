// Package base36 converts between int64 values and the lowercase
// alphanumeric path segments Alpha-era world saves use for chunk and region
// directory names.
package base36

import "fmt"

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Encode returns the lowercase base-36 representation of i, least
// significant digit last. Zero encodes to "0"; negative values are encoded
// as "-" followed by the magnitude's encoding.
func Encode(i int64) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	u := uint64(i)
	if negative {
		u = uint64(-i)
	}

	var buf [32]byte
	pos := len(buf)
	for u > 0 {
		pos--
		buf[pos] = alphabet[u%36]
		u /= 36
	}

	if negative {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Decode parses a base-36 string produced by Encode back into an int64. It
// rejects any character outside the alphabet, aside from a leading '-'.
func Decode(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("base36: empty string")
	}

	negative := false
	i := 0
	if s[0] == '-' {
		negative = true
		i = 1
		if i == len(s) {
			return 0, fmt.Errorf("base36: %q has no digits", s)
		}
	}

	var v uint64
	for ; i < len(s); i++ {
		d, ok := digitValue(s[i])
		if !ok {
			return 0, fmt.Errorf("base36: invalid character %q in %q", s[i], s)
		}
		v = v*36 + uint64(d)
	}

	if negative {
		return -int64(v), nil
	}
	return int64(v), nil
}

func digitValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10, true
	default:
		return 0, false
	}
}
