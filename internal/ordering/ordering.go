// Package ordering assigns fractional sort keys to playlist members.
//
// Keys are base-62 strings compared bytewise. Each key is an integer head, whose first
// character encodes its length, followed by a fraction without trailing zeros. Inserting
// between two neighbours produces one new key and never rewrites another row.
package ordering

import (
	"errors"
	"fmt"
	"strings"
)

const digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// smallestInteger is the lowest integer head; no key may consist of it alone.
const smallestInteger = "A00000000000000000000000000"

var (
	ErrInvalidKey = errors.New("invalid order key")
	ErrKeyOrder   = errors.New("order keys out of order")
	ErrExhausted  = errors.New("order key space exhausted")
)

// KeyBetween returns a key strictly between prev and next.
//
// An empty prev means "before everything" and an empty next "after everything".
func KeyBetween(prev, next string) (string, error) {
	if prev != "" {
		if err := validateKey(prev); err != nil {
			return "", err
		}
	}
	if next != "" {
		if err := validateKey(next); err != nil {
			return "", err
		}
	}
	if prev != "" && next != "" && prev >= next {
		return "", fmt.Errorf("%w: %q >= %q", ErrKeyOrder, prev, next)
	}

	if prev == "" {
		if next == "" {
			return "a0", nil
		}
		ib, _ := integerPart(next)
		fb := next[len(ib):]
		if ib == smallestInteger {
			mid, err := midpoint("", fb, false)
			if err != nil {
				return "", err
			}
			return ib + mid, nil
		}
		if ib < next {
			return ib, nil
		}
		dec, ok := decrementInteger(ib)
		if !ok {
			return "", fmt.Errorf("%w: cannot go below %q", ErrExhausted, next)
		}
		return dec, nil
	}

	ia, _ := integerPart(prev)
	fa := prev[len(ia):]

	if next == "" {
		if inc, ok := incrementInteger(ia); ok {
			return inc, nil
		}
		mid, err := midpoint(fa, "", true)
		if err != nil {
			return "", err
		}
		return ia + mid, nil
	}

	ib, _ := integerPart(next)
	fb := next[len(ib):]
	if ia == ib {
		mid, err := midpoint(fa, fb, false)
		if err != nil {
			return "", err
		}
		return ia + mid, nil
	}

	inc, ok := incrementInteger(ia)
	if !ok {
		return "", fmt.Errorf("%w: cannot go above %q", ErrExhausted, prev)
	}
	if inc < next {
		return inc, nil
	}
	mid, err := midpoint(fa, "", true)
	if err != nil {
		return "", err
	}
	return ia + mid, nil
}

// KeysAfter returns n ascending keys following prev, as repeated appends would.
func KeysAfter(prev string, n int) ([]string, error) {
	keys := make([]string, 0, n)
	for range n {
		k, err := KeyBetween(prev, "")
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		prev = k
	}
	return keys, nil
}

// Validate reports whether key is a well-formed order key.
func Validate(key string) error {
	return validateKey(key)
}

// midpoint returns a fraction strictly between a and b. unbounded treats b as +infinity.
func midpoint(a, b string, unbounded bool) (string, error) {
	if !unbounded && a >= b {
		return "", fmt.Errorf("%w: fraction %q >= %q", ErrKeyOrder, a, b)
	}
	if strings.HasSuffix(a, "0") || strings.HasSuffix(b, "0") {
		return "", fmt.Errorf("%w: trailing zero", ErrInvalidKey)
	}

	if !unbounded {
		n := 0
		for n < len(b) && digitAt(a, n) == b[n] {
			n++
		}
		if n > 0 {
			rest := ""
			if n < len(a) {
				rest = a[n:]
			}
			mid, err := midpoint(rest, b[n:], false)
			if err != nil {
				return "", err
			}
			return b[:n] + mid, nil
		}
	}

	da := 0
	if a != "" {
		da = strings.IndexByte(digits, a[0])
	}
	db := len(digits)
	if !unbounded {
		db = strings.IndexByte(digits, b[0])
	}

	if db-da > 1 {
		return string(digits[(da+db+1)/2]), nil
	}
	if !unbounded && len(b) > 1 {
		return b[:1], nil
	}

	rest := ""
	if a != "" {
		rest = a[1:]
	}
	mid, err := midpoint(rest, "", true)
	if err != nil {
		return "", err
	}
	return string(digits[da]) + mid, nil
}

// digitAt returns s[i], or '0' past the end of s.
func digitAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return '0'
}

func integerLength(head byte) (int, error) {
	switch {
	case head >= 'a' && head <= 'z':
		return int(head-'a') + 2, nil
	case head >= 'A' && head <= 'Z':
		return int('Z'-head) + 2, nil
	default:
		return 0, fmt.Errorf("%w: head %q", ErrInvalidKey, head)
	}
}

func integerPart(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	n, err := integerLength(key[0])
	if err != nil {
		return "", err
	}
	if n > len(key) {
		return "", fmt.Errorf("%w: %q is shorter than its integer head", ErrInvalidKey, key)
	}
	return key[:n], nil
}

func validateKey(key string) error {
	if key == smallestInteger {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidKey, key)
	}
	i, err := integerPart(key)
	if err != nil {
		return err
	}
	for j := 1; j < len(key); j++ {
		if strings.IndexByte(digits, key[j]) < 0 {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidKey, key, key[j])
		}
	}
	if strings.HasSuffix(key[len(i):], "0") {
		return fmt.Errorf("%w: %q has a trailing zero", ErrInvalidKey, key)
	}
	return nil
}

// incrementInteger returns the next integer head, false when x is the largest.
func incrementInteger(x string) (string, bool) {
	head, digs := x[0], []byte(x[1:])
	carry := true
	for i := len(digs) - 1; carry && i >= 0; i-- {
		d := strings.IndexByte(digits, digs[i]) + 1
		if d == len(digits) {
			digs[i] = '0'
		} else {
			digs[i] = digits[d]
			carry = false
		}
	}
	if !carry {
		return string(head) + string(digs), true
	}
	if head == 'Z' {
		return "a0", true
	}
	if head == 'z' {
		return "", false
	}
	h := head + 1
	if h > 'a' {
		digs = append(digs, '0')
	} else {
		digs = digs[:len(digs)-1]
	}
	return string(h) + string(digs), true
}

// decrementInteger returns the previous integer head, false when x is the smallest.
func decrementInteger(x string) (string, bool) {
	head, digs := x[0], []byte(x[1:])
	last := digits[len(digits)-1]
	borrow := true
	for i := len(digs) - 1; borrow && i >= 0; i-- {
		d := strings.IndexByte(digits, digs[i]) - 1
		if d == -1 {
			digs[i] = last
		} else {
			digs[i] = digits[d]
			borrow = false
		}
	}
	if !borrow {
		return string(head) + string(digs), true
	}
	if head == 'a' {
		return "Z" + string(last), true
	}
	if head == 'A' {
		return "", false
	}
	h := head - 1
	if h < 'Z' {
		digs = append(digs, last)
	} else {
		digs = digs[:len(digs)-1]
	}
	return string(h) + string(digs), true
}
