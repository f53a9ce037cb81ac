// Package passgen generates random passwords from selectable character classes.
// All randomness comes from crypto/rand.
package passgen

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"strings"
)

// character classes
const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{}|;:,.<>?"
)

// length bounds
const (
	MinLength     = 4
	MaxLength     = 64
	DefaultLength = 16
)

// ErrNoCharacterClass is returned when every character class is disabled.
var ErrNoCharacterClass = errors.New("select at least one character type")

// Options selects the character classes and length of a generated password.
type Options struct {
	Upper   bool
	Lower   bool
	Digits  bool
	Symbols bool
	Length  int
}

// DefaultOptions enables every class at the default length.
func DefaultOptions() Options {
	return Options{
		Upper:   true,
		Lower:   true,
		Digits:  true,
		Symbols: true,
		Length:  DefaultLength,
	}
}

// Alphabet returns the union of the enabled character classes.
func (o Options) Alphabet() string {
	var b strings.Builder
	if o.Upper {
		b.WriteString(upperChars)
	}
	if o.Lower {
		b.WriteString(lowerChars)
	}
	if o.Digits {
		b.WriteString(digitChars)
	}
	if o.Symbols {
		b.WriteString(symbolChars)
	}
	return b.String()
}

// Increment raises the length by one, stopping at MaxLength.
func (o Options) Increment() Options {
	o.Length = ClampLength(o.Length + 1)
	return o
}

// Decrement lowers the length by one, stopping at MinLength.
func (o Options) Decrement() Options {
	o.Length = ClampLength(o.Length - 1)
	return o
}

// Generate returns a password of exactly o.Length characters. Each character
// is drawn independently and uniformly from the enabled alphabet, so repeats
// are possible.
func Generate(o Options) (string, error) {
	chars := o.Alphabet()
	if chars == "" {
		return "", ErrNoCharacterClass
	}

	length := ClampLength(o.Length)
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = pickByte(chars)
	}

	return string(buf), nil
}

// ClampLength bounds n to [MinLength, MaxLength].
func ClampLength(n int) int {
	if n < MinLength {
		return MinLength
	}
	if n > MaxLength {
		return MaxLength
	}
	return n
}

// ParseLength converts user input to a valid length. Non-numeric input
// falls back to DefaultLength.
func ParseLength(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultLength
	}
	return ClampLength(n)
}

// pickByte returns a random byte from a string.
func pickByte(s string) byte {
	return s[randIntn(len(s))]
}

// randIntn returns a cryptographically random int in [0, n).
func randIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failure is unrecoverable
		panic("crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}
