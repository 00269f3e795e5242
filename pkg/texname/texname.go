// Package texname handles the fixed 16-byte texture names stored in terrain
// material tables.
package texname

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
)

// Size is the on-disk width of a texture name.
const Size = 16

var (
	ErrNotASCII = errors.New("name uses non-ASCII characters")
	ErrTooLong  = errors.New("name longer than 16 bytes")
)

var lower = cases.Lower(language.Und)

func checkASCII(b []byte) error {
	for i, c := range b {
		if c >= 0x80 {
			return fmt.Errorf("%w: byte 0x%02x at %d", ErrNotASCII, c, i)
		}
	}
	return nil
}

// Normalize lowercases name and pads it to Size bytes with NUL.
func Normalize(name string) ([Size]byte, error) {
	var out [Size]byte
	if err := checkASCII([]byte(name)); err != nil {
		return out, err
	}
	if len(name) > Size {
		return out, fmt.Errorf("%w: %d bytes", ErrTooLong, len(name))
	}
	lowered, _, err := transform.String(lower, name)
	if err != nil {
		return out, err
	}
	copy(out[:], lowered)
	return out, nil
}

// Valid reports whether Normalize would accept name.
func Valid(name string) bool {
	_, err := Normalize(name)
	return err == nil
}

// Check validates a stored name.
func Check(raw [Size]byte) error {
	return checkASCII(trim(raw[:]))
}

// String returns the name up to the first NUL.
func String(raw [Size]byte) string {
	return string(trim(raw[:]))
}

func trim(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
