package ui

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEscape is returned by Unescape for a malformed \x or octal escape.
var ErrInvalidEscape = errors.New("invalid escape sequence")

var simpleEscapes = map[byte]byte{
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'?':  '?',
}

// Unescape expands C-style escapes in a separator string: the single
// character escapes, \xHH with exactly two hex digits and \NNN with exactly
// three octal digits. Any other escaped character is kept as written,
// backslash included.
func Unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		c = s[i]

		if r, ok := simpleEscapes[c]; ok {
			b.WriteByte(r)
			continue
		}

		switch {
		case c == 'x':
			if i+2 >= len(s) {
				return "", escapeError(s, i-1)
			}
			hi, ok1 := hexVal(s[i+1])
			lo, ok2 := hexVal(s[i+2])
			if !ok1 || !ok2 {
				return "", escapeError(s, i-1)
			}
			b.WriteByte(hi<<4 | lo)
			i += 2
		case isOctal(c):
			if i+2 >= len(s) || !isOctal(s[i+1]) || !isOctal(s[i+2]) {
				return "", escapeError(s, i-1)
			}
			v := int(c-'0')<<6 | int(s[i+1]-'0')<<3 | int(s[i+2]-'0')
			b.WriteByte(byte(v))
			i += 2
		default:
			b.WriteByte('\\')
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func escapeError(s string, at int) error {
	return fmt.Errorf("%w: %q at offset %d", ErrInvalidEscape, s[at:min(at+4, len(s))], at)
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
