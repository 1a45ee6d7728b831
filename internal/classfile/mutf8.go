package classfile

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// maxUTF8Len is the largest byte length a CONSTANT_Utf8 entry can hold.
const maxUTF8Len = 0xFFFF

// encodeMUTF8 encodes s as JVM modified UTF-8: NUL is written as two
// bytes and supplementary characters as a pair of three-byte surrogates.
func encodeMUTF8(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out, 0xC0|byte(r>>6), 0x80|byte(r&0x3F))
		case r < 0x10000:
			out = appendThreeByte(out, r)
		default:
			hi, lo := utf16.EncodeRune(r)
			out = appendThreeByte(out, hi)
			out = appendThreeByte(out, lo)
		}
	}
	if len(out) > maxUTF8Len {
		return nil, fmt.Errorf("string of %d bytes exceeds constant pool limit", len(out))
	}
	return out, nil
}

func appendThreeByte(out []byte, r rune) []byte {
	return append(out, 0xE0|byte(r>>12), 0x80|byte((r>>6)&0x3F), 0x80|byte(r&0x3F))
}

// decodeMUTF8 is the inverse of encodeMUTF8. Surrogate pairs are recombined;
// an unpaired surrogate decodes to utf8.RuneError.
func decodeMUTF8(b []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))
	var pending rune = -1
	flush := func() {
		if pending >= 0 {
			sb.WriteRune(utf8.RuneError)
			pending = -1
		}
	}
	for i := 0; i < len(b); {
		c := b[i]
		var r rune
		switch {
		case c < 0x80:
			r = rune(c)
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", fmt.Errorf("truncated two-byte sequence at %d", i)
			}
			r = rune(c&0x1F)<<6 | rune(b[i+1]&0x3F)
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", fmt.Errorf("truncated three-byte sequence at %d", i)
			}
			r = rune(c&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			i += 3
		default:
			return "", fmt.Errorf("invalid modified UTF-8 byte 0x%02x at %d", c, i)
		}

		if utf16.IsSurrogate(r) {
			if pending >= 0 {
				if combined := utf16.DecodeRune(pending, r); combined != utf8.RuneError {
					sb.WriteRune(combined)
					pending = -1
					continue
				}
				flush()
			}
			pending = r
			continue
		}
		flush()
		sb.WriteRune(r)
	}
	flush()
	return sb.String(), nil
}
