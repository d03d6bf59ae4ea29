package nbt

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"
)

// decodeMUTF8 converts Java modified UTF-8 (NUL as C0 80, supplementary
// characters as surrogate pairs) to a Go string. Plain UTF-8 takes the fast
// path.
func decodeMUTF8(b []byte) string {
	if utf8.Valid(b) && !bytes.Contains(b, []byte{0xC0, 0x80}) {
		return string(b)
	}
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		case c&0xF8 == 0xF0 && i+3 < len(b):
			r, size := utf8.DecodeRune(b[i:])
			units = append(units, utf16.Encode([]rune{r})...)
			i += size
		default:
			units = append(units, utf8.RuneError)
			i++
		}
	}
	return string(utf16.Decode(units))
}

// encodeMUTF8 is the inverse of decodeMUTF8.
func encodeMUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
		default:
			out = append(out, 0xE0|byte(u>>12), 0x80|byte(u>>6&0x3F), 0x80|byte(u&0x3F))
		}
	}
	return out
}
