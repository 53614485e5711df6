package memory

import (
	"strings"
	"unicode/utf8"
)

// decodeUtf decodes modified UTF-8, where NUL is stored as 0xC0 0x80 and
// supplementary characters are stored as surrogate pairs.
func decodeUtf(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))

	var high rune
	for len(data) > 0 {
		c := rune(data[0])
		size := 1
		switch {
		case c < 0x80:
		case c&0xe0 == 0xc0 && len(data) >= 2:
			c = (c&0x1f)<<6 | rune(data[1]&0x3f)
			size = 2
		case c&0xf0 == 0xe0 && len(data) >= 3:
			c = (c&0x0f)<<12 | rune(data[1]&0x3f)<<6 | rune(data[2]&0x3f)
			size = 3
		default:
			c = utf8.RuneError
		}
		data = data[size:]

		switch {
		case c >= 0xd800 && c < 0xdc00:
			if high != 0 {
				sb.WriteRune(utf8.RuneError)
			}
			high = c
			continue
		case c >= 0xdc00 && c < 0xe000 && high != 0:
			c = 0x10000 + (high-0xd800)<<10 + (c - 0xdc00)
			high = 0
		case high != 0:
			sb.WriteRune(utf8.RuneError)
			high = 0
		}
		sb.WriteRune(c)
	}

	if high != 0 {
		sb.WriteRune(utf8.RuneError)
	}

	return sb.String()
}

// EncodeUtf encodes text as modified UTF-8.
func EncodeUtf(text string) (data []byte) {
	put := func(c rune) {
		switch {
		case c != 0 && c < 0x80:
			data = append(data, byte(c))
		case c < 0x800:
			data = append(data, byte(0xc0|c>>6), byte(0x80|c&0x3f))
		default:
			data = append(data, byte(0xe0|c>>12), byte(0x80|(c>>6)&0x3f), byte(0x80|c&0x3f))
		}
	}

	for _, c := range text {
		if c >= 0x10000 {
			c -= 0x10000
			put(0xd800 + c>>10)
			put(0xdc00 + c&0x3ff)
			continue
		}
		put(c)
	}

	return
}
