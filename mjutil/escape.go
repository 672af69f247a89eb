package mjutil

/*

The escaping loops in this file are derived from
https://github.com/phuslu/log

The original is subject to the following license.

MIT License

Copyright (c) 2022 Phus Lu

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.

*/

import (
	"unicode/utf8"
)

const hex = "0123456789abcdef"

// replacement is U+FFFD as UTF-8
const replacement = "\uFFFD"

// verbatim marks the bytes that can be copied into a JSON
// string as-is. Bytes >= 0x80 are not marked: they must be
// checked for valid UTF-8.
var verbatim = func() (t [256]bool) {
	for c := 0x20; c < utf8.RuneSelf; c++ {
		t[c] = true
	}
	t['"'] = false
	t['\\'] = false
	return
}()

func (b *JBuilder) escapeControl(c byte) {
	switch c {
	case '"':
		b.B = append(b.B, '\\', '"')
	case '\\':
		b.B = append(b.B, '\\', '\\')
	case '\n':
		b.B = append(b.B, '\\', 'n')
	case '\r':
		b.B = append(b.B, '\\', 'r')
	case '\t':
		b.B = append(b.B, '\\', 't')
	case '\b':
		b.B = append(b.B, '\\', 'b')
	case '\f':
		b.B = append(b.B, '\\', 'f')
	default:
		b.B = append(b.B, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xf])
	}
}

func (b *JBuilder) escapes(s string, i int) {
	n := len(s)
	j := 0
	for i < n {
		c := s[i]
		if verbatim[c] {
			i++
			continue
		}
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				b.B = append(b.B, s[j:i]...)
				b.B = append(b.B, replacement...)
				i++
				j = i
				continue
			}
			i += size
			continue
		}
		b.B = append(b.B, s[j:i]...)
		b.escapeControl(c)
		i++
		j = i
	}
	b.B = append(b.B, s[j:]...)
}

func (b *JBuilder) escapeb(s []byte, i int) {
	n := len(s)
	j := 0
	for i < n {
		c := s[i]
		if verbatim[c] {
			i++
			continue
		}
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRune(s[i:])
			if r == utf8.RuneError && size == 1 {
				b.B = append(b.B, s[j:i]...)
				b.B = append(b.B, replacement...)
				i++
				j = i
				continue
			}
			i += size
			continue
		}
		b.B = append(b.B, s[j:i]...)
		b.escapeControl(c)
		i++
		j = i
	}
	b.B = append(b.B, s[j:]...)
}

func (b *JBuilder) string(s string) {
	for i := 0; i < len(s); i++ {
		if !verbatim[s[i]] {
			b.escapes(s, i)
			return
		}
	}
	b.B = append(b.B, s...)
}

func (b *JBuilder) bytes(n []byte) {
	for i := 0; i < len(n); i++ {
		if !verbatim[n[i]] {
			b.escapeb(n, i)
			return
		}
	}
	b.B = append(b.B, n...)
}
