package hashindex

import (
	"unicode"
	"unicode/utf8"
)

// 32-bit FNV-1a parameters.
const (
	offset32 uint32 = 2166136261
	prime32  uint32 = 16777619
)

// Hash returns a case-sensitive hash of s.
func Hash(s string) uint32 {
	h := offset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// HashFold returns a case-insensitive hash of s. Strings that compare equal
// under strings.EqualFold hash to the same value.
func HashFold(s string) uint32 {
	h := offset32
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			h ^= uint32(c)
			h *= prime32
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		h ^= uint32(unicode.ToLower(unicode.ToUpper(r)))
		h *= prime32
		i += size
	}
	return h
}
