// Package ident implements endpoint-name parsing/assembly, token
// validation, and unique id generation. All functions are pure aside
// from the process-global monotonic counter used by GenerateUniqueID.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ident

import "strings"

// IsValidToken reports whether s is a valid token: first character a
// letter, remaining characters alphanumeric or underscore, total
// length <= maxLen.
func IsValidToken(s string, maxLen int) bool {
	if len(s) == 0 || len(s) > maxLen {
		return false
	}
	if !isAlpha(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isAlnum(c) && c != '_' {
			return false
		}
	}
	return true
}

// IsValidAppName reports whether s is a non-empty, dot-separated
// sequence of tokens with total length <= MaxAppNameLen.
func IsValidAppName(s string, maxLen int) bool {
	if len(s) == 0 || len(s) > maxLen {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		// Each dot-segment is itself a token, bounded only by the
		// overall app-name length already checked above.
		if !IsValidToken(seg, maxLen) {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9')
}

// NameToLower writes the ASCII lower-case copy of s into dst, bounded
// by len(dst), and returns the number of bytes written.
func NameToLower(dst []byte, s string) int {
	n := len(s)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		dst[i] = c
	}
	return n
}

// NameToUpper writes the ASCII upper-case copy of s into dst, bounded
// by len(dst), and returns the number of bytes written.
func NameToUpper(dst []byte, s string) int {
	n := len(s)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		dst[i] = c
	}
	return n
}
