package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashKey creates a SHA256 hash of a string.
// This is useful for creating consistent, safe keys for Redis.
func HashKey(s string) string {
	h := sha256.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeURL drops the fragment and any trailing slash and lowercases the
// host, so "https://shop.example.com/" and "https://shop.example.com" compare equal.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// URLSet is a set of URLs compared after normalization.
type URLSet map[string]struct{}

func NewURLSet(urls ...string) URLSet {
	s := make(URLSet, len(urls))
	for _, u := range urls {
		s[NormalizeURL(u)] = struct{}{}
	}
	return s
}

func (s URLSet) Contains(raw string) bool {
	_, ok := s[NormalizeURL(raw)]
	return ok
}
