package services

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Fingerprint returns the SHA-256 hex digest over the concatenation of the
// given buffers, in the order supplied. It is the cache key for analysis
// results: same bytes in the same order, same digest.
//
// No image normalization happens here. Re-encoding the same picture yields
// different bytes and therefore a different fingerprint; that imprecision is
// accepted, the cache just misses and the analysis runs again.
func Fingerprint(buffers ...[]byte) string {
	h := sha256.New()
	for _, b := range buffers {
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TextFingerprint fingerprints a text-only analysis request. Preferences are
// part of the key: the same label text analyzed under a stricter setting is a
// different question.
func TextFingerprint(text string, preferences map[string]string) string {
	bufs := [][]byte{[]byte(text)}
	for _, k := range sortedKeys(preferences) {
		bufs = append(bufs, []byte(k), []byte(preferences[k]))
	}
	return Fingerprint(bufs...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
