// Package canon implements the canonicaliser (C5): a pure, deterministic
// mapping from (artist, title) to a stable 64-bit fingerprint, plus the
// normalisation filters that feed it. Grounded on the teacher's other pure
// small packages — no I/O, easy to unit test in isolation like
// paulangton-potentials-utils/prefixtree.
package canon

import (
	"crypto/sha256"
	"encoding/binary"
	"regexp"
	"strings"
)

// nonWord strips anything that isn't a Unicode letter, digit, underscore or
// whitespace. Go's regexp \w is ASCII-only, so the class is spelled out
// explicitly to satisfy the spec's Unicode-\w requirement.
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

var extraSpace = regexp.MustCompile(`\s+`)

// SearchQuery builds the pending worker's Spotify search string (§4.4 step
// 2): lowercase, join, collapse the literal " - " separator, then apply the
// station's blank filter. Deliberately stops short of the punctuation-strip
// and whitespace-collapse steps below — those are part of the fingerprint
// algorithm only, not the search query.
func SearchQuery(artist, title string, blank *regexp.Regexp) string {
	s := strings.ToLower(artist + " " + title)
	s = strings.ReplaceAll(s, " - ", " ")
	if blank != nil {
		s = blank.ReplaceAllString(s, "")
	}
	return s
}

// Normalise carries SearchQuery's output the rest of the way to the exact
// string that gets fingerprinted (§4.5 steps 1-4): strip everything that
// isn't a Unicode letter/digit/underscore/space, then collapse runs of
// whitespace to one.
func Normalise(artist, title string, blank *regexp.Regexp) string {
	s := SearchQuery(artist, title, blank)
	s = nonWord.ReplaceAllString(s, "")
	return extraSpace.ReplaceAllString(s, " ")
}

// Key computes the signed 64-bit fingerprint of a normalised string: the
// first 8 bytes of its SHA-256 digest, read little-endian as a signed
// integer. Stable across processes and languages by construction.
func Key(normalised string) int64 {
	digest := sha256.Sum256([]byte(normalised))
	return int64(binary.LittleEndian.Uint64(digest[0:8]))
}

// Fingerprint is the convenience entry point combining Normalise and Key —
// what the pending worker calls to get a Song.key candidate.
func Fingerprint(artist, title string, blank *regexp.Regexp) (normalised string, key int64) {
	normalised = Normalise(artist, title, blank)
	return normalised, Key(normalised)
}
