package canon

import (
	"crypto/sha256"
	"encoding/binary"
	"regexp"
	"testing"
)

func TestKeyStableAcrossCasingAndSeparator(t *testing.T) {
	_, a := Fingerprint("The Beatles", "Hey - Jude", nil)
	_, b := Fingerprint("the beatles", "hey jude", nil)
	if a != b {
		t.Fatalf("expected identical fingerprints, got %d and %d", a, b)
	}
}

func TestKeyMatchesReferenceConstruction(t *testing.T) {
	_, got := Fingerprint("A", "B", nil)

	digest := sha256.Sum256([]byte("a b"))
	want := int64(binary.LittleEndian.Uint64(digest[0:8]))

	if got != want {
		t.Fatalf("Fingerprint(A,B) = %d, want %d", got, want)
	}
}

func TestNormaliseStripsPunctuationAndCollapsesSpace(t *testing.T) {
	got := Normalise("DJ Foo!!", "Bar,  Baz", nil)
	want := "dj foo bar baz"
	if got != want {
		t.Fatalf("Normalise = %q, want %q", got, want)
	}
}

func TestNormaliseAppliesBlankFilter(t *testing.T) {
	// blank matches against the already-lowercased string. Normalise only
	// collapses internal whitespace runs, it never trims leading/trailing
	// space, so the space left behind by the removed "(remastered)" survives.
	blank := regexp.MustCompile(`\(remastered\)`)
	got := Normalise("Artist", "Song (Remastered)", blank)
	want := "artist song "
	if got != want {
		t.Fatalf("Normalise with blank = %q, want %q", got, want)
	}
}

func TestSearchQueryStopsBeforePunctuationStrip(t *testing.T) {
	got := SearchQuery("Sigur Rós", "Svefn-g-englar", nil)
	want := "sigur rós svefn-g-englar"
	if got != want {
		t.Fatalf("SearchQuery = %q, want %q", got, want)
	}
}

func TestFingerprintDistinctForDifferentSongs(t *testing.T) {
	_, a := Fingerprint("Artist One", "Song One", nil)
	_, b := Fingerprint("Artist Two", "Song Two", nil)
	if a == b {
		t.Fatalf("expected distinct fingerprints, both were %d", a)
	}
}
