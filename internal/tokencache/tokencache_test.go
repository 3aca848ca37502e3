package tokencache

import (
	"testing"

	"golang.org/x/oauth2"
)

// takeDirty's locking and clear-once semantics don't touch the store, so
// they're exercised directly; the store-backed save/RunWriter/Seed paths
// aren't unit tested here for the same reason nothing else in this module
// has a database test fixture — the teacher carries none either.

func newUnseeded() *Cache {
	return &Cache{wake: make(chan struct{}, 1)}
}

func TestTakeDirtyReturnsFalseWhenNothingChanged(t *testing.T) {
	c := newUnseeded()
	c.token = &oauth2.Token{AccessToken: "abc"}

	tok, dirty := c.takeDirty()
	if dirty {
		t.Fatalf("expected not dirty, got token %+v", tok)
	}
}

func TestTakeDirtyClearsFlagAfterOneRead(t *testing.T) {
	c := newUnseeded()
	c.token = &oauth2.Token{AccessToken: "fresh"}
	c.needsSave = true

	tok, dirty := c.takeDirty()
	if !dirty {
		t.Fatal("expected dirty on first read")
	}
	if tok.AccessToken != "fresh" {
		t.Fatalf("got token %+v", tok)
	}

	_, dirtyAgain := c.takeDirty()
	if dirtyAgain {
		t.Fatal("expected flag cleared after first read")
	}
}
