package rfs

import "testing"

func TestPathTrieHasAtOrBeneath(t *testing.T) {
	tr := newPathTrie()
	tr.insert("/a/b/c")

	cases := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/a", true},
		{"/a/b", true},
		{"/a/b/c", true},
		{"/a/b/c/d", false},
		{"/a/x", false},
		{"/z", false},
	}
	for _, c := range cases {
		if got := tr.hasAtOrBeneath(c.path); got != c.want {
			t.Errorf("hasAtOrBeneath(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestPathTrieMultipleInserts(t *testing.T) {
	tr := newPathTrie()
	tr.insert("/x/y")
	tr.insert("/p/q/r")

	if !tr.hasAtOrBeneath("/p") {
		t.Error("expected /p to be an ancestor of an inserted path")
	}
	if tr.hasAtOrBeneath("/q") {
		t.Error("/q was never inserted as a root-level segment")
	}
}
