package rfs

import (
	"context"
	"testing"
)

// fakeCapProvider is a minimal Provider stub exposing nothing but a
// fixed capability set, for tests that only need CanonicalKey's
// case-folding decision.
type fakeCapProvider struct{ caps Capability }

func (f *fakeCapProvider) Capabilities() Capability                         { return f.caps }
func (f *fakeCapProvider) OnDidChangeCapabilities() *Emitter[Capability]     { return nil }
func (f *fakeCapProvider) OnDidChangeFile() *Emitter[[]FileChangeEvent]     { return nil }
func (f *fakeCapProvider) OnDidErrorOccur() *Emitter[error]                 { return nil }
func (f *fakeCapProvider) Stat(context.Context, Resource) (FileStat, error) { return FileStat{}, nil }
func (f *fakeCapProvider) ReadDir(context.Context, Resource) ([]DirEntry, error) {
	return nil, nil
}
func (f *fakeCapProvider) Mkdir(context.Context, Resource) error { return nil }
func (f *fakeCapProvider) Delete(context.Context, Resource, DeleteOptions) error {
	return nil
}
func (f *fakeCapProvider) Rename(context.Context, Resource, Resource, RenameOptions) error {
	return nil
}
func (f *fakeCapProvider) Copy(context.Context, Resource, Resource, CopyOptions) error {
	return nil
}
func (f *fakeCapProvider) ReadFile(context.Context, Resource) ([]byte, error) {
	return nil, nil
}
func (f *fakeCapProvider) WriteFile(context.Context, Resource, []byte, WriteOptions) error {
	return nil
}
func (f *fakeCapProvider) Open(context.Context, Resource, OpenOptions) (Handle, error) {
	return nil, nil
}
func (f *fakeCapProvider) ReadFileStream(context.Context, Resource, ReadOptions) (*PushStream, error) {
	return nil, nil
}
func (f *fakeCapProvider) Watch(context.Context, Resource, WatchOptions) (Disposable, error) {
	return nil, nil
}

func TestParseResourceRoundTrip(t *testing.T) {
	cases := []string{
		"mem://host/a/b/c",
		"file:///root/dir",
		"mem://host/a/b?x=1#frag",
	}
	for _, raw := range cases {
		r, err := ParseResource(raw)
		if err != nil {
			t.Fatalf("ParseResource(%q): %v", raw, err)
		}
		if got := r.String(); got != raw {
			t.Errorf("ParseResource(%q).String() = %q, want %q", raw, got, raw)
		}
	}
}

func TestParseResourceNoScheme(t *testing.T) {
	if _, err := ParseResource("/just/a/path"); err == nil {
		t.Fatal("expected error for a scheme-less input")
	}
}

func TestResourceIsEqual(t *testing.T) {
	a := MustParseResource("mem://host/a")
	b := MustParseResource("mem://host/a")
	c := MustParseResource("mem://host/b")
	if !a.IsEqual(b) {
		t.Error("expected identical resources to be equal")
	}
	if a.IsEqual(c) {
		t.Error("expected different paths to not be equal")
	}
}

func TestResourceDirnameBasenameJoin(t *testing.T) {
	r := MustParseResource("mem://host/a/b/c.txt")
	if got := r.Dirname().Path; got != "/a/b" {
		t.Errorf("Dirname().Path = %q, want /a/b", got)
	}
	if got := r.Basename(); got != "c.txt" {
		t.Errorf("Basename() = %q, want c.txt", got)
	}
	if got := r.Dirname().Join("d.txt").Path; got != "/a/b/d.txt" {
		t.Errorf("Join = %q, want /a/b/d.txt", got)
	}
}

func TestResourceIsAncestorOrEqual(t *testing.T) {
	root := MustParseResource("mem://h//")
	a := MustParseResource("mem://h/a")
	ab := MustParseResource("mem://h/a/b")
	other := MustParseResource("mem://h/ab")

	if !root.isAncestorOrEqual(a, true) {
		t.Error("root should be an ancestor of any path")
	}
	if !a.isAncestorOrEqual(ab, true) {
		t.Error("/a should be an ancestor of /a/b")
	}
	if a.isAncestorOrEqual(other, true) {
		t.Error("/a should not be mistaken as an ancestor of /ab")
	}
	if !a.isAncestorOrEqual(a, true) {
		t.Error("a path should be its own ancestor-or-equal")
	}
}

func TestCanonicalKeyCaseSensitivity(t *testing.T) {
	ci := &fakeCapProvider{caps: FileReadWrite}
	cs := &fakeCapProvider{caps: FileReadWrite | PathCaseSensitive}

	upper := MustParseResource("mem://h/A")
	lower := MustParseResource("mem://h/a")

	if CanonicalKey(ci, upper) != CanonicalKey(ci, lower) {
		t.Error("case-insensitive provider should fold keys to the same case")
	}
	if CanonicalKey(cs, upper) == CanonicalKey(cs, lower) {
		t.Error("case-sensitive provider should keep keys distinct")
	}
}
