package localprovider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rfs"
)

func TestOpenWriteAtReadAtRoundTrips(t *testing.T) {
	root := t.TempDir()
	p := New(root)
	ctx := context.Background()
	r := rfs.Resource{Path: "/f.txt"}

	h, err := p.Open(ctx, r, rfs.OpenOptions{Create: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := h.WriteAt(ctx, []byte("0123456789"), 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	buf := make([]byte, 4)
	n, err := h.ReadAt(ctx, buf, 3)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 4 || string(buf) != "3456" {
		t.Errorf("ReadAt = %q (n=%d), want %q (n=4)", buf, n, "3456")
	}
	if err := h.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDeleteWithTrashMovesInsteadOfRemoving(t *testing.T) {
	root := t.TempDir()
	p := New(root)
	ctx := context.Background()
	r := rfs.Resource{Path: "/doomed.txt"}

	if err := os.WriteFile(filepath.Join(root, "doomed.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := p.Delete(ctx, r, rfs.DeleteOptions{UseTrash: true}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "doomed.txt")); !os.IsNotExist(err) {
		t.Error("expected the original path to be gone after a trash delete")
	}
	entries, err := os.ReadDir(p.trashDir())
	if err != nil {
		t.Fatalf("ReadDir trash: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one trashed entry, got %d", len(entries))
	}
}

func TestStatNotFoundMapsToProviderSentinel(t *testing.T) {
	p := New(t.TempDir())
	_, err := p.Stat(context.Background(), rfs.Resource{Path: "/missing"})
	if err == nil {
		t.Fatal("expected an error for a missing path")
	}
	if !errors.Is(err, rfs.ErrProviderNotFound) {
		t.Errorf("err = %v, want it to wrap rfs.ErrProviderNotFound", err)
	}
}

func TestCapabilitiesAdvertisePositionalAndTrash(t *testing.T) {
	p := New(t.TempDir())
	caps := p.Capabilities()
	if !caps.Has(rfs.FileOpenReadWriteClose) {
		t.Error("expected FileOpenReadWriteClose")
	}
	if !caps.Has(rfs.Trash) {
		t.Error("expected Trash")
	}
	if caps.Has(rfs.FileReadWrite) {
		t.Error("local provider does not support unbuffered read/write")
	}
}

func TestReadFileIsUnavailable(t *testing.T) {
	p := New(t.TempDir())
	if _, err := p.ReadFile(context.Background(), rfs.Resource{Path: "/a"}); err != rfs.ErrProviderUnavailable {
		t.Errorf("ReadFile err = %v, want ErrProviderUnavailable", err)
	}
}
