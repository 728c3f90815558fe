package memprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"rfs"
)

func TestStatNotFoundMapsToProviderSentinel(t *testing.T) {
	p := New(afero.NewMemMapFs())
	_, err := p.Stat(context.Background(), rfs.Resource{Path: "/missing"})
	if err == nil {
		t.Fatal("expected an error for a missing path")
	}
	if !errors.Is(err, rfs.ErrProviderNotFound) {
		t.Errorf("err = %v, want it to wrap rfs.ErrProviderNotFound", err)
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	p := New(afero.NewMemMapFs())
	ctx := context.Background()
	r := rfs.Resource{Path: "/a.txt"}

	if err := p.WriteFile(ctx, r, []byte("hello"), rfs.WriteOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := p.ReadFile(ctx, r)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q, want %q", data, "hello")
	}
}

func TestCopyDuplicatesDirectoryRecursively(t *testing.T) {
	p := New(afero.NewMemMapFs())
	ctx := context.Background()
	if err := p.Mkdir(ctx, rfs.Resource{Path: "/src"}); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := p.WriteFile(ctx, rfs.Resource{Path: "/src/f.txt"}, []byte("x"), rfs.WriteOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := p.Copy(ctx, rfs.Resource{Path: "/src"}, rfs.Resource{Path: "/dst"}, rfs.CopyOptions{}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	data, err := p.ReadFile(ctx, rfs.Resource{Path: "/dst/f.txt"})
	if err != nil {
		t.Fatalf("ReadFile copy target: %v", err)
	}
	if string(data) != "x" {
		t.Errorf("copied data = %q, want %q", data, "x")
	}
}

func TestCapabilitiesAdvertiseCaseSensitivity(t *testing.T) {
	p := New(afero.NewMemMapFs())
	caps := p.Capabilities()
	if !caps.Has(rfs.FileReadWrite) {
		t.Error("expected FileReadWrite")
	}
	if !caps.Has(rfs.PathCaseSensitive) {
		t.Error("expected PathCaseSensitive")
	}
	if caps.Has(rfs.FileReadStream) {
		t.Error("mem provider does not support native streaming")
	}
}

func TestOpenIsUnsupported(t *testing.T) {
	p := New(afero.NewMemMapFs())
	if _, err := p.Open(context.Background(), rfs.Resource{Path: "/a"}, rfs.OpenOptions{}); err != rfs.ErrProviderUnavailable {
		t.Errorf("Open err = %v, want ErrProviderUnavailable", err)
	}
}
