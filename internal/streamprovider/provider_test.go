package streamprovider

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"rfs"
)

func TestReadFileDrainsItsOwnStream(t *testing.T) {
	p := New(afero.NewMemMapFs())
	ctx := context.Background()
	r := rfs.Resource{Path: "/a.txt"}

	if err := p.WriteFile(ctx, r, []byte("streamed content"), rfs.WriteOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := p.ReadFile(ctx, r)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "streamed content" {
		t.Errorf("data = %q, want %q", data, "streamed content")
	}
}

func TestReadFileStreamHonorsPositionAndLength(t *testing.T) {
	p := New(afero.NewMemMapFs())
	ctx := context.Background()
	r := rfs.Resource{Path: "/a.txt"}
	if err := p.WriteFile(ctx, r, []byte("0123456789"), rfs.WriteOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	pos := int64(2)
	length := int64(3)
	ps, err := p.ReadFileStream(ctx, r, rfs.ReadOptions{Position: &pos, Length: &length})
	if err != nil {
		t.Fatalf("ReadFileStream: %v", err)
	}
	var collected []byte
loop:
	for {
		select {
		case chunk, ok := <-ps.Chunks:
			if !ok {
				break loop
			}
			collected = append(collected, chunk...)
		case <-ps.Done:
			for len(ps.Chunks) > 0 {
				collected = append(collected, <-ps.Chunks...)
			}
			break loop
		}
	}
	if string(collected) != "234" {
		t.Errorf("collected = %q, want %q", collected, "234")
	}
}

func TestCopyIsUnsupported(t *testing.T) {
	p := New(afero.NewMemMapFs())
	err := p.Copy(context.Background(), rfs.Resource{Path: "/a"}, rfs.Resource{Path: "/b"}, rfs.CopyOptions{})
	if err != rfs.ErrProviderUnavailable {
		t.Errorf("Copy err = %v, want ErrProviderUnavailable", err)
	}
}

func TestCapabilitiesAdvertiseStreaming(t *testing.T) {
	p := New(afero.NewMemMapFs())
	caps := p.Capabilities()
	if !caps.Has(rfs.FileReadStream) {
		t.Error("expected FileReadStream")
	}
	if caps.Has(rfs.FileFolderCopy) {
		t.Error("stream provider does not declare native folder copy")
	}
}
