package main

import (
	"bytes"
	"context"
	"sync"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"rfs"
)

// File represents a file served by the underlying service. Opening it
// loads the full content into a handle-local buffer (mirroring the
// write pipeline's own "coalesce, then flush" shape rather than the
// teacher's read-only os.File passthrough, since this service's files
// are writable) and WriteFile flushes the buffer back on Release.
type File struct {
	fs       *FS
	resource rfs.Resource
}

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	stat, err := statResource(ctx, f.fs.svc, f.resource)
	if err != nil {
		return mapError(err)
	}
	statToAttr(stat, f.fs.uid, f.fs.gid, a)
	return nil
}

func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	result, err := f.fs.svc.ReadFile(ctx, f.resource, rfs.ReadOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	return &FileHandle{
		fs:       f.fs,
		resource: f.resource,
		buf:      append([]byte(nil), result.Value...),
		dirty:    false,
	}, nil
}

// FileHandle buffers one open file's content in memory between Open and
// Release/Fsync, the handle-local analogue of the teacher's *os.File
// wrapper, generalized to support writes since this service's files are
// not read-only.
type FileHandle struct {
	fs       *FS
	resource rfs.Resource
	mu       sync.Mutex
	buf      []byte
	dirty    bool
}

func (h *FileHandle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if req.Offset >= int64(len(h.buf)) {
		resp.Data = nil
		return nil
	}
	end := req.Offset + int64(req.Size)
	if end > int64(len(h.buf)) {
		end = int64(len(h.buf))
	}
	resp.Data = append([]byte(nil), h.buf[req.Offset:end]...)
	return nil
}

func (h *FileHandle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	end := req.Offset + int64(len(req.Data))
	if end > int64(len(h.buf)) {
		grown := make([]byte, end)
		copy(grown, h.buf)
		h.buf = grown
	}
	copy(h.buf[req.Offset:], req.Data)
	h.dirty = true
	resp.Size = len(req.Data)
	return nil
}

func (h *FileHandle) flush(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.dirty {
		return nil
	}
	_, err := h.fs.svc.WriteFile(ctx, h.resource, rfs.BytesInput(bytes.Clone(h.buf)), rfs.WriteOptions{Overwrite: true, Create: true})
	if err != nil {
		return mapError(err)
	}
	h.dirty = false
	return nil
}

func (h *FileHandle) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	return h.flush(ctx)
}

func (h *FileHandle) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	return h.flush(ctx)
}

func (h *FileHandle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	return h.flush(ctx)
}
