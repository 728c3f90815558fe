// Package fsdouble provides a configurable fake rfs.Provider for
// white-box tests of the service's pipelines: capability bits can be
// toggled at runtime, individual calls can be made to fail, and watch
// invocations are counted so multiplexing tests can assert the
// underlying subscription fired exactly once.
package fsdouble

import (
	"context"
	"sync"
	"sync/atomic"

	"rfs"
)

type node struct {
	isDir bool
	data  []byte
	mtime int64
}

// Provider is an in-memory, behavior-injectable rfs.Provider double.
type Provider struct {
	mu    sync.Mutex
	caps  rfs.Capability
	nodes map[string]*node
	clock int64

	WatchCalls int32

	StatErr  error
	ReadErr  error
	WriteErr error
	OpenErr  error

	onChangeCaps *rfs.Emitter[rfs.Capability]
	onChangeFile *rfs.Emitter[[]rfs.FileChangeEvent]
	onError      *rfs.Emitter[error]
}

// New constructs an empty double with caps and a root directory.
func New(caps rfs.Capability) *Provider {
	p := &Provider{
		caps:         caps,
		nodes:        map[string]*node{"/": {isDir: true}},
		onChangeCaps: rfs.NewEmitter[rfs.Capability](),
		onChangeFile: rfs.NewEmitter[[]rfs.FileChangeEvent](),
		onError:      rfs.NewEmitter[error](),
	}
	return p
}

// SetCapabilities overwrites the exposed capability bitset and fires
// OnDidChangeCapabilities, modeling a provider whose bits change mid-run
// (spec.md §9 open question on capability-change races).
func (p *Provider) SetCapabilities(caps rfs.Capability) {
	p.mu.Lock()
	p.caps = caps
	p.mu.Unlock()
	p.onChangeCaps.Fire(caps)
}

// Seed pre-populates path with data, creating parent directory entries.
func (p *Provider) Seed(path string, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock++
	p.nodes[path] = &node{data: append([]byte(nil), data...), mtime: p.clock}
	for dir := (rfs.Resource{Path: path}).Dirname(); !dir.IsRoot() && dir.Path != "."; dir = dir.Dirname() {
		if _, ok := p.nodes[dir.Path]; !ok {
			p.nodes[dir.Path] = &node{isDir: true}
		}
	}
}

// SeedDir pre-populates path as an existing directory.
func (p *Provider) SeedDir(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes[path] = &node{isDir: true}
}

func (p *Provider) Capabilities() rfs.Capability {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.caps
}

func (p *Provider) OnDidChangeCapabilities() *rfs.Emitter[rfs.Capability] { return p.onChangeCaps }
func (p *Provider) OnDidChangeFile() *rfs.Emitter[[]rfs.FileChangeEvent]  { return p.onChangeFile }
func (p *Provider) OnDidErrorOccur() *rfs.Emitter[error]                  { return p.onError }

func (p *Provider) Stat(ctx context.Context, r rfs.Resource) (rfs.FileStat, error) {
	if p.StatErr != nil {
		return rfs.FileStat{}, p.StatErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[r.Path]
	if !ok {
		return rfs.FileStat{}, rfs.ErrProviderNotFound
	}
	return rfs.FileStat{
		Resource:    r,
		Name:        r.Basename(),
		IsFile:      !n.isDir,
		IsDirectory: n.isDir,
		MTime:       n.mtime,
		Size:        int64(len(n.data)),
		ETag:        rfs.ComputeETag(n.mtime, int64(len(n.data))),
	}, nil
}

func (p *Provider) ReadDir(ctx context.Context, r rfs.Resource) ([]rfs.DirEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[r.Path]
	if !ok || !n.isDir {
		return nil, rfs.ErrProviderNotFound
	}
	prefix := r.Path
	if prefix != "/" {
		prefix += "/"
	}
	seen := map[string]bool{}
	var out []rfs.DirEntry
	for path, child := range p.nodes {
		if path == r.Path || len(path) <= len(prefix) || path[:len(prefix)] != prefix {
			continue
		}
		rest := path[len(prefix):]
		name := rest
		for i, c := range rest {
			if c == '/' {
				name = rest[:i]
				break
			}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		isDir := child.isDir
		if name != rest {
			isDir = true
		}
		out = append(out, rfs.DirEntry{Name: name, IsFile: !isDir, IsDirectory: isDir})
	}
	return out, nil
}

func (p *Provider) Mkdir(ctx context.Context, r rfs.Resource) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.nodes[r.Path]; ok {
		return rfs.ErrProviderExists
	}
	p.nodes[r.Path] = &node{isDir: true}
	return nil
}

func (p *Provider) Delete(ctx context.Context, r rfs.Resource, opts rfs.DeleteOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.nodes[r.Path]; !ok {
		return rfs.ErrProviderNotFound
	}
	prefix := r.Path + "/"
	for path := range p.nodes {
		if len(path) > len(prefix) && path[:len(prefix)] == prefix {
			delete(p.nodes, path)
		}
	}
	delete(p.nodes, r.Path)
	return nil
}

func (p *Provider) Rename(ctx context.Context, src, dst rfs.Resource, opts rfs.RenameOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[src.Path]
	if !ok {
		return rfs.ErrProviderNotFound
	}
	p.nodes[dst.Path] = n
	delete(p.nodes, src.Path)
	return nil
}

func (p *Provider) Copy(ctx context.Context, src, dst rfs.Resource, opts rfs.CopyOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[src.Path]
	if !ok {
		return rfs.ErrProviderNotFound
	}
	cp := *n
	cp.data = append([]byte(nil), n.data...)
	p.nodes[dst.Path] = &cp
	return nil
}

func (p *Provider) ReadFile(ctx context.Context, r rfs.Resource) ([]byte, error) {
	if p.ReadErr != nil {
		return nil, p.ReadErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[r.Path]
	if !ok {
		return nil, rfs.ErrProviderNotFound
	}
	return append([]byte(nil), n.data...), nil
}

func (p *Provider) WriteFile(ctx context.Context, r rfs.Resource, data []byte, opts rfs.WriteOptions) error {
	if p.WriteErr != nil {
		return p.WriteErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock++
	p.nodes[r.Path] = &node{data: append([]byte(nil), data...), mtime: p.clock}
	return nil
}

type doubleHandle struct {
	p    *Provider
	path string
}

func (h *doubleHandle) ReadAt(ctx context.Context, buf []byte, off int64) (int, error) {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	n, ok := h.p.nodes[h.path]
	if !ok {
		return 0, rfs.ErrProviderNotFound
	}
	if off >= int64(len(n.data)) {
		return 0, nil
	}
	return copy(buf, n.data[off:]), nil
}

func (h *doubleHandle) WriteAt(ctx context.Context, buf []byte, off int64) (int, error) {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	n, ok := h.p.nodes[h.path]
	if !ok {
		n = &node{}
		h.p.nodes[h.path] = n
	}
	end := off + int64(len(buf))
	if end > int64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[off:], buf)
	h.p.clock++
	n.mtime = h.p.clock
	return len(buf), nil
}

func (h *doubleHandle) Close(ctx context.Context) error { return nil }

func (p *Provider) Open(ctx context.Context, r rfs.Resource, opts rfs.OpenOptions) (rfs.Handle, error) {
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	p.mu.Lock()
	if _, ok := p.nodes[r.Path]; !ok && opts.Create {
		p.nodes[r.Path] = &node{}
	}
	p.mu.Unlock()
	return &doubleHandle{p: p, path: r.Path}, nil
}

func (p *Provider) ReadFileStream(ctx context.Context, r rfs.Resource, opts rfs.ReadOptions) (*rfs.PushStream, error) {
	data, err := p.ReadFile(ctx, r)
	if err != nil {
		return nil, err
	}
	ps := rfs.NewPushStream(1)
	ps.Chunks <- data
	close(ps.Done)
	return ps, nil
}

// Watch counts invocations (WatchCalls) so multiplexing tests can assert
// the underlying provider.Watch fired exactly once no matter how many
// service-level handles share the key (spec.md §8's watch invariant).
func (p *Provider) Watch(ctx context.Context, r rfs.Resource, opts rfs.WatchOptions) (rfs.Disposable, error) {
	atomic.AddInt32(&p.WatchCalls, 1)
	return rfs.DisposableFunc(func() {}), nil
}
