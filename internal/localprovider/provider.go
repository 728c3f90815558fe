// Package localprovider implements an rfs.Provider over the local disk,
// the scheme "file". Positional I/O and watch plumbing are adapted from
// the teacher's internal/fs file-handle and directory-node patterns;
// everything else here exists to satisfy rfs.Provider rather than
// bazil.org/fuse's node interfaces.
package localprovider

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"rfs"
)

// Capabilities describes what this provider exposes: positional
// open/read/write/close, native intra-provider folder copy, and a trash
// bin instead of hard deletes when requested.
const Capabilities = rfs.FileOpenReadWriteClose | rfs.FileFolderCopy | rfs.Trash

// Provider roots every resource path at root on the local disk.
type Provider struct {
	root string

	onChangeCaps *rfs.Emitter[rfs.Capability]
	onChangeFile *rfs.Emitter[[]rfs.FileChangeEvent]
	onError      *rfs.Emitter[error]
}

// New constructs a Provider rooted at root. The directory must already
// exist.
func New(root string) *Provider {
	return &Provider{
		root:         filepath.Clean(root),
		onChangeCaps: rfs.NewEmitter[rfs.Capability](),
		onChangeFile: rfs.NewEmitter[[]rfs.FileChangeEvent](),
		onError:      rfs.NewEmitter[error](),
	}
}

func (p *Provider) Capabilities() rfs.Capability { return Capabilities }

func (p *Provider) OnDidChangeCapabilities() *rfs.Emitter[rfs.Capability] { return p.onChangeCaps }
func (p *Provider) OnDidChangeFile() *rfs.Emitter[[]rfs.FileChangeEvent]  { return p.onChangeFile }
func (p *Provider) OnDidErrorOccur() *rfs.Emitter[error]                  { return p.onError }

// realPath maps a resource path onto the local filesystem, the same role
// the teacher's PathMapper plays for its virtual-to-source translation.
func (p *Provider) realPath(r rfs.Resource) string {
	return filepath.Join(p.root, filepath.FromSlash(r.Path))
}

func (p *Provider) trashDir() string {
	return filepath.Join(p.root, ".rfs-trash")
}

func mapStatErr(err error) error {
	if os.IsNotExist(err) {
		return errors.Wrap(rfs.ErrProviderNotFound, err.Error())
	}
	if os.IsPermission(err) {
		return errors.Wrap(rfs.ErrProviderNoPermissions, err.Error())
	}
	return err
}

func (p *Provider) Stat(ctx context.Context, r rfs.Resource) (rfs.FileStat, error) {
	info, err := os.Stat(p.realPath(r))
	if err != nil {
		return rfs.FileStat{}, mapStatErr(err)
	}
	mtime := info.ModTime().UnixMilli()
	return rfs.FileStat{
		Resource:       r,
		Name:           info.Name(),
		IsFile:         info.Mode().IsRegular(),
		IsDirectory:    info.IsDir(),
		IsSymbolicLink: info.Mode()&os.ModeSymlink != 0,
		MTime:          mtime,
		CTime:          mtime,
		Size:           info.Size(),
		ETag:           rfs.ComputeETag(mtime, info.Size()),
	}, nil
}

func (p *Provider) ReadDir(ctx context.Context, r rfs.Resource) ([]rfs.DirEntry, error) {
	entries, err := os.ReadDir(p.realPath(r))
	if err != nil {
		return nil, mapStatErr(err)
	}
	out := make([]rfs.DirEntry, len(entries))
	for i, e := range entries {
		info, _ := e.Info()
		out[i] = rfs.DirEntry{
			Name:           e.Name(),
			IsFile:         e.Type().IsRegular(),
			IsDirectory:    e.IsDir(),
			IsSymbolicLink: info != nil && info.Mode()&os.ModeSymlink != 0,
		}
	}
	return out, nil
}

func (p *Provider) Mkdir(ctx context.Context, r rfs.Resource) error {
	if err := os.Mkdir(p.realPath(r), 0o755); err != nil {
		if os.IsExist(err) {
			return errors.Wrap(rfs.ErrProviderExists, err.Error())
		}
		return mapStatErr(err)
	}
	p.onChangeFile.Fire([]rfs.FileChangeEvent{{Type: rfs.FileChangeAdded, Resource: r}})
	return nil
}

// Delete removes resource, moving it into a timestamped trash directory
// instead of erasing it when opts.UseTrash is set.
func (p *Provider) Delete(ctx context.Context, r rfs.Resource, opts rfs.DeleteOptions) error {
	real := p.realPath(r)

	if opts.UseTrash {
		if err := os.MkdirAll(p.trashDir(), 0o755); err != nil {
			return err
		}
		dest := filepath.Join(p.trashDir(), fmt.Sprintf("%s.%d", filepath.Base(real), time.Now().UnixNano()))
		if err := os.Rename(real, dest); err != nil {
			return mapStatErr(err)
		}
		p.onChangeFile.Fire([]rfs.FileChangeEvent{{Type: rfs.FileChangeDeleted, Resource: r}})
		return nil
	}

	var err error
	if opts.Recursive {
		err = os.RemoveAll(real)
	} else {
		err = os.Remove(real)
	}
	if err != nil {
		return mapStatErr(err)
	}
	p.onChangeFile.Fire([]rfs.FileChangeEvent{{Type: rfs.FileChangeDeleted, Resource: r}})
	return nil
}

func (p *Provider) Rename(ctx context.Context, src, dst rfs.Resource, opts rfs.RenameOptions) error {
	if err := os.Rename(p.realPath(src), p.realPath(dst)); err != nil {
		return mapStatErr(err)
	}
	p.onChangeFile.Fire([]rfs.FileChangeEvent{
		{Type: rfs.FileChangeDeleted, Resource: src},
		{Type: rfs.FileChangeAdded, Resource: dst},
	})
	return nil
}

// Copy recursively duplicates src onto dst within the same root.
func (p *Provider) Copy(ctx context.Context, src, dst rfs.Resource, opts rfs.CopyOptions) error {
	realSrc, realDst := p.realPath(src), p.realPath(dst)
	err := filepath.Walk(realSrc, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(realSrc, path)
		if err != nil {
			return err
		}
		target := filepath.Join(realDst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFileContents(path, target, info.Mode())
	})
	if err != nil {
		return err
	}
	p.onChangeFile.Fire([]rfs.FileChangeEvent{{Type: rfs.FileChangeAdded, Resource: dst}})
	return nil
}

func copyFileContents(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func (p *Provider) ReadFile(ctx context.Context, r rfs.Resource) ([]byte, error) {
	return nil, rfs.ErrProviderUnavailable
}

func (p *Provider) WriteFile(ctx context.Context, r rfs.Resource, data []byte, opts rfs.WriteOptions) error {
	return rfs.ErrProviderUnavailable
}

// Open returns a positional handle over the real file backing resource.
func (p *Provider) Open(ctx context.Context, r rfs.Resource, opts rfs.OpenOptions) (rfs.Handle, error) {
	flags := os.O_RDWR
	if opts.Create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(p.realPath(r), flags, 0o644)
	if err != nil {
		return nil, mapStatErr(err)
	}
	return &handle{f: f, provider: p, resource: r}, nil
}

func (p *Provider) ReadFileStream(ctx context.Context, r rfs.Resource, opts rfs.ReadOptions) (*rfs.PushStream, error) {
	return nil, rfs.ErrProviderUnavailable
}

// handle adapts *os.File to rfs.Handle.
type handle struct {
	f        *os.File
	provider *Provider
	resource rfs.Resource
}

func (h *handle) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	return h.f.ReadAt(p, off)
}

func (h *handle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	return h.f.WriteAt(p, off)
}

func (h *handle) Close(ctx context.Context) error {
	err := h.f.Close()
	h.provider.onChangeFile.Fire([]rfs.FileChangeEvent{{Type: rfs.FileChangeUpdated, Resource: h.resource}})
	return err
}

// Watch bridges fsnotify onto the provider's OnDidChangeFile emitter,
// following the directory-watch loop shape rather than the teacher's FUSE
// kernel-driven invalidation, since this provider is consumed directly by
// the service instead of through a kernel mount.
func (p *Provider) Watch(ctx context.Context, r rfs.Resource, opts rfs.WatchOptions) (rfs.Disposable, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	real := p.realPath(r)
	if err := addWatchTree(watcher, real, opts.Recursive); err != nil {
		watcher.Close()
		return nil, mapStatErr(err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				p.onChangeFile.Fire([]rfs.FileChangeEvent{{Type: fsnotifyToChangeType(ev.Op), Resource: r}})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.onError.Fire(err)
			case <-done:
				return
			}
		}
	}()

	return rfs.DisposableFunc(func() {
		close(done)
		watcher.Close()
	}), nil
}

func addWatchTree(watcher *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		return watcher.Add(root)
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func fsnotifyToChangeType(op fsnotify.Op) rfs.FileChangeType {
	switch {
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		return rfs.FileChangeDeleted
	case op&fsnotify.Create != 0:
		return rfs.FileChangeAdded
	default:
		return rfs.FileChangeUpdated
	}
}
