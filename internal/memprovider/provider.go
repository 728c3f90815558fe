// Package memprovider implements an in-memory rfs.Provider over
// afero's MemMapFs, the scheme "mem" used throughout the test suite and
// by cmd/rfsctl for scratch targets.
package memprovider

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"rfs"
)

// Capabilities describes what this provider exposes: whole-file
// unbuffered read/write, native intra-provider folder copy, and
// case-sensitive paths (MemMapFs compares paths byte-for-byte).
const Capabilities = rfs.FileReadWrite | rfs.FileFolderCopy | rfs.PathCaseSensitive

// Provider adapts an afero.Fs (normally afero.NewMemMapFs()) to the
// rfs.Provider contract.
type Provider struct {
	fs afero.Fs

	onChangeCaps *rfs.Emitter[rfs.Capability]
	onChangeFile *rfs.Emitter[[]rfs.FileChangeEvent]
}

// New wraps fs as a Provider. Pass afero.NewMemMapFs() for a fresh,
// empty in-memory filesystem.
func New(fs afero.Fs) *Provider {
	return &Provider{
		fs:           fs,
		onChangeCaps: rfs.NewEmitter[rfs.Capability](),
		onChangeFile: rfs.NewEmitter[[]rfs.FileChangeEvent](),
	}
}

func (p *Provider) Capabilities() rfs.Capability { return Capabilities }

func (p *Provider) OnDidChangeCapabilities() *rfs.Emitter[rfs.Capability] { return p.onChangeCaps }
func (p *Provider) OnDidChangeFile() *rfs.Emitter[[]rfs.FileChangeEvent]  { return p.onChangeFile }
func (p *Provider) OnDidErrorOccur() *rfs.Emitter[error]                  { return nil }

func (p *Provider) notify(typ rfs.FileChangeType, r rfs.Resource) {
	p.onChangeFile.Fire([]rfs.FileChangeEvent{{Type: typ, Resource: r}})
}

func (p *Provider) Stat(ctx context.Context, r rfs.Resource) (rfs.FileStat, error) {
	info, err := p.fs.Stat(r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return rfs.FileStat{}, errors.Wrap(rfs.ErrProviderNotFound, err.Error())
		}
		return rfs.FileStat{}, err
	}
	mtime := info.ModTime().UnixMilli()
	return rfs.FileStat{
		Resource:    r,
		Name:        info.Name(),
		IsFile:      !info.IsDir(),
		IsDirectory: info.IsDir(),
		MTime:       mtime,
		CTime:       mtime,
		Size:        info.Size(),
		ETag:        rfs.ComputeETag(mtime, info.Size()),
	}, nil
}

func (p *Provider) ReadDir(ctx context.Context, r rfs.Resource) ([]rfs.DirEntry, error) {
	infos, err := afero.ReadDir(p.fs, r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(rfs.ErrProviderNotFound, err.Error())
		}
		return nil, err
	}
	entries := make([]rfs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = rfs.DirEntry{
			Name:        info.Name(),
			IsFile:      !info.IsDir(),
			IsDirectory: info.IsDir(),
		}
	}
	return entries, nil
}

func (p *Provider) Mkdir(ctx context.Context, r rfs.Resource) error {
	if err := p.fs.Mkdir(r.Path, 0o755); err != nil {
		if os.IsExist(err) {
			return errors.Wrap(rfs.ErrProviderExists, err.Error())
		}
		return err
	}
	p.notify(rfs.FileChangeAdded, r)
	return nil
}

func (p *Provider) Delete(ctx context.Context, r rfs.Resource, opts rfs.DeleteOptions) error {
	var err error
	if opts.Recursive {
		err = p.fs.RemoveAll(r.Path)
	} else {
		err = p.fs.Remove(r.Path)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(rfs.ErrProviderNotFound, err.Error())
		}
		return err
	}
	p.notify(rfs.FileChangeDeleted, r)
	return nil
}

func (p *Provider) Rename(ctx context.Context, src, dst rfs.Resource, opts rfs.RenameOptions) error {
	if err := p.fs.Rename(src.Path, dst.Path); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(rfs.ErrProviderNotFound, err.Error())
		}
		return err
	}
	p.notify(rfs.FileChangeDeleted, src)
	p.notify(rfs.FileChangeAdded, dst)
	return nil
}

// Copy recursively duplicates src onto dst within the same in-memory
// tree, the native path spec.md §4.5 prefers when FileFolderCopy is set.
func (p *Provider) Copy(ctx context.Context, src, dst rfs.Resource, opts rfs.CopyOptions) error {
	err := afero.Walk(p.fs, src.Path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src.Path, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst.Path, rel)
		if info.IsDir() {
			return p.fs.MkdirAll(target, info.Mode())
		}
		data, err := afero.ReadFile(p.fs, path)
		if err != nil {
			return err
		}
		return afero.WriteFile(p.fs, target, data, info.Mode())
	})
	if err != nil {
		return err
	}
	p.notify(rfs.FileChangeAdded, dst)
	return nil
}

func (p *Provider) ReadFile(ctx context.Context, r rfs.Resource) ([]byte, error) {
	data, err := afero.ReadFile(p.fs, r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(rfs.ErrProviderNotFound, err.Error())
		}
		return nil, err
	}
	return data, nil
}

func (p *Provider) WriteFile(ctx context.Context, r rfs.Resource, data []byte, opts rfs.WriteOptions) error {
	if err := afero.WriteFile(p.fs, r.Path, data, 0o644); err != nil {
		return err
	}
	p.notify(rfs.FileChangeUpdated, r)
	return nil
}

func (p *Provider) Open(ctx context.Context, r rfs.Resource, opts rfs.OpenOptions) (rfs.Handle, error) {
	return nil, rfs.ErrProviderUnavailable
}

func (p *Provider) ReadFileStream(ctx context.Context, r rfs.Resource, opts rfs.ReadOptions) (*rfs.PushStream, error) {
	return nil, rfs.ErrProviderUnavailable
}

// Watch is a no-op subscription: every mutation already fires
// OnDidChangeFile directly, so there is nothing additional to wire up
// per watch request beyond the refcounting the service itself performs.
func (p *Provider) Watch(ctx context.Context, r rfs.Resource, opts rfs.WatchOptions) (rfs.Disposable, error) {
	return rfs.DisposableFunc(func() {}), nil
}
