// Package streamprovider implements an rfs.Provider backed by afero's
// in-memory filesystem that always answers reads through a push-style
// PushStream, exercising the "streamed" branch of the read pipeline's
// selection matrix (spec.md §4.3) the way memprovider exercises the
// unbuffered branch.
package streamprovider

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"rfs"
)

const streamChunkSize = 32 * 1024

// Capabilities: unbuffered write (writes are simple enough not to need a
// streaming path) plus native streaming read.
const Capabilities = rfs.FileReadWrite | rfs.FileReadStream | rfs.PathCaseSensitive

// Provider adapts an afero.Fs to rfs.Provider, serving ReadFileStream
// directly and ReadFile by draining its own stream.
type Provider struct {
	fs afero.Fs

	onChangeCaps *rfs.Emitter[rfs.Capability]
	onChangeFile *rfs.Emitter[[]rfs.FileChangeEvent]
}

// New wraps fs (normally afero.NewMemMapFs()) as a streaming Provider.
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
		entries[i] = rfs.DirEntry{Name: info.Name(), IsFile: !info.IsDir(), IsDirectory: info.IsDir()}
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
	p.onChangeFile.Fire([]rfs.FileChangeEvent{{Type: rfs.FileChangeAdded, Resource: r}})
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
	p.onChangeFile.Fire([]rfs.FileChangeEvent{{Type: rfs.FileChangeDeleted, Resource: r}})
	return nil
}

func (p *Provider) Rename(ctx context.Context, src, dst rfs.Resource, opts rfs.RenameOptions) error {
	if err := p.fs.Rename(src.Path, dst.Path); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(rfs.ErrProviderNotFound, err.Error())
		}
		return err
	}
	p.onChangeFile.Fire([]rfs.FileChangeEvent{
		{Type: rfs.FileChangeDeleted, Resource: src},
		{Type: rfs.FileChangeAdded, Resource: dst},
	})
	return nil
}

// Copy is unsupported: this provider does not declare FileFolderCopy, so
// the move/copy engine always routes through the byte pipe instead.
func (p *Provider) Copy(ctx context.Context, src, dst rfs.Resource, opts rfs.CopyOptions) error {
	return rfs.ErrProviderUnavailable
}

func (p *Provider) ReadFile(ctx context.Context, r rfs.Resource) ([]byte, error) {
	ps, err := p.ReadFileStream(ctx, r, rfs.ReadOptions{})
	if err != nil {
		return nil, err
	}
	var buf []byte
	for {
		select {
		case chunk, ok := <-ps.Chunks:
			if !ok {
				return buf, nil
			}
			buf = append(buf, chunk...)
		case <-ps.Done:
			for len(ps.Chunks) > 0 {
				buf = append(buf, <-ps.Chunks...)
			}
			return buf, nil
		case err := <-ps.Err:
			return nil, err
		}
	}
}

func (p *Provider) WriteFile(ctx context.Context, r rfs.Resource, data []byte, opts rfs.WriteOptions) error {
	if err := afero.WriteFile(p.fs, r.Path, data, 0o644); err != nil {
		return err
	}
	p.onChangeFile.Fire([]rfs.FileChangeEvent{{Type: rfs.FileChangeUpdated, Resource: r}})
	return nil
}

func (p *Provider) Open(ctx context.Context, r rfs.Resource, opts rfs.OpenOptions) (rfs.Handle, error) {
	return nil, rfs.ErrProviderUnavailable
}

// ReadFileStream pushes the file's content in streamChunkSize pieces,
// honoring Position/Length, on a background goroutine that closes Done
// once exhausted.
func (p *Provider) ReadFileStream(ctx context.Context, r rfs.Resource, opts rfs.ReadOptions) (*rfs.PushStream, error) {
	data, err := afero.ReadFile(p.fs, r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(rfs.ErrProviderNotFound, err.Error())
		}
		return nil, err
	}

	start := int64(0)
	if opts.Position != nil {
		start = *opts.Position
	}
	if start > int64(len(data)) {
		start = int64(len(data))
	}
	end := int64(len(data))
	if opts.Length != nil {
		if want := start + *opts.Length; want < end {
			end = want
		}
	}
	data = data[start:end]

	ps := rfs.NewPushStream(4)
	go func() {
		for len(data) > 0 {
			n := streamChunkSize
			if n > len(data) {
				n = len(data)
			}
			select {
			case ps.Chunks <- data[:n]:
				data = data[n:]
			case <-ctx.Done():
				ps.Err <- ctx.Err()
				return
			}
		}
		close(ps.Done)
	}()
	return ps, nil
}

func (p *Provider) Watch(ctx context.Context, r rfs.Resource, opts rfs.WatchOptions) (rfs.Disposable, error) {
	return rfs.DisposableFunc(func() {}), nil
}
