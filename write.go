package rfs

import (
	"context"
	"fmt"
	"io"
)

// prefixedReadable replays prefix before falling through to rest, used to
// resume a partially-coalesced input on the buffered path (spec.md §4.4
// step 4: "if the input exhausts within 3 chunks... else fall through to
// buffered").
type prefixedReadable struct {
	prefix []byte
	rest   Readable
}

func (p *prefixedReadable) Read(buf []byte) (int, error) {
	if len(p.prefix) > 0 {
		n := copy(buf, p.prefix)
		p.prefix = p.prefix[n:]
		return n, nil
	}
	return p.rest.Read(buf)
}

// streamReader adapts a push-style PushStream into the pull-style
// Readable contract so the positional write loop can treat all three
// WriteInput shapes uniformly (spec.md §9 design notes).
type streamReader struct {
	ps  *PushStream
	buf []byte
}

func (r *streamReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		select {
		case chunk, ok := <-r.ps.Chunks:
			if !ok {
				return 0, io.EOF
			}
			r.buf = chunk
		case <-r.ps.Done:
			select {
			case chunk := <-r.ps.Chunks:
				r.buf = chunk
			default:
				return 0, io.EOF
			}
		case err := <-r.ps.Err:
			return 0, err
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// toReadable exposes a WriteInput's readable or stream payload through
// the common Readable contract. Callers must have already excluded the
// raw-bytes case.
func toReadable(input WriteInput) Readable {
	if input.Stream != nil {
		return &streamReader{ps: input.Stream}
	}
	return input.Readable
}

// coalesceChunks eagerly pulls up to maxChunks chunks from input. If the
// input exhausts within that budget it returns the combined bytes with
// complete=true; otherwise it returns what it has read plus a Readable
// that resumes exactly where the pull left off (spec.md §4.4 step 4).
func coalesceChunks(input WriteInput, maxChunks int) (data []byte, complete bool, remainder Readable, err error) {
	readable := toReadable(input)
	buf := make([]byte, positionalChunkSize)
	for i := 0; i < maxChunks; i++ {
		n, rerr := readable.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if rerr == io.EOF {
			return data, true, nil, nil
		}
		if rerr != nil {
			return nil, false, nil, rerr
		}
	}
	return data, false, readable, nil
}

// doWriteBuffer writes data at offset, handling short writes by
// re-entering with the updated offset until the whole chunk lands
// (spec.md §4.6: "the write-loop within a chunk handles short writes by
// re-entering with updated offsets").
func doWriteBuffer(ctx context.Context, handle Handle, data []byte, offset int64) error {
	pos := 0
	for pos < len(data) {
		n, err := handle.WriteAt(ctx, data[pos:], offset+int64(pos))
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("rfs: write made no progress at offset %d", offset+int64(pos))
		}
		pos += n
	}
	return nil
}

// writePositional drives the open/write-loop/close path, reading from
// readable in positionalChunkSize pieces until it is exhausted.
func writePositional(ctx context.Context, provider Provider, resource Resource, readable Readable) error {
	handle, err := provider.Open(ctx, resource, OpenOptions{Create: true})
	if err != nil {
		return err
	}
	defer handle.Close(ctx)

	var offset int64
	buf := make([]byte, positionalChunkSize)
	for {
		n, rerr := readable.Read(buf)
		if n > 0 {
			if err := doWriteBuffer(ctx, handle, buf[:n], offset); err != nil {
				return err
			}
			offset += int64(n)
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

// executeWrite picks the unbuffered-vs-positional path per spec.md §4.4
// step 4-5, coalescing a non-bytes input into one unbuffered write when it
// is small enough.
func executeWrite(ctx context.Context, provider Provider, resource Resource, input WriteInput) error {
	caps := provider.Capabilities()

	if hasUnbuffered(caps) {
		if input.isRawBytes() {
			return provider.WriteFile(ctx, resource, input.Bytes, WriteOptions{Overwrite: true, Create: true})
		}
		data, complete, remainder, err := coalesceChunks(input, 3)
		if err != nil {
			return err
		}
		if complete {
			return provider.WriteFile(ctx, resource, data, WriteOptions{Overwrite: true, Create: true})
		}
		if hasPositional(caps) {
			return writePositional(ctx, provider, resource, &prefixedReadable{prefix: data, rest: remainder})
		}
		// no positional fallback available: keep pulling unbuffered.
		rest, err := io.ReadAll(&prefixedReadable{prefix: data, rest: remainder})
		if err != nil {
			return err
		}
		return provider.WriteFile(ctx, resource, rest, WriteOptions{Overwrite: true, Create: true})
	}

	if hasPositional(caps) {
		if input.isRawBytes() {
			return writePositionalBytes(ctx, provider, resource, input.Bytes)
		}
		return writePositional(ctx, provider, resource, toReadable(input))
	}

	return ErrProviderUnavailable
}

func writePositionalBytes(ctx context.Context, provider Provider, resource Resource, data []byte) error {
	handle, err := provider.Open(ctx, resource, OpenOptions{Create: true})
	if err != nil {
		return err
	}
	defer handle.Close(ctx)
	return doWriteBuffer(ctx, handle, data, 0)
}

// doWrite runs the full write pipeline (validate, mkdirp, queued write)
// without firing a completion event; WriteFile and CreateFile wrap it to
// fire WRITE and CREATE respectively (spec.md §4.4).
func (s *Service) doWrite(ctx context.Context, op string, resource Resource, input WriteInput, opts WriteOptions) (FileStat, error) {
	provider, err := s.registry.WithProvider(ctx, resource)
	if err != nil {
		return FileStat{}, err
	}

	if isReadonly(provider.Capabilities()) {
		return FileStat{}, NewError(CodeFilePermissionDenied, op, resource, nil)
	}

	current, statErr := provider.Stat(ctx, resource)
	exists := statErr == nil
	if exists {
		if current.IsDirectory {
			return FileStat{}, NewError(CodeFileIsDirectory, op, resource, nil)
		}
		if opts.MTime != 0 && opts.ETag != "" && current.MTime > opts.MTime {
			if ComputeETag(opts.MTime, current.Size) != opts.ETag {
				return FileStat{}, NewError(CodeFileModifiedSince, op, resource, nil)
			}
		}
	} else if !isNotFound(statErr) {
		return FileStat{}, MapProviderError(op, resource, statErr)
	}

	key := CanonicalKey(provider, resource)
	writeErr := s.writeQueue.run(key, func() error {
		if !exists {
			if err := mkdirp(ctx, provider, resource.Dirname()); err != nil {
				return err
			}
		}
		return executeWrite(ctx, provider, resource, input)
	})
	if writeErr != nil {
		return FileStat{}, MapProviderError(op, resource, writeErr)
	}

	fresh, err := provider.Stat(ctx, resource)
	if err != nil {
		return FileStat{}, MapProviderError(op, resource, err)
	}
	fresh.Resource = resource
	return fresh, nil
}

// WriteFile writes input to resource, serialized per-resource through the
// write queue, and returns the fresh stat (spec.md §4.4).
func (s *Service) WriteFile(ctx context.Context, resource Resource, input WriteInput, opts WriteOptions) (FileStat, error) {
	stat, err := s.doWrite(ctx, "writeFile", resource, input, opts)
	if err != nil {
		return FileStat{}, err
	}
	s.fireAfterOperation(OperationWrite, stat, Resource{})
	return stat, nil
}

// CreateFile writes input to resource, failing with FILE_MODIFIED_SINCE
// if it already exists and opts.Overwrite is false (spec.md §4.4).
func (s *Service) CreateFile(ctx context.Context, resource Resource, input WriteInput, opts WriteOptions) (FileStat, error) {
	const op = "createFile"
	if !opts.Overwrite && s.Exists(ctx, resource) {
		return FileStat{}, NewError(CodeFileModifiedSince, op, resource, nil)
	}
	stat, err := s.doWrite(ctx, op, resource, input, opts)
	if err != nil {
		return FileStat{}, err
	}
	s.fireAfterOperation(OperationCreate, stat, Resource{})
	return stat, nil
}
