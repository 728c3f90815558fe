package rfs

import (
	"context"
	"io"
)

// positionalChunkSize is the fixed chunk size positional-buffered read and
// write loops use (spec.md §4.3: "Positional-buffered reads use a fixed
// chunk size (64 KiB)").
const positionalChunkSize = 64 * 1024

type readPath int

const (
	readUnbuffered readPath = iota
	readStreamed
	readPositional
	readUnsupported
)

// selectReadPath implements the selection matrix of spec.md §4.3: a
// provider offering only FileReadWrite, or one asked for with
// preferUnbuffered, always reads unbuffered; otherwise a native stream is
// preferred over positional open/read/close.
func selectReadPath(caps Capability, preferUnbuffered bool) readPath {
	hasRW := hasUnbuffered(caps)
	hasStream := hasStream(caps)
	hasPos := hasPositional(caps)

	if hasRW && (preferUnbuffered || (!hasStream && !hasPos)) {
		return readUnbuffered
	}
	if hasStream {
		return readStreamed
	}
	if hasPos {
		return readPositional
	}
	if hasRW {
		return readUnbuffered
	}
	return readUnsupported
}

// validateReadFile enforces the read preconditions of spec.md §4.3.
func validateReadFile(op string, resource Resource, stat FileStat, opts ReadOptions) *Error {
	if stat.IsDirectory {
		return NewError(CodeFileIsDirectory, op, resource, nil)
	}
	if opts.ETag != "" && opts.ETag != ETagDisabled && opts.ETag == stat.ETag {
		return NewError(CodeFileNotModifiedSince, op, resource, nil)
	}
	if opts.Limits != nil {
		if opts.Limits.Memory > 0 && stat.Size > opts.Limits.Memory {
			return NewError(CodeFileExceedsMemoryLimit, op, resource, nil)
		}
		if opts.Limits.Size > 0 && stat.Size > opts.Limits.Size {
			return NewError(CodeFileTooLarge, op, resource, nil)
		}
	}
	return nil
}

// sliceRange applies position/length to a fully materialized buffer, the
// "unbuffered reads honor position and length by slicing the provider-
// returned buffer" rule of spec.md §4.3.
func sliceRange(data []byte, opts ReadOptions) []byte {
	if opts.Length != nil && *opts.Length == 0 {
		return []byte{}
	}
	pos := int64(0)
	if opts.Position != nil {
		pos = *opts.Position
	}
	if pos < 0 {
		pos = 0
	}
	if pos >= int64(len(data)) {
		return []byte{}
	}
	end := int64(len(data))
	if opts.Length != nil {
		if want := pos + *opts.Length; want < end {
			end = want
		}
	}
	return data[pos:end]
}

// ReadResult is the value readFile returns: the fresh stat alongside the
// materialized content (spec.md §4.3: "{...stat, value: bytes}").
type ReadResult struct {
	FileStat
	Value []byte
}

// ReadStreamResult is the value readFileStream returns.
type ReadStreamResult struct {
	FileStat
	Value *PushStream
}

// ReadFile selects an unbuffered, streamed, or positional-buffered path
// per the provider's capabilities and returns the fully materialized
// content (spec.md §4.3).
func (s *Service) ReadFile(ctx context.Context, resource Resource, opts ReadOptions) (ReadResult, error) {
	const op = "readFile"
	provider, err := s.registry.WithProvider(ctx, resource)
	if err != nil {
		return ReadResult{}, err
	}

	stat, err := provider.Stat(ctx, resource)
	if err != nil {
		return ReadResult{}, MapProviderError(op, resource, err)
	}
	if verr := validateReadFile(op, resource, stat, opts); verr != nil {
		return ReadResult{}, verr
	}

	cctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	data, err := s.readAll(cctx, provider, resource, opts)
	if err != nil {
		cancel(err)
		return ReadResult{}, MapProviderError(op, resource, err)
	}
	return ReadResult{FileStat: stat, Value: sliceRange(data, opts)}, nil
}

// readAll materializes the full content of resource via whichever path
// selectReadPath chooses.
func (s *Service) readAll(ctx context.Context, provider Provider, resource Resource, opts ReadOptions) ([]byte, error) {
	switch selectReadPath(provider.Capabilities(), opts.PreferUnbuffered) {
	case readUnbuffered:
		return provider.ReadFile(ctx, resource)
	case readStreamed:
		full := opts
		full.Position, full.Length = nil, nil
		ps, err := provider.ReadFileStream(ctx, resource, full)
		if err != nil {
			return nil, err
		}
		return drainPushStream(ps)
	case readPositional:
		return s.readAllPositional(ctx, provider, resource, ReadOptions{})
	default:
		return nil, ErrProviderUnavailable
	}
}

// drainPushStream collects every chunk of a PushStream into one buffer.
func drainPushStream(ps *PushStream) ([]byte, error) {
	var buf []byte
	for {
		select {
		case chunk, ok := <-ps.Chunks:
			if !ok {
				return buf, nil
			}
			buf = append(buf, chunk...)
		case <-ps.Done:
			// drain any chunks buffered ahead of Done before returning.
			for {
				select {
				case chunk := <-ps.Chunks:
					buf = append(buf, chunk...)
					continue
				default:
				}
				break
			}
			return buf, nil
		case err := <-ps.Err:
			return nil, err
		}
	}
}

// readAllPositional drives the open/read-loop/close path into one buffer.
func (s *Service) readAllPositional(ctx context.Context, provider Provider, resource Resource, opts ReadOptions) ([]byte, error) {
	handle, err := provider.Open(ctx, resource, OpenOptions{})
	if err != nil {
		return nil, err
	}
	defer handle.Close(ctx)

	var offset int64
	if opts.Position != nil {
		offset = *opts.Position
	}

	var buf []byte
	chunk := make([]byte, positionalChunkSize)
	for {
		n, err := handle.ReadAt(ctx, chunk, offset)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			offset += int64(n)
		}
		if err == io.EOF || n == 0 {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// ReadFileStream selects an unbuffered, streamed, or positional-buffered
// path and returns the content as a PushStream rather than a materialized
// buffer (spec.md §4.3).
func (s *Service) ReadFileStream(ctx context.Context, resource Resource, opts ReadOptions) (ReadStreamResult, error) {
	const op = "readFileStream"
	provider, err := s.registry.WithProvider(ctx, resource)
	if err != nil {
		return ReadStreamResult{}, err
	}

	stat, err := provider.Stat(ctx, resource)
	if err != nil {
		return ReadStreamResult{}, MapProviderError(op, resource, err)
	}
	if verr := validateReadFile(op, resource, stat, opts); verr != nil {
		return ReadStreamResult{}, verr
	}

	cctx, cancel := context.WithCancelCause(ctx)

	switch selectReadPath(provider.Capabilities(), opts.PreferUnbuffered) {
	case readStreamed:
		ps, err := provider.ReadFileStream(cctx, resource, opts)
		if err != nil {
			cancel(err)
			return ReadStreamResult{}, MapProviderError(op, resource, err)
		}
		return ReadStreamResult{FileStat: stat, Value: ps}, nil

	case readPositional:
		ps := NewPushStream(1)
		go func() {
			defer cancel(nil)
			handle, err := provider.Open(cctx, resource, OpenOptions{})
			if err != nil {
				ps.Err <- err
				return
			}
			defer handle.Close(cctx)

			var offset int64
			if opts.Position != nil {
				offset = *opts.Position
			}
			var remaining *int64
			if opts.Length != nil {
				left := *opts.Length
				remaining = &left
			}

			chunk := make([]byte, positionalChunkSize)
			for {
				want := chunk
				if remaining != nil && *remaining < int64(len(want)) {
					want = chunk[:*remaining]
				}
				if len(want) == 0 {
					close(ps.Done)
					return
				}
				n, err := handle.ReadAt(cctx, want, offset)
				if n > 0 {
					out := make([]byte, n)
					copy(out, want[:n])
					ps.Chunks <- out
					offset += int64(n)
					if remaining != nil {
						*remaining -= int64(n)
					}
				}
				if err == io.EOF || n == 0 {
					close(ps.Done)
					return
				}
				if err != nil {
					ps.Err <- err
					return
				}
			}
		}()
		return ReadStreamResult{FileStat: stat, Value: ps}, nil

	case readUnsupported:
		cancel(nil)
		return ReadStreamResult{}, MapProviderError(op, resource, ErrProviderUnavailable)

	default: // readUnbuffered
		data, err := s.readAll(cctx, provider, resource, opts)
		if err != nil {
			cancel(err)
			return ReadStreamResult{}, MapProviderError(op, resource, err)
		}
		cancel(nil)
		sliced := sliceRange(data, opts)
		ps := NewPushStream(1)
		ps.Chunks <- sliced
		close(ps.Done)
		return ReadStreamResult{FileStat: stat, Value: ps}, nil
	}
}
