package rfs

import (
	"context"
	"io"
)

// pipeFile moves one file's bytes from src to dst across providers using
// whichever of the four capability permutations applies (spec.md §4.6).
// Every variant runs under the target's write-queue key and guarantees
// handle close on every exit path.
func (s *Service) pipeFile(ctx context.Context, srcProvider Provider, src Resource, tgtProvider Provider, dst Resource) error {
	srcPositional := hasPositional(srcProvider.Capabilities())
	tgtPositional := hasPositional(tgtProvider.Capabilities())

	key := CanonicalKey(tgtProvider, dst)
	return s.writeQueue.run(key, func() error {
		switch {
		case srcPositional && tgtPositional:
			return pipePositionalToPositional(ctx, srcProvider, src, tgtProvider, dst)
		case srcPositional && !tgtPositional:
			return pipePositionalToUnbuffered(ctx, srcProvider, src, tgtProvider, dst)
		case !srcPositional && tgtPositional:
			return pipeUnbufferedToPositional(ctx, srcProvider, src, tgtProvider, dst)
		default:
			return pipeUnbufferedToUnbuffered(ctx, srcProvider, src, tgtProvider, dst)
		}
	})
}

// pipePositionalToPositional reads src in positionalChunkSize pieces into
// a reusable buffer and writes each into dst at the matching offset,
// terminating when a read returns 0 bytes.
func pipePositionalToPositional(ctx context.Context, srcProvider Provider, src Resource, tgtProvider Provider, dst Resource) error {
	srcHandle, err := srcProvider.Open(ctx, src, OpenOptions{})
	if err != nil {
		return err
	}
	defer srcHandle.Close(ctx)

	dstHandle, err := tgtProvider.Open(ctx, dst, OpenOptions{Create: true})
	if err != nil {
		return err
	}
	defer dstHandle.Close(ctx)

	buf := make([]byte, positionalChunkSize)
	var offset int64
	for {
		n, err := srcHandle.ReadAt(ctx, buf, offset)
		if n > 0 {
			if werr := doWriteBuffer(ctx, dstHandle, buf[:n], offset); werr != nil {
				return werr
			}
			offset += int64(n)
		}
		if err != nil || n == 0 {
			if isEOFLike(err) {
				return nil
			}
			return err
		}
	}
}

// pipePositionalToUnbuffered materializes src through the positional
// read loop, then issues one unbuffered write to dst.
func pipePositionalToUnbuffered(ctx context.Context, srcProvider Provider, src Resource, tgtProvider Provider, dst Resource) error {
	data, err := readAllPositionalHandle(ctx, srcProvider, src)
	if err != nil {
		return err
	}
	return tgtProvider.WriteFile(ctx, dst, data, WriteOptions{Create: true, Overwrite: true})
}

// pipeUnbufferedToPositional reads src with one unbuffered call, then
// drives the write-loop against dst's positional handle.
func pipeUnbufferedToPositional(ctx context.Context, srcProvider Provider, src Resource, tgtProvider Provider, dst Resource) error {
	data, err := srcProvider.ReadFile(ctx, src)
	if err != nil {
		return err
	}
	return writePositionalBytes(ctx, tgtProvider, dst, data)
}

// pipeUnbufferedToUnbuffered is the simplest variant: one read, one
// write, both whole-file.
func pipeUnbufferedToUnbuffered(ctx context.Context, srcProvider Provider, src Resource, tgtProvider Provider, dst Resource) error {
	data, err := srcProvider.ReadFile(ctx, src)
	if err != nil {
		return err
	}
	return tgtProvider.WriteFile(ctx, dst, data, WriteOptions{Create: true, Overwrite: true})
}

// readAllPositionalHandle drains provider's positional handle for
// resource into one buffer.
func readAllPositionalHandle(ctx context.Context, provider Provider, resource Resource) ([]byte, error) {
	handle, err := provider.Open(ctx, resource, OpenOptions{})
	if err != nil {
		return nil, err
	}
	defer handle.Close(ctx)

	var buf []byte
	chunk := make([]byte, positionalChunkSize)
	var offset int64
	for {
		n, err := handle.ReadAt(ctx, chunk, offset)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			offset += int64(n)
		}
		if err != nil || n == 0 {
			if isEOFLike(err) {
				return buf, nil
			}
			return nil, err
		}
	}
}

func isEOFLike(err error) bool {
	return err == nil || err == io.EOF
}
