package rfs

import "context"

// DirEntry is one entry of a directory listing. Unlike FileStat it need
// not carry mtime/size/etag — resolve() only promotes it to a full
// FileStat when ResolveOptions.ResolveMetadata demands it.
type DirEntry struct {
	Name           string
	IsFile         bool
	IsDirectory    bool
	IsSymbolicLink bool
}

// Handle is an open positional file handle, returned by a provider whose
// Capabilities include FileOpenReadWriteClose.
type Handle interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	WriteAt(ctx context.Context, p []byte, off int64) (int, error)
	Close(ctx context.Context) error
}

// PushStream models an event-driven byte source: Chunks delivers data as
// it becomes available, Done closes once the source is exhausted, and at
// most one value is ever sent on Err. Providers whose Capabilities
// include FileReadStream return one from ReadFileStream.
type PushStream struct {
	Chunks chan []byte
	Done   chan struct{}
	Err    chan error
}

// NewPushStream allocates a PushStream with the given chunk buffer depth.
func NewPushStream(buffer int) *PushStream {
	return &PushStream{
		Chunks: make(chan []byte, buffer),
		Done:   make(chan struct{}),
		Err:    make(chan error, 1),
	}
}

// WriteInput is a tagged union over the three shapes a write payload may
// take (spec.md §9 design notes): raw bytes, a pull-style Reader, or a
// push-style Stream. Exactly one field is populated.
type WriteInput struct {
	Bytes    []byte
	Readable Readable
	Stream   *PushStream
}

// Readable is the pull-style input: synchronous Read returning a chunk,
// or io.EOF when exhausted. io.Reader already satisfies this contract.
type Readable interface {
	Read(p []byte) (int, error)
}

// BytesInput wraps raw bytes as a WriteInput.
func BytesInput(b []byte) WriteInput { return WriteInput{Bytes: b} }

// ReadableInput wraps a pull-style Reader as a WriteInput.
func ReadableInput(r Readable) WriteInput { return WriteInput{Readable: r} }

// StreamInput wraps a push-style PushStream as a WriteInput.
func StreamInput(s *PushStream) WriteInput { return WriteInput{Stream: s} }

// isRawBytes reports whether w carries pre-materialized bytes, the fast
// path every write pipeline prefers.
func (w WriteInput) isRawBytes() bool {
	return w.Readable == nil && w.Stream == nil
}

// Provider is the capability contract every filesystem backend
// implements (spec.md §6). Capability-gated methods (Copy, ReadFile,
// WriteFile, Open, ReadFileStream) return ErrProviderUnavailable when the
// corresponding bit is clear; the service never calls them without first
// checking Capabilities(), but well-behaved providers guard themselves
// too since the bit may change between the check and the call.
type Provider interface {
	Capabilities() Capability
	OnDidChangeCapabilities() *Emitter[Capability]
	OnDidChangeFile() *Emitter[[]FileChangeEvent]
	// OnDidErrorOccur is optional; providers that never report
	// out-of-band errors may return nil.
	OnDidErrorOccur() *Emitter[error]

	Stat(ctx context.Context, r Resource) (FileStat, error)
	ReadDir(ctx context.Context, r Resource) ([]DirEntry, error)
	Mkdir(ctx context.Context, r Resource) error
	Delete(ctx context.Context, r Resource, opts DeleteOptions) error
	Rename(ctx context.Context, src, dst Resource, opts RenameOptions) error

	Copy(ctx context.Context, src, dst Resource, opts CopyOptions) error
	ReadFile(ctx context.Context, r Resource) ([]byte, error)
	WriteFile(ctx context.Context, r Resource, data []byte, opts WriteOptions) error
	Open(ctx context.Context, r Resource, opts OpenOptions) (Handle, error)
	ReadFileStream(ctx context.Context, r Resource, opts ReadOptions) (*PushStream, error)

	Watch(ctx context.Context, r Resource, opts WatchOptions) (Disposable, error)
}
