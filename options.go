package rfs

// ReadLimits bounds a read by either the byte length of the resource or
// the memory the caller is willing to allocate for it.
type ReadLimits struct {
	Size   int64
	Memory int64
}

// ReadOptions parameterizes ReadFile and ReadFileStream.
type ReadOptions struct {
	Position         *int64
	Length           *int64
	ETag             string
	Limits           *ReadLimits
	PreferUnbuffered bool
}

// WriteOptions parameterizes WriteFile and CreateFile.
type WriteOptions struct {
	Overwrite bool
	Create    bool
	MTime     int64
	ETag      string
}

// WatchOptions parameterizes Watch.
type WatchOptions struct {
	Recursive bool
	Excludes  []string
}

// ResolveOptions parameterizes Resolve.
type ResolveOptions struct {
	// ResolveTo names extra resources whose ancestor chain must be
	// recursively expanded, in addition to the one being resolved.
	ResolveTo []Resource
	// ResolveSingleChildDescendants expands a directory that is the only
	// entry of its parent, chaining down through single-child directories.
	ResolveSingleChildDescendants bool
	// ResolveMetadata requires every descendant to carry full metadata
	// (one stat call per child) rather than only its type bits.
	ResolveMetadata bool
}

// DeleteOptions parameterizes Delete.
type DeleteOptions struct {
	Recursive bool
	UseTrash  bool
}

// RenameOptions parameterizes a Provider's Rename.
type RenameOptions struct {
	Overwrite bool
}

// CopyOptions parameterizes a Provider's native Copy.
type CopyOptions struct {
	Overwrite bool
}

// OpenOptions parameterizes a Provider's positional Open.
type OpenOptions struct {
	Create bool
}

// ResolveResult is one entry of ResolveAll's output.
type ResolveResult struct {
	Stat    FileStat
	Success bool
}
