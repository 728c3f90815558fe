package rfs

import (
	"fmt"
	"hash/fnv"
)

// ETagDisabled is the sentinel etag value that opts a resource out of
// precondition checks (spec.md §3).
const ETagDisabled = "disabled"

// FileStat is an immutable snapshot of a resource's metadata. Type flags
// are independent bits: a node may be both IsFile and IsSymbolicLink.
type FileStat struct {
	Resource       Resource
	Name           string
	IsFile         bool
	IsDirectory    bool
	IsSymbolicLink bool
	MTime          int64 // unix milliseconds
	CTime          int64 // unix milliseconds
	Size           int64
	ETag           string
	// Children is populated only when resolve() expanded this node; nil
	// means "not a directory" or "not expanded", never "empty directory"
	// (an expanded empty directory has a non-nil, zero-length slice).
	Children []FileStat
}

// ComputeETag derives a deterministic tag from (mtime, size). Equal
// inputs always yield equal outputs (spec.md §3, §8).
func ComputeETag(mtime, size int64) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d", mtime, size)
	return fmt.Sprintf("%x", h.Sum64())
}
