// Command rfsmount exposes the virtual filesystem service through a FUSE
// mount, the same entry point the teacher's cmd/vmapfs provides, adapted
// from one hard-coded source mapping to dispatching every node through
// the service's scheme-addressed registry instead.
package main

import (
	"context"
	"os"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"rfs"
	"rfs/internal/logging"
)

var fsLogger = logging.GetLogger().WithPrefix("mount")

// FS adapts a single (scheme, authority) pair served by a *rfs.Service
// onto bazil.org/fuse's node tree, mirroring the teacher's VMapFS but
// delegating every operation to the service's pipelines instead of a
// PathMapper/StateManager pair.
type FS struct {
	svc       *rfs.Service
	scheme    string
	authority string
	uid, gid  uint32
}

// NewFS constructs an FS rooted at scheme://authority/, served by svc.
func NewFS(svc *rfs.Service, scheme, authority string) *FS {
	return &FS{
		svc:       svc,
		scheme:    scheme,
		authority: authority,
		uid:       safeIntToUint32(os.Getuid()),
		gid:       safeIntToUint32(os.Getgid()),
	}
}

func (f *FS) resource(path string) rfs.Resource {
	return rfs.Resource{Scheme: f.scheme, Authority: f.authority, Path: path}
}

// Root implements fusefs.FS, returning the root directory node.
func (f *FS) Root() (fusefs.Node, error) {
	fsLogger.Trace("Getting root directory node")
	return &Dir{fs: f, resource: f.resource("/")}, nil
}

func safeIntToUint32(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}

// statToAttr copies the fields bazil.org/fuse cares about out of a
// rfs.FileStat, the adaptation of the teacher's Dir/File.Attr os.FileInfo
// copy to the service's own stat shape.
func statToAttr(stat rfs.FileStat, uid, gid uint32, a *fuse.Attr) {
	if stat.IsDirectory {
		a.Mode = os.ModeDir | 0o755
	} else {
		a.Mode = 0o644
	}
	a.Size = uint64(stat.Size)
	a.Uid = uid
	a.Gid = gid
	a.BlockSize = 4096
	a.Blocks = uint64((stat.Size + 511) / 512)
}

// statResource resolves resource with default options: the node's own
// metadata plus, for a directory, one level of children.
func statResource(ctx context.Context, svc *rfs.Service, resource rfs.Resource) (rfs.FileStat, error) {
	return svc.Resolve(ctx, resource, rfs.ResolveOptions{})
}
