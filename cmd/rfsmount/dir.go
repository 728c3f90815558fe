package main

import (
	"context"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"rfs"
)

// Dir represents a directory served by the underlying service, the
// adaptation of the teacher's Dir node from a virtual-path/state lookup
// to a Resolve/CreateFolder/Delete/Move call per operation.
type Dir struct {
	fs       *FS
	resource rfs.Resource
}

func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	stat, err := statResource(ctx, d.fs.svc, d.resource)
	if err != nil {
		return mapError(err)
	}
	statToAttr(stat, d.fs.uid, d.fs.gid, a)
	return nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	child := d.resource.Join(name)
	stat, err := statResource(ctx, d.fs.svc, child)
	if err != nil {
		return nil, mapError(err)
	}
	if stat.IsDirectory {
		return &Dir{fs: d.fs, resource: child}, nil
	}
	return &File{fs: d.fs, resource: child}, nil
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	stat, err := d.fs.svc.Resolve(ctx, d.resource, rfs.ResolveOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	entries := make([]fuse.Dirent, 0, len(stat.Children))
	for _, child := range stat.Children {
		typ := fuse.DT_File
		if child.IsDirectory {
			typ = fuse.DT_Dir
		}
		entries = append(entries, fuse.Dirent{Name: child.Name, Type: typ})
	}
	return entries, nil
}

func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	child := d.resource.Join(req.Name)
	if _, err := d.fs.svc.CreateFolder(ctx, child); err != nil {
		return nil, mapError(err)
	}
	return &Dir{fs: d.fs, resource: child}, nil
}

func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	child := d.resource.Join(req.Name)
	err := d.fs.svc.Delete(ctx, child, rfs.DeleteOptions{Recursive: req.Dir})
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (d *Dir) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	target, ok := newDir.(*Dir)
	if !ok {
		return syscall.EINVAL
	}
	src := d.resource.Join(req.OldName)
	dst := target.resource.Join(req.NewName)
	if _, err := d.fs.svc.Move(ctx, src, dst, true); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError translates a rfs taxonomy error into the errno bazil.org/fuse
// expects back from a node operation.
func mapError(err error) error {
	code, ok := rfs.CodeOf(err)
	if !ok {
		return err
	}
	switch code {
	case rfs.CodeFileNotFound:
		return syscall.ENOENT
	case rfs.CodeFileIsDirectory:
		return syscall.EISDIR
	case rfs.CodeFileNotDirectory:
		return syscall.ENOTDIR
	case rfs.CodeFileMoveConflict:
		return syscall.EEXIST
	case rfs.CodeFilePermissionDenied:
		return syscall.EACCES
	case rfs.CodeFileTooLarge, rfs.CodeFileExceedsMemoryLimit:
		return syscall.EFBIG
	default:
		return syscall.EIO
	}
}
