package rfs_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfs"
	"rfs/internal/fsdouble"
	"rfs/internal/localprovider"
	"rfs/internal/memprovider"
	"rfs/internal/streamprovider"
)

func newMemService(t *testing.T) (*rfs.Service, string) {
	t.Helper()
	svc := rfs.NewService()
	_, err := svc.RegisterProvider("mem", memprovider.New(afero.NewMemMapFs()))
	require.NoError(t, err)
	return svc, "mem"
}

func TestResolveExpandsDirectoryTree(t *testing.T) {
	svc, scheme := newMemService(t)
	ctx := context.Background()

	root := rfs.MustParseResource(scheme + "://h/")
	_, err := svc.CreateFolder(ctx, root.Join("dir"))
	require.NoError(t, err)
	_, err = svc.WriteFile(ctx, root.Join("dir/a.txt"), rfs.BytesInput([]byte("hello")), rfs.WriteOptions{Create: true})
	require.NoError(t, err)

	stat, err := svc.Resolve(ctx, root, rfs.ResolveOptions{ResolveMetadata: true, ResolveTo: []rfs.Resource{root.Join("dir/a.txt")}})
	require.NoError(t, err)
	require.True(t, stat.IsDirectory)
	require.Len(t, stat.Children, 1)
	assert.Equal(t, "dir", stat.Children[0].Name)

	grandchildren := stat.Children[0].Children
	require.Len(t, grandchildren, 1)
	assert.Equal(t, "a.txt", grandchildren[0].Name)
	assert.Equal(t, int64(5), grandchildren[0].Size)
}

func TestWriteFileAutoCreatesMissingAncestors(t *testing.T) {
	svc, scheme := newMemService(t)
	ctx := context.Background()

	target := rfs.MustParseResource(scheme + "://h/a/b/c.txt")
	stat, err := svc.WriteFile(ctx, target, rfs.BytesInput([]byte("data")), rfs.WriteOptions{Create: true})
	require.NoError(t, err)
	assert.Equal(t, int64(4), stat.Size)

	result, err := svc.ReadFile(ctx, target, rfs.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "data", string(result.Value))
}

func TestCreateFileRejectsOverwriteWithoutFlag(t *testing.T) {
	svc, scheme := newMemService(t)
	ctx := context.Background()
	target := rfs.MustParseResource(scheme + "://h/f.txt")

	_, err := svc.CreateFile(ctx, target, rfs.BytesInput([]byte("1")), rfs.WriteOptions{})
	require.NoError(t, err)

	_, err = svc.CreateFile(ctx, target, rfs.BytesInput([]byte("2")), rfs.WriteOptions{})
	code, ok := rfs.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rfs.CodeFileModifiedSince, code)
}

func TestReadFileRespectsPositionAndLength(t *testing.T) {
	svc, scheme := newMemService(t)
	ctx := context.Background()
	target := rfs.MustParseResource(scheme + "://h/f.txt")
	_, err := svc.WriteFile(ctx, target, rfs.BytesInput([]byte("0123456789")), rfs.WriteOptions{Create: true})
	require.NoError(t, err)

	pos := int64(3)
	length := int64(4)
	result, err := svc.ReadFile(ctx, target, rfs.ReadOptions{Position: &pos, Length: &length})
	require.NoError(t, err)
	assert.Equal(t, "3456", string(result.Value))
}

func TestWriteFileRejectsStaleMTimeETagPair(t *testing.T) {
	svc, scheme := newMemService(t)
	ctx := context.Background()
	target := rfs.MustParseResource(scheme + "://h/f.txt")

	stale, err := svc.WriteFile(ctx, target, rfs.BytesInput([]byte("aaa")), rfs.WriteOptions{Create: true})
	require.NoError(t, err)

	// Force a distinct MTime for the second write: the guard only
	// triggers when current.MTime has actually advanced past the
	// caller's recorded MTime.
	time.Sleep(5 * time.Millisecond)
	_, err = svc.WriteFile(ctx, target, rfs.BytesInput([]byte("bbbbb")), rfs.WriteOptions{Overwrite: true, Create: true})
	require.NoError(t, err)

	// Write again using the stale (mtime, etag) pair captured before the
	// second write: write.go's guard should reject it with
	// CodeFileModifiedSince rather than silently clobbering the newer
	// content.
	_, err = svc.WriteFile(ctx, target, rfs.BytesInput([]byte("ccc")), rfs.WriteOptions{
		Overwrite: true,
		Create:    true,
		MTime:     stale.MTime,
		ETag:      stale.ETag,
	})
	code, ok := rfs.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rfs.CodeFileModifiedSince, code)

	result, err := svc.ReadFile(ctx, target, rfs.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "bbbbb", string(result.Value), "the rejected stale write must not have overwritten the newer content")
}

func TestDeleteNonRecursiveNonEmptyDirectoryFails(t *testing.T) {
	svc, scheme := newMemService(t)
	ctx := context.Background()
	dir := rfs.MustParseResource(scheme + "://h/dir")
	_, err := svc.CreateFolder(ctx, dir)
	require.NoError(t, err)
	_, err = svc.WriteFile(ctx, dir.Join("x.txt"), rfs.BytesInput([]byte("x")), rfs.WriteOptions{Create: true})
	require.NoError(t, err)

	err = svc.Delete(ctx, dir, rfs.DeleteOptions{})
	code, ok := rfs.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rfs.CodeFileIsDirectory, code)

	err = svc.Delete(ctx, dir, rfs.DeleteOptions{Recursive: true})
	assert.NoError(t, err)
}

func TestMoveSameProviderRenamesInPlace(t *testing.T) {
	svc, scheme := newMemService(t)
	ctx := context.Background()
	src := rfs.MustParseResource(scheme + "://h/a.txt")
	dst := rfs.MustParseResource(scheme + "://h/b.txt")
	_, err := svc.WriteFile(ctx, src, rfs.BytesInput([]byte("payload")), rfs.WriteOptions{Create: true})
	require.NoError(t, err)

	var kinds []rfs.OperationKind
	svc.OnAfterOperation().Subscribe(func(ev rfs.OperationEvent) { kinds = append(kinds, ev.Kind) })

	_, err = svc.Move(ctx, src, dst, false)
	require.NoError(t, err)

	require.NotEmpty(t, kinds)
	assert.Equal(t, rfs.OperationMove, kinds[len(kinds)-1])
	assert.False(t, svc.Exists(ctx, src), "source should no longer exist after a same-provider move")
	assert.True(t, svc.Exists(ctx, dst), "target should exist after the move")
}

func TestMoveAcrossProvidersFiresCopyEvent(t *testing.T) {
	ctx := context.Background()
	svc := rfs.NewService()
	_, err := svc.RegisterProvider("mem", memprovider.New(afero.NewMemMapFs()))
	require.NoError(t, err)
	_, err = svc.RegisterProvider("file", localprovider.New(t.TempDir()))
	require.NoError(t, err)

	src := rfs.MustParseResource("mem://h/a.txt")
	dst := rfs.MustParseResource("file://h/a.txt")
	_, err = svc.WriteFile(ctx, src, rfs.BytesInput([]byte("cross-provider")), rfs.WriteOptions{Create: true})
	require.NoError(t, err)

	var lastKind rfs.OperationKind
	svc.OnAfterOperation().Subscribe(func(ev rfs.OperationEvent) { lastKind = ev.Kind })

	_, err = svc.Move(ctx, src, dst, false)
	require.NoError(t, err)

	assert.Equal(t, rfs.OperationCopy, lastKind, "a cross-provider move reports as a copy")
	assert.False(t, svc.Exists(ctx, src), "source should be deleted once the cross-provider move completes")

	result, err := svc.ReadFile(ctx, dst, rfs.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "cross-provider", string(result.Value))
}

func TestCopyFromStreamedToUnbufferedProviderUsesBytePipe(t *testing.T) {
	ctx := context.Background()
	svc := rfs.NewService()
	_, err := svc.RegisterProvider("stream", streamprovider.New(afero.NewMemMapFs()))
	require.NoError(t, err)
	_, err = svc.RegisterProvider("mem", memprovider.New(afero.NewMemMapFs()))
	require.NoError(t, err)

	src := rfs.MustParseResource("stream://h/a.txt")
	dst := rfs.MustParseResource("mem://h/a.txt")
	_, err = svc.WriteFile(ctx, src, rfs.BytesInput([]byte("streamed-bytes")), rfs.WriteOptions{Create: true})
	require.NoError(t, err)

	_, err = svc.Copy(ctx, src, dst, false)
	require.NoError(t, err)

	result, err := svc.ReadFile(ctx, dst, rfs.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "streamed-bytes", string(result.Value))
}

func TestWatchMultiplexesIdenticalSubscriptions(t *testing.T) {
	ctx := context.Background()
	svc := rfs.NewService()
	double := fsdouble.New(rfs.FileReadWrite)
	double.SeedDir("/dir")
	_, err := svc.RegisterProvider("dbl", double)
	require.NoError(t, err)

	target := rfs.MustParseResource("dbl://h/dir")
	h1, err := svc.Watch(ctx, target, rfs.WatchOptions{Recursive: true})
	require.NoError(t, err)
	h2, err := svc.Watch(ctx, target, rfs.WatchOptions{Recursive: true})
	require.NoError(t, err)

	// The underlying provider.Watch starts on its own goroutine.
	require.Eventually(t, func() bool { return atomic.LoadInt32(&double.WatchCalls) >= 1 }, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&double.WatchCalls), "two identical subscriptions should share one underlying watch")

	h1.Dispose()
	h2.Dispose()
}

func TestReadFileStreamDrainsPositionalProvider(t *testing.T) {
	ctx := context.Background()
	svc := rfs.NewService()
	_, err := svc.RegisterProvider("file", localprovider.New(t.TempDir()))
	require.NoError(t, err)

	target := rfs.MustParseResource("file://h/f.txt")
	_, err = svc.WriteFile(ctx, target, rfs.BytesInput([]byte("positional-stream")), rfs.WriteOptions{Create: true})
	require.NoError(t, err)

	streamResult, err := svc.ReadFileStream(ctx, target, rfs.ReadOptions{})
	require.NoError(t, err)

	var collected []byte
loop:
	for {
		select {
		case chunk, ok := <-streamResult.Value.Chunks:
			if !ok {
				break loop
			}
			collected = append(collected, chunk...)
		case <-streamResult.Value.Done:
			for len(streamResult.Value.Chunks) > 0 {
				collected = append(collected, <-streamResult.Value.Chunks...)
			}
			break loop
		}
	}
	assert.Equal(t, "positional-stream", string(collected))
}
