package collage

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePhotoSource struct {
	mu     sync.Mutex
	calls  int
	photos [][]byte
	err    error
}

func (f *fakePhotoSource) GroupPhotos(_ context.Context, _ string, _ int, _ int) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.photos, f.err
}

func (f *fakePhotoSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBlobStore struct {
	mu        sync.Mutex
	uploads   int
	downloads int
	objects   map[string][]byte
	uploadErr error
	dlErr     error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) Upload(_ context.Context, data []byte, name, folder string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	key := folder + "/" + name
	if _, exists := f.objects[key]; !exists {
		f.objects[key] = data
		f.uploads++
	}
	return "https://cdn.example/" + key, nil
}

func (f *fakeBlobStore) Download(_ context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	if f.dlErr != nil {
		return nil, f.dlErr
	}
	data, ok := f.objects[ref[len("https://cdn.example/"):]]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func testPhotos(t *testing.T) [][]byte {
	t.Helper()
	return [][]byte{
		pngBytes(t, 64, 48, color.RGBA{R: 250, A: 255}),
		pngBytes(t, 48, 64, color.RGBA{G: 250, A: 255}),
	}
}

func newTestCache(t *testing.T, src PhotoSource, blobs BlobStore, idx *Index) *Cache {
	t.Helper()
	return NewCache(NewCompositor(160, 90, 85), src, blobs, idx, CacheOptions{
		Dir:               t.TempDir(),
		RemoteFolder:      "collages",
		MaxParallelPhotos: 2,
	})
}

func TestEnsureColdPathOnceThenCached(t *testing.T) {
	t.Parallel()

	src := &fakePhotoSource{photos: testPhotos(t)}
	blobs := newFakeBlobStore()
	idx := LoadIndex(filepath.Join(t.TempDir(), "index.yaml"))
	cache := newTestCache(t, src, blobs, idx)

	first := cache.Ensure(context.Background(), "warehouses", "склад_позняки", 55)
	require.NotNil(t, first)
	cache.Wait()

	second := cache.Ensure(context.Background(), "warehouses", "склад_позняки", 55)
	cache.Wait()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.callCount(), "second call must not refetch photos")
	assert.Equal(t, 1, blobs.uploads)

	url, ok := idx.Get("склад_позняки")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example/collages/склад_позняки.jpg", url)
}

func TestEnsureSlugCollisionSharesCollage(t *testing.T) {
	t.Parallel()

	src := &fakePhotoSource{photos: testPhotos(t)}
	cache := newTestCache(t, src, nil, nil)

	a := cache.Ensure(context.Background(), "offices", "бц_парус", 10)
	require.NotNil(t, a)

	// A different posting with the same slug reuses the disk artifact.
	b := cache.Ensure(context.Background(), "offices", "бц_парус", 11)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, src.callCount())
}

func TestEnsureRemoteTierBackfillsLocalTiers(t *testing.T) {
	t.Parallel()

	blobs := newFakeBlobStore()
	blobs.objects["collages/бц_форум.jpg"] = []byte("remote-bytes")

	dir := t.TempDir()
	idx := LoadIndex(filepath.Join(dir, "index.yaml"))
	require.NoError(t, idx.Put("бц_форум", "https://cdn.example/collages/бц_форум.jpg"))

	src := &fakePhotoSource{photos: testPhotos(t)}
	cache := NewCache(NewCompositor(160, 90, 85), src, blobs, idx, CacheOptions{
		Dir: dir, RemoteFolder: "collages", MaxParallelPhotos: 2,
	})

	data := cache.Ensure(context.Background(), "offices", "бц_форум", 77)
	assert.Equal(t, []byte("remote-bytes"), data)
	assert.Zero(t, src.callCount(), "remote hit must skip the cold path")

	// Disk got back-filled.
	onDisk, err := os.ReadFile(filepath.Join(dir, "бц_форум.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("remote-bytes"), onDisk)
}

func TestEnsureBrokenRemoteReferenceFallsThrough(t *testing.T) {
	t.Parallel()

	blobs := newFakeBlobStore() // index points at an object that is gone
	idx := LoadIndex(filepath.Join(t.TempDir(), "index.yaml"))
	require.NoError(t, idx.Put("зниклий", "https://cdn.example/collages/зниклий.jpg"))

	src := &fakePhotoSource{photos: testPhotos(t)}
	cache := newTestCache(t, src, blobs, idx)

	data := cache.Ensure(context.Background(), "offices", "зниклий", 3)
	require.NotNil(t, data)
	assert.Equal(t, 1, src.callCount(), "broken remote reference rebuilds from photos")
}

func TestEnsureNoPhotosDegradesToNil(t *testing.T) {
	t.Parallel()

	src := &fakePhotoSource{photos: nil}
	cache := newTestCache(t, src, nil, nil)
	assert.Nil(t, cache.Ensure(context.Background(), "offices", "порожньо", 1))
}

func TestEnsureUploadFailureStaysLocal(t *testing.T) {
	t.Parallel()

	src := &fakePhotoSource{photos: testPhotos(t)}
	blobs := newFakeBlobStore()
	blobs.uploadErr = os.ErrPermission
	idx := LoadIndex(filepath.Join(t.TempDir(), "index.yaml"))
	cache := newTestCache(t, src, blobs, idx)

	data := cache.Ensure(context.Background(), "offices", "локальний", 8)
	require.NotNil(t, data)
	cache.Wait()

	_, ok := idx.Get("локальний")
	assert.False(t, ok, "failed upload must not be indexed")

	// The artifact still serves from the local tiers.
	assert.Equal(t, data, cache.Ensure(context.Background(), "offices", "локальний", 8))
}

func TestDedupePhotosDropsNearDuplicates(t *testing.T) {
	t.Parallel()

	same := pngBytes(t, 32, 32, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	other := pngBytes(t, 32, 32, color.RGBA{R: 255, A: 255})

	kept := dedupePhotos([][]byte{same, same, other})
	assert.Len(t, kept, 2)
}

func TestDedupePhotosKeepsDistinctFlatColors(t *testing.T) {
	t.Parallel()

	// Flat images carry no gradient signal for the difference hash; a gray
	// floor plan must not swallow a red logo.
	gray := pngBytes(t, 32, 32, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	red := pngBytes(t, 32, 32, color.RGBA{R: 255, A: 255})
	green := pngBytes(t, 32, 32, color.RGBA{G: 255, A: 255})

	kept := dedupePhotos([][]byte{gray, red, green})
	assert.Len(t, kept, 3)
}

func TestDedupePhotosDropsUndecodable(t *testing.T) {
	t.Parallel()

	ok := pngBytes(t, 16, 16, color.RGBA{B: 255, A: 255})
	kept := dedupePhotos([][]byte{[]byte("junk"), ok})
	require.Len(t, kept, 1)
	assert.Equal(t, ok, kept[0])
}
