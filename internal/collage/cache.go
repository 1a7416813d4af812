package collage

import (
	"bytes"
	"context"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/corona10/goimagehash"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// PhotoSource supplies up to max photo buffers for a posting, resolving
// media-group siblings itself.
type PhotoSource interface {
	GroupPhotos(ctx context.Context, channel string, postingID, max int) ([][]byte, error)
}

// BlobStore is the remote storage tier: upload dedups by exact name within
// a folder and returns a durable public URL.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, name, folder string) (string, error)
	Download(ctx context.Context, ref string) ([]byte, error)
}

// maxCollagePhotos caps how many photos one collage is built from.
const maxCollagePhotos = 3

// nearDupDistance is the goimagehash difference-hash distance at or below
// which two photos of a media group count as the same shot.
const nearDupDistance = 5

// nearDupColorDelta is the largest per-channel mean color difference (8-bit)
// at which two flat images still count as the same shot.
const nearDupColorDelta = 16.0

// CacheOptions configures the materialization cache.
type CacheOptions struct {
	Dir               string // local artifact directory
	RemoteFolder      string // folder name at the remote store
	MaxParallelPhotos int64  // process-wide photo download permit pool
}

// Cache guarantees a rendered collage for an offer group, resolving through
// three tiers: in-memory bytes by posting id, local disk by group slug, and
// the remote store via the URL index. Each hit back-fills the faster tiers.
// A nil result means the caller degrades to a text-only card.
type Cache struct {
	comp   Compositor
	photos PhotoSource
	blobs  BlobStore // nil disables the remote tier
	index  *Index
	dir    string
	folder string
	sem    *semaphore.Weighted
	wg     sync.WaitGroup

	mu  sync.Mutex
	mem map[int][]byte
}

// NewCache builds a Cache. blobs may be nil, in which case only the memory
// and disk tiers operate.
func NewCache(comp Compositor, photos PhotoSource, blobs BlobStore, index *Index, opts CacheOptions) *Cache {
	if opts.MaxParallelPhotos <= 0 {
		opts.MaxParallelPhotos = 6
	}
	if opts.RemoteFolder == "" {
		opts.RemoteFolder = "collages"
	}
	return &Cache{
		comp:   comp,
		photos: photos,
		blobs:  blobs,
		index:  index,
		dir:    opts.Dir,
		folder: opts.RemoteFolder,
		sem:    semaphore.NewWeighted(opts.MaxParallelPhotos),
		mem:    make(map[int][]byte),
	}
}

// Ensure returns the collage bytes for the group, materializing them on
// first use. Idempotent: repeat calls for a posting or group answer from
// cache without further network or disk work. Concurrent cold paths for one
// slug can race; the duplicate work is absorbed by the remote store's
// dedup-by-name upload.
func (c *Cache) Ensure(ctx context.Context, channel, groupSlug string, postingID int) []byte {
	if data := c.fromMemory(postingID); data != nil {
		return data
	}

	localPath := filepath.Join(c.dir, groupSlug+".jpg")
	if data, err := os.ReadFile(localPath); err == nil && len(data) > 0 {
		c.toMemory(postingID, data)
		return data
	}

	if c.blobs != nil && c.index != nil {
		if url, ok := c.index.Get(groupSlug); ok {
			data, err := c.blobs.Download(ctx, url)
			if err == nil && len(data) > 0 {
				c.persistLocal(localPath, data)
				c.toMemory(postingID, data)
				return data
			}
			// A broken remote reference is not fatal; rebuild from photos.
			zap.L().Warn("collage: remote download failed",
				zap.String("slug", groupSlug), zap.Error(err))
		}
	}

	return c.materialize(ctx, channel, groupSlug, postingID, localPath)
}

func (c *Cache) materialize(ctx context.Context, channel, groupSlug string, postingID int, localPath string) []byte {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil
	}
	photos, err := c.photos.GroupPhotos(ctx, channel, postingID, maxCollagePhotos)
	c.sem.Release(1)
	if err != nil {
		zap.L().Warn("collage: photo fetch failed",
			zap.String("channel", channel), zap.Int("posting", postingID), zap.Error(err))
		return nil
	}
	if len(photos) == 0 {
		return nil
	}

	data := c.comp.Compose(dedupePhotos(photos))
	if data == nil {
		zap.L().Debug("collage: compose yielded nothing", zap.String("slug", groupSlug))
		return nil
	}

	c.persistLocal(localPath, data)
	c.toMemory(postingID, data)

	if c.blobs != nil {
		c.wg.Add(1)
		go c.uploadRemote(groupSlug, data)
	}
	return data
}

// uploadRemote pushes the artifact to the remote tier in the background.
// Failures are tolerated: the artifact stays valid locally.
func (c *Cache) uploadRemote(groupSlug string, data []byte) {
	defer c.wg.Done()

	url, err := c.blobs.Upload(context.Background(), data, groupSlug+".jpg", c.folder)
	if err != nil {
		zap.L().Warn("collage: remote upload failed", zap.String("slug", groupSlug), zap.Error(err))
		return
	}
	if c.index != nil {
		if err := c.index.Put(groupSlug, url); err != nil {
			zap.L().Warn("collage: url index write failed", zap.String("slug", groupSlug), zap.Error(err))
		}
	}
}

// Wait blocks until in-flight background uploads finish. Called on shutdown.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) fromMemory(postingID int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem[postingID]
}

func (c *Cache) toMemory(postingID int, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[postingID] = data
}

func (c *Cache) persistLocal(path string, data []byte) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		zap.L().Warn("collage: create cache dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		zap.L().Warn("collage: write local artifact", zap.String("path", path), zap.Error(err))
	}
}

// photoSig identifies one decoded photo for duplicate detection: a
// difference hash for structure, plus the mean color for images the hash
// cannot see. The difference hash encodes horizontal gradients only, so
// every flat image (logo, rendered floor plan) hashes to zero regardless of
// its color.
type photoSig struct {
	hash *goimagehash.ImageHash
	mean [3]float64
}

// near reports whether two photos count as the same shot. Flat images all
// share the zero hash, so those are judged by mean color instead.
func (s photoSig) near(other photoSig) bool {
	d, err := s.hash.Distance(other.hash)
	if err != nil || d > nearDupDistance {
		return false
	}
	if s.hash.GetHash() == 0 && other.hash.GetHash() == 0 {
		return colorDelta(s.mean, other.mean) <= nearDupColorDelta
	}
	return true
}

// dedupePhotos drops media-group photos that are visually the same shot
// (thumbnails re-attached per sibling posting are common). Buffers that do
// not decode are dropped here so one bad photo does not sink the collage.
func dedupePhotos(buffers [][]byte) [][]byte {
	kept := make([][]byte, 0, len(buffers))
	var sigs []photoSig

	for _, b := range buffers {
		img, _, err := image.Decode(bytes.NewReader(b))
		if err != nil {
			continue
		}
		h, err := goimagehash.DifferenceHash(img)
		if err != nil {
			kept = append(kept, b)
			continue
		}
		sig := photoSig{hash: h, mean: meanColor(img)}
		dup := false
		for _, prev := range sigs {
			if prev.near(sig) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, b)
			sigs = append(sigs, sig)
		}
	}
	return kept
}

// meanColor samples the image on a coarse grid and returns the average RGB
// in 8-bit channels.
func meanColor(img image.Image) [3]float64 {
	bounds := img.Bounds()
	stepX := bounds.Dx()/32 + 1
	stepY := bounds.Dy()/32 + 1

	var r, g, b, n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			r += float64(pr >> 8)
			g += float64(pg >> 8)
			b += float64(pb >> 8)
			n++
		}
	}
	if n == 0 {
		return [3]float64{}
	}
	return [3]float64{r / n, g / n, b / n}
}

func colorDelta(a, b [3]float64) float64 {
	var worst float64
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > worst {
			worst = d
		}
	}
	return worst
}
