package funkin

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"path"
	"sync"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ImageLoader decodes an image on demand.
type ImageLoader interface {
	LoadImage(path string) (image.Image, error)
}

// FSImageLoader decodes PNG and WebP images from a file system.
type FSImageLoader struct {
	FS fs.FS
}

// LoadImage implements ImageLoader.
func (l FSImageLoader) LoadImage(name string) (image.Image, error) {
	f, err := l.FS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("funkin: open image %s: %w", name, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("funkin: decode image %s: %w", name, err)
	}
	return img, nil
}

// SpriteAsset is a decoded atlas image together with its description.
type SpriteAsset struct {
	Name  string
	Image image.Image
	Atlas *AtlasData
}

// defaultLoadLimit bounds concurrent decodes in LoadSprites.
const defaultLoadLimit = 4

// AssetLoader reads sprite sheets from a file system. Atlas descriptions are
// parsed once per path and served from memory until invalidated; concurrent
// requests for the same path share one parse.
type AssetLoader struct {
	fs     fs.FS
	images ImageLoader

	// Dir is the directory holding "<asset>.xml" / "<asset>.png" pairs.
	Dir string
	// ImageExt is the extension of atlas images, ".png" by default.
	ImageExt string

	group   singleflight.Group
	mu      sync.Mutex
	atlases map[string]*AtlasData
}

// NewAssetLoader creates a loader reading from fsys under dir.
func NewAssetLoader(fsys fs.FS, dir string) *AssetLoader {
	return &AssetLoader{
		fs:       fsys,
		images:   FSImageLoader{FS: fsys},
		Dir:      dir,
		ImageExt: ".png",
		atlases:  make(map[string]*AtlasData),
	}
}

// SetImageLoader replaces the image decoder.
func (l *AssetLoader) SetImageLoader(il ImageLoader) {
	l.images = il
}

// Atlas returns the full parse of the description at p. The result is a
// private copy the caller may modify.
func (l *AssetLoader) Atlas(p string) (*AtlasData, error) {
	a, err := l.cachedAtlas(p)
	if err != nil {
		return nil, err
	}
	return a.Clone(), nil
}

// AtlasAnimation returns the description at p restricted to one animation.
// Frame indices match the full parse.
func (l *AssetLoader) AtlasAnimation(p, anim string) (*AtlasData, error) {
	a, err := l.cachedAtlas(p)
	if err != nil {
		return nil, err
	}
	return a.Filter(anim), nil
}

func (l *AssetLoader) cachedAtlas(p string) (*AtlasData, error) {
	l.mu.Lock()
	if a, ok := l.atlases[p]; ok {
		l.mu.Unlock()
		return a, nil
	}
	l.mu.Unlock()

	v, err, _ := l.group.Do(p, func() (any, error) {
		data, err := fs.ReadFile(l.fs, p)
		if err != nil {
			return nil, fmt.Errorf("funkin: read atlas %s: %w", p, err)
		}
		a, err := ParseSparrow(data, ParseOptions{})
		if err != nil {
			return nil, fmt.Errorf("funkin: load atlas %s: %w", p, err)
		}
		l.mu.Lock()
		l.atlases[p] = a
		l.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AtlasData), nil
}

// Invalidate drops the cached parse of p.
func (l *AssetLoader) Invalidate(p string) {
	l.mu.Lock()
	delete(l.atlases, p)
	l.mu.Unlock()
	l.group.Forget(p)
}

// InvalidateAll drops every cached parse.
func (l *AssetLoader) InvalidateAll() {
	l.mu.Lock()
	for p := range l.atlases {
		delete(l.atlases, p)
		l.group.Forget(p)
	}
	l.mu.Unlock()
}

func (l *AssetLoader) cached(p string) (*AtlasData, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.atlases[p]
	return a, ok
}

func (l *AssetLoader) store(p string, a *AtlasData) {
	l.mu.Lock()
	l.atlases[p] = a
	l.mu.Unlock()
}

// Cached reports whether p has a cached parse.
func (l *AssetLoader) Cached(p string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.atlases[p]
	return ok
}

// AtlasPath returns the description path for an asset name.
func (l *AssetLoader) AtlasPath(name string) string {
	return path.Join(l.Dir, name+".xml")
}

// ImagePath returns the image path for an asset name.
func (l *AssetLoader) ImagePath(name string) string {
	ext := l.ImageExt
	if ext == "" {
		ext = ".png"
	}
	return path.Join(l.Dir, name+ext)
}

// LoadSprite decodes the image and description of one asset.
func (l *AssetLoader) LoadSprite(name string) (*SpriteAsset, error) {
	atlas, err := l.Atlas(l.AtlasPath(name))
	if err != nil {
		return nil, err
	}
	img, err := l.images.LoadImage(l.ImagePath(name))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	debugCheckBounds(name, atlas, b.Dx(), b.Dy())
	return &SpriteAsset{Name: name, Image: img, Atlas: atlas}, nil
}

// LoadSprites loads several assets concurrently. The first failure cancels
// the remaining loads and is returned.
func (l *AssetLoader) LoadSprites(ctx context.Context, names ...string) (map[string]*SpriteAsset, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultLoadLimit)

	results := make([]*SpriteAsset, len(names))
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			asset, err := l.LoadSprite(name)
			if err != nil {
				return err
			}
			results[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*SpriteAsset, len(names))
	for _, a := range results {
		out[a.Name] = a
	}
	return out, nil
}
