package symbology

import (
	"context"
	"time"

	"github.com/c-pro/geche"
)

// CachedRenderer memoizes rendered images for a limited time. Rotating
// payloads are re-requested every second but change once per period, so
// most ticks are served from the cache.
type CachedRenderer struct {
	next   Renderer
	images geche.Geche[string, Image]
}

// NewCachedRenderer wraps next. The cache is cleaned up until ctx is done.
func NewCachedRenderer(ctx context.Context, next Renderer, ttl time.Duration) *CachedRenderer {
	return &CachedRenderer{
		next:   next,
		images: geche.NewMapTTLCache[string, Image](ctx, ttl, ttl),
	}
}

func (c *CachedRenderer) RenderQR(content string) (Image, error) {
	return c.render(FormatQR, content, c.next.RenderQR)
}

func (c *CachedRenderer) RenderPDF417(content string) (Image, error) {
	return c.render(FormatPDF417, content, c.next.RenderPDF417)
}

// Len returns the number of cached images.
func (c *CachedRenderer) Len() int {
	return c.images.Len()
}

func (c *CachedRenderer) render(format Format, content string, fn func(string) (Image, error)) (Image, error) {
	key := string(format) + ":" + content
	if img, err := c.images.Get(key); err == nil {
		return img, nil
	}

	img, err := fn(content)
	if err != nil {
		return Image{}, err
	}
	c.images.Set(key, img)
	return img, nil
}
