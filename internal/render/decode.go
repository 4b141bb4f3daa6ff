package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/rook-computer/covermaker/internal/imagecache"
	"github.com/rook-computer/covermaker/internal/state"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode wraps every failure to turn an image source into pixels.
var ErrDecode = errors.New("image decode failed")

// DefaultMaxPixels is the largest image, in pixels, a decoder accepts.
const DefaultMaxPixels = 64 << 20

// ImageDecoder decodes image sources without blocking the caller. done is
// invoked exactly once, from any goroutine.
type ImageDecoder interface {
	Decode(src *state.ImageSource, done func(image.Image, error))
}

// AsyncDecoder decodes on a goroutine per request and keeps decoded images
// in an LRU keyed by ImageSource.Key.
type AsyncDecoder struct {
	cache *imagecache.Cache[image.Image]

	mu       sync.Mutex
	inflight int
	idle     chan struct{} // closed while inflight is zero

	// MaxPixels bounds width*height of a decoded image. Larger images fail
	// before any pixel memory is allocated.
	MaxPixels int

	// BeforeDecode, when set, runs ahead of every decode; a non-nil error
	// fails that decode. Used by the simulator for fault injection.
	BeforeDecode func(src *state.ImageSource) error
}

func NewAsyncDecoder(cache *imagecache.Cache[image.Image]) *AsyncDecoder {
	if cache == nil {
		cache = imagecache.New[image.Image](imagecache.DefaultCapacity)
	}
	idle := make(chan struct{})
	close(idle)
	return &AsyncDecoder{cache: cache, idle: idle, MaxPixels: DefaultMaxPixels}
}

func (d *AsyncDecoder) Decode(src *state.ImageSource, done func(image.Image, error)) {
	d.mu.Lock()
	if d.inflight == 0 {
		d.idle = make(chan struct{})
	}
	d.inflight++
	d.mu.Unlock()

	go func() {
		defer d.finish()
		img, err := d.DecodeNow(src)
		done(img, err)
	}()
}

func (d *AsyncDecoder) finish() {
	d.mu.Lock()
	d.inflight--
	if d.inflight == 0 {
		close(d.idle)
	}
	d.mu.Unlock()
}

// DecodeNow decodes src on the calling goroutine, consulting the cache.
func (d *AsyncDecoder) DecodeNow(src *state.ImageSource) (image.Image, error) {
	if src.Empty() {
		return nil, fmt.Errorf("%w: empty source", ErrDecode)
	}
	if d.BeforeDecode != nil {
		if err := d.BeforeDecode(src); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecode, src.Name, err)
		}
	}
	if img, ok := d.cache.Get(src.Key()); ok {
		return img, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, src.Name, err)
	}
	if limit := d.MaxPixels; limit > 0 && (cfg.Width > limit || cfg.Height > limit || cfg.Width*cfg.Height > limit) {
		return nil, fmt.Errorf("%w: %s: %dx%d exceeds %d pixels", ErrDecode, src.Name, cfg.Width, cfg.Height, limit)
	}
	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, src.Name, err)
	}
	d.cache.Set(src.Key(), img)
	return img, nil
}

// Wait blocks until every decode issued so far has called done.
func (d *AsyncDecoder) Wait() { _ = d.WaitContext(context.Background()) }

// WaitContext is Wait bounded by ctx. It returns once the decoder has been
// idle at least once since the call, so decodes issued later do not extend
// the wait indefinitely.
func (d *AsyncDecoder) WaitContext(ctx context.Context) error {
	d.mu.Lock()
	idle := d.idle
	d.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClearCache drops every decoded image.
func (d *AsyncDecoder) ClearCache() { d.cache.Clear() }
