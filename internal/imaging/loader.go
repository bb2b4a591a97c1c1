package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"net/http"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ImageCache provides thread-safe caching of decoded image files.
//
// Rasters are keyed by the exact path string. Cached rasters are shared, so
// callers must treat them as read-only; every pipeline operation already
// returns a new raster rather than mutating its input.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	r, err := cache.Load("/path/to/photo.jpg")
//	if err != nil {
//	    return err
//	}
//	cache.Evict("/path/to/photo.jpg") // Optional: free memory
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*cachedImage
}

type cachedImage struct {
	raster *Raster
	info   ImageInfo
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*cachedImage),
	}
}

// Load retrieves a raster from the cache or reads and decodes the file.
//
// The MIME type is sniffed from the file contents rather than trusted from the
// extension; non-image files fail with ErrInvalidFileType.
func (c *ImageCache) Load(path string) (*Raster, error) {
	entry, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return entry.raster, nil
}

// Info returns metadata for a file, loading it into the cache if needed.
func (c *ImageCache) Info(path string) (*ImageInfo, error) {
	entry, err := c.load(path)
	if err != nil {
		return nil, err
	}
	info := entry.info
	return &info, nil
}

func (c *ImageCache) load(path string) (*cachedImage, error) {
	c.mu.RLock()
	if entry, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return entry, nil
	}
	c.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	r, info, err := DecodeBytes(data, http.DetectContentType(data))
	if err != nil {
		return nil, err
	}

	entry := &cachedImage{raster: r, info: *info}
	c.mu.Lock()
	c.images[path] = entry
	c.mu.Unlock()

	return entry, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*cachedImage)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a decoded image.
type ImageInfo struct {
	// Width is the natural width in pixels.
	Width int `json:"width"`

	// Height is the natural height in pixels.
	Height int `json:"height"`

	// Format is the format reported by the decoder: "png", "jpeg", "gif",
	// "webp" or "bmp".
	Format string `json:"format"`

	// MimeType is the declared or sniffed MIME type of the source bytes.
	MimeType string `json:"mime_type"`

	// HasAlpha is true when at least one pixel is not fully opaque.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the size of the encoded source.
	SizeBytes int64 `json:"size_bytes"`
}

// DecodeBytes decodes an in-memory image after validating its MIME type.
func DecodeBytes(data []byte, mimeType string) (*Raster, *ImageInfo, error) {
	r, format, err := Decode(bytes.NewReader(data), mimeType)
	if err != nil {
		return nil, nil, err
	}
	return r, &ImageInfo{
		Width:     r.Width(),
		Height:    r.Height(),
		Format:    format,
		MimeType:  mimeType,
		HasAlpha:  r.HasAlpha(),
		SizeBytes: int64(len(data)),
	}, nil
}

// DecodeConfig reads only the header of an image and reports its size.
func DecodeConfig(data []byte) (Size, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Size{}, "", fmt.Errorf("failed to read image header: %v: %w", err, ErrInvalidFileType)
	}
	return Size{W: cfg.Width, H: cfg.Height}, format, nil
}
