package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/image/bmp"
)

// createTestImage creates a simple test image file and returns its path.
// The caller is responsible for removing the file.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	tmpFile, err := os.CreateTemp("", "test-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.images == nil {
		t.Fatal("NewImageCache did not initialize images map")
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 100, color.RGBA{255, 0, 0, 255})
	defer os.Remove(imgPath)

	// First load
	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img1.Width() != 100 || img1.Height() != 100 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x100", img1.Width(), img1.Height())
	}

	// Second load should return cached image
	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	_, err := cache.Load("/nonexistent/path/to/image.png")
	if err == nil {
		t.Error("Load should fail for non-existent file")
	}
}

func TestImageCache_Load_NotAnImage(t *testing.T) {
	cache := NewImageCache()

	// Text content behind an image extension
	tmpFile, err := os.CreateTemp("", "invalid-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.WriteString("not an image")
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	_, err = cache.Load(tmpFile.Name())
	if !errors.Is(err, ErrInvalidFileType) {
		t.Errorf("got %v, want ErrInvalidFileType", err)
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache()
	path1 := createTestImage(t, 10, 10, color.RGBA{255, 0, 0, 255})
	defer os.Remove(path1)
	path2 := createTestImage(t, 10, 10, color.RGBA{0, 255, 0, 255})
	defer os.Remove(path2)

	cache.Load(path1)
	cache.Load(path2)

	cache.Evict(path1)
	if _, ok := cache.images[path1]; ok {
		t.Error("Evict did not remove image")
	}
	if _, ok := cache.images[path2]; !ok {
		t.Error("Evict removed the wrong image")
	}

	// Should not panic
	cache.Evict("/nonexistent/path")

	cache.Clear()
	if len(cache.images) != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", len(cache.images))
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})
	defer os.Remove(imgPath)

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	// Concurrent loads
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestImageCache_Info(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 200, 150, color.RGBA{255, 128, 64, 255})
	defer os.Remove(imgPath)

	info, err := cache.Info(imgPath)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}

	if info.Width != 200 {
		t.Errorf("Width: got %d, want 200", info.Width)
	}
	if info.Height != 150 {
		t.Errorf("Height: got %d, want 150", info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", info.MimeType)
	}
	if info.HasAlpha {
		t.Error("opaque image reported alpha")
	}
	if info.SizeBytes <= 0 {
		t.Error("SizeBytes should be positive")
	}
}

func TestImageCache_FormatSniffing(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))

	tests := []struct {
		name   string
		format string
		encode func(io.Writer, image.Image) error
	}{
		{"png", "png", png.Encode},
		{"jpeg", "jpeg", func(w io.Writer, m image.Image) error { return jpeg.Encode(w, m, nil) }},
		{"gif", "gif", func(w io.Writer, m image.Image) error { return gif.Encode(w, m, nil) }},
		{"bmp", "bmp", bmp.Encode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The extension is deliberately wrong; format comes from content.
			path := filepath.Join(t.TempDir(), "image.xyz")
			f, err := os.Create(path)
			if err != nil {
				t.Fatalf("failed to create file: %v", err)
			}
			if err := tt.encode(f, src); err != nil {
				t.Fatalf("failed to encode: %v", err)
			}
			f.Close()

			info, err := NewImageCache().Info(path)
			if err != nil {
				t.Fatalf("Info failed: %v", err)
			}
			if info.Format != tt.format {
				t.Errorf("Format: got %s, want %s", info.Format, tt.format)
			}
		})
	}
}

func TestDecodeConfig(t *testing.T) {
	data, err := Encode(createPatternRaster(30, 20), EncodeRequest{Format: FormatPNG})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	size, format, err := DecodeConfig(data)
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if size != (Size{30, 20}) || format != "png" {
		t.Errorf("got %v %s, want {30 20} png", size, format)
	}

	if _, _, err := DecodeConfig([]byte("garbage")); !errors.Is(err, ErrInvalidFileType) {
		t.Errorf("got %v, want ErrInvalidFileType", err)
	}
}
