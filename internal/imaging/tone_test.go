package imaging

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestAdjustTone_Identity(t *testing.T) {
	img := createGradientRaster(64, 64)

	out, err := AdjustTone(img, DefaultTone)
	if err != nil {
		t.Fatalf("AdjustTone failed: %v", err)
	}
	if !out.Equal(img) {
		t.Error("brightness=100 contrast=100 should reproduce the input exactly")
	}
	if out == img {
		t.Error("AdjustTone should return a new raster")
	}
}

func TestAdjustTone_Brightness(t *testing.T) {
	tests := []struct {
		name       string
		brightness int
		in         uint8
		want       uint8
	}{
		{"plus 50 dark", 150, 10, 138},
		{"plus 50 mid", 150, 128, 255},
		{"plus 50 saturates", 150, 200, 255},
		{"minus 50", 50, 200, 73},
		{"minus 50 floors", 50, 100, 0},
		{"max", 200, 0, 255},
		{"min", 0, 255, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createSolidRaster(3, 3, color.NRGBA{tt.in, tt.in, tt.in, 77})
			out, err := AdjustTone(img, ToneSettings{Brightness: tt.brightness, Contrast: 100})
			if err != nil {
				t.Fatalf("AdjustTone failed: %v", err)
			}
			got := out.At(1, 1)
			if got.R != tt.want || got.G != tt.want || got.B != tt.want {
				t.Errorf("got %v, want channels %d", got, tt.want)
			}
			if got.A != 77 {
				t.Errorf("alpha: got %d, want 77", got.A)
			}
		})
	}
}

func TestAdjustTone_Contrast(t *testing.T) {
	tests := []struct {
		name     string
		contrast int
		in       uint8
		want     uint8
	}{
		{"max stretches black", 200, 0, 0},
		{"max stretches white", 200, 255, 255},
		{"max keeps midpoint", 200, 128, 128},
		{"min pulls black up", 0, 0, 72},
		{"min pulls white down", 0, 255, 184},
		{"min keeps midpoint", 0, 128, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createSolidRaster(2, 2, color.NRGBA{tt.in, tt.in, tt.in, 255})
			out, err := AdjustTone(img, ToneSettings{Brightness: 100, Contrast: tt.contrast})
			if err != nil {
				t.Fatalf("AdjustTone failed: %v", err)
			}
			if got := out.At(0, 0).R; got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAdjustTone_AllSettingsPreserveAlpha(t *testing.T) {
	img := createGradientRaster(32, 32)

	for b := 0; b <= 200; b += 25 {
		for c := 0; c <= 200; c += 25 {
			out, err := AdjustTone(img, ToneSettings{Brightness: b, Contrast: c})
			if err != nil {
				t.Fatalf("b=%d c=%d: %v", b, c, err)
			}
			if out.Size() != img.Size() {
				t.Fatalf("b=%d c=%d: size changed", b, c)
			}
			for y := 0; y < 32; y++ {
				for x := 0; x < 32; x++ {
					if out.At(x, y).A != img.At(x, y).A {
						t.Fatalf("b=%d c=%d: alpha changed at (%d,%d)", b, c, x, y)
					}
				}
			}
		}
	}
}

func TestAdjustTone_Invalid(t *testing.T) {
	img := createSolidRaster(2, 2, color.NRGBA{1, 2, 3, 255})

	invalid := []ToneSettings{
		{Brightness: -1, Contrast: 100},
		{Brightness: 201, Contrast: 100},
		{Brightness: 100, Contrast: -5},
		{Brightness: 100, Contrast: 300},
	}
	for _, s := range invalid {
		if _, err := AdjustTone(img, s); !errors.Is(err, ErrInvalidTone) {
			t.Errorf("%+v: got %v, want ErrInvalidTone", s, err)
		}
	}
}

func TestContrastFactor(t *testing.T) {
	if f := contrastFactor(100); f != 1 {
		t.Errorf("contrastFactor(100): got %v, want 1", f)
	}
	if f := contrastFactor(200); f <= 1 {
		t.Errorf("contrastFactor(200): got %v, want > 1", f)
	}
	if f := contrastFactor(0); f <= 0 || f >= 1 {
		t.Errorf("contrastFactor(0): got %v, want in (0,1)", f)
	}

	// The raw formula divides by zero here and turns negative beyond it.
	for _, c := range []int{359, 360, 500} {
		f := contrastFactor(c)
		if math.IsInf(f, 0) || math.IsNaN(f) || f != maxContrastFactor {
			t.Errorf("contrastFactor(%d): got %v, want %v", c, f, maxContrastFactor)
		}
	}
}

func TestToneSettings_IsIdentity(t *testing.T) {
	if !DefaultTone.IsIdentity() {
		t.Error("DefaultTone should be the identity")
	}
	if (ToneSettings{Brightness: 100, Contrast: 101}).IsIdentity() {
		t.Error("contrast 101 is not the identity")
	}
}
