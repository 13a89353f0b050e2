package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createInMemoryImage creates an in-memory test image
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createSignalFrame creates a gray frame with a teal block in its right half
func createSignalFrame(width, height int) *image.RGBA {
	img := createInMemoryImage(width, height, color.RGBA{90, 90, 95, 255})
	for y := height / 10; y < height/4; y++ {
		for x := width * 3 / 4; x < width*7/8; x++ {
			img.Set(x, y, color.RGBA{81, 214, 208, 255})
		}
	}
	return img
}

func TestDescribeColor(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		wantHex string
		wantHSL HSLColor
	}{
		{"signal teal", 81, 214, 208, "#51D6D0", HSLColor{H: 177, S: 62, L: 58}},
		{"pure red", 255, 0, 0, "#FF0000", HSLColor{H: 0, S: 100, L: 50}},
		{"pure green", 0, 255, 0, "#00FF00", HSLColor{H: 120, S: 100, L: 50}},
		{"pure blue", 0, 0, 255, "#0000FF", HSLColor{H: 240, S: 100, L: 50}},
		{"white", 255, 255, 255, "#FFFFFF", HSLColor{H: 0, S: 0, L: 100}},
		{"black", 0, 0, 0, "#000000", HSLColor{H: 0, S: 0, L: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DescribeColor(tt.r, tt.g, tt.b)
			if got.Hex != tt.wantHex {
				t.Errorf("Hex: got %s, want %s", got.Hex, tt.wantHex)
			}
			if got.RGB != (RGBColor{tt.r, tt.g, tt.b}) {
				t.Errorf("RGB: got %+v", got.RGB)
			}
			if got.HSL != tt.wantHSL {
				t.Errorf("HSL: got %+v, want %+v", got.HSL, tt.wantHSL)
			}
		})
	}
}

func TestSampleColor(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{81, 214, 208, 255})

	result, err := SampleColor(img, 50, 50)
	if err != nil {
		t.Fatalf("SampleColor failed: %v", err)
	}
	if result.Hex != "#51D6D0" {
		t.Errorf("Hex: got %s, want #51D6D0", result.Hex)
	}
}

func TestSampleColor_OutOfBounds(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 50},
		{"negative y", 50, -1},
		{"x too large", 100, 50},
		{"y too large", 50, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SampleColor(img, tt.x, tt.y); err == nil {
				t.Error("SampleColor should fail for out-of-bounds coordinates")
			}
		})
	}
}

func TestDominantColors_Region(t *testing.T) {
	img := createSignalFrame(80, 80)
	// The teal block spans x [60,70), y [8,20).
	result, err := DominantColors(img, 3, image.Rect(60, 8, 70, 20))
	if err != nil {
		t.Fatalf("DominantColors failed: %v", err)
	}
	if len(result.Colors) != 1 {
		t.Fatalf("expected 1 color, got %d", len(result.Colors))
	}
	if result.Colors[0].Hex != "#50D0D0" {
		t.Errorf("dominant color: got %s, want #50D0D0", result.Colors[0].Hex)
	}
	if result.Colors[0].Percentage != 100 {
		t.Errorf("percentage: got %.1f, want 100", result.Colors[0].Percentage)
	}
}

func TestDominantColors_WholeImageSorted(t *testing.T) {
	img := createSignalFrame(80, 80)
	result, err := DominantColors(img, 5, img.Bounds())
	if err != nil {
		t.Fatalf("DominantColors failed: %v", err)
	}
	if len(result.Colors) != 2 {
		t.Fatalf("expected 2 colors, got %d", len(result.Colors))
	}
	if result.Colors[0].Percentage < result.Colors[1].Percentage {
		t.Error("colors should be sorted by descending frequency")
	}
}

func TestDominantColors_Errors(t *testing.T) {
	img := createInMemoryImage(10, 10, color.White)
	if _, err := DominantColors(img, 0, img.Bounds()); err == nil {
		t.Error("count 0 should fail")
	}
	if _, err := DominantColors(img, 3, image.Rect(20, 20, 30, 30)); err == nil {
		t.Error("non-overlapping region should fail")
	}
}
