package proposal

import (
	"errors"
	"testing"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
)

func TestFitterGeometry(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		destWidth     int
		destHeight    int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 640, 640, 0, 140, 0.50},
		{800, 1000, 640, 640, 64, 0, 0.64},
		{800, 800, 640, 640, 0, 0, 0.8},
	}

	for _, tc := range tests {
		fitter := NewFitter(tc.srcWidth, tc.srcHeight, tc.destWidth,
			tc.destHeight)

		if fitter.XPad() != tc.expectedXPad || fitter.YPad() != tc.expectedYPad {
			t.Errorf("Test failed for src (%d, %d): Padding values wrong, expected XPad=%d, YPad=%d, got xPad=%d, yPad=%d",
				tc.srcWidth, tc.srcHeight, tc.expectedXPad, tc.expectedYPad,
				fitter.XPad(), fitter.YPad())
		}

		if fitter.ScaleFactor() != tc.expectedScale {
			t.Errorf("Test failed for src (%d, %d): Scalefactor incorrect, expected %f, got %f",
				tc.srcWidth, tc.srcHeight, tc.expectedScale,
				fitter.ScaleFactor())
		}

		fitter.Close()
	}
}

func TestFitMask(t *testing.T) {

	// frame 8x4 letterboxed into detector 4x4: scale 0.5, content rows 1-2
	fitter := NewFitter(8, 4, 4, 4)
	defer fitter.Close()

	src := mask.NewMask(4, 4)
	copy(src.Pix[4:8], []uint8{1, 1, 0, 0})
	copy(src.Pix[8:12], []uint8{0, 0, 1, 1})

	out, err := fitter.FitMask(src)

	if err != nil {
		t.Fatalf("FitMask error: %v", err)
	}

	want := []uint8{
		1, 1, 1, 1, 0, 0, 0, 0,
		1, 1, 1, 1, 0, 0, 0, 0,
		0, 0, 0, 0, 1, 1, 1, 1,
		0, 0, 0, 0, 1, 1, 1, 1,
	}

	for i, p := range out.Pix {
		if p != want[i] {
			t.Errorf("pixel %d = %d, want %d", i, p, want[i])
		}
	}

	_, err = fitter.FitMask(mask.NewMask(8, 8))

	if !errors.Is(err, tracker.ErrBadDims) {
		t.Errorf("FitMask error = %v, want ErrBadDims", err)
	}
}

func TestFitLabel(t *testing.T) {

	fitter := NewFitter(8, 4, 4, 4)
	defer fitter.Close()

	src := mask.NewLabel(4, 4)
	copy(src.Pix[4:8], []int32{3, 3, 7, 7})
	copy(src.Pix[8:12], []int32{3, 3, 7, 7})

	out, err := fitter.FitLabel(src)

	if err != nil {
		t.Fatalf("FitLabel error: %v", err)
	}

	// label values survive exactly, no interpolated values appear
	for i, p := range out.Pix {
		if p != 3 && p != 7 {
			t.Errorf("pixel %d = %d, want 3 or 7", i, p)
		}
	}

	if got := labelArea(out, 3); got != 16 {
		t.Errorf("value 3 area = %d, want 16", got)
	}

	if got := labelArea(out, 7); got != 16 {
		t.Errorf("value 7 area = %d, want 16", got)
	}
}
