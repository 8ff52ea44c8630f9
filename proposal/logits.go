package proposal

import (
	"fmt"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
	"github.com/x448/float16"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// ToFloat32 converts a float16 buffer to float32 as Go does not have a
// native float16 type
func ToFloat32(buf []uint16) []float32 {

	res := make([]float32, len(buf))

	for i, val := range buf {
		res[i] = f16LookupTable[val]
	}

	return res
}

// DecodeLogits converts a half precision logit plane of the given dimensions
// to a binary mask by thresholding, pixels with a logit greater than the
// threshold are set
func DecodeLogits(bits []uint16, width, height int,
	threshold float32) (*mask.Mask, error) {

	res := mask.NewMask(width, height)

	err := DecodeLogitsInto(res, bits, threshold)

	if err != nil {
		return nil, err
	}

	return res, nil
}

// DecodeLogitsInto thresholds a half precision logit plane into an existing
// mask, allowing buffer reuse across frames
func DecodeLogitsInto(dst *mask.Mask, bits []uint16, threshold float32) error {

	if len(bits) != dst.Width*dst.Height {
		return fmt.Errorf("logit plane has %d values, mask is %dx%d: %w",
			len(bits), dst.Width, dst.Height, tracker.ErrBadDims)
	}

	for i, val := range bits {
		if f16LookupTable[val] > threshold {
			dst.Pix[i] = 1
		} else {
			dst.Pix[i] = 0
		}
	}

	return nil
}
