package proposal

import (
	"fmt"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
	"gocv.io/x/gocv"
)

// MaskFromMat converts a single channel 8-bit Mat into a binary mask, any
// nonzero byte becomes a set pixel
func MaskFromMat(m gocv.Mat) (*mask.Mask, error) {

	if m.Empty() {
		return nil, fmt.Errorf("mat is empty: %w", tracker.ErrBadDims)
	}

	if m.Type() != gocv.MatTypeCV8U {
		return nil, fmt.Errorf("mat type %d is not single channel 8-bit",
			m.Type())
	}

	data := m.ToBytes()
	res := mask.NewMask(m.Cols(), m.Rows())

	for i, b := range data {
		if b != 0 {
			res.Pix[i] = 1
		}
	}

	return res, nil
}

// MaskToMat converts a binary mask into a single channel 8-bit Mat with set
// pixels as 255, suitable for contour extraction.  The caller must Close
// the returned Mat.
func MaskToMat(m *mask.Mask) (gocv.Mat, error) {

	data := make([]uint8, len(m.Pix))

	for i, p := range m.Pix {
		if p != 0 {
			data[i] = 255
		}
	}

	res, err := gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8U, data)

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("error creating mask Mat: %w", err)
	}

	return res, nil
}

// LabelFromMat converts a single channel 8-bit Mat of object values into a
// label mask
func LabelFromMat(m gocv.Mat) (*mask.Label, error) {

	if m.Empty() {
		return nil, fmt.Errorf("mat is empty: %w", tracker.ErrBadDims)
	}

	if m.Type() != gocv.MatTypeCV8U {
		return nil, fmt.Errorf("mat type %d is not single channel 8-bit",
			m.Type())
	}

	data := m.ToBytes()
	res := mask.NewLabel(m.Cols(), m.Rows())

	for i, b := range data {
		res.Pix[i] = int32(b)
	}

	return res, nil
}
