package render

import (
	"fmt"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
	"gocv.io/x/gocv"
)

// Overlay renders the label mask as a transparent overlay on top of the
// whole image.  Label values are frame local indices into objs, as returned
// by a merge, and colors follow the object identity so they are stable
// across frames.  The label must match the image dimensions.
func Overlay(img *gocv.Mat, label *mask.Label, objs []*tracker.Object,
	alpha float32) {

	// get dimensions
	width := img.Cols()
	height := img.Rows()

	// it is too slow to manipulate pixel by pixel using GoCV due to slowness
	// over CGO.  So we copy the bytes from the source image and manipulate
	// the bytes directly before copying back to a Mat
	imgData := img.ToBytes()

	// iterate over each pixel in the label mask
	for j := 0; j < height; j++ {
		for k := 0; k < width; k++ {

			idx := j*width + k
			v := label.Pix[idx]

			if v == 0 || int(v) > len(objs) {
				continue
			}

			useClr := ObjectColor(objs[v-1].ID)

			// calculate position in the byte slice
			pixelPos := j*width*3 + k*3

			// get original pixel colors directly from the byte slice
			b, g, r := imgData[pixelPos+0], imgData[pixelPos+1], imgData[pixelPos+2]

			// calculate blended colors based on alpha transparency
			imgData[pixelPos+0] = uint8(float32(b)*(1-alpha) + float32(useClr.B)*alpha)
			imgData[pixelPos+1] = uint8(float32(g)*(1-alpha) + float32(useClr.G)*alpha)
			imgData[pixelPos+2] = uint8(float32(r)*(1-alpha) + float32(useClr.R)*alpha)
		}
	}

	// copy back to the original mat
	tmpImg, _ := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, imgData)
	defer tmpImg.Close()
	tmpImg.CopyTo(img)
}

// PaintLabelToFile paints the label mask over a black background and writes
// the result to an image file
func PaintLabelToFile(filename string, label *mask.Label,
	objs []*tracker.Object, alpha float32) error {

	img := gocv.NewMatWithSize(label.Height, label.Width, gocv.MatTypeCV8UC3)
	defer img.Close()

	Overlay(&img, label, objs, alpha)

	if gocv.IMWrite(filename, img) {
		return nil
	}

	return fmt.Errorf("Failed to write to file")
}
