package proposal

import (
	"fmt"
	"image"
	"image/color"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
	"gocv.io/x/gocv"
)

// Fitter defines the struct used for mapping planes between the frame
// resolution and the detector working resolution using letterbox geometry
type Fitter struct {
	// srcWidth is the width of the source frame
	srcWidth int
	// srcHeight is the height of the source frame
	srcHeight int
	// destWidth is the detector working width
	destWidth int
	// destHeight is the detector working height
	destHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewFitter returns a fitter for the given frame and detector working
// dimensions
func NewFitter(srcWidth, srcHeight, destWidth, destHeight int) *Fitter {
	f := &Fitter{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	// precalculate scaling dimensions
	f.preCalc()

	return f
}

// Close frees memory allocated during resize process
func (f *Fitter) Close() error {
	return f.tempMat.Close()
}

// preCalc the scaling factors for source and destination planes
func (f *Fitter) preCalc() {

	f.resizeW = f.destWidth
	f.resizeH = f.destHeight

	scaleW := float32(f.destWidth) / float32(f.srcWidth)
	scaleH := float32(f.destHeight) / float32(f.srcHeight)
	f.scale = scaleH

	if scaleW < scaleH {
		f.scale = scaleW
		f.resizeH = int(float32(f.srcHeight) * f.scale)
	} else {
		f.resizeW = int(float32(f.srcWidth) * f.scale)
	}

	f.yPad = (f.destHeight - f.resizeH) / 2 // padding height / 2
	f.xPad = (f.destWidth - f.resizeW) / 2  // padding width / 2
}

// LetterBox resizes the source frame to the detector working dimensions
// whilst maintaining image aspect.  Color is that used for letter box
// padding.
func (f *Fitter) LetterBox(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	gocv.Resize(src, &f.tempMat, image.Pt(f.resizeW, f.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(f.tempMat, dest, f.yPad, f.destHeight-f.resizeH-f.yPad,
		f.xPad, f.destWidth-f.resizeW-f.xPad, gocv.BorderConstant, color)
}

// colMap precalculates the detector column sampled for each frame column,
// reversing the letterbox
func (f *Fitter) colMap() []int {

	cols := make([]int, f.srcWidth)

	for x := 0; x < f.srcWidth; x++ {
		sx := int(float32(x)*f.scale) + f.xPad

		if sx >= f.xPad+f.resizeW {
			sx = f.xPad + f.resizeW - 1
		}

		cols[x] = sx
	}

	return cols
}

// srcRow returns the detector row sampled for the given frame row
func (f *Fitter) srcRow(y int) int {

	sy := int(float32(y)*f.scale) + f.yPad

	if sy >= f.yPad+f.resizeH {
		sy = f.yPad + f.resizeH - 1
	}

	return sy
}

// FitMask maps a detector resolution binary mask onto the frame resolution
// by nearest neighbour sampling, reversing the letterbox
func (f *Fitter) FitMask(src *mask.Mask) (*mask.Mask, error) {

	if src.Width != f.destWidth || src.Height != f.destHeight {
		return nil, fmt.Errorf("mask is %dx%d, want %dx%d: %w",
			src.Width, src.Height, f.destWidth, f.destHeight,
			tracker.ErrBadDims)
	}

	out := mask.NewMask(f.srcWidth, f.srcHeight)
	cols := f.colMap()

	for y := 0; y < f.srcHeight; y++ {

		srcOff := f.srcRow(y) * f.destWidth
		dstOff := y * f.srcWidth

		for x, sx := range cols {
			out.Pix[dstOff+x] = src.Pix[srcOff+sx]
		}
	}

	return out, nil
}

// FitLabel maps a detector resolution label mask onto the frame resolution
// by nearest neighbour sampling, reversing the letterbox.  Nearest neighbour
// keeps label values exact as interpolation would invent new ones.
func (f *Fitter) FitLabel(src *mask.Label) (*mask.Label, error) {

	if src.Width != f.destWidth || src.Height != f.destHeight {
		return nil, fmt.Errorf("label is %dx%d, want %dx%d: %w",
			src.Width, src.Height, f.destWidth, f.destHeight,
			tracker.ErrBadDims)
	}

	out := mask.NewLabel(f.srcWidth, f.srcHeight)
	cols := f.colMap()

	for y := 0; y < f.srcHeight; y++ {

		srcOff := f.srcRow(y) * f.destWidth
		dstOff := y * f.srcWidth

		for x, sx := range cols {
			out.Pix[dstOff+x] = src.Pix[srcOff+sx]
		}
	}

	return out, nil
}

// ScaleFactor returns the scale factor used in letterbox resize
func (f *Fitter) ScaleFactor() float32 {
	return f.scale
}

// XPad returns the x padding used in letterbox resize
func (f *Fitter) XPad() int {
	return f.xPad
}

// YPad returns the y padding used in letterbox resize
func (f *Fitter) YPad() int {
	return f.yPad
}

// SrcWidth returns the width of the source frame
func (f *Fitter) SrcWidth() int {
	return f.srcWidth
}

// SrcHeight returns the height of the source frame
func (f *Fitter) SrcHeight() int {
	return f.srcHeight
}
