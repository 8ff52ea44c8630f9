package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Annotator draws text using a pure Go font path instead of the OpenCV
// Hershey fonts, for glyph coverage the Hershey set lacks or for drawing
// onto plain image.RGBA buffers without a Mat
type Annotator struct {
	// fontFace is the loaded font face
	fontFace font.Face
}

// NewAnnotator returns an annotator using the built in fixed 7x13 face,
// no font asset needed
func NewAnnotator() *Annotator {
	return &Annotator{
		fontFace: basicfont.Face7x13,
	}
}

// NewAnnotatorTTF returns an annotator rendering with the given TTF font
// at the given point size
func NewAnnotatorTTF(ttfFont string, size float64) (*Annotator, error) {

	fontBytes, err := os.ReadFile(ttfFont)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	// parse the font
	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	// create a type face
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return &Annotator{fontFace: face}, nil
}

// TextWidth returns the rendered pixel width of the given text
func (a *Annotator) TextWidth(text string) int {
	return font.MeasureString(a.fontFace, text).Ceil()
}

// Draw writes text onto an RGBA image with the baseline starting at x,y
func (a *Annotator) Draw(img *image.RGBA, text string, x, y int,
	clr color.RGBA) {

	dr := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: a.fontFace,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	dr.DrawString(text)
}

// DrawMat writes text onto a BGR Mat with the baseline starting at x,y
func (a *Annotator) DrawMat(img *gocv.Mat, text string, x, y int,
	clr color.RGBA) error {

	// create image with text writing
	rgba := image.NewRGBA(image.Rect(0, 0, img.Cols(), img.Rows()))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 0}),
		image.Point{}, draw.Src)

	a.Draw(rgba, text, x, y, clr)

	// Convert image.RGBA to gocv.Mat
	imgRGBA, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(),
		rgba.Bounds().Dx(), gocv.MatTypeCV8UC4, rgba.Pix)

	if imgRGBA.Empty() || err != nil {
		return fmt.Errorf("error creating Mat from RGBA")
	}

	defer imgRGBA.Close()

	gocv.CvtColor(imgRGBA, &imgRGBA, gocv.ColorRGBAToBGR)
	gocv.AddWeighted(*img, 1.0, imgRGBA, 1.0, 0, img)

	return nil
}
