package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
	"gocv.io/x/gocv"
)

// boxLabel defines where the object label should be rendered on the
// source image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// findTopPoint finds the highest point (Y axis) of the given point vector
func findTopPoint(approx gocv.PointVector) image.Point {
	topPoint := approx.At(0)
	for i := 1; i < approx.Size(); i++ {
		pt := approx.At(i)
		if pt.Y < topPoint.Y {
			topPoint = pt
		}
	}
	return topPoint
}

// binaryMat isolates one label value as a 0/255 Mat for contour extraction.
// The caller must Close the returned Mat.
func binaryMat(label *mask.Label, v int32) (gocv.Mat, error) {

	data := make([]uint8, len(label.Pix))

	for i, p := range label.Pix {
		if p == v {
			data[i] = 255
		}
	}

	m, err := gocv.NewMatFromBytes(label.Height, label.Width,
		gocv.MatTypeCV8U, data)

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("error creating mask Mat: %w", err)
	}

	return m, nil
}

// objectText returns the label text for an object, the class name with the
// object identity, falling back to the category when the class is unknown
func objectText(obj *tracker.Object, classNames []string) string {

	name := obj.Category.String()

	if cls := obj.Class(); cls >= 0 && cls < len(classNames) {
		name = classNames[cls]
	}

	return fmt.Sprintf("%s %d", name, obj.ID)
}

// Outlines draws the segment outline and identity label for each object in
// the label mask.  Label values are frame local indices into objs.  Contours
// smaller than minArea are skipped to filter out aliasing noise in the
// binary mask.
func Outlines(img *gocv.Mat, label *mask.Label, objs []*tracker.Object,
	classNames []string, minArea float64, font Font, lineThickness int,
	epsilon float64) error {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0)

	// iterate over each frame local value to isolate the object
	for i, obj := range objs {

		objMask, err := binaryMat(label, int32(i+1))

		if err != nil {
			return err
		}

		// Find contours for this object
		contours := gocv.FindContours(objMask, gocv.RetrievalExternal,
			gocv.ChainApproxSimple)

		useClr := ObjectColor(obj.ID)

		// track the largest contour for label placement
		var bestArea float64
		var bestRect image.Rectangle
		var bestTop image.Point

		// Draw contours
		for c := 0; c < contours.Size(); c++ {
			contour := contours.At(c)

			// filter out small contours picked up from aliasing/noise in
			// binary mask
			area := gocv.ContourArea(contour)

			if area < minArea {
				continue
			}

			approx := gocv.ApproxPolyDP(contour, epsilon, true)

			// Create a PointsVector to hold our PointVector
			ptsVec := gocv.NewPointsVector()

			// Add our approximated PointVector to PointsVector
			ptsVec.Append(approx)

			// Draw polygon lines using PointsVector
			gocv.Polylines(img, ptsVec, true, useClr, lineThickness)

			if area > bestArea {
				bestArea = area
				bestRect = gocv.BoundingRect(contour)
				bestTop = findTopPoint(approx)
			}

			approx.Close()
			ptsVec.Close()
		}

		contours.Close()
		objMask.Close()

		// object has no visible contour this frame, nothing to label
		if bestArea == 0 {
			continue
		}

		// create text for label
		text := objectText(obj, classNames)
		textSize := gocv.GetTextSize(text, font.Face, font.Scale,
			font.Thickness)

		// Calculate the horizontal center of the largest contour
		centerX := (bestRect.Min.X + bestRect.Max.X) / 2

		// Adjust the label position so the text is centered horizontally
		labelPosition := image.Pt(centerX-textSize.X/2, bestTop.Y-font.BottomPad)

		// create box for placing text on
		bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
			bestTop.Y-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, bestTop.Y)

		// record label rendering details
		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		})
	}

	// draw all precalculated box labels so they are the top most layer on the
	// image and don't get overlapped with segment contour lines
	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}

	return nil
}
