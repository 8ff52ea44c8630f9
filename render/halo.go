package render

import (
	"image"
	"math"

	clipper "github.com/ctessum/go.clipper"
	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
	"gocv.io/x/gocv"
)

// HaloStyle defines the parameters for rendering the expanded halo outline
type HaloStyle struct {
	// ExpandRatio controls how far the halo sits from the object edge,
	// the offset distance is the contour area times the ratio divided by
	// the contour perimeter
	ExpandRatio float32
	// Thickness is the halo line thickness
	Thickness int
	// MinArea filters out small noise contours
	MinArea float64
}

// DefaultHaloStyle returns default halo style settings
func DefaultHaloStyle() HaloStyle {
	return HaloStyle{
		ExpandRatio: 1.5,
		Thickness:   2,
		MinArea:     64,
	}
}

// contourDistance calculates the area of the contour and returns the offset
// distance based on the expand ratio
func contourDistance(pts []image.Point, ratio float32) float32 {

	ptsNum := len(pts)
	area := float32(0.0)
	dist := float32(0.0)

	for i := 0; i < ptsNum; i++ {
		next := pts[(i+1)%ptsNum]
		area += float32(pts[i].X*next.Y - pts[i].Y*next.X)
		dx := float32(pts[i].X - next.X)
		dy := float32(pts[i].Y - next.Y)
		dist += float32(math.Sqrt(float64(dx*dx + dy*dy)))
	}

	if dist == 0 {
		return 0
	}

	area = float32(math.Abs(float64(area / 2.0)))
	return area * ratio / dist
}

// expandContour offsets a closed contour outward by the distance derived
// from the expand ratio
func expandContour(pts []image.Point, ratio float32) []image.Point {

	if len(pts) < 3 {
		return pts
	}

	distance := contourDistance(pts, ratio)

	// convert the contour points to a Clipper Path
	var path clipper.Path

	for _, pt := range pts {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(pt.X),
			Y: clipper.CInt(pt.Y)})
	}

	// create a ClipperOffset object and add the path
	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)

	// execute the offset operation
	solution := co.Execute(float64(distance))

	// convert the solution back to points
	var points []image.Point

	for _, sol := range solution {
		for _, pt := range sol {
			points = append(points, image.Point{X: int(pt.X), Y: int(pt.Y)})
		}
	}

	return points
}

// Halo draws an expanded outline floating just outside each objects edge.
// Label values are frame local indices into objs.
func Halo(img *gocv.Mat, label *mask.Label, objs []*tracker.Object,
	style HaloStyle) error {

	for i, obj := range objs {

		objMask, err := binaryMat(label, int32(i+1))

		if err != nil {
			return err
		}

		// Find contours for this object
		contours := gocv.FindContours(objMask, gocv.RetrievalExternal,
			gocv.ChainApproxSimple)

		useClr := ObjectColor(obj.ID)

		for c := 0; c < contours.Size(); c++ {
			contour := contours.At(c)

			if gocv.ContourArea(contour) < style.MinArea {
				continue
			}

			expanded := expandContour(contour.ToPoints(), style.ExpandRatio)

			if len(expanded) < 3 {
				continue
			}

			ptVec := gocv.NewPointVectorFromPoints(expanded)
			ptsVec := gocv.NewPointsVector()
			ptsVec.Append(ptVec)

			gocv.Polylines(img, ptsVec, true, useClr, style.Thickness)

			ptVec.Close()
			ptsVec.Close()
		}

		contours.Close()
		objMask.Close()
	}

	return nil
}
