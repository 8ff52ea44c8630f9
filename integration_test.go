//go:build integration
// +build integration

package segtrack

import (
	"image/color"
	"os"
	"testing"

	"gocv.io/x/gocv"

	"github.com/openseg/go-segtrack/proposal"
	"github.com/openseg/go-segtrack/tracker"
)

// maxFrames caps how much of the video the test consumes
const maxFrames = 90

func TestTrackVideoStream(t *testing.T) {

	videoFile := os.Getenv("SEGTRACK_VIDEO")

	if videoFile == "" {
		t.Fatalf("No video file provided in SEGTRACK_VIDEO")
	}

	cap, err := gocv.VideoCaptureFile(videoFile)

	if err != nil {
		t.Fatalf("Error opening video file: %v", err)
	}

	defer cap.Close()

	img := gocv.NewMat()
	defer img.Close()

	if ok := cap.Read(&img); !ok || img.Empty() {
		t.Fatalf("Error reading first frame from: %s", videoFile)
	}

	width := img.Cols()
	height := img.Rows()

	sess := newSession(t, DefaultParams(width, height))

	flat, err := proposal.NewFlattener(proposal.DefaultFlattenParams())

	if err != nil {
		t.Fatalf("failed to create flattener: %v", err)
	}

	// segment moving foreground with background subtraction
	mog2 := gocv.NewBackgroundSubtractorMOG2()
	defer mog2.Close()

	fg := gocv.NewMat()
	defer fg.Close()

	frames := 0
	created := 0
	lastIssued := 0

	for frames < maxFrames {

		mog2.Apply(img, &fg)

		// drop the shadow pixels MOG2 marks with 127
		gocv.Threshold(fg, &fg, 200, 255, gocv.ThresholdBinary)

		masks := contourMasks(t, fg, width, height)

		label, cands, err := flat.Flatten(masks, width, height)

		if err != nil {
			t.Fatalf("flatten failed on frame %d: %v", frames, err)
		}

		out, rep, err := sess.Step(label, cands)

		if err != nil {
			t.Fatalf("step failed on frame %d: %v", frames, err)
		}

		if out.Width != width || out.Height != height {
			t.Fatalf("frame %d: output is %dx%d, want %dx%d",
				frames, out.Width, out.Height, width, height)
		}

		if rep.Active != sess.Registry().ActiveCount() {
			t.Errorf("frame %d: report active %d disagrees with registry %d",
				frames, rep.Active, sess.Registry().ActiveCount())
		}

		issued := sess.Registry().HistoricalCount()

		if issued < lastIssued {
			t.Errorf("frame %d: issued identities went backwards %d -> %d",
				frames, lastIssued, issued)
		}

		lastIssued = issued
		created += rep.Created
		frames++

		sess.Prune(30)

		if ok := cap.Read(&img); !ok || img.Empty() {
			break
		}
	}

	if sess.FrameCount() != frames {
		t.Errorf("expected %d frames stepped, got %d", frames, sess.FrameCount())
	}

	t.Logf("processed %d frames, %d objects created, %d live at end",
		frames, created, sess.Registry().LiveCount())
}

// contourMasks extracts a scored mask per foreground contour
func contourMasks(t *testing.T, fg gocv.Mat, width, height int) []proposal.ScoredMask {

	t.Helper()

	const minArea = 500

	contours := gocv.FindContours(fg, gocv.RetrievalExternal,
		gocv.ChainApproxSimple)
	defer contours.Close()

	var masks []proposal.ScoredMask

	for i := 0; i < contours.Size(); i++ {

		if gocv.ContourArea(contours.At(i)) < minArea {
			continue
		}

		plane := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
		gocv.DrawContours(&plane, contours, i, color.RGBA{255, 255, 255, 0}, -1)

		m, err := proposal.MaskFromMat(plane)
		plane.Close()

		if err != nil {
			t.Fatalf("contour mask conversion failed: %v", err)
		}

		masks = append(masks, proposal.ScoredMask{
			Mask:       m,
			Confidence: 1.0,
			Class:      -1,
			Category:   tracker.CategoryThing,
		})
	}

	return masks
}
