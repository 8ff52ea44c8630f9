package main

import (
	"flag"
	"log"
	"os"

	"github.com/openseg/go-segtrack"
	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
)

// frame size of the synthetic scene
const (
	width  = 64
	height = 48
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	matchMode := flag.String("m", "iou", "Candidate matching mode [iou|engulf]")
	numFrames := flag.Int("n", 25, "Number of synthetic frames to run")
	pruneAfter := flag.Int("g", 5, "Prune objects gone unmatched for this many frames")

	flag.Parse()

	mode, err := tracker.ParseMode(*matchMode)

	if err != nil {
		log.Fatal("Error parsing matching mode: ", err)
	}

	params := segtrack.DefaultParams(width, height)
	params.Mode = mode

	sess, err := segtrack.NewSession(params)

	if err != nil {
		log.Fatal("Error creating session: ", err)
	}

	for n := 0; n < *numFrames; n++ {

		next, cands := buildFrame(n)

		_, rep, err := sess.Step(next, cands)

		if err != nil {
			log.Fatal("Error stepping tracker: ", err)
		}

		log.Printf("frame %2d: active=%d created=%d matched=%d carried=%d discarded=%d",
			n, rep.Active, rep.Created, rep.Matched, rep.CarriedOver,
			rep.Discarded)

		if removed := sess.Prune(*pruneAfter); removed != nil {
			log.Printf("frame %2d: pruned identities %v", n, removed)
		}
	}

	// dump the final tracked population to stdout
	sess.Query(os.Stdout)

	log.Println("done")
}

// buildFrame paints the synthetic segments of frame n. A car slides right
// until it leaves the scene and a pedestrian walks left, vanishing behind
// an obstruction for frames 8 to 10.
func buildFrame(n int) (*mask.Label, []tracker.Candidate) {

	next := mask.NewLabel(width, height)

	var cands []tracker.Candidate

	// the car moves 3 pixels per frame, consecutive frames overlap with
	// IoU 0.6 and keep matching
	x := 2 + n*3

	if x+12 <= width {
		fillRect(next, 1, x, 20, x+12, 30)

		cands = append(cands, tracker.Candidate{
			ID: 1, Category: tracker.CategoryThing, Class: 0, Confidence: 0.9,
		})
	}

	// the pedestrian moves 1 pixel per frame and is hidden for frames
	// 8 to 10, reappearing close enough to match its carried over pixels
	if n < 8 || n > 10 {
		px := 50 - n

		if n > 7 {
			px += 3
		}

		fillRect(next, 2, px, 24, px+6, 32)

		cands = append(cands, tracker.Candidate{
			ID: 2, Category: tracker.CategoryThing, Class: 1, Confidence: 0.7,
		})
	}

	return next, cands
}

// fillRect paints the value v over the rectangle x0,y0 to x1,y1 exclusive,
// clipped to the plane
func fillRect(l *mask.Label, v int32, x0, y0, x1, y1 int) {

	if x0 < 0 {
		x0 = 0
	}

	if y0 < 0 {
		y0 = 0
	}

	if x1 > l.Width {
		x1 = l.Width
	}

	if y1 > l.Height {
		y1 = l.Height
	}

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			l.Pix[y*l.Width+x] = v
		}
	}
}
