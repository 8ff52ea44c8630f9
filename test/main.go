package main

import (
	"fmt"
	"log"

	"github.com/openseg/go-segtrack"
	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/proposal"
	"github.com/openseg/go-segtrack/render"
	"github.com/openseg/go-segtrack/tracker"
	"github.com/x448/float16"
	"gocv.io/x/gocv"
)

// manual check of the letterbox geometry, logit decoding and rendering
// paths against a real image, results are written to /tmp for eyeballing
func main() {

	imgFile := "../example/data/scene.jpg"

	img := gocv.IMRead(imgFile, gocv.IMReadColor)

	if img.Empty() {
		log.Fatal("Error reading image from: ", imgFile)
	}

	defer img.Close()

	width := img.Cols()
	height := img.Rows()

	// letterbox the frame into a 640x640 detector plane
	fitter := proposal.NewFitter(width, height, 640, 640)
	defer fitter.Close()

	boxed := gocv.NewMatWithSize(640, 640, gocv.MatTypeCV8UC3)
	defer boxed.Close()

	fitter.LetterBox(img, &boxed, render.Black)

	gocv.IMWrite("/tmp/letterbox.jpg", boxed)

	// synthesize one detector output as float16 logits, a disc of
	// positive values on a negative background
	bits := make([]uint16, 640*640)

	inside := float16.Fromfloat32(3).Bits()
	outside := float16.Fromfloat32(-3).Bits()

	for y := 0; y < 640; y++ {
		for x := 0; x < 640; x++ {

			dx := x - 320
			dy := y - 220

			if dx*dx+dy*dy < 100*100 {
				bits[y*640+x] = inside
			} else {
				bits[y*640+x] = outside
			}
		}
	}

	disc, err := proposal.DecodeLogits(bits, 640, 640, 0.5)

	if err != nil {
		log.Fatal("Error decoding logits: ", err)
	}

	// second segment as a plain rectangle in detector space
	rect := mask.NewMask(640, 640)

	for y := 300; y < 420; y++ {
		for x := 120; x < 360; x++ {
			rect.Pix[y*640+x] = 1
		}
	}

	// map both segments back to frame resolution
	discFit, err := fitter.FitMask(disc)

	if err != nil {
		log.Fatal("Error fitting disc mask: ", err)
	}

	rectFit, err := fitter.FitMask(rect)

	if err != nil {
		log.Fatal("Error fitting rect mask: ", err)
	}

	// flatten into one frame of candidates and track it
	flat, err := proposal.NewFlattener(proposal.DefaultFlattenParams())

	if err != nil {
		log.Fatal("Error creating flattener: ", err)
	}

	label, cands, err := flat.Flatten([]proposal.ScoredMask{
		{Mask: discFit, Confidence: 0.9, Class: -1, Category: tracker.CategoryThing},
		{Mask: rectFit, Confidence: 0.8, Class: -1, Category: tracker.CategoryThing},
	}, width, height)

	if err != nil {
		log.Fatal("Error flattening masks: ", err)
	}

	sess, err := segtrack.NewSession(segtrack.DefaultParams(width, height))

	if err != nil {
		log.Fatal("Error creating session: ", err)
	}

	out, rep, err := sess.Step(label, cands)

	if err != nil {
		log.Fatal("Error stepping tracker: ", err)
	}

	fmt.Printf("step report: %+v\n", rep)

	objs := sess.Registry().Objects()

	// overlay plus outline onto the source image
	render.Overlay(&img, out, objs, 0.5)

	err = render.Outlines(&img, out, objs, nil, 100, render.DefaultFont(), 2, 3)

	if err != nil {
		log.Fatal("Error rendering outlines: ", err)
	}

	gocv.IMWrite("/tmp/tracked.jpg", img)

	// dump the bare label mask as well
	err = render.PaintLabelToFile("/tmp/label.png", out, objs, 1)

	if err != nil {
		log.Fatal("Error painting label mask: ", err)
	}

	fmt.Print("done\n")
}
