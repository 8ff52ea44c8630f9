package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openseg/go-segtrack"
	"github.com/openseg/go-segtrack/proposal"
	"github.com/openseg/go-segtrack/render"
	"github.com/openseg/go-segtrack/store"
	"github.com/openseg/go-segtrack/tracker"
	"gocv.io/x/gocv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	vidFile := flag.String("v", "../data/traffic.mp4", "Video file to run object tracking on")
	saveFile := flag.String("o", "../data/traffic-tracked.mp4", "The output video file with tracking markers")
	labelFile := flag.String("l", "", "Optional text file containing detector class names")
	matchMode := flag.String("m", "iou", "Candidate matching mode [iou|engulf]")
	engulfThreshold := flag.Float64("e", 0.2, "Fraction of a candidate covered by another object before engulf matching discards it")
	maxObjects := flag.Int("x", 0, "Maximum number of object identities to issue, 0 for unlimited")
	pruneAfter := flag.Int("g", 30, "Prune objects gone unmatched for this many frames")
	minArea := flag.Float64("a", 500, "Minimum contour area in pixels for a motion segment")
	renderFormat := flag.String("r", "outline", "The rendering format used for tracked objects [outline|mask|halo]")
	fontFile := flag.String("f", "", "Optional TTF font file for frame statistics")
	dbFile := flag.String("d", "", "Optional sqlite database file to record the tracking run to")
	cpuCores := flag.String("c", "", "Comma delimited list of CPU cores to pin processing to, eg: 4,5,6,7")

	flag.Parse()

	if *cpuCores != "" {
		err := pinCores(*cpuCores)

		if err != nil {
			log.Printf("Failed to set CPU Affinity: %v\n", err)
		}
	}

	mode, err := tracker.ParseMode(*matchMode)

	if err != nil {
		log.Fatal("Error parsing matching mode: ", err)
	}

	// load in detector class names
	var classNames []string

	if *labelFile != "" {
		classNames, err = segtrack.LoadClassNames(*labelFile)

		if err != nil {
			log.Fatal("Error loading class names: ", err)
		}
	}

	// open handle to read frames of video file
	video, err := gocv.VideoCaptureFile(*vidFile)

	if err != nil {
		log.Fatal("Error opening video file: ", err)
	}

	defer video.Close()

	img := gocv.NewMat()
	defer img.Close()

	if ok := video.Read(&img); !ok || img.Empty() {
		log.Fatal("Error reading first frame from: ", *vidFile)
	}

	width := img.Cols()
	height := img.Rows()

	fps := video.Get(gocv.VideoCaptureFPS)

	if fps <= 0 {
		fps = 30
	}

	log.Printf("Video frame size %dx%d at %.1f FPS\n", width, height, fps)

	writer, err := gocv.VideoWriterFile(*saveFile, "mp4v", fps, width,
		height, true)

	if err != nil {
		log.Fatal("Error opening video writer: ", err)
	}

	defer writer.Close()

	// create the tracking session for the stream
	params := segtrack.DefaultParams(width, height)
	params.Mode = mode
	params.MaxObjects = *maxObjects
	params.EngulfThreshold = float32(*engulfThreshold)

	sess, err := segtrack.NewSession(params)

	if err != nil {
		log.Fatal("Error creating session: ", err)
	}

	// print session configuration to stdout
	sess.Query(os.Stdout)

	flat, err := proposal.NewFlattener(proposal.DefaultFlattenParams())

	if err != nil {
		log.Fatal("Error creating flattener: ", err)
	}

	seg := NewMotionSegmenter(*minArea)
	defer seg.Close()

	ann := render.NewAnnotator()

	if *fontFile != "" {
		ann, err = render.NewAnnotatorTTF(*fontFile, 14)

		if err != nil {
			log.Fatal("Error loading font: ", err)
		}
	}

	// optional recording of the tracking run to sqlite
	var rec *recorder

	if *dbFile != "" {
		rec, err = newRecorder(*dbFile, width, height, mode.String(), *vidFile)

		if err != nil {
			log.Fatal("Error opening tracking database: ", err)
		}

		defer rec.Close()
	}

	frames := 0
	var segTime, trackTime, renderTime time.Duration
	start := time.Now()

	for {
		frameStart := time.Now()

		masks, err := seg.Segment(img)

		if err != nil {
			log.Fatal("Error segmenting frame: ", err)
		}

		label, cands, err := flat.Flatten(masks, width, height)

		if err != nil {
			log.Fatal("Error flattening proposals: ", err)
		}

		endSeg := time.Now()

		out, rep, err := sess.Step(label, cands)

		if err != nil {
			log.Fatal("Error stepping tracker: ", err)
		}

		sess.Prune(*pruneAfter)

		endTrack := time.Now()

		objs := sess.Registry().Objects()

		switch *renderFormat {
		case "mask":
			render.Overlay(&img, out, objs, 0.5)

		case "halo":
			err = render.Halo(&img, out, objs, render.DefaultHaloStyle())

		case "outline":
			fallthrough
		default:
			err = render.Outlines(&img, out, objs, classNames, *minArea,
				render.DefaultFont(), 2, 3)
		}

		if err != nil {
			log.Fatal("Error rendering objects: ", err)
		}

		render.Trails(&img, objs, sess.Trail(), render.DefaultTrailStyle())

		// blank out background video and draw tracking statistics on top
		gocv.Rectangle(&img, image.Rect(0, 0, width, 20), render.Black, -1)

		hud := fmt.Sprintf("Frame: %d  Objects: %d  Created: %d  Matched: %d  Carried: %d",
			frames, rep.Active, rep.Created, rep.Matched, rep.CarriedOver)

		err = ann.DrawMat(&img, hud, 4, 14, render.Yellow)

		if err != nil {
			log.Fatal("Error drawing statistics: ", err)
		}

		endRender := time.Now()

		if rec != nil {
			err = rec.Record(frames, rep, objs)

			if err != nil {
				log.Fatal("Error recording frame: ", err)
			}
		}

		if err = writer.Write(img); err != nil {
			log.Fatal("Error writing video frame: ", err)
		}

		segTime += endSeg.Sub(frameStart)
		trackTime += endTrack.Sub(endSeg)
		renderTime += endRender.Sub(endTrack)
		frames++

		if ok := video.Read(&img); !ok || img.Empty() {
			break
		}
	}

	total := time.Since(start)

	if rec != nil {
		if err = rec.Finish(frames); err != nil {
			log.Fatal("Error closing session record: ", err)
		}
	}

	if frames > 0 {
		f := time.Duration(frames)

		log.Printf("Processed %d frames in %s, average %s per frame\n",
			frames, total.String(), (total / f).String())
		log.Printf("Average times: segmentation=%s, tracking=%s, rendering=%s\n",
			(segTime / f).String(),
			(trackTime / f).String(),
			(renderTime / f).String(),
		)
	}

	// dump the final tracked population to stdout
	sess.Query(os.Stdout)

	log.Printf("Saved tracking result to %s\n", *saveFile)

	log.Println("done")
}

// pinCores parses the comma delimited core list and sets the process CPU
// affinity
func pinCores(list string) error {

	var cores []int

	for _, field := range strings.Split(list, ",") {

		core, err := strconv.Atoi(strings.TrimSpace(field))

		if err != nil {
			return fmt.Errorf("invalid core number %q: %w", field, err)
		}

		cores = append(cores, core)
	}

	return segtrack.SetCPUAffinity(segtrack.CPUCoreMask(cores))
}

// MotionSegmenter proposes one binary mask per moving foreground blob
// using MOG2 background subtraction
type MotionSegmenter struct {
	mog2    gocv.BackgroundSubtractorMOG2
	fg      gocv.Mat
	kernel  gocv.Mat
	minArea float64
}

// NewMotionSegmenter returns a motion segmenter dropping blobs smaller
// than minArea pixels
func NewMotionSegmenter(minArea float64) *MotionSegmenter {
	return &MotionSegmenter{
		mog2:    gocv.NewBackgroundSubtractorMOG2(),
		fg:      gocv.NewMat(),
		kernel:  gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
		minArea: minArea,
	}
}

// Segment extracts a scored binary mask per foreground contour of the
// given frame
func (s *MotionSegmenter) Segment(img gocv.Mat) ([]proposal.ScoredMask, error) {

	s.mog2.Apply(img, &s.fg)

	// drop the shadow pixels MOG2 marks with 127
	gocv.Threshold(s.fg, &s.fg, 200, 255, gocv.ThresholdBinary)

	// despeckle the foreground mask
	gocv.MorphologyEx(s.fg, &s.fg, gocv.MorphOpen, s.kernel)

	contours := gocv.FindContours(s.fg, gocv.RetrievalExternal,
		gocv.ChainApproxSimple)
	defer contours.Close()

	var masks []proposal.ScoredMask

	for i := 0; i < contours.Size(); i++ {

		if gocv.ContourArea(contours.At(i)) < s.minArea {
			continue
		}

		// isolate the contour as a filled binary plane
		plane := gocv.NewMatWithSize(img.Rows(), img.Cols(), gocv.MatTypeCV8U)
		gocv.DrawContours(&plane, contours, i, render.White, -1)

		m, err := proposal.MaskFromMat(plane)
		plane.Close()

		if err != nil {
			return nil, fmt.Errorf("error converting contour mask: %w", err)
		}

		masks = append(masks, proposal.ScoredMask{
			Mask:       m,
			Confidence: 1.0,
			Class:      -1,
			Category:   tracker.CategoryThing,
		})
	}

	return masks, nil
}

// Close releases the segmenter resources
func (s *MotionSegmenter) Close() {
	s.mog2.Close()
	s.fg.Close()
	s.kernel.Close()
}

// recorder persists the tracking run to a sqlite database
type recorder struct {
	db        *store.TrackDB
	sessionID string
	// firstSeen maps identity to the frame the object first appeared on
	firstSeen map[int32]int
}

// newRecorder opens the database and begins a new session record
func newRecorder(path string, width, height int, mode,
	notes string) (*recorder, error) {

	db, err := store.NewTrackDB(path)

	if err != nil {
		return nil, err
	}

	sessionID, err := store.BeginSession(db.DB, width, height, mode, notes)

	if err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("Recording session %s\n", sessionID)

	return &recorder{
		db:        db,
		sessionID: sessionID,
		firstSeen: make(map[int32]int),
	}, nil
}

// Record writes the frame report and refreshes the records of all
// objects visible this frame
func (r *recorder) Record(frame int, rep tracker.Report,
	objs []*tracker.Object) error {

	err := store.InsertFrame(r.db.DB, &store.FrameRecord{
		SessionID: r.sessionID,
		Frame:     frame,
		Report:    rep,
	})

	if err != nil {
		return err
	}

	for _, obj := range objs {

		if _, ok := r.firstSeen[obj.ID]; !ok {
			r.firstSeen[obj.ID] = frame
		}

		err = store.UpsertObject(r.db.DB, &store.ObjectRecord{
			SessionID:   r.sessionID,
			ObjectID:    obj.ID,
			Category:    obj.Category.String(),
			Class:       obj.Class(),
			Confidence:  obj.Confidence,
			FirstFrame:  r.firstSeen[obj.ID],
			LastFrame:   frame,
			MergedCount: obj.MergedCount(),
		})

		if err != nil {
			return err
		}
	}

	return nil
}

// Finish closes the session record with the final frame count
func (r *recorder) Finish(frames int) error {
	return store.EndSession(r.db.DB, r.sessionID, frames)
}

// Close releases the database handle
func (r *recorder) Close() {
	r.db.Close()
}
