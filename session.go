package segtrack

import (
	"fmt"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
)

// Params defines the struct containing the Session configuration
// parameters
type Params struct {
	// Width is the pixel width of every mask passed to the session
	Width int
	// Height is the pixel height of every mask passed to the session
	Height int
	// Mode selects the candidate matching strategy
	Mode tracker.Mode
	// MaxObjects caps the total number of identities the session may
	// issue over its lifetime, zero or negative means unlimited
	MaxObjects int
	// EngulfThreshold is the fraction of a candidate's area that must be
	// covered by an object it did not match for the candidate to be
	// discarded, only used by ModeEngulf
	EngulfThreshold float32
	// TrailLength is the number of centroid points kept per object for
	// movement trails
	TrailLength int
}

// DefaultParams returns an instance of Params for the given frame size
// configured with default values being:
// - Mode: iou matching
// - Maximum Objects: unlimited
// - Engulf Threshold: 0.2
// - Trail Length: 90 points
func DefaultParams(width, height int) Params {
	return Params{
		Width:           width,
		Height:          height,
		Mode:            tracker.ModeIoU,
		MaxObjects:      -1,
		EngulfThreshold: 0.2,
		TrailLength:     90,
	}
}

// Session drives frame by frame tracking of a single video stream. It
// owns the stream's object registry, merger and centroid trail history
// and holds the previous frame's label mask between steps. A Session is
// not safe for concurrent use, run one per stream.
type Session struct {
	params   Params
	registry *tracker.Registry
	merger   *tracker.Merger
	trail    *tracker.Trail
	// last is the temp index mask produced by the previous step
	last   *mask.Label
	frames int
}

// NewSession returns a tracking session configured by p
func NewSession(p Params) (*Session, error) {

	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("session: %w: frame size %dx%d",
			tracker.ErrBadDims, p.Width, p.Height)
	}

	if p.TrailLength <= 0 {
		p.TrailLength = 90
	}

	merger, err := tracker.NewMerger(tracker.MergerParams{
		Mode:            p.Mode,
		MaxObjects:      p.MaxObjects,
		EngulfThreshold: p.EngulfThreshold,
	})

	if err != nil {
		return nil, err
	}

	return &Session{
		params:   p,
		registry: tracker.NewRegistry(),
		merger:   merger,
		trail:    tracker.NewTrail(p.TrailLength),
	}, nil
}

// Step merges one frame's segment candidates into the tracked
// population. next is the incoming label mask whose pixel values are
// the candidate IDs of cands. The returned mask assigns every pixel to
// at most one tracked object in temp index space, value i marking the
// object at Registry().Objects()[i-1].
func (s *Session) Step(next *mask.Label,
	cands []tracker.Candidate) (*mask.Label, tracker.Report, error) {

	if next == nil || next.Width != s.params.Width ||
		next.Height != s.params.Height {
		return nil, tracker.Report{}, fmt.Errorf(
			"step: %w: session expects %dx%d", tracker.ErrBadDims,
			s.params.Width, s.params.Height)
	}

	out, rep, err := s.merger.Merge(s.registry, s.last, next, cands)

	if err != nil {
		return nil, rep, err
	}

	s.last = out
	s.frames++
	s.recordCentroids(out)

	return out, rep, nil
}

// recordCentroids appends each visible object's mask centroid to its
// movement trail
func (s *Session) recordCentroids(out *mask.Label) {

	objs := s.registry.Objects()

	if len(objs) == 0 {
		return
	}

	sumX := make([]int, len(objs))
	sumY := make([]int, len(objs))
	count := make([]int, len(objs))

	for y := 0; y < out.Height; y++ {
		row := y * out.Width

		for x := 0; x < out.Width; x++ {
			v := out.Pix[row+x]

			if v == 0 || int(v) > len(objs) {
				continue
			}

			sumX[v-1] += x
			sumY[v-1] += y
			count[v-1]++
		}
	}

	for i, obj := range objs {
		if count[i] == 0 {
			continue
		}

		s.trail.Add(obj.ID, tracker.Point{
			X: sumX[i] / count[i],
			Y: sumY[i] / count[i],
		})
	}
}

// Prune removes every tracked object that has gone unmatched for
// maxPoke or more consecutive frames and returns the removed
// identities. The held mask is relabelled so pruned objects become
// background and their trail history is dropped.
func (s *Session) Prune(maxPoke int) []int32 {

	var ids *mask.Label

	if s.last != nil {
		// move the held mask into identity space before pruning
		// renumbers the temp indexes
		ids = s.registry.Identity(s.last)
	}

	removed := s.registry.PruneStale(maxPoke)

	for _, id := range removed {
		s.trail.Drop(id)
	}

	if ids != nil {
		s.last = s.registry.Relabel(ids)
	}

	return removed
}

// Registry returns the session's object registry
func (s *Session) Registry() *tracker.Registry {
	return s.registry
}

// Trail returns the session's centroid trail history
func (s *Session) Trail() *tracker.Trail {
	return s.trail
}

// Mask returns the temp index mask produced by the most recent step,
// nil before the first step
func (s *Session) Mask() *mask.Label {
	return s.last
}

// FrameCount returns the number of frames stepped since creation or
// the last reset
func (s *Session) FrameCount() int {
	return s.frames
}

// Reset returns the session to its initial empty state, discarding all
// objects, trail history and the held mask. The identity counter
// restarts so a fresh stream can reuse the session.
func (s *Session) Reset() {
	s.registry.Reset()
	s.trail.Reset()
	s.last = nil
	s.frames = 0
}
