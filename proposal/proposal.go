package proposal

import (
	"fmt"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
)

// ScoredMask defines a single detector proposal, a binary mask together
// with the detection metadata carried through to the tracker
type ScoredMask struct {
	// Mask is the binary footprint of the proposal
	Mask *mask.Mask
	// Confidence is the detector score for this proposal
	Confidence float32
	// Class is the detector class index, use -1 when unknown
	Class int
	// Category is the tracking category the proposal belongs to
	Category tracker.Category
}

// FlattenParams defines the parameters used when flattening scored masks
// into a single label mask
type FlattenParams struct {
	// Suppress enables overlap suppression where a larger mask eats the
	// overlapping pixels of smaller masks
	Suppress bool
	// OverlapThreshold is the minimum fraction of a masks original area
	// that must survive suppression for the mask to be kept, in the
	// range (0,1]
	OverlapThreshold float32
}

// DefaultFlattenParams returns an instance of FlattenParams with default
// values:
//   - Suppress: true
//   - OverlapThreshold: 0.8
func DefaultFlattenParams() FlattenParams {
	return FlattenParams{
		Suppress:         true,
		OverlapThreshold: 0.8,
	}
}

// Flattener turns a list of scored binary masks into one mutually exclusive
// label mask plus the candidate list describing its values.  A Flattener is
// not safe for concurrent use, run one per stream.
type Flattener struct {
	params FlattenParams
	// winner holds the per pixel owning proposal index plus one, reused
	// across frames
	winner []int32
}

// NewFlattener returns a Flattener with the given parameters
func NewFlattener(p FlattenParams) (*Flattener, error) {

	if p.Suppress && (p.OverlapThreshold <= 0 || p.OverlapThreshold > 1) {
		return nil, fmt.Errorf("overlap threshold %f outside (0,1]: %w",
			p.OverlapThreshold, tracker.ErrBadThreshold)
	}

	return &Flattener{params: p}, nil
}

// Flatten resolves overlaps between the scored masks and paints the
// survivors into a label mask of the given dimensions.  Candidate IDs are
// assigned sequentially from 1 in input order, matching the painted values.
//
// With suppression enabled each contested pixel goes to the covering mask
// with the largest area, ties keep the earliest mask.  A mask that loses
// more than 1-OverlapThreshold of its area is dropped entirely.  Without
// suppression contested pixels keep the earliest covering mask and no mask
// is dropped unless it ends up with zero pixels.
func (f *Flattener) Flatten(masks []ScoredMask, width,
	height int) (*mask.Label, []tracker.Candidate, error) {

	out := mask.NewLabel(width, height)

	if len(masks) == 0 {
		return out, nil, nil
	}

	size := width * height
	areas := make([]int, len(masks))

	for k, sm := range masks {

		if sm.Mask == nil || sm.Mask.Width != width || sm.Mask.Height != height {
			return nil, nil, fmt.Errorf("mask %d is not %dx%d: %w",
				k, width, height, tracker.ErrBadDims)
		}

		areas[k] = sm.Mask.Sum()
	}

	if cap(f.winner) < size {
		f.winner = make([]int32, size)
	}

	winner := f.winner[:size]

	for i := range winner {
		winner[i] = 0
	}

	// resolve pixel ownership
	for k, sm := range masks {
		for i, p := range sm.Mask.Pix {

			if p == 0 {
				continue
			}

			w := winner[i]

			if w == 0 {
				winner[i] = int32(k + 1)
				continue
			}

			// larger area steals the pixel, equal area keeps the
			// earlier mask
			if f.params.Suppress && areas[w-1] < areas[k] {
				winner[i] = int32(k + 1)
			}
		}
	}

	// count surviving pixels per proposal
	surviving := make([]int, len(masks))

	for _, w := range winner {
		if w != 0 {
			surviving[w-1]++
		}
	}

	// assign sequential IDs to the survivors
	ids := make([]int32, len(masks))
	cands := make([]tracker.Candidate, 0, len(masks))
	nextID := int32(1)

	for k, sm := range masks {

		if surviving[k] == 0 || areas[k] == 0 {
			continue
		}

		if f.params.Suppress &&
			float32(surviving[k])/float32(areas[k]) < f.params.OverlapThreshold {
			continue
		}

		ids[k] = nextID

		cands = append(cands, tracker.Candidate{
			ID:         nextID,
			Category:   sm.Category,
			Class:      sm.Class,
			Confidence: sm.Confidence,
		})

		nextID++
	}

	// paint surviving pixels with their assigned IDs
	for i, w := range winner {
		if w != 0 && ids[w-1] != 0 {
			out.Pix[i] = ids[w-1]
		}
	}

	return out, cands, nil
}
