package tracker

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/openseg/go-segtrack/mask"
)

var (
	// ErrUnknownMode is returned when a merger is configured with a
	// matching mode it does not implement
	ErrUnknownMode = errors.New("unknown matching mode")
	// ErrBadThreshold is returned when a merger is configured with an
	// engulf threshold outside the open interval (0,1)
	ErrBadThreshold = errors.New("invalid engulf threshold")
	// ErrBadDims is returned when input masks do not share the expected
	// dimensions
	ErrBadDims = errors.New("mask dimensions mismatch")
)

// iouMatchThreshold is the minimum IoU ratio for a candidate to match a
// tracked object
const iouMatchThreshold = 0.5

// scratch plane pool names
const (
	poolObject    = "object"
	poolCandidate = "candidate"
)

// Mode selects the strategy used to associate incoming segments with
// tracked objects
type Mode int

const (
	// ModeIoU matches a candidate to the first object of its category
	// whose IoU with it exceeds 0.5
	ModeIoU Mode = iota
	// ModeEngulf matches like ModeIoU but additionally discards candidates
	// mostly covered by an object they did not match
	ModeEngulf
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeIoU:
		return "iou"
	case ModeEngulf:
		return "engulf"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode. Names are matched case
// insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "iou":
		return ModeIoU, nil
	case "engulf":
		return ModeEngulf, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MergerParams defines the struct containing the Merger configuration
// parameters
type MergerParams struct {
	// Mode selects the matching strategy
	Mode Mode
	// MaxObjects caps the total number of identities the stream may issue.
	// A frame whose candidates would push the historical count past the
	// cap has its whole candidate set discarded. Zero or negative means
	// unlimited.
	MaxObjects int
	// EngulfThreshold is the fraction of a candidate's area that must be
	// covered by an object it did not match for the candidate to be
	// discarded. Only used by ModeEngulf and must sit inside (0,1).
	EngulfThreshold float32
}

// DefaultMergerParams returns an instance of MergerParams configured with
// default values being:
// - Mode: iou matching
// - Maximum Objects: unlimited
// - Engulf Threshold: 0.2
func DefaultMergerParams() MergerParams {
	return MergerParams{
		Mode:            ModeIoU,
		MaxObjects:      -1,
		EngulfThreshold: 0.2,
	}
}

// Merger fuses each frame's segment candidates into the tracked object
// population of a registry
type Merger struct {
	// Params are the merge configuration parameters
	Params MergerParams

	strategy strategy
	bufs     *mask.BufPool
	poolSize int
}

// NewMerger returns a Merger configured by p. The mode and engulf
// threshold are validated here so a merge call never sees a bad
// configuration.
func NewMerger(p MergerParams) (*Merger, error) {

	var s strategy

	switch p.Mode {
	case ModeIoU:
		s = iouStrategy{}
	case ModeEngulf:
		if p.EngulfThreshold <= 0 || p.EngulfThreshold >= 1 {
			return nil, fmt.Errorf("%w: %v is outside (0,1)",
				ErrBadThreshold, p.EngulfThreshold)
		}

		s = engulfStrategy{threshold: p.EngulfThreshold}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(p.Mode))
	}

	return &Merger{
		Params:   p,
		strategy: s,
		bufs:     mask.NewBufPool(),
	}, nil
}

// objSeg pairs a tracked object with its pixels in the previous frame
type objSeg struct {
	obj     *Object
	mask    *mask.Mask
	sum     int
	matched bool
}

// candSeg pairs a candidate with its pixels in the incoming frame
type candSeg struct {
	cand Candidate
	mask *mask.Mask
	sum  int
}

// passEntry is one render unit produced by a matching pass, an existing
// object with or without an absorbed candidate or a candidate founding a
// new object
type passEntry struct {
	// obj is nil when the entry founds a new object
	obj *objSeg
	// cand is nil when the entry carries an object over unmatched
	cand *candSeg
	// area orders rendering, the union area for matches and the segment's
	// own pixel count otherwise
	area int
}

// strategy associates one category's candidates with its objects and
// returns the render entries of the pass in construction order plus the
// number of candidates discarded by the engulf rule
type strategy interface {
	match(objs []*objSeg, cands []*candSeg) ([]*passEntry, int)
}

// iouStrategy takes the first object whose IoU with the candidate exceeds
// the match threshold, objects already matched this pass are skipped
type iouStrategy struct{}

func (iouStrategy) match(objs []*objSeg, cands []*candSeg) ([]*passEntry, int) {

	entries := make([]*passEntry, 0, len(objs)+len(cands))

	for _, c := range cands {

		matched := false

		for _, o := range objs {
			if o.matched {
				continue
			}

			ratio, _, union := mask.IoU(o.mask, c.mask, o.sum, c.sum)

			if ratio > iouMatchThreshold {
				o.matched = true
				entries = append(entries, &passEntry{obj: o, cand: c, area: union})
				matched = true
				break
			}
		}

		if !matched {
			entries = append(entries, &passEntry{cand: c, area: c.sum})
		}
	}

	// objects left unmatched carry over with their previous pixels
	for _, o := range objs {
		if !o.matched {
			entries = append(entries, &passEntry{obj: o, area: o.sum})
		}
	}

	return entries, 0
}

// engulfStrategy matches like iouStrategy but keeps already matched
// objects in the scan, a later candidate replaces the object's earlier
// match and the replaced candidate is dropped. Candidates mostly covered
// by an object they did not match are discarded outright.
type engulfStrategy struct {
	threshold float32
}

func (s engulfStrategy) match(objs []*objSeg, cands []*candSeg) ([]*passEntry, int) {

	entries := make([]*passEntry, 0, len(objs)+len(cands))
	byObj := make(map[*objSeg]*passEntry)
	engulfed := 0

	for _, c := range cands {

		matched := false
		discarded := false

		for _, o := range objs {

			ratio, inter, union := mask.IoU(o.mask, c.mask, o.sum, c.sum)

			if ratio > iouMatchThreshold {
				if prev, ok := byObj[o]; ok {
					// replace the earlier match in place so the entry
					// keeps its render position
					prev.cand = c
					prev.area = union
				} else {
					entry := &passEntry{obj: o, cand: c, area: union}
					byObj[o] = entry
					entries = append(entries, entry)
				}

				matched = true
				break
			}

			if ratio > 0 && float32(inter)/float32(c.sum) > s.threshold {
				// candidate is a sub part of a tracked object
				engulfed++
				discarded = true
				break
			}
		}

		if !matched && !discarded {
			entries = append(entries, &passEntry{cand: c, area: c.sum})
		}
	}

	for _, o := range objs {
		if _, ok := byObj[o]; !ok {
			entries = append(entries, &passEntry{obj: o, area: o.sum})
		}
	}

	return entries, engulfed
}

// Merge runs one frame of matching and merging against the registry.
// prev is the temp index mask produced by the previous call with the same
// registry, nil on the first frame. next is the incoming label mask whose
// pixel values are the candidate IDs of cands. The returned mask assigns
// every pixel to at most one object in temp index space.
//
// Matching runs in three category passes, unknown then stuff then thing,
// rendering each pass into a shared mask so a later pass overwrites an
// earlier one. Within a pass entries render in ascending area order, for
// pixels claimed twice the larger segment wins.
func (m *Merger) Merge(reg *Registry, prev, next *mask.Label,
	cands []Candidate) (*mask.Label, Report, error) {

	var rep Report

	if next == nil {
		return nil, rep, fmt.Errorf("merge: %w: missing input mask", ErrBadDims)
	}

	if prev != nil && !prev.SameSize(next) {
		return nil, rep, fmt.Errorf("merge: %w: previous %dx%d, input %dx%d",
			ErrBadDims, prev.Width, prev.Height, next.Width, next.Height)
	}

	if prev == nil {
		prev = mask.NewLabel(next.Width, next.Height)
	}

	total := len(cands)

	// enforce the population limit before any registry mutation, a frame
	// over the cap keeps tracking its carried over objects
	if m.Params.MaxObjects > 0 &&
		reg.HistoricalCount()+len(cands) > m.Params.MaxObjects {
		rep.LimitHit = true
		cands = nil
	}

	m.ensurePools(next.Width * next.Height)

	// extract the pixels of every tracked object from the previous frame
	objs := make([]*objSeg, reg.ActiveCount())
	objMasks := make([]*mask.Mask, len(objs))
	objVals := make([]int32, len(objs))

	for i := range objs {
		objMasks[i] = m.bufs.GetMask(poolObject, next.Width, next.Height)
		objVals[i] = int32(i + 1)
	}

	objSums := prev.SplitInto(objMasks, objVals)

	for i, obj := range reg.Objects() {
		objs[i] = &objSeg{obj: obj, mask: objMasks[i], sum: objSums[i]}
	}

	// extract the pixels of every candidate from the incoming frame
	candSegs := make([]*candSeg, len(cands))
	candMasks := make([]*mask.Mask, len(cands))
	candVals := make([]int32, len(cands))

	for i, c := range cands {
		candMasks[i] = m.bufs.GetMask(poolCandidate, next.Width, next.Height)
		candVals[i] = c.ID
	}

	candSums := next.SplitInto(candMasks, candVals)

	for i, c := range cands {
		candSegs[i] = &candSeg{cand: c, mask: candMasks[i], sum: candSums[i]}
	}

	// identity valued accumulator shared by all three passes
	acc := mask.NewLabel(next.Width, next.Height)
	touched := make(map[int32]struct{})

	for _, cat := range []Category{CategoryUnknown, CategoryStuff, CategoryThing} {

		var passObjs []*objSeg

		for _, o := range objs {
			if o.obj.Category == cat {
				passObjs = append(passObjs, o)
			}
		}

		var passCands []*candSeg

		for _, c := range candSegs {
			if c.cand.Category == cat {
				passCands = append(passCands, c)
			}
		}

		if len(passObjs) == 0 && len(passCands) == 0 {
			continue
		}

		entries, engulfed := m.strategy.match(passObjs, passCands)
		rep.Engulfed += engulfed

		m.render(reg, acc, entries, touched, &rep)
	}

	reg.sweep(touched)

	out := reg.Relabel(acc)

	rep.Active = reg.ActiveCount()
	rep.Discarded = total - rep.Matched - rep.Created

	for _, b := range objMasks {
		m.bufs.Put(poolObject, b.Pix)
	}

	for _, b := range candMasks {
		m.bufs.Put(poolCandidate, b.Pix)
	}

	return out, rep, nil
}

// render paints one pass worth of entries into the shared accumulator and
// applies the matching side effects. Entries paint in ascending area order
// with overwrite so the larger of two claims to a pixel wins.
func (m *Merger) render(reg *Registry, acc *mask.Label, entries []*passEntry,
	touched map[int32]struct{}, rep *Report) {

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].area < entries[j].area
	})

	for _, e := range entries {
		switch {
		case e.obj == nil:
			// a new object consumes an identity even when every pixel of
			// it is later overwritten
			obj := reg.Create(e.cand.cand)
			acc.Paint(e.cand.mask, obj.ID)
			touched[obj.ID] = struct{}{}
			rep.Created++

		case e.cand == nil:
			acc.Paint(e.obj.mask, e.obj.obj.ID)
			rep.CarriedOver++

		default:
			obj := e.obj.obj
			acc.Paint(e.obj.mask, obj.ID)
			acc.Paint(e.cand.mask, obj.ID)
			obj.Absorb(e.cand.cand)
			touched[obj.ID] = struct{}{}
			rep.Matched++
		}
	}
}

// ensurePools registers the scratch plane pools sized to the frame on
// first use
func (m *Merger) ensurePools(size int) {

	if m.poolSize != 0 {
		return
	}

	m.poolSize = size
	_ = m.bufs.Create(poolObject, size)
	_ = m.bufs.Create(poolCandidate, size)
}
