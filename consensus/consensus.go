package consensus

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
)

// Proposal is one hypothesis of a frame's segmentation, a label plane
// whose pixel values are the IDs of its candidate descriptors
type Proposal struct {
	// Label is the segmentation plane
	Label *mask.Label
	// Cands describe the segments appearing in Label
	Cands []tracker.Candidate
}

// Params defines the struct containing the consensus configuration
// parameters
type Params struct {
	// MatchThreshold is the minimum IoU ratio for two segments from
	// different proposals to be grouped as the same object. Must sit
	// inside (0,1).
	MatchThreshold float32
	// VoteFraction controls the support vote, a group survives when the
	// number of proposals containing it is strictly greater than
	// VoteFraction times the total number of proposals. Must sit inside
	// [0,1), the default 0.5 keeps groups with a strict majority.
	VoteFraction float32
}

// DefaultParams returns an instance of Params configured with default
// values being:
// - Match Threshold: 0.5
// - Vote Fraction: 0.5
func DefaultParams() Params {
	return Params{
		MatchThreshold: 0.5,
		VoteFraction:   0.5,
	}
}

// Fuser merges multiple segmentation proposals of the same frame into a
// single consensus segmentation
type Fuser struct {
	// Params are the consensus configuration parameters
	Params Params
}

// NewFuser returns a Fuser configured by p with its thresholds validated
func NewFuser(p Params) (*Fuser, error) {

	if p.MatchThreshold <= 0 || p.MatchThreshold >= 1 {
		return nil, fmt.Errorf("%w: match threshold %v is outside (0,1)",
			tracker.ErrBadThreshold, p.MatchThreshold)
	}

	if p.VoteFraction < 0 || p.VoteFraction >= 1 {
		return nil, fmt.Errorf("%w: vote fraction %v is outside [0,1)",
			tracker.ErrBadThreshold, p.VoteFraction)
	}

	return &Fuser{Params: p}, nil
}

// segment is one proposal's segment lifted out of its label plane
type segment struct {
	cand tracker.Candidate
	mask *mask.Mask
	sum  int
}

// group collects the segments of different proposals that describe the
// same object
type group struct {
	category tracker.Category
	members  []*segment
	// support counts the proposals contributing a member
	support int
	// union is the running union of the member masks, segments of later
	// proposals are matched against it
	union    *mask.Mask
	unionSum int
}

func newGroup(s *segment) *group {
	return &group{
		category: s.cand.Category,
		members:  []*segment{s},
		support:  1,
		union:    s.mask.Clone(),
		unionSum: s.sum,
	}
}

// add joins a segment from a new proposal to the group
func (g *group) add(s *segment) {

	g.members = append(g.members, s)
	g.support++

	for i, p := range s.mask.Pix {
		if p != 0 && g.union.Pix[i] == 0 {
			g.union.Pix[i] = 1
			g.unionSum++
		}
	}
}

// fuse builds the group's consensus mask, a pixel survives when more than
// half of the member segments cover it
func (g *group) fuse(width, height int) (*mask.Mask, int) {

	m := mask.NewMask(width, height)
	sum := 0

	for i := range m.Pix {

		votes := 0

		for _, s := range g.members {
			if s.mask.Pix[i] != 0 {
				votes++
			}
		}

		if votes*2 > len(g.members) {
			m.Pix[i] = 1
			sum++
		}
	}

	return m, sum
}

// candidate synthesises the group's descriptor. Confidence keeps the
// maximum over members and the class resolves by majority vote with ties
// to the lowest index.
func (g *group) candidate(id int32) tracker.Candidate {

	c := tracker.Candidate{
		ID:       id,
		Category: g.category,
		Class:    -1,
	}

	votes := make(map[int]int)

	for _, s := range g.members {
		if s.cand.Confidence > c.Confidence {
			c.Confidence = s.cand.Confidence
		}

		if s.cand.Class >= 0 {
			votes[s.cand.Class]++
		}
	}

	best := -1
	bestVotes := 0

	for class, n := range votes {
		if n > bestVotes || (n == bestVotes && class < best) {
			best = class
			bestVotes = n
		}
	}

	c.Class = best

	return c
}

// Fuse merges the proposals into one label plane and its candidate
// descriptors with IDs assigned from 1. Segments are aligned across
// proposals with an assignment on IoU costs, groups without majority
// support are voted out and surviving groups render in ascending area
// order so contested pixels go to the larger segment.
func (f *Fuser) Fuse(proposals []*Proposal) (*mask.Label, []tracker.Candidate, error) {

	if len(proposals) == 0 {
		return nil, nil, fmt.Errorf("fuse: no proposals")
	}

	width := proposals[0].Label.Width
	height := proposals[0].Label.Height

	for _, pr := range proposals[1:] {
		if pr.Label.Width != width || pr.Label.Height != height {
			return nil, nil, fmt.Errorf("fuse: %w: %dx%d and %dx%d",
				tracker.ErrBadDims, width, height, pr.Label.Width, pr.Label.Height)
		}
	}

	var groups []*group

	for _, pr := range proposals {

		segs := liftSegments(pr)

		if len(groups) == 0 {
			for _, s := range segs {
				groups = append(groups, newGroup(s))
			}
			continue
		}

		var err error
		groups, err = f.matchProposal(groups, segs)

		if err != nil {
			return nil, nil, fmt.Errorf("fuse: %w", err)
		}
	}

	// the support vote
	total := len(proposals)
	var kept []*group

	for _, g := range groups {
		if float32(g.support) > f.Params.VoteFraction*float32(total) {
			kept = append(kept, g)
		}
	}

	// consensus masks with IDs in group creation order
	type fused struct {
		id   int32
		mask *mask.Mask
		sum  int
	}

	out := mask.NewLabel(width, height)
	cands := make([]tracker.Candidate, 0, len(kept))
	planes := make([]*fused, 0, len(kept))

	for i, g := range kept {
		id := int32(i + 1)
		m, sum := g.fuse(width, height)
		planes = append(planes, &fused{id: id, mask: m, sum: sum})
		cands = append(cands, g.candidate(id))
	}

	sort.SliceStable(planes, func(i, j int) bool {
		return planes[i].sum < planes[j].sum
	})

	for _, p := range planes {
		out.Paint(p.mask, p.id)
	}

	return out, cands, nil
}

// matchProposal aligns one proposal's segments against the current groups.
// A Jonker-Volgenant assignment on 1-IoU costs pairs them up, pairs above
// the match threshold join their group and leftover segments found new
// groups.
func (f *Fuser) matchProposal(groups []*group, segs []*segment) ([]*group, error) {

	if len(segs) == 0 {
		return groups, nil
	}

	nGroups := len(groups)
	nSegs := len(segs)
	n := nGroups

	if nSegs > n {
		n = nSegs
	}

	// square cost matrix padded with the large sentinel so surplus rows
	// and columns absorb the unmatchable
	costs := mat.NewDense(n, n, nil)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			costs.Set(i, j, large)
		}
	}

	ratios := make([][]float32, nGroups)

	for i, g := range groups {

		ratios[i] = make([]float32, nSegs)

		for j, s := range segs {
			if g.category != s.cand.Category {
				continue
			}

			ratio, _, _ := mask.IoU(g.union, s.mask, g.unionSum, s.sum)
			ratios[i][j] = ratio

			if ratio > 0 {
				costs.Set(i, j, float64(1-ratio))
			}
		}
	}

	cost := make([][]float64, n)

	for i := range cost {
		cost[i] = costs.RawRowView(i)
	}

	x := make([]int, n)
	y := make([]int, n)

	if err := lapjv(n, cost, x, y); err != nil {
		return nil, err
	}

	taken := make([]bool, nSegs)

	for i, g := range groups {

		j := x[i]

		if j < 0 || j >= nSegs {
			continue
		}

		if ratios[i][j] >= f.Params.MatchThreshold {
			g.add(segs[j])
			taken[j] = true
		}
	}

	for j, s := range segs {
		if !taken[j] {
			groups = append(groups, newGroup(s))
		}
	}

	return groups, nil
}

// liftSegments extracts a proposal's segments, segments whose ID marks no
// pixels do not take part in the consensus
func liftSegments(pr *Proposal) []*segment {

	vals := make([]int32, len(pr.Cands))

	for i, c := range pr.Cands {
		vals[i] = c.ID
	}

	masks, sums := pr.Label.Split(vals)

	segs := make([]*segment, 0, len(vals))

	for i, c := range pr.Cands {
		if sums[i] == 0 {
			continue
		}

		segs = append(segs, &segment{cand: c, mask: masks[i], sum: sums[i]})
	}

	return segs
}
