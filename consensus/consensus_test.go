package consensus

import (
	"errors"
	"testing"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
)

// rectProposal builds a proposal holding rectangular segments, rects are
// given as value, x0, y0, x1, y1 with coordinates exclusive on the high
// side
func rectProposal(width, height int, cands []tracker.Candidate, rects [][5]int) *Proposal {

	l := mask.NewLabel(width, height)

	for _, r := range rects {
		for y := r[2]; y < r[4]; y++ {
			for x := r[1]; x < r[3]; x++ {
				l.Pix[y*width+x] = int32(r[0])
			}
		}
	}

	return &Proposal{Label: l, Cands: cands}
}

// planeArea counts the pixels of the label plane holding value v
func planeArea(l *mask.Label, v int32) int {
	n := 0

	for _, p := range l.Pix {
		if p == v {
			n++
		}
	}

	return n
}

func TestFuserSingleProposal(t *testing.T) {

	f, err := NewFuser(DefaultParams())

	if err != nil {
		t.Fatalf("failed to create fuser: %v", err)
	}

	pr := rectProposal(20, 10, []tracker.Candidate{
		{ID: 7, Category: tracker.CategoryThing, Class: 3, Confidence: 0.8},
		{ID: 4, Category: tracker.CategoryStuff, Class: -1, Confidence: 0.5},
	}, [][5]int{
		{7, 0, 0, 5, 5},
		{4, 10, 0, 20, 10},
	})

	out, cands, err := f.Fuse([]*Proposal{pr})

	if err != nil {
		t.Fatalf("fuse failed: %v", err)
	}

	// IDs renumber from 1 in proposal order
	if len(cands) != 2 || cands[0].ID != 1 || cands[1].ID != 2 {
		t.Fatalf("candidates = %+v, want IDs 1 and 2", cands)
	}

	if got := planeArea(out, 1); got != 25 {
		t.Errorf("segment 1 area = %d, want 25", got)
	}

	if got := planeArea(out, 2); got != 100 {
		t.Errorf("segment 2 area = %d, want 100", got)
	}

	if cands[0].Class != 3 || cands[0].Category != tracker.CategoryThing {
		t.Errorf("candidate 1 = %+v, want class 3 thing", cands[0])
	}

	if cands[1].Class != -1 || cands[1].Confidence != 0.5 {
		t.Errorf("candidate 2 = %+v, want classless with confidence 0.5", cands[1])
	}
}

func TestFuserMajorityVote(t *testing.T) {

	f, err := NewFuser(DefaultParams())

	if err != nil {
		t.Fatalf("failed to create fuser: %v", err)
	}

	// the object appears in all three proposals, once shifted a column.
	// the spurious segment appears only in the second proposal.
	first := rectProposal(20, 10, []tracker.Candidate{
		{ID: 1, Category: tracker.CategoryThing, Class: 2, Confidence: 0.7},
	}, [][5]int{
		{1, 0, 0, 10, 10},
	})

	second := rectProposal(20, 10, []tracker.Candidate{
		{ID: 1, Category: tracker.CategoryThing, Class: 3, Confidence: 0.9},
		{ID: 2, Category: tracker.CategoryThing, Class: 6, Confidence: 0.4},
	}, [][5]int{
		{1, 1, 0, 11, 10},
		{2, 15, 0, 18, 5},
	})

	third := rectProposal(20, 10, []tracker.Candidate{
		{ID: 1, Category: tracker.CategoryThing, Class: 2, Confidence: 0.6},
	}, [][5]int{
		{1, 0, 0, 10, 10},
	})

	out, cands, err := f.Fuse([]*Proposal{first, second, third})

	if err != nil {
		t.Fatalf("fuse failed: %v", err)
	}

	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}

	// pixel majority keeps columns covered by at least two proposals
	if got := planeArea(out, 1); got != 100 {
		t.Errorf("consensus area = %d, want 100", got)
	}

	// the spurious segment was voted out
	if got := planeArea(out, 0); got != 100 {
		t.Errorf("background area = %d, want 100", got)
	}

	// class 2 outvotes class 3, confidence keeps the maximum
	if cands[0].Class != 2 {
		t.Errorf("class = %d, want 2", cands[0].Class)
	}

	if cands[0].Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", cands[0].Confidence)
	}
}

func TestFuserVoteFractionZero(t *testing.T) {

	f, err := NewFuser(Params{MatchThreshold: 0.5, VoteFraction: 0})

	if err != nil {
		t.Fatalf("failed to create fuser: %v", err)
	}

	// two proposals with nothing in common, a zero vote fraction keeps
	// both segments
	first := rectProposal(10, 10, []tracker.Candidate{
		{ID: 1, Category: tracker.CategoryThing},
	}, [][5]int{
		{1, 0, 0, 4, 4},
	})

	second := rectProposal(10, 10, []tracker.Candidate{
		{ID: 1, Category: tracker.CategoryThing},
	}, [][5]int{
		{1, 6, 6, 10, 10},
	})

	out, cands, err := f.Fuse([]*Proposal{first, second})

	if err != nil {
		t.Fatalf("fuse failed: %v", err)
	}

	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}

	if planeArea(out, 1) != 16 || planeArea(out, 2) != 16 {
		t.Errorf("segment areas = %d,%d want 16,16",
			planeArea(out, 1), planeArea(out, 2))
	}

	// with the default majority vote the same input keeps nothing
	strict, err := NewFuser(DefaultParams())

	if err != nil {
		t.Fatalf("failed to create fuser: %v", err)
	}

	out, cands, err = strict.Fuse([]*Proposal{first, second})

	if err != nil {
		t.Fatalf("strict fuse failed: %v", err)
	}

	if len(cands) != 0 || planeArea(out, 0) != 100 {
		t.Errorf("strict vote kept %d candidates", len(cands))
	}
}

func TestFuserCategoryIsolation(t *testing.T) {

	f, err := NewFuser(Params{MatchThreshold: 0.5, VoteFraction: 0})

	if err != nil {
		t.Fatalf("failed to create fuser: %v", err)
	}

	// identical pixels but different categories never group
	first := rectProposal(10, 10, []tracker.Candidate{
		{ID: 1, Category: tracker.CategoryThing},
	}, [][5]int{
		{1, 0, 0, 5, 5},
	})

	second := rectProposal(10, 10, []tracker.Candidate{
		{ID: 1, Category: tracker.CategoryStuff},
	}, [][5]int{
		{1, 0, 0, 5, 5},
	})

	_, cands, err := f.Fuse([]*Proposal{first, second})

	if err != nil {
		t.Fatalf("fuse failed: %v", err)
	}

	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2 ungrouped", len(cands))
	}

	if cands[0].Category == cands[1].Category {
		t.Errorf("categories collapsed: %+v", cands)
	}
}

func TestFuserValidation(t *testing.T) {

	if _, err := NewFuser(Params{MatchThreshold: 0, VoteFraction: 0.5}); !errors.Is(err, tracker.ErrBadThreshold) {
		t.Errorf("zero match threshold: got %v, want ErrBadThreshold", err)
	}

	if _, err := NewFuser(Params{MatchThreshold: 0.5, VoteFraction: 1}); !errors.Is(err, tracker.ErrBadThreshold) {
		t.Errorf("vote fraction 1: got %v, want ErrBadThreshold", err)
	}

	f, err := NewFuser(DefaultParams())

	if err != nil {
		t.Fatalf("failed to create fuser: %v", err)
	}

	if _, _, err := f.Fuse(nil); err == nil {
		t.Errorf("empty proposal set did not error")
	}

	a := &Proposal{Label: mask.NewLabel(4, 4)}
	b := &Proposal{Label: mask.NewLabel(5, 5)}

	if _, _, err := f.Fuse([]*Proposal{a, b}); !errors.Is(err, tracker.ErrBadDims) {
		t.Errorf("mismatched dims: got %v, want ErrBadDims", err)
	}
}

func TestProposalBatch(t *testing.T) {

	b := NewProposalBatch(2, 10, 10)

	p1 := rectProposal(10, 10, []tracker.Candidate{
		{ID: 1, Category: tracker.CategoryThing},
	}, [][5]int{
		{1, 0, 0, 4, 4},
	})

	p2 := rectProposal(10, 10, []tracker.Candidate{
		{ID: 1, Category: tracker.CategoryThing},
	}, [][5]int{
		{1, 1, 0, 5, 4},
	})

	if err := b.Add(p1); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := b.Add(p2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := b.Add(p1); err == nil {
		t.Errorf("overfilled batch did not error")
	}

	if b.Len() != 2 {
		t.Errorf("len = %d, want 2", b.Len())
	}

	// wrong shape is rejected
	bad := &Proposal{Label: mask.NewLabel(5, 5)}

	if err := b.AddAt(0, bad); err == nil {
		t.Errorf("shape mismatch not rejected")
	}

	if err := b.AddAt(5, p1); err == nil {
		t.Errorf("out of range index not rejected")
	}

	f, err := NewFuser(DefaultParams())

	if err != nil {
		t.Fatalf("failed to create fuser: %v", err)
	}

	out, cands, err := b.Fuse(f)

	if err != nil {
		t.Fatalf("batch fuse failed: %v", err)
	}

	// the two shifted rectangles agree, their majority pixels survive
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}

	if got := planeArea(out, 1); got != 12 {
		t.Errorf("consensus area = %d, want 12", got)
	}

	b.Clear()

	if b.Len() != 0 {
		t.Errorf("len after clear = %d, want 0", b.Len())
	}
}

func TestBatchPool(t *testing.T) {

	pool := NewBatchPool(2, 3, 10, 10)

	b1 := pool.Get()
	b2 := pool.Get()

	if b1 == nil || b2 == nil {
		t.Fatalf("pool returned nil batches")
	}

	p := rectProposal(10, 10, []tracker.Candidate{
		{ID: 1, Category: tracker.CategoryThing},
	}, [][5]int{
		{1, 0, 0, 4, 4},
	})

	if err := b1.Add(p); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	pool.Return(b1)

	// returned batches come back cleared
	b3 := pool.Get()

	if b3.Len() != 0 {
		t.Errorf("returned batch not cleared, len = %d", b3.Len())
	}

	pool.Return(b2)
	pool.Return(b3)
	pool.Close()

	// closing twice is safe
	pool.Close()
}
