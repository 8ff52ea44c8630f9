package segtrack

import (
	"testing"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
)

func TestPoolGetReturn(t *testing.T) {

	p, err := NewPool(2, DefaultParams(8, 8))

	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	defer p.Close()

	s1 := p.Get()
	s2 := p.Get()

	if s1 == nil || s2 == nil || s1 == s2 {
		t.Fatalf("pool should hand out distinct sessions")
	}

	// run a stream on the borrowed session
	next := mask.NewLabel(8, 8)
	next.Pix[0] = 7

	_, _, err = s1.Step(next, []tracker.Candidate{
		{ID: 7, Category: tracker.CategoryThing, Class: -1, Confidence: 0.5},
	})

	if err != nil {
		t.Fatalf("step failed: %v", err)
	}

	p.Return(s1)

	s3 := p.Get()

	if s3 != s1 {
		t.Fatalf("expected the returned session back")
	}

	// returned sessions start the next stream from scratch
	if s3.FrameCount() != 0 || s3.Registry().HistoricalCount() != 0 {
		t.Errorf("returned session was not reset")
	}
}

func TestPoolBadParams(t *testing.T) {

	_, err := NewPool(2, DefaultParams(0, 8))

	if err == nil {
		t.Fatalf("expected error for invalid session params")
	}
}
