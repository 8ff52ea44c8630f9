package consensus

import (
	"fmt"
	"sync"

	"github.com/openseg/go-segtrack/mask"
	"github.com/openseg/go-segtrack/tracker"
)

// ProposalBatch defines a struct used for collecting a fixed number of
// segmentation proposals of a single frame before fusion, such as the
// outputs of several segmentation workers
type ProposalBatch struct {
	// slots holds the collected proposals
	slots []*Proposal
	// size of the batch
	size int
	// width is the label plane width proposals must match
	width int
	// height is the label plane height proposals must match
	height int
	// cnt is a counter for how many proposals have been added with Add()
	cnt int
}

// NewProposalBatch creates a batch accepting proposals of the given plane
// dimensions
func NewProposalBatch(size, width, height int) *ProposalBatch {
	return &ProposalBatch{
		slots:  make([]*Proposal, size),
		size:   size,
		width:  width,
		height: height,
	}
}

// Add a proposal to the batch
func (b *ProposalBatch) Add(p *Proposal) error {

	// check if batch is full
	if b.cnt >= b.size {
		return fmt.Errorf("batch full")
	}

	res := b.addAt(b.cnt, p)

	if res != nil {
		return res
	}

	// increment proposal counter
	b.cnt++
	return nil
}

// AddAt adds a proposal to the batch at the specific index location
func (b *ProposalBatch) AddAt(idx int, p *Proposal) error {

	if idx < 0 || idx >= b.size {
		return fmt.Errorf("index %d out of range [0-%d)", idx, b.size)
	}

	return b.addAt(idx, p)
}

// addAt adds a proposal to the specified index location
func (b *ProposalBatch) addAt(idx int, p *Proposal) error {

	// validate plane dimensions
	if p.Label == nil || p.Label.Width != b.width || p.Label.Height != b.height {
		return fmt.Errorf("proposal does not match batch shape")
	}

	b.slots[idx] = p
	return nil
}

// Proposals returns the collected proposals in slot order
func (b *ProposalBatch) Proposals() []*Proposal {

	out := make([]*Proposal, 0, b.size)

	for _, p := range b.slots {
		if p != nil {
			out = append(out, p)
		}
	}

	return out
}

// Len returns the number of filled slots
func (b *ProposalBatch) Len() int {
	return len(b.Proposals())
}

// Fuse runs the fuser over the collected proposals
func (b *ProposalBatch) Fuse(f *Fuser) (*mask.Label, []tracker.Candidate, error) {
	return f.Fuse(b.Proposals())
}

// Clear the batch so it can be reused again
func (b *ProposalBatch) Clear() {
	for i := range b.slots {
		b.slots[i] = nil
	}

	b.cnt = 0
}

// BatchPool is a pool of proposal batches
type BatchPool struct {
	// pool of batches
	batches chan *ProposalBatch
	// size of pool
	size  int
	close sync.Once
}

// NewBatchPool returns a pool of ProposalBatches accepting proposals of
// the given plane dimensions
func NewBatchPool(size, batchSize, width, height int) *BatchPool {

	p := &BatchPool{
		batches: make(chan *ProposalBatch, size),
		size:    size,
	}

	for i := 0; i < size; i++ {
		p.Return(NewProposalBatch(batchSize, width, height))
	}

	return p
}

// Gets a batch from the pool
func (p *BatchPool) Get() *ProposalBatch {
	return <-p.batches
}

// Return a batch to the pool
func (p *BatchPool) Return(batch *ProposalBatch) {

	batch.Clear()

	select {
	case p.batches <- batch:
	default:
		// pool is full or closed
	}
}

// Close the pool and all batches in it
func (p *BatchPool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.batches)

		// drain remaining batches
		for range p.batches {
		}
	})
}
