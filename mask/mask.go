package mask

// Mask is a single channel binary mask. Pix holds one byte per pixel in
// row-major order, 1 marks membership and 0 background.
type Mask struct {
	// Pix is the mask data
	Pix []uint8
	// Width is the mask width in pixels
	Width int
	// Height is the mask height in pixels
	Height int
}

// Label is a single channel integer mask assigning one owner value per
// pixel in row-major order, 0 is reserved for background. The same layout
// carries both identity values and temp indexes, which of the two a given
// Label holds is part of each function's contract.
type Label struct {
	// Pix is the label data
	Pix []int32
	// Width is the label width in pixels
	Width int
	// Height is the label height in pixels
	Height int
}

// NewMask returns a zeroed Mask of the given dimensions
func NewMask(width, height int) *Mask {
	return &Mask{
		Pix:    make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// NewLabel returns a zeroed Label of the given dimensions
func NewLabel(width, height int) *Label {
	return &Label{
		Pix:    make([]int32, width*height),
		Width:  width,
		Height: height,
	}
}

// Sum returns the number of set pixels
func (m *Mask) Sum() int {
	n := 0

	for _, p := range m.Pix {
		if p != 0 {
			n++
		}
	}

	return n
}

// SameSize checks if both masks share the same dimensions
func (m *Mask) SameSize(o *Mask) bool {
	return m.Width == o.Width && m.Height == o.Height
}

// Clone returns a deep copy of the mask
func (m *Mask) Clone() *Mask {
	c := NewMask(m.Width, m.Height)
	copy(c.Pix, m.Pix)
	return c
}

// SameSize checks if both labels share the same dimensions
func (l *Label) SameSize(o *Label) bool {
	return l.Width == o.Width && l.Height == o.Height
}

// Clone returns a deep copy of the label
func (l *Label) Clone() *Label {
	c := NewLabel(l.Width, l.Height)
	copy(c.Pix, l.Pix)
	return c
}

// Binary extracts the binary mask of a single label value and returns it
// along with its pixel count. Extracting the background value 0 yields an
// empty mask.
func (l *Label) Binary(v int32) (*Mask, int) {

	m := NewMask(l.Width, l.Height)
	sum := 0

	if v == 0 {
		return m, sum
	}

	for i, p := range l.Pix {
		if p == v {
			m.Pix[i] = 1
			sum++
		}
	}

	return m, sum
}

// Values returns the distinct non-zero label values in row-major
// encounter order
func (l *Label) Values() []int32 {

	seen := make(map[int32]struct{})
	vals := make([]int32, 0, 8)

	for _, p := range l.Pix {
		if p == 0 {
			continue
		}

		if _, ok := seen[p]; ok {
			continue
		}

		seen[p] = struct{}{}
		vals = append(vals, p)
	}

	return vals
}

// Split extracts a binary mask and pixel count for every value in vals
// using a single pass over the label plane. Values absent from the plane
// yield empty masks with a zero count. Values must not repeat.
func (l *Label) Split(vals []int32) ([]*Mask, []int) {

	idx := make(map[int32]int, len(vals))

	for i, v := range vals {
		idx[v] = i
	}

	masks := make([]*Mask, len(vals))
	sums := make([]int, len(vals))

	for i := range masks {
		masks[i] = NewMask(l.Width, l.Height)
	}

	for i, p := range l.Pix {
		if p == 0 {
			continue
		}

		j, ok := idx[p]

		if !ok {
			continue
		}

		masks[j].Pix[i] = 1
		sums[j]++
	}

	return masks, sums
}

// SplitInto behaves like Split but fills the provided masks instead of
// allocating new ones. Each mask must match the label's dimensions and
// arrive zeroed, len(masks) must equal len(vals).
func (l *Label) SplitInto(masks []*Mask, vals []int32) []int {

	idx := make(map[int32]int, len(vals))

	for i, v := range vals {
		idx[v] = i
	}

	sums := make([]int, len(vals))

	for i, p := range l.Pix {
		if p == 0 {
			continue
		}

		j, ok := idx[p]

		if !ok {
			continue
		}

		masks[j].Pix[i] = 1
		sums[j]++
	}

	return sums
}

// Paint overwrites the label value v onto every pixel set in m. Existing
// owners of those pixels are replaced. The mask and label must share
// dimensions.
func (l *Label) Paint(m *Mask, v int32) {
	for i, p := range m.Pix {
		if p != 0 {
			l.Pix[i] = v
		}
	}
}

// IoU computes the intersection over union ratio of two masks from their
// precomputed pixel counts. Masks that do not intersect return (0, 0, 0)
// without the union being calculated. Both masks must share dimensions.
func IoU(a, b *Mask, sumA, sumB int) (float32, int, int) {

	inter := 0

	for i, p := range a.Pix {
		if p != 0 && b.Pix[i] != 0 {
			inter++
		}
	}

	if inter == 0 {
		return 0, 0, 0
	}

	union := sumA + sumB - inter

	return float32(inter) / float32(union), inter, union
}
