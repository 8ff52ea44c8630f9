package mask

import (
	"testing"
)

// gridLabel builds a Label from a row-major grid of values
func gridLabel(width, height int, pix []int32) *Label {
	l := NewLabel(width, height)
	copy(l.Pix, pix)
	return l
}

// gridMask builds a Mask from a row-major grid of values
func gridMask(width, height int, pix []uint8) *Mask {
	m := NewMask(width, height)
	copy(m.Pix, pix)
	return m
}

func TestIoU(t *testing.T) {

	const tolerance = 1e-6

	tests := []struct {
		name      string
		a, b      []uint8
		wantRatio float32
		wantInter int
		wantUnion int
	}{
		{
			name:      "identical",
			a:         []uint8{1, 1, 0, 0, 1, 0, 0, 0, 0},
			b:         []uint8{1, 1, 0, 0, 1, 0, 0, 0, 0},
			wantRatio: 1.0,
			wantInter: 3,
			wantUnion: 3,
		},
		{
			name:      "disjoint",
			a:         []uint8{1, 1, 0, 0, 0, 0, 0, 0, 0},
			b:         []uint8{0, 0, 0, 0, 0, 1, 1, 0, 0},
			wantRatio: 0,
			wantInter: 0,
			wantUnion: 0,
		},
		{
			name:      "partial overlap",
			a:         []uint8{1, 1, 1, 1, 0, 0, 0, 0, 0},
			b:         []uint8{0, 0, 1, 1, 1, 1, 0, 0, 0},
			wantRatio: 1.0 / 3.0,
			wantInter: 2,
			wantUnion: 6,
		},
		{
			name:      "both empty",
			a:         []uint8{0, 0, 0, 0, 0, 0, 0, 0, 0},
			b:         []uint8{0, 0, 0, 0, 0, 0, 0, 0, 0},
			wantRatio: 0,
			wantInter: 0,
			wantUnion: 0,
		},
	}

	for _, tc := range tests {

		a := gridMask(3, 3, tc.a)
		b := gridMask(3, 3, tc.b)

		ratio, inter, union := IoU(a, b, a.Sum(), b.Sum())

		if ratio < tc.wantRatio-tolerance || ratio > tc.wantRatio+tolerance {
			t.Errorf("%s: ratio = %v, want %v", tc.name, ratio, tc.wantRatio)
		}

		if inter != tc.wantInter {
			t.Errorf("%s: intersection = %d, want %d", tc.name, inter, tc.wantInter)
		}

		if union != tc.wantUnion {
			t.Errorf("%s: union = %d, want %d", tc.name, union, tc.wantUnion)
		}

		// ratio is symmetric
		rev, _, _ := IoU(b, a, b.Sum(), a.Sum())

		if rev != ratio {
			t.Errorf("%s: IoU not symmetric, %v vs %v", tc.name, ratio, rev)
		}
	}
}

func TestLabelBinary(t *testing.T) {

	l := gridLabel(3, 3, []int32{
		7, 7, 0,
		0, 9, 9,
		0, 0, 7,
	})

	m, sum := l.Binary(7)

	if sum != 3 {
		t.Errorf("sum = %d, want 3", sum)
	}

	want := []uint8{1, 1, 0, 0, 0, 0, 0, 0, 1}

	for i, p := range want {
		if m.Pix[i] != p {
			t.Errorf("pixel %d = %d, want %d", i, m.Pix[i], p)
		}
	}

	// background extraction yields nothing
	m, sum = l.Binary(0)

	if sum != 0 || m.Sum() != 0 {
		t.Errorf("background extraction returned %d pixels", sum)
	}

	// absent value yields nothing
	_, sum = l.Binary(42)

	if sum != 0 {
		t.Errorf("absent value returned %d pixels", sum)
	}
}

func TestLabelValues(t *testing.T) {

	l := gridLabel(4, 2, []int32{
		0, 5, 3, 5,
		3, 0, 8, 8,
	})

	vals := l.Values()

	want := []int32{5, 3, 8}

	if len(vals) != len(want) {
		t.Fatalf("got %d values, want %d", len(vals), len(want))
	}

	for i, v := range want {
		if vals[i] != v {
			t.Errorf("value %d = %d, want %d", i, vals[i], v)
		}
	}
}

func TestLabelSplit(t *testing.T) {

	l := gridLabel(3, 3, []int32{
		1, 1, 2,
		0, 2, 2,
		1, 0, 0,
	})

	masks, sums := l.Split([]int32{2, 1, 6})

	if len(masks) != 3 || len(sums) != 3 {
		t.Fatalf("got %d masks and %d sums, want 3 and 3", len(masks), len(sums))
	}

	if sums[0] != 3 {
		t.Errorf("sum for value 2 = %d, want 3", sums[0])
	}

	if sums[1] != 3 {
		t.Errorf("sum for value 1 = %d, want 3", sums[1])
	}

	// value 6 is absent from the plane
	if sums[2] != 0 {
		t.Errorf("sum for absent value = %d, want 0", sums[2])
	}

	wantTwo := []uint8{0, 0, 1, 0, 1, 1, 0, 0, 0}

	for i, p := range wantTwo {
		if masks[0].Pix[i] != p {
			t.Errorf("value 2 pixel %d = %d, want %d", i, masks[0].Pix[i], p)
		}
	}

	// split agrees with single extraction
	single, singleSum := l.Binary(1)

	if singleSum != sums[1] {
		t.Errorf("split sum %d disagrees with Binary sum %d", sums[1], singleSum)
	}

	for i := range single.Pix {
		if single.Pix[i] != masks[1].Pix[i] {
			t.Errorf("split mask disagrees with Binary at pixel %d", i)
		}
	}
}

func TestLabelPaint(t *testing.T) {

	l := gridLabel(3, 3, []int32{
		4, 4, 0,
		4, 0, 0,
		0, 0, 0,
	})

	m := gridMask(3, 3, []uint8{
		0, 1, 1,
		0, 1, 0,
		0, 0, 0,
	})

	l.Paint(m, 9)

	want := []int32{
		4, 9, 9,
		4, 9, 0,
		0, 0, 0,
	}

	for i, p := range want {
		if l.Pix[i] != p {
			t.Errorf("pixel %d = %d, want %d", i, l.Pix[i], p)
		}
	}
}

func TestMaskClone(t *testing.T) {

	m := gridMask(2, 2, []uint8{1, 0, 0, 1})
	c := m.Clone()

	c.Pix[0] = 0

	if m.Pix[0] != 1 {
		t.Errorf("clone shares backing array with source")
	}

	if !m.SameSize(c) {
		t.Errorf("clone dimensions differ from source")
	}
}

func TestBufPool(t *testing.T) {

	p := NewBufPool()

	if err := p.Create("scratch", 16); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := p.Create("scratch", 16); err == nil {
		t.Errorf("duplicate create did not error")
	}

	buf := p.Get("scratch", 8)

	if len(buf) != 8 {
		t.Fatalf("got buffer of length %d, want 8", len(buf))
	}

	for i := range buf {
		buf[i] = 1
	}

	p.Put("scratch", buf)

	// recycled buffers come back zeroed
	buf = p.Get("scratch", 8)

	for i, v := range buf {
		if v != 0 {
			t.Errorf("recycled buffer not zeroed at %d", i)
			break
		}
	}

	// oversize requests fall back to a fresh allocation
	big := p.Get("scratch", 64)

	if len(big) != 64 {
		t.Errorf("oversize request returned length %d, want 64", len(big))
	}

	m := p.GetMask("scratch", 4, 4)

	if m.Width != 4 || m.Height != 4 || len(m.Pix) != 16 {
		t.Errorf("pooled mask has wrong shape: %dx%d len %d", m.Width, m.Height, len(m.Pix))
	}
}
