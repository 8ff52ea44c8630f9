package tracker

import "fmt"

// Category partitions segments for matching, segments of different
// categories never match each other
type Category int

const (
	// CategoryUnknown is for segments carrying no stuff/thing designation
	CategoryUnknown Category = iota
	// CategoryStuff is for amorphous background regions such as road or sky
	CategoryStuff
	// CategoryThing is for countable foreground objects
	CategoryThing
)

// String returns the category name
func (c Category) String() string {
	switch c {
	case CategoryStuff:
		return "stuff"
	case CategoryThing:
		return "thing"
	default:
		return "unknown"
	}
}

// Candidate represents a single segment proposed for the current frame
type Candidate struct {
	// ID is the value marking this segment's pixels in the incoming label
	// mask. It is scoped to the frame and unrelated to registry identities.
	ID int32
	// Category is the segment's matching partition
	Category Category
	// Class is the detector class index, use -1 when not known
	Class int
	// Confidence is the detector score for this segment
	Confidence float32
}

// Object represents a single tracked object
type Object struct {
	// ID is the stable identity assigned at creation and never reused
	ID int32
	// Category is the matching partition the object belongs to
	Category Category
	// Confidence is the highest detector score over the absorbed detections
	Confidence float32

	// classVotes counts detector class indexes over absorbed detections
	classVotes map[int]int
	// merges counts the candidates absorbed since creation
	merges int
	// pokes counts consecutive frames since the object last matched
	pokes int
}

// newObject creates an object record from its founding candidate
func newObject(id int32, c Candidate) *Object {

	obj := &Object{
		ID:         id,
		Category:   c.Category,
		Confidence: c.Confidence,
		classVotes: make(map[int]int),
	}

	if c.Class >= 0 {
		obj.classVotes[c.Class]++
	}

	return obj
}

// Absorb merges an accepted candidate's attributes into the object.
// Confidence keeps the maximum seen and the candidate's class joins the
// class vote.
func (o *Object) Absorb(c Candidate) {

	o.merges++

	if c.Confidence > o.Confidence {
		o.Confidence = c.Confidence
	}

	if c.Class >= 0 {
		o.classVotes[c.Class]++
	}
}

// Class returns the majority class index over the absorbed detections,
// ties resolve to the lowest index. Returns -1 when no detection carried
// a class.
func (o *Object) Class() int {

	best := -1
	bestVotes := 0

	for class, votes := range o.classVotes {
		if votes > bestVotes || (votes == bestVotes && class < best) {
			best = class
			bestVotes = votes
		}
	}

	return best
}

// MergedCount returns the number of candidates absorbed since creation,
// the founding candidate excluded
func (o *Object) MergedCount() int {
	return o.merges
}

// String returns a readable description of the object's identity and
// attributes
func (o *Object) String() string {
	return fmt.Sprintf("id=%d, category=%s, class=%d, confidence=%.2f, "+
		"merged=%d, unmatched=%d",
		o.ID, o.Category.String(), o.Class(), o.Confidence, o.merges, o.pokes,
	)
}

// Poke records a frame where the object went unmatched
func (o *Object) Poke() {
	o.pokes++
}

// Unpoke resets the unmatched frame counter after a match
func (o *Object) Unpoke() {
	o.pokes = 0
}

// PokeCount returns the number of consecutive unmatched frames
func (o *Object) PokeCount() int {
	return o.pokes
}
