package tracker

import "sync"

// Point represents the x,y coordinates of an object's mask centroid in a
// single frame
type Point struct {
	X, Y int
}

// Track represents a track history
type Track struct {
	points []Point
}

// Trail is the struct to keep a history of object centroids used for
// drawing a movement trail
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// history of tracked points keyed by object identity
	history map[int32]*Track
	sync.Mutex
}

// NewTrail returns a new trail history instance. Size is the number of
// most recent points to keep and specifies the maximum length of the
// trail to maintain.
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[int32]*Track),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[int32]*Track)
}

// Add records an object's centroid for the current frame
func (t *Trail) Add(id int32, p Point) {
	t.Lock()
	defer t.Unlock()

	// init map if no history exists yet for this identity
	if _, exists := t.history[id]; !exists {
		t.history[id] = &Track{}
	}

	track := t.history[id]
	track.points = append(track.points, p)

	// check if history is exceeded and drop oldest point
	if len(track.points) > t.size {
		track.points = track.points[1:]
	}
}

// GetPoints gets the point history for a specific identity
func (t *Trail) GetPoints(id int32) []Point {
	t.Lock()
	defer t.Unlock()

	if _, exists := t.history[id]; exists {
		return t.history[id].points
	}

	// no history yet
	return nil
}

// Drop removes the history of an identity, call it after pruning the
// object from the registry
func (t *Trail) Drop(id int32) {
	t.Lock()
	defer t.Unlock()

	delete(t.history, id)
}
