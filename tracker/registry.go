package tracker

import (
	"sort"

	"github.com/openseg/go-segtrack/mask"
)

// Registry owns the tracked object population of a single stream. It maps
// stable identities to the dense temp indexes of the current frame and
// counts every identity ever issued. A Registry is not safe for concurrent
// use, one stream owns it exclusively.
type Registry struct {
	idGen *IDGenerator
	// objects maps identity to record for every live object
	objects map[int32]*Object
	// order holds the objects present in the current frame, order[i] owns
	// temp index i+1
	order []*Object
	// tmpIdx maps identity to current temp index
	tmpIdx map[int32]int32
}

// NewRegistry returns an empty registry with a fresh identity counter
func NewRegistry() *Registry {
	return &Registry{
		idGen:   NewIDGenerator(),
		objects: make(map[int32]*Object),
		tmpIdx:  make(map[int32]int32),
	}
}

// Create registers a new object founded by the given candidate and issues
// its identity. The object is appended to the current temp index order.
func (r *Registry) Create(c Candidate) *Object {

	obj := newObject(r.idGen.GetNext(), c)

	r.objects[obj.ID] = obj
	r.order = append(r.order, obj)
	r.tmpIdx[obj.ID] = int32(len(r.order))

	return obj
}

// Lookup returns the live object holding the given identity, or nil when
// no such object exists
func (r *Registry) Lookup(id int32) *Object {
	return r.objects[id]
}

// TempIndex returns the temp index an identity holds in the current frame
func (r *Registry) TempIndex(id int32) (int32, bool) {
	t, ok := r.tmpIdx[id]
	return t, ok
}

// Objects returns the objects present in the current frame in temp index
// order, object i holding temp index i+1. The returned slice must not be
// modified.
func (r *Registry) Objects() []*Object {
	return r.order
}

// ActiveCount returns the number of objects present in the current frame
func (r *Registry) ActiveCount() int {
	return len(r.order)
}

// LiveCount returns the number of object records held, present in the
// current frame or not
func (r *Registry) LiveCount() int {
	return len(r.objects)
}

// HistoricalCount returns the number of identities ever issued by this
// registry. Pruned and vanished objects still count, the population limit
// is enforced against this figure.
func (r *Registry) HistoricalCount() int {
	return r.idGen.Count()
}

// Relabel converts an identity valued label mask into temp index space and
// rebuilds the temp index order. Temp indexes are assigned densely from 1
// in row-major encounter order. Identity values without a live record are
// treated as background.
func (r *Registry) Relabel(ids *mask.Label) *mask.Label {

	out := mask.NewLabel(ids.Width, ids.Height)

	r.order = r.order[:0]
	r.tmpIdx = make(map[int32]int32)

	next := int32(0)

	for i, v := range ids.Pix {
		if v == 0 {
			continue
		}

		t, ok := r.tmpIdx[v]

		if !ok {
			obj := r.objects[v]

			if obj == nil {
				continue
			}

			next++
			t = next
			r.tmpIdx[v] = t
			r.order = append(r.order, obj)
		}

		out.Pix[i] = t
	}

	return out
}

// Identity converts a temp index valued label mask back into identity
// space using the current temp index order. Temp indexes outside the
// order are treated as background.
func (r *Registry) Identity(tmp *mask.Label) *mask.Label {

	out := mask.NewLabel(tmp.Width, tmp.Height)

	for i, v := range tmp.Pix {
		if v == 0 {
			continue
		}

		idx := int(v) - 1

		if idx < 0 || idx >= len(r.order) {
			continue
		}

		out.Pix[i] = r.order[idx].ID
	}

	return out
}

// PruneStale removes every live object whose unmatched frame count has
// reached maxPoke and returns the removed identities. Temp indexes are
// reassigned densely afterwards, so any previously produced temp mask
// must be converted with Identity before pruning and relabelled with
// Relabel after.
func (r *Registry) PruneStale(maxPoke int) []int32 {

	var removed []int32

	for id, obj := range r.objects {
		if obj.PokeCount() >= maxPoke {
			removed = append(removed, id)
			delete(r.objects, id)
		}
	}

	if len(removed) == 0 {
		return nil
	}

	sort.Slice(removed, func(i, j int) bool {
		return removed[i] < removed[j]
	})

	// rebuild the temp index order without the pruned objects
	kept := r.order[:0]
	r.tmpIdx = make(map[int32]int32)

	for _, obj := range r.order {
		if _, ok := r.objects[obj.ID]; !ok {
			continue
		}

		kept = append(kept, obj)
		r.tmpIdx[obj.ID] = int32(len(kept))
	}

	r.order = kept

	return removed
}

// Reset discards all objects and restarts the identity counter
func (r *Registry) Reset() {
	r.idGen = NewIDGenerator()
	r.objects = make(map[int32]*Object)
	r.order = nil
	r.tmpIdx = make(map[int32]int32)
}

// sweep updates the staleness counters after a merge. Objects touched this
// frame reset their counter, every other live object gains an unmatched
// frame.
func (r *Registry) sweep(touched map[int32]struct{}) {
	for id, obj := range r.objects {
		if _, ok := touched[id]; ok {
			obj.Unpoke()
		} else {
			obj.Poke()
		}
	}
}
