package tracker

import "sync"

// IDGenerator is a struct to hold a counter for issuing the next object
// identity. Identities start at 1 and are never reused, 0 is reserved as
// the background value in label masks.
type IDGenerator struct {
	id int32
	sync.Mutex
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext next incremental identity
func (id *IDGenerator) GetNext() int32 {
	id.Lock()
	defer id.Unlock()
	id.id++
	return id.id
}

// Count returns the number of identities issued so far
func (id *IDGenerator) Count() int {
	id.Lock()
	defer id.Unlock()
	return int(id.id)
}
