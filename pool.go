package segtrack

import (
	"sync"
)

// Pool is a simple session pool for hosts tracking multiple independent
// video streams in parallel. Every session in the pool shares the same
// configuration but owns its own registry, so streams never see each
// other's identities.
type Pool struct {
	// pool of sessions
	sessions chan *Session
	// size of pool
	size  int
	close sync.Once
}

// NewPool creates a new session pool of the given size
func NewPool(size int, params Params) (*Pool, error) {
	p := &Pool{
		sessions: make(chan *Session, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		sess, err := NewSession(params)

		if err != nil {
			p.Close()
			return nil, err
		}

		// attach to pool
		p.Return(sess)
	}

	return p, nil
}

// Gets a session from the pool
func (p *Pool) Get() *Session {
	return <-p.sessions
}

// Return a session to the pool. The session is reset so the next
// stream starts from an empty population.
func (p *Pool) Return(session *Session) {
	session.Reset()

	select {
	case p.sessions <- session:
	default:
		// pool is full or closed
	}
}

// Close the pool and discard all sessions in it
func (p *Pool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.sessions)

		// drain remaining sessions
		for range p.sessions {
		}
	})
}
