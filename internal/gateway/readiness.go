package gateway

import (
	"sync"

	"chatapp-gateway/internal/snowflake"
)

// Readiness tracks the servers announced as unavailable by READY. The client
// becomes ready once every one of them has arrived through SERVER_CREATE.
type Readiness struct {
	mutex   sync.Mutex
	pending map[snowflake.ID]struct{}
	begun   bool
	ready   bool
}

func NewReadiness() *Readiness {
	return &Readiness{pending: make(map[snowflake.ID]struct{})}
}

// Begin starts waiting for the given servers and reports whether the client
// is ready right away.
func (r *Readiness) Begin(ids []snowflake.ID) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.pending = make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		r.pending[id] = struct{}{}
	}
	r.begun = true
	r.ready = len(r.pending) == 0
	return r.ready
}

// Available marks a server as arrived. Until the client is ready every
// arrival counts as available, readyNow is true only for the arrival that
// emptied the pending set.
func (r *Readiness) Available(id snowflake.ID) (available bool, readyNow bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.begun || r.ready {
		return false, false
	}

	delete(r.pending, id)
	if len(r.pending) == 0 {
		r.ready = true
		return true, true
	}
	return true, false
}

func (r *Readiness) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.pending = make(map[snowflake.ID]struct{})
	r.begun = false
	r.ready = false
}

func (r *Readiness) Ready() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.ready
}

func (r *Readiness) Pending() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.pending)
}
