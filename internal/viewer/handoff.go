package viewer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// FileRef points at one uploaded document in the upload store.
type FileRef struct {
	Name     string `json:"name"`
	MIMEType string `json:"type"`
	Size     int64  `json:"size"`
	Key      string `json:"-"`
}

// Handoff carries the uploaded files from the upload step to the viewer.
// It can be consumed exactly once.
type Handoff struct {
	ID        string    `json:"handoff_id"`
	Files     []FileRef `json:"files"`
	CreatedAt time.Time `json:"created_at"`
}

type handoffEntry struct {
	handoff  Handoff
	consumed bool
}

type HandoffRegistry struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *handoffEntry]
	now   func() time.Time
}

// NewHandoffRegistry keeps at most size pending handoffs for ttl. onExpire,
// if set, is called for handoffs that expire without being consumed.
func NewHandoffRegistry(size int, ttl time.Duration, onExpire func(Handoff)) *HandoffRegistry {
	if size <= 0 {
		size = 256
	}
	onEvict := func(_ string, e *handoffEntry) {
		if !e.consumed && onExpire != nil {
			onExpire(e.handoff)
		}
	}
	return &HandoffRegistry{
		cache: expirable.NewLRU[string, *handoffEntry](size, onEvict, ttl),
		now:   time.Now,
	}
}

// NewID reserves an id for files about to be stored.
func (r *HandoffRegistry) NewID() string { return uuid.NewString() }

func (r *HandoffRegistry) Put(id string, files []FileRef) Handoff {
	h := Handoff{ID: id, Files: append([]FileRef(nil), files...), CreatedAt: r.now()}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Add(id, &handoffEntry{handoff: h})
	return h
}

// Consume returns the handoff and marks it used. A second call for the same
// id fails with ErrHandoffConsumed.
func (r *HandoffRegistry) Consume(id string) (Handoff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache.Get(id)
	if !ok {
		return Handoff{}, ErrHandoffNotFound
	}
	if e.consumed {
		return Handoff{}, ErrHandoffConsumed
	}
	e.consumed = true
	return e.handoff, nil
}
