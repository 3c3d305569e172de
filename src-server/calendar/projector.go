package calendar

import (
	"fmt"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Identifies one snapshot of a tenant's leads and tasks. Revision must
// change on every write to either collection.
type ProjectionKey struct {
	BrokerageID string
	Revision    int64
}

// Loads the collections a projection is built from.
type SourceLoader func() ([]Lead, []Task, error)

// Projector memoises Project per tenant snapshot.
type Projector struct {
	cache *lru.Cache[ProjectionKey, []Event]

	// called with the time spent building an uncached projection
	OnBuild func(time.Duration)
}

func NewProjector(size int) (*Projector, error) {
	if size <= 0 {
		return nil, fmt.Errorf("NewProjector: cache size must be positive, got %d", size)
	}
	cache, err := lru.New[ProjectionKey, []Event](size)
	if err != nil {
		return nil, fmt.Errorf("NewProjector: %w", err)
	}
	return &Projector{cache: cache}, nil
}

// Events returns the projection for key, building it with load on a miss.
// The returned slice is the caller's to keep.
func (p *Projector) Events(key ProjectionKey, load SourceLoader) ([]Event, error) {
	if events, ok := p.cache.Get(key); ok {
		return cloneEvents(events), nil
	}

	leads, tasks, err := load()
	if err != nil {
		return nil, fmt.Errorf("(*Projector).Events: %w", err)
	}

	start := time.Now()
	events := Project(leads, tasks)
	if p.OnBuild != nil {
		p.OnBuild(time.Since(start))
	}

	p.cache.Add(key, events)
	return cloneEvents(events), nil
}

// Copies the slice and every End, so nothing the caller does reaches the
// cache.
func cloneEvents(events []Event) []Event {
	out := slices.Clone(events)
	for i := range out {
		if out[i].End != nil {
			end := *out[i].End
			out[i].End = &end
		}
	}
	return out
}

// Drop every cached snapshot of a tenant.
func (p *Projector) Forget(brokerageID string) {
	for _, key := range p.cache.Keys() {
		if key.BrokerageID == brokerageID {
			p.cache.Remove(key)
		}
	}
}

func (p *Projector) Len() int {
	return p.cache.Len()
}
