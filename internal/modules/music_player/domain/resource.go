package domain

import (
	"context"
	"sync"
)

// Resource is a prepared, streamable handle for exactly one track.
// Encoded is the audio node's opaque track blob.
type Resource struct {
	TrackID TrackID
	Encoded string
}

// IsZero reports whether r holds no prepared track.
func (r Resource) IsZero() bool {
	return r.Encoded == ""
}

// Prefetch is a one-shot future for a resource being prepared ahead of time.
type Prefetch struct {
	once     sync.Once
	done     chan struct{}
	resource Resource
	err      error
}

// NewPrefetch creates an unresolved Prefetch.
func NewPrefetch() *Prefetch {
	return &Prefetch{done: make(chan struct{})}
}

// Complete resolves the prefetch. Only the first call has any effect.
func (p *Prefetch) Complete(resource Resource, err error) {
	p.once.Do(func() {
		p.resource = resource
		p.err = err
		close(p.done)
	})
}

// Done is closed once the prefetch has been resolved.
func (p *Prefetch) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the prefetch resolves or ctx is done.
func (p *Prefetch) Wait(ctx context.Context) (Resource, error) {
	select {
	case <-p.done:
		return p.resource, p.err
	case <-ctx.Done():
		return Resource{}, ctx.Err()
	}
}
