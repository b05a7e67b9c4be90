package matching

import (
	"sort"
	"sync"
)

// UnmatchedPool is the set of customer ids still eligible for matching
// against one list. It only ever shrinks.
type UnmatchedPool struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewUnmatchedPool creates a pool holding the given ids
func NewUnmatchedPool(ids []int64) *UnmatchedPool {
	p := &UnmatchedPool{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		p.ids[id] = struct{}{}
	}
	return p
}

// Contains reports whether id is still eligible
func (p *UnmatchedPool) Contains(id int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.ids[id]
	return ok
}

// Len returns the number of eligible ids
func (p *UnmatchedPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ids)
}

// Remove drops ids from the pool and returns how many were present
func (p *UnmatchedPool) Remove(ids ...int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for _, id := range ids {
		if _, ok := p.ids[id]; ok {
			delete(p.ids, id)
			removed++
		}
	}
	return removed
}

// IDs returns the eligible ids in ascending order
func (p *UnmatchedPool) IDs() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]int64, 0, len(p.ids))
	for id := range p.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone returns an independent copy of the pool
func (p *UnmatchedPool) Clone() *UnmatchedPool {
	return NewUnmatchedPool(p.IDs())
}

// Intersect returns a new pool of ids present in both pools
func (p *UnmatchedPool) Intersect(other *UnmatchedPool) *UnmatchedPool {
	ids := make([]int64, 0)
	for _, id := range p.IDs() {
		if other.Contains(id) {
			ids = append(ids, id)
		}
	}
	return NewUnmatchedPool(ids)
}
