// Package texid hands out unused texture resource ids.
package texid

import (
	"errors"
	"math"
)

// Defaults used by the game's level tools.
const (
	DefaultBase = 1100000000
	DefaultStep = 7
)

var ErrExhausted = errors.New("texture id space exhausted")

// Allocator returns ids base, base+step, base+2*step, ... skipping ids
// already in use. It is not safe for concurrent use.
type Allocator struct {
	next uint32
	step uint32
	done bool
	used map[uint32]struct{}
}

// NewAllocator returns an allocator that will never return an id in used.
func NewAllocator(base, step uint32, used ...uint32) *Allocator {
	if step == 0 {
		step = DefaultStep
	}
	a := &Allocator{next: base, step: step, used: make(map[uint32]struct{}, len(used))}
	for _, id := range used {
		a.used[id] = struct{}{}
	}
	return a
}

// Next returns the first free id of the sequence and marks it used.
func (a *Allocator) Next() (uint32, error) {
	for !a.done {
		id := a.next
		if _, taken := a.used[id]; !taken {
			a.used[id] = struct{}{}
			a.advance()
			return id, nil
		}
		a.advance()
	}
	return 0, ErrExhausted
}

func (a *Allocator) advance() {
	if a.next > math.MaxUint32-a.step {
		a.done = true
		return
	}
	a.next += a.step
}

// Reserve marks id as used.
func (a *Allocator) Reserve(id uint32) {
	a.used[id] = struct{}{}
}

// InUse reports whether id has been reserved or handed out.
func (a *Allocator) InUse(id uint32) bool {
	_, ok := a.used[id]
	return ok
}
