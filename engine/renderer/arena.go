package renderer

import "github.com/spaghettifunk/reina/engine/core"

type release struct {
	name string
	fn   func()
}

// Arena owns release callbacks for device resources and runs them in reverse
// acquisition order. It is used both for teardown and for unwinding a setup
// that failed halfway.
type Arena struct {
	releases []release
}

func NewArena() *Arena {
	return &Arena{}
}

// Track registers fn to be called on Release. name shows up in debug logs.
func (a *Arena) Track(name string, fn func()) {
	a.releases = append(a.releases, release{name: name, fn: fn})
}

func (a *Arena) Len() int {
	return len(a.releases)
}

// Release runs every tracked callback, newest first, and empties the arena.
// Calling it again is a no-op.
func (a *Arena) Release() {
	for i := len(a.releases) - 1; i >= 0; i-- {
		r := a.releases[i]
		core.LogDebug("releasing %s", r.name)
		r.fn()
	}
	a.releases = nil
}
