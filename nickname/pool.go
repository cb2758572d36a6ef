// Package nickname implements the finite, reservable nickname pool
// described by spec.md §3 ("NicknamePool").
package nickname

import "sort"

// Pool tracks which configured nicknames are currently available versus
// claimed. Only names that were ever part of the configured pool may be
// claimed — arbitrary client-proposed names are always rejected.
//
// Pool is not itself safe for concurrent use: every call is expected to
// happen while the owning room.Room holds its single lock, the same
// discipline spec.md §5 describes for the original's recursive mutex.
//
// Grounded on the original ChatRoomPlugin.cpp's std::set<std::string>
// availableNickNames (an ordered set), rendered here as a map plus a
// sorted snapshot on read — the idiomatic Go equivalent of "iterate an
// ordered set".
type Pool struct {
	known     map[string]struct{}
	available map[string]struct{}
}

// New constructs a pool from the configured list of claimable nicknames.
// Duplicates are collapsed.
func New(configured []string) *Pool {
	known := make(map[string]struct{}, len(configured))
	available := make(map[string]struct{}, len(configured))
	for _, n := range configured {
		known[n] = struct{}{}
		available[n] = struct{}{}
	}
	return &Pool{known: known, available: available}
}

// Contains reports whether name was ever part of the configured pool.
func (p *Pool) Contains(name string) bool {
	_, ok := p.known[name]
	return ok
}

// Available reports whether name is currently unclaimed.
func (p *Pool) Available(name string) bool {
	_, ok := p.available[name]
	return ok
}

// Reserve removes name from the available set. It is a no-op if name is
// not currently available.
func (p *Pool) Reserve(name string) {
	delete(p.available, name)
}

// Release re-inserts name into the available set. Releasing a name that
// was never part of the configured pool is a no-op.
func (p *Pool) Release(name string) {
	if _, ok := p.known[name]; !ok {
		return
	}
	p.available[name] = struct{}{}
}

// Snapshot returns the currently available nicknames, alphabetically
// sorted, per spec.md §4.1's GetAvailableNickNames reply contract.
func (p *Pool) Snapshot() []string {
	names := make([]string, 0, len(p.available))
	for n := range p.available {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
