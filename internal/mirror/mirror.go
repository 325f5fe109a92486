// Package mirror computes the operations that make a remote collection match its local playlist.
//
// Local always wins: tracks only the local side has are added, tracks only the remote side has
// are removed. Order is not part of the diff.
package mirror

import "sort"

// Set is a set of track ids.
type Set map[string]struct{}

// NewSet builds a set from ids, ignoring duplicates and blanks.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Len() int { return len(s) }

// Minus returns the ids of s absent from other.
func (s Set) Minus(other Set) Set {
	out := make(Set)
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the ids in ascending order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delta is the set of changes that brings the remote in line with local.
type Delta struct {
	ToAdd    Set
	ToRemove Set
}

// Empty reports whether the remote already mirrors local.
func (d Delta) Empty() bool {
	return d.ToAdd.Len() == 0 && d.ToRemove.Len() == 0
}

// Diff returns local − remote as additions and remote − local as removals.
func Diff(remote, local Set) Delta {
	return Delta{
		ToAdd:    local.Minus(remote),
		ToRemove: remote.Minus(local),
	}
}

// Apply returns the remote set after d has been pushed.
func Apply(remote Set, d Delta) Set {
	out := remote.Minus(d.ToRemove)
	for id := range d.ToAdd {
		out[id] = struct{}{}
	}
	return out
}

// OrderAdds filters ordered local ids down to those in d.ToAdd, keeping their order.
func (d Delta) OrderAdds(ordered []string) []string {
	out := make([]string, 0, d.ToAdd.Len())
	for _, id := range ordered {
		if d.ToAdd.Has(id) {
			out = append(out, id)
		}
	}
	return out
}
