package ir

import "slices"

// Change is one (version, value) pair of an alternative-state history.
type Change[T comparable] struct {
	Version Version
	Value   T
}

// History is the per-version record of a dimension, in ingestion order. It
// stays empty while the dimension never diverged.
type History[T comparable] struct {
	changes []Change[T]
}

// Len is the number of recorded changes.
func (h *History[T]) Len() int {
	return len(h.changes)
}

// Empty reports whether the dimension never diverged.
func (h *History[T]) Empty() bool {
	return len(h.changes) == 0
}

// Changes returns a copy of the recorded pairs.
func (h *History[T]) Changes() []Change[T] {
	return slices.Clone(h.changes)
}

// Latest is the most recently recorded value, or initial when nothing was
// recorded.
func (h *History[T]) Latest(initial T) T {
	if len(h.changes) == 0 {
		return initial
	}
	return h.changes[len(h.changes)-1].Value
}

// Observe records that the dimension had value observed in version v.
// seen lists the versions the entity was already present in, all of which
// had value initial while the history is empty. The first divergence seeds
// one (version, initial) entry per seen version; from then on every
// observation is recorded, so the set of recorded pairs does not depend on
// the order versions arrive in. Returns true when observed differs from the
// latest recorded value.
func (h *History[T]) Observe(seen []Version, initial T, v Version, observed T) bool {
	latest := h.Latest(initial)
	if len(h.changes) == 0 {
		if observed == initial {
			return false
		}
		for _, s := range seen {
			if s != v {
				h.changes = append(h.changes, Change[T]{Version: s, Value: initial})
			}
		}
	} else if h.recorded(v) {
		return false
	}
	h.changes = append(h.changes, Change[T]{Version: v, Value: observed})
	return observed != latest
}

func (h *History[T]) recorded(v Version) bool {
	return slices.ContainsFunc(h.changes, func(c Change[T]) bool { return c.Version == v })
}

// Versions returns the version column.
func (h *History[T]) Versions() []Version {
	out := make([]Version, len(h.changes))
	for i, c := range h.changes {
		out[i] = c.Version
	}
	return out
}

// Values returns the value column.
func (h *History[T]) Values() []T {
	out := make([]T, len(h.changes))
	for i, c := range h.changes {
		out[i] = c.Value
	}
	return out
}

// ValueSet returns the distinct values ever recorded.
func (h *History[T]) ValueSet() map[T]struct{} {
	out := make(map[T]struct{}, len(h.changes))
	for _, c := range h.changes {
		out[c.Value] = struct{}{}
	}
	return out
}
