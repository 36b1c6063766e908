package store

import (
	"sort"

	"sehlabs.com/history/internal/entity"
	"sehlabs.com/history/internal/version"
)

// Window is a window over versions of the concrete kind held by the store.
type Window = version.TypedWindow[*entity.Object]

// history is the list of an entity's versions, oldest first. Appending never modifies an existing
// element, so a slice taken under the shard's read lock stays valid after the lock is released.
type history []*entity.Object

// windowAround positions a window on the version at index i. The first version stands in as its
// own predecessor, and the last version as its own successor.
func (h history) windowAround(i int) Window {
	curr := h[i]
	prev, next := curr, curr
	if i > 0 {
		prev = h[i-1]
	}
	if i+1 < len(h) {
		next = h[i+1]
	}
	return version.NewTypedWindow(prev, curr, next)
}

func (h history) windows() []Window {
	windows := make([]Window, len(h))
	for i := range h {
		windows[i] = h.windowAround(i)
	}
	return windows
}

// indexAt finds the version valid at time t, being the newest one created no later than t. It
// reports false if t precedes the first version.
func (h history) indexAt(t version.Timestamp) (int, bool) {
	i := sort.Search(len(h), func(i int) bool {
		return h[i].Timestamp() > t
	})
	return i - 1, i > 0
}

// admit confirms that o may follow the versions already in h.
func (h history) admit(k entity.Key, o *entity.Object) error {
	if len(h) == 0 {
		return nil
	}
	latest := h[len(h)-1]
	if o.Version() <= latest.Version() {
		return versionConflictError{key: k, latest: latest.Version(), proposed: o.Version()}
	}
	// NB: Equal timestamps are allowed, leaving the latest version with an empty validity interval.
	if o.Timestamp() < latest.Timestamp() {
		return outOfOrderError{key: k, latest: latest.Timestamp(), proposed: o.Timestamp()}
	}
	return nil
}
