package session

import "github.com/fieldpath/planner/internal/model"

// MaxHistory bounds the undo stack. Pushing past capacity evicts the oldest
// entry, never the newest.
const MaxHistory = 20

type snapshot struct {
	path      model.Path
	markers   []model.Marker
	selection *int
}

// History is a bounded stack of full state snapshots used for linear undo.
// The zero value is ready to use.
type History struct {
	entries []snapshot
}

// Push appends a snapshot, evicting the oldest entry when at capacity.
func (h *History) Push(snap snapshot) {
	if len(h.entries) >= MaxHistory {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, snap)
}

// Pop removes and returns the most recent snapshot. The second return is
// false when the history is empty.
func (h *History) Pop() (snapshot, bool) {
	if len(h.entries) == 0 {
		return snapshot{}, false
	}
	snap := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return snap, true
}

// Len returns the number of held snapshots.
func (h *History) Len() int {
	return len(h.entries)
}
