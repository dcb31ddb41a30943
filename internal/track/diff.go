package track

import "supmap-tracker/internal/navigation"

// Diff is the change produced by one mutation of the track. Both slices are
// ordered oldest first.
type Diff struct {
	Added   []navigation.Point `json:"added"`
	Evicted []navigation.Point `json:"evicted"`
}

// IsEmpty reports whether the diff carries no change.
func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Evicted) == 0
}

// DiffCallback receives the diffs of a Store. It is called synchronously
// with the store lock held and must not call back into the store.
type DiffCallback func(Diff)

// publisher holds the single diff subscriber. It is guarded by the store lock.
type publisher struct {
	callback DiffCallback
}

func (p *publisher) set(cb DiffCallback) {
	p.callback = cb
}

func (p *publisher) publish(d Diff) {
	if p.callback == nil || d.IsEmpty() {
		return
	}
	p.callback(d)
}
