package metrics

import "time"

// Entry is one (timestamp, count) observation in a history series.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}

// history is a fixed-capacity FIFO ring buffer of entries. Appending beyond
// capacity silently evicts the oldest entry.
type history struct {
	entries []Entry
	head    int // index of the oldest entry
	size    int
}

func newHistory(capacity int) *history {
	return &history{entries: make([]Entry, capacity)}
}

func (h *history) append(e Entry) {
	if h.size < len(h.entries) {
		h.entries[(h.head+h.size)%len(h.entries)] = e
		h.size++
		return
	}
	// Full: overwrite the oldest slot and advance.
	h.entries[h.head] = e
	h.head = (h.head + 1) % len(h.entries)
}

// since returns all entries with a timestamp at or after cutoff, oldest
// first.
func (h *history) since(cutoff time.Time) []Entry {
	out := make([]Entry, 0, h.size)
	for i := 0; i < h.size; i++ {
		e := h.entries[(h.head+i)%len(h.entries)]
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

func (h *history) len() int { return h.size }

func (h *history) clear() {
	h.head = 0
	h.size = 0
}
