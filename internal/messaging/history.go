package messaging

import "sync"

// history is a bounded ring buffer of published events. When full, the
// oldest event is overwritten.
type history struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		return &history{}
	}
	return &history{events: make([]Event, capacity)}
}

func (h *history) append(e Event) {
	if len(h.events) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.events[h.next] = e
	h.next = (h.next + 1) % len(h.events)
	if h.next == 0 {
		h.full = true
	}
}

// list returns the retained events oldest first, optionally filtered by type.
func (h *history) list(eventType string) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ordered := h.events[:h.next]
	if h.full {
		ordered = append(append([]Event{}, h.events[h.next:]...), h.events[:h.next]...)
	}

	out := make([]Event, 0, len(ordered))
	for _, e := range ordered {
		if eventType == "" || e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}
