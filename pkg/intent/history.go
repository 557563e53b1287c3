package intent

import "sync"

// HistorySize is how many executed commands a History keeps.
const HistorySize = 5

// History remembers the most recent successfully executed commands, oldest
// first. The zero value is ready to use.
type History struct {
	mu      sync.Mutex
	entries []string
}

// Add appends cmd, dropping the oldest entry once HistorySize is exceeded.
// Duplicates are kept.
func (h *History) Add(cmd string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, cmd)
	if over := len(h.entries) - HistorySize; over > 0 {
		h.entries = append([]string(nil), h.entries[over:]...)
	}
}

// Entries returns a copy of the stored commands.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
