// Package history manages input history for the chat surface, persisted
// across runs.
package history

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	historyFileName = "sira_chat_history"
	maxHistorySize  = 1000
)

// History manages input history with persistence. Index -1 means the user
// is typing new input rather than browsing history.
type History struct {
	mu      sync.Mutex
	entries []string
	index   int
	current string
	path    string
}

// NewHistory loads existing history from the temp dir.
func NewHistory() *History {
	h := &History{
		index: -1,
		path:  filepath.Join(os.TempDir(), historyFileName),
	}
	h.load()
	return h
}

func (h *History) load() {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.Open(h.path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		line = strings.ReplaceAll(line, "\\n", "\n")
		line = strings.ReplaceAll(line, "\\\\", "\\")
		if line != "" {
			h.entries = append(h.entries, line)
		}
	}
	if len(h.entries) > maxHistorySize {
		h.entries = h.entries[len(h.entries)-maxHistorySize:]
	}
}

func (h *History) save() {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.Create(h.path)
	if err != nil {
		return
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, entry := range h.entries {
		escaped := strings.ReplaceAll(entry, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		writer.WriteString(escaped + "\n")
	}
	writer.Flush()
}

// Add a new entry, skipping blanks and immediate duplicates.
func (h *History) Add(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}

	h.mu.Lock()
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		h.index = -1
		h.current = ""
		h.mu.Unlock()
		return
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > maxHistorySize {
		h.entries = h.entries[len(h.entries)-maxHistorySize:]
	}
	h.index = -1
	h.current = ""
	h.mu.Unlock()

	h.save()
}

// Previous returns the previous entry. currentInput is stashed when the
// user first starts browsing so Next can restore it.
func (h *History) Previous(currentInput string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return "", false
	}
	if h.index == -1 {
		h.current = currentInput
		h.index = len(h.entries) - 1
	} else if h.index > 0 {
		h.index--
	} else {
		return h.entries[0], false
	}
	return h.entries[h.index], true
}

// Next returns the next entry toward the present, restoring the stashed
// input at the end.
func (h *History) Next() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index == -1 {
		return "", false
	}
	h.index++
	if h.index >= len(h.entries) {
		h.index = -1
		current := h.current
		h.current = ""
		return current, true
	}
	return h.entries[h.index], true
}

// Reset abandons history browsing.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.index = -1
	h.current = ""
}
