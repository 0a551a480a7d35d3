package session

import (
	"time"

	"github.com/siralabs/sira/internal/api"
)

// PlaybackOptions control the simulated streaming of assistant answers.
type PlaybackOptions struct {
	// ChunkSize is how many runes are revealed per tick. Zero means 24.
	ChunkSize int
	// Interval between ticks. Zero means 40ms.
	Interval time.Duration
}

func (o PlaybackOptions) withDefaults() PlaybackOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 24
	}
	if o.Interval <= 0 {
		o.Interval = 40 * time.Millisecond
	}
	return o
}

// playback reveals an assistant message chunk by chunk. The message is
// appended empty and marked in progress; attachments are only visible once
// the full content has landed. Cancellation of the session context or a
// superseding Initialize/Reset abandons playback silently.
func (s *Session) playback(generation int, message api.Message) {
	runes := []rune(message.Content)

	partial := message
	partial.Content = ""
	partial.Meta = nil
	partial.InProgress = true
	if !s.appendTurnMessage(generation, partial) {
		return
	}

	if len(runes) == 0 {
		s.setLastContent(generation, "", true, message.Meta)
		return
	}

	ticker := time.NewTicker(s.opts.Playback.Interval)
	defer ticker.Stop()
	revealed := 0
	for revealed < len(runes) {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
		revealed += s.opts.Playback.ChunkSize
		if revealed > len(runes) {
			revealed = len(runes)
		}
		if !s.setLastContent(generation, string(runes[:revealed]), revealed == len(runes), message.Meta) {
			return
		}
	}
}

// setLastContent updates the in-progress tail message. On the final chunk
// the metadata is attached and the in-progress marker cleared. Returns
// false when the turn has been superseded and the write was dropped.
func (s *Session) setLastContent(generation int, content string, done bool, meta *api.MessageMeta) bool {
	s.mu.Lock()
	if generation != s.initGeneration {
		s.mu.Unlock()
		return false
	}
	if n := len(s.transcript); n > 0 {
		last := &s.transcript[n-1]
		if last.InProgress {
			last.Content = content
			if done {
				last.Meta = meta
				last.InProgress = false
			}
		}
	}
	s.mu.Unlock()
	s.fireTranscriptChanged()
	return true
}
