package runner

import (
	"fmt"
	"sync"
)

const defaultOutputTailBytes = 5 * 1024 * 1024 // 5MB kept in memory per test

// tailBuffer keeps only the last N bytes written to it so a runaway compiler cannot
// exhaust memory while we capture its combined output.
type tailBuffer struct {
	maxBytes int

	mu       sync.Mutex
	total    int64
	contents []byte
}

func newTailBuffer(maxBytes int) *tailBuffer {
	if maxBytes <= 0 {
		maxBytes = defaultOutputTailBytes
	}
	return &tailBuffer{maxBytes: maxBytes}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	b.contents = append(b.contents, p...)
	if len(b.contents) > b.maxBytes {
		// Keep the most recent bytes
		b.contents = b.contents[len(b.contents)-b.maxBytes:]
	}
	return len(p), nil
}

// String returns the captured output, prefixed with a marker when older output was dropped.
func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dropped := b.total - int64(len(b.contents)); dropped > 0 {
		return fmt.Sprintf("... (%d bytes of earlier output truncated)\n%s", dropped, b.contents)
	}
	return string(b.contents)
}
