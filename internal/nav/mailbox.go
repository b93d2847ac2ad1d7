package nav

import (
	"context"
	"sync"
)

// Executor runs completion callbacks on the owner's goroutine.
type Executor interface {
	Post(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Post calls f(fn).
func (f ExecutorFunc) Post(fn func()) { f(fn) }

// Inline runs callbacks on the posting goroutine. Useful in tests and tools
// that have no owner loop.
var Inline Executor = ExecutorFunc(func(fn func()) { fn() })

// Mailbox is an unbounded FIFO of callbacks drained by a single owner goroutine.
// Post never blocks.
type Mailbox struct {
	mu     sync.Mutex
	queue  []func()
	notify chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{notify: make(chan struct{}, 1)}
}

// Post enqueues fn.
func (m *Mailbox) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Drain runs every queued callback on the calling goroutine and returns how
// many ran. Callbacks posted while draining run in the same call.
func (m *Mailbox) Drain() int {
	n := 0
	for {
		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		m.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
		}
		n += len(batch)
	}
}

// Run drains the mailbox until ctx is cancelled. Callbacks still queued at
// that point run before Run returns.
func (m *Mailbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			m.Drain()
			return nil
		case <-m.notify:
			m.Drain()
		}
	}
}

// Pending returns the number of queued callbacks.
func (m *Mailbox) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
