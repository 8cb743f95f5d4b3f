package chat

import "sync"

// Sink accepts outbound frames for one member. Push must not block.
type Sink interface {
	Push(frame []byte) error
}

// Outbox is an unbounded single-consumer frame queue. Any number of
// goroutines may Push; exactly one goroutine drains it with Next.
type Outbox struct {
	mu     sync.Mutex
	queue  [][]byte
	closed bool
	ready  chan struct{}
}

// NewOutbox creates an empty, open Outbox.
func NewOutbox() *Outbox {
	return &Outbox{ready: make(chan struct{}, 1)}
}

// Push appends frame to the queue without blocking.
//
// Postcondition: returns ErrOutboxClosed if Close has been called.
func (o *Outbox) Push(frame []byte) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrOutboxClosed
	}
	o.queue = append(o.queue, frame)
	o.mu.Unlock()

	o.signal()
	return nil
}

// Next blocks until a frame is available and returns it. It returns false
// once the outbox is closed and every queued frame has been handed out.
func (o *Outbox) Next() ([]byte, bool) {
	for {
		o.mu.Lock()
		if len(o.queue) > 0 {
			frame := o.queue[0]
			o.queue[0] = nil
			o.queue = o.queue[1:]
			o.mu.Unlock()
			return frame, true
		}
		if o.closed {
			o.mu.Unlock()
			return nil, false
		}
		o.mu.Unlock()

		<-o.ready
	}
}

// Close stops accepting frames. Frames already queued are still returned by
// Next. Close is idempotent.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.signal()
}

// Discard closes the outbox and drops anything still queued.
func (o *Outbox) Discard() {
	o.mu.Lock()
	o.closed = true
	o.queue = nil
	o.mu.Unlock()

	o.signal()
}

// Len reports the number of queued frames.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// IsClosed reports whether Close or Discard has been called.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *Outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}
