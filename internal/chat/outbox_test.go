package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain closes o and returns everything still queued.
func drain(o *Outbox) []string {
	o.Close()
	var frames []string
	for {
		frame, ok := o.Next()
		if !ok {
			return frames
		}
		frames = append(frames, string(frame))
	}
}

func TestOutbox_PushNextOrder(t *testing.T) {
	o := NewOutbox()
	require.NoError(t, o.Push([]byte("one")))
	require.NoError(t, o.Push([]byte("two")))
	assert.Equal(t, 2, o.Len())

	frame, ok := o.Next()
	require.True(t, ok)
	assert.Equal(t, "one", string(frame))
	assert.Equal(t, []string{"two"}, drain(o))
}

func TestOutbox_PushAfterClose(t *testing.T) {
	o := NewOutbox()
	o.Close()
	o.Close()
	assert.True(t, o.IsClosed())
	assert.ErrorIs(t, o.Push([]byte("late")), ErrOutboxClosed)

	_, ok := o.Next()
	assert.False(t, ok)
}

func TestOutbox_CloseKeepsQueuedFrames(t *testing.T) {
	o := NewOutbox()
	require.NoError(t, o.Push([]byte("queued")))
	o.Close()

	frame, ok := o.Next()
	require.True(t, ok)
	assert.Equal(t, "queued", string(frame))
	_, ok = o.Next()
	assert.False(t, ok)
}

func TestOutbox_DiscardDropsQueuedFrames(t *testing.T) {
	o := NewOutbox()
	require.NoError(t, o.Push([]byte("dropped")))
	o.Discard()

	_, ok := o.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, o.Len())
}

func TestOutbox_PushNeverBlocksWithoutConsumer(t *testing.T) {
	o := NewOutbox()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			_ = o.Push([]byte("x"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Push blocked with no consumer")
	}
	assert.Equal(t, 10000, o.Len())
}

func TestOutbox_NextWakesOnPush(t *testing.T) {
	o := NewOutbox()
	got := make(chan string, 1)
	go func() {
		frame, _ := o.Next()
		got <- string(frame)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, o.Push([]byte("wake")))

	select {
	case frame := <-got:
		assert.Equal(t, "wake", frame)
	case <-time.After(time.Second):
		t.Fatal("Next did not wake up after Push")
	}
}

func TestOutbox_ConcurrentProducersSingleConsumer(t *testing.T) {
	o := NewOutbox()
	const producers, perProducer = 8, 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = o.Push([]byte(fmt.Sprintf("%d-%d", p, i)))
			}
		}(p)
	}

	received := make(chan int)
	go func() {
		n := 0
		for {
			if _, ok := o.Next(); !ok {
				received <- n
				return
			}
			n++
		}
	}()

	wg.Wait()
	o.Close()
	select {
	case n := <-received:
		assert.Equal(t, producers*perProducer, n)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not finish")
	}
}
