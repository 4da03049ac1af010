package gpu

import (
	"context"
	"sync"
)

// FramesInFlight is the number of frames the CPU may record ahead of the GPU.
const FramesInFlight = 2

// FrameSlots rotates through per-frame resource slots. A slot is busy from the
// moment its work is submitted until the queue reports completion, which
// closes the slot's fence channel.
type FrameSlots struct {
	mu      sync.Mutex
	fences  []chan struct{}
	current int
	poll    func()
}

// NewFrameSlots creates n free slots. poll is called while waiting on a busy
// slot; with wgpu it drives the device so completion callbacks can fire.
func NewFrameSlots(n int, poll func()) *FrameSlots {
	if n < 1 {
		n = 1
	}
	if poll == nil {
		poll = func() {}
	}
	return &FrameSlots{
		fences:  make([]chan struct{}, n),
		current: n - 1,
		poll:    poll,
	}
}

func (f *FrameSlots) Len() int { return len(f.fences) }

// Current is the slot returned by the last Acquire.
func (f *FrameSlots) Current() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Acquire advances to the next slot and waits until its previous work finished.
func (f *FrameSlots) Acquire(ctx context.Context) (int, error) {
	f.mu.Lock()
	f.current = (f.current + 1) % len(f.fences)
	slot := f.current
	f.mu.Unlock()

	if err := f.Wait(ctx, slot); err != nil {
		return slot, err
	}
	return slot, nil
}

// Busy reports whether the slot has submitted work that has not completed.
func (f *FrameSlots) Busy(slot int) bool {
	f.mu.Lock()
	ch := f.fences[slot]
	f.mu.Unlock()
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return false
	default:
		return true
	}
}

// Wait blocks until the slot is free, polling between checks.
func (f *FrameSlots) Wait(ctx context.Context, slot int) error {
	f.mu.Lock()
	ch := f.fences[slot]
	f.mu.Unlock()
	if ch == nil {
		return nil
	}
	for {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			f.poll()
		}
	}
}

// WaitAll waits for every slot, used on resize and shutdown.
func (f *FrameSlots) WaitAll(ctx context.Context) error {
	for i := range f.fences {
		if err := f.Wait(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// Arm marks the slot busy and returns the function that signals completion.
// The returned function is safe to call more than once.
func (f *FrameSlots) Arm(slot int) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.fences[slot] = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}
