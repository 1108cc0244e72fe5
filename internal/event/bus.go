// Package event fans values out to in-process subscribers.
package event

import "sync"

const defaultBuffer = 8

// Bus delivers every published value to each current subscriber. Publish never
// blocks: a subscriber whose buffer is full misses that value.
type Bus[T any] struct {
	mu     sync.Mutex
	nextID int
	buffer int
	subs   map[int]chan T
}

func NewBus[T any]() *Bus[T] {
	return NewBufferedBus[T](defaultBuffer)
}

// NewBufferedBus gives each subscriber a buffer of size values.
func NewBufferedBus[T any](size int) *Bus[T] {
	if size < 1 {
		size = 1
	}
	return &Bus[T]{buffer: size, subs: make(map[int]chan T)}
}

// Subscribe returns a channel of published values and a function that
// unsubscribes and closes it.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan T, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Bus[T]) Publish(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- value:
		default:
		}
	}
}

// Subscribers is the number of live subscriptions.
func (b *Bus[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
