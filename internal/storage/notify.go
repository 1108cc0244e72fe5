package storage

import (
	"context"
	"time"

	"smartlife/client/internal/event"
)

// Change describes one key write. Removed is set when the key was deleted;
// Key is empty when the whole store was cleared.
type Change struct {
	Key      string
	OldValue string
	NewValue string
	Removed  bool
}

// Notifier wraps a Storage and reports every write made through it to its
// subscribers. Writes made by other processes are picked up by Poll.
type Notifier struct {
	Storage

	changes *event.Bus[Change]
}

func NewNotifier(s Storage) *Notifier {
	return &Notifier{Storage: s, changes: event.NewBufferedBus[Change](16)}
}

// Subscribe returns a channel of changes and a function that releases it.
// A subscriber that falls behind misses changes rather than blocking writers.
func (n *Notifier) Subscribe() (<-chan Change, func()) {
	return n.changes.Subscribe()
}

func (n *Notifier) Set(ctx context.Context, key, value string) error {
	old, _, err := n.Storage.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := n.Storage.Set(ctx, key, value); err != nil {
		return err
	}
	if old != value {
		n.publish(Change{Key: key, OldValue: old, NewValue: value})
	}
	return nil
}

func (n *Notifier) Remove(ctx context.Context, key string) error {
	old, ok, err := n.Storage.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := n.Storage.Remove(ctx, key); err != nil {
		return err
	}
	if ok {
		n.publish(Change{Key: key, OldValue: old, Removed: true})
	}
	return nil
}

func (n *Notifier) Clear(ctx context.Context) error {
	if err := n.Storage.Clear(ctx); err != nil {
		return err
	}
	n.publish(Change{Removed: true})
	return nil
}

func (n *Notifier) publish(change Change) {
	n.changes.Publish(change)
}

// Poll re-reads keys every interval and sends a Change whenever a value
// differs from the last one seen. It returns when ctx is done. The first read
// only records the baseline.
func Poll(ctx context.Context, s Storage, interval time.Duration, keys []string, out chan<- Change) error {
	last := make(map[string]string, len(keys))
	present := make(map[string]bool, len(keys))
	for _, key := range keys {
		value, ok, err := s.Get(ctx, key)
		if err != nil {
			return err
		}
		last[key] = value
		present[key] = ok
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for _, key := range keys {
			value, ok, err := s.Get(ctx, key)
			if err != nil {
				return err
			}
			if ok == present[key] && value == last[key] {
				continue
			}
			change := Change{Key: key, OldValue: last[key], NewValue: value, Removed: !ok}
			last[key] = value
			present[key] = ok
			select {
			case out <- change:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
