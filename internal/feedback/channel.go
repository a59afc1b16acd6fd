// Package feedback carries receiver reports from the frame decoder back to
// the control loop.
package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/cognitive-radio/crts/pkg/models"
)

// Publisher accepts receiver feedback. The local Channel and the remote
// transport client both implement it.
type Publisher interface {
	Publish(rec models.FeedbackRecord) error
}

// Channel is a single-slot mailbox with latest-value semantics: a publish
// overwrites any record the reader has not yet taken.
type Channel struct {
	mu     sync.Mutex
	slot   models.FeedbackRecord
	fresh  bool
	notify chan struct{}
}

// NewChannel returns an empty channel.
func NewChannel() *Channel {
	return &Channel{notify: make(chan struct{}, 1)}
}

// Publish stores rec and wakes a waiting reader. It never blocks.
func (c *Channel) Publish(rec models.FeedbackRecord) error {
	c.mu.Lock()
	c.slot = rec
	c.fresh = true
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// AwaitUntil blocks until a fresh record is available or deadline passes.
// It returns the slot contents and whether they are fresh.
func (c *Channel) AwaitUntil(deadline time.Time) (models.FeedbackRecord, bool) {
	return c.Await(context.Background(), deadline)
}

// Await is AwaitUntil that also gives up when ctx is done.
func (c *Channel) Await(ctx context.Context, deadline time.Time) (models.FeedbackRecord, bool) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		if rec, ok := c.take(); ok {
			return rec, true
		}
		select {
		case <-c.notify:
		case <-timer.C:
			return c.take()
		case <-ctx.Done():
			return c.take()
		}
	}
}

func (c *Channel) take() (models.FeedbackRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fresh {
		return c.slot, false
	}
	c.fresh = false
	return c.slot, true
}
