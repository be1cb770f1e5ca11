// Package controller drives one principal's application state: it runs
// backend calls as tasks bound to the session, feeds their results into
// the reducer, writes the cache through and notifies subscribers.
package controller

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/justnotes/internal/backend"
	"github.com/xxxsen/justnotes/internal/cache"
	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/state"
)

const (
	subscriberBuffer = 4
	loadConcurrency  = 8
)

type Controller struct {
	backend backend.Backend
	mirror  *cache.Mirror

	// session scoped; cancelled on Close
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	st      state.State
	subs    map[int]chan state.View
	nextSub int
	closed  bool
}

func New(parent context.Context, principal *model.Principal, b backend.Backend, mirror *cache.Mirror) *Controller {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &Controller{
		backend: b,
		mirror:  mirror,
		ctx:     ctx,
		cancel:  cancel,
		st:      state.New(principal),
		subs:    make(map[int]chan state.View),
	}
}

func (c *Controller) State() state.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

func (c *Controller) View() state.View {
	return state.ViewOf(c.State())
}

// Subscribe returns a channel receiving the view after every change. A
// slow subscriber only sees the latest view.
func (c *Controller) Subscribe() (<-chan state.View, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan state.View, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- state.ViewOf(c.st)
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Done is closed once the session ends.
func (c *Controller) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close cancels every outstanding task. Results arriving afterwards are
// dropped.
func (c *Controller) Close() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// SignOut ends the session and clears the principal's cache.
func (c *Controller) SignOut(ctx context.Context) {
	c.cancel()
	c.apply(ctx, state.SignedOut{}, true)
	c.Close()
}

// task derives a context that ends with either ctx or the session.
func (c *Controller) task(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) alive() bool {
	return c.ctx.Err() == nil
}

// dispatch applies action unless the session has ended.
func (c *Controller) dispatch(ctx context.Context, action state.Action) bool {
	return c.apply(ctx, action, false)
}

func (c *Controller) apply(ctx context.Context, action state.Action, force bool) bool {
	c.mu.Lock()
	if c.closed || (!force && !c.alive()) {
		c.mu.Unlock()
		logutil.GetLogger(ctx).Debug("drop late result after session end")
		return false
	}
	next, effects := state.Reduce(c.st, action)
	c.st = next
	c.runEffects(ctx, effects)
	view := state.ViewOf(next)
	for _, ch := range c.subs {
		publish(ch, view)
	}
	c.mu.Unlock()
	return true
}

// runEffects is called with mu held so cache writes keep state order.
func (c *Controller) runEffects(ctx context.Context, effects []state.Effect) {
	if c.mirror == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, effect := range effects {
		switch e := effect.(type) {
		case state.PersistCache:
			if err := c.mirror.Save(ctx, e.Snapshot); err != nil {
				logutil.GetLogger(ctx).Warn("write cache failed", zap.Error(err))
			}
		case state.ClearCache:
			if err := c.mirror.Clear(ctx); err != nil {
				logutil.GetLogger(ctx).Warn("clear cache failed", zap.Error(err))
			}
		}
	}
}

func publish(ch chan state.View, view state.View) {
	for {
		select {
		case ch <- view:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// fail surfaces err as the dismissible message and returns it.
func (c *Controller) fail(ctx context.Context, op string, err error) error {
	if !c.alive() {
		return appErr.ErrNotSignedIn
	}
	logutil.GetLogger(ctx).Warn("operation failed", zap.String("op", op), zap.Error(err))
	c.dispatch(ctx, state.Failed{Message: err.Error()})
	return err
}
