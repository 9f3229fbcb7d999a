package graph

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
)

// multicastHub fans a single OutputPad out to more than one independent
// consumer. It owns the sole goroutine allowed to call the wrapped pad's
// Next, satisfying the single-consumer-per-sequence rule even when the
// schema references one source pad from several edges. The pipeline only
// interposes a hub when a source pad genuinely feeds more than one edge; a
// plain linear edge is wired directly to the source's own OutputPad instead
// (see spawnEdgeLocked), so the ordinary case pays no extra goroutine or
// channel hop.
//
// A hub never drops a buffer. Each delivery to a subscriber blocks until
// that subscriber reads it or its own context ends, and the hub does not
// pull the next buffer from orig until every currently-registered
// subscriber has been offered the current one. A slow subscriber therefore
// backpressures the shared source exactly as a single direct consumer
// would, at the cost of the fastest subscriber waiting on the slowest.
type multicastHub struct {
	log  *slog.Logger
	orig OutputPad

	cancel context.CancelFunc

	mu     sync.Mutex
	subs   map[int]*hubSubscriber
	nextID int
}

type hubSubscriber struct {
	ctx context.Context
	ch  chan any
}

// newMulticastHub starts draining orig immediately, deriving its own
// lifetime from root so Pipeline can tear it down independently of any one
// subscriber's edge context (close stops the drain goroutine even while
// subscribers remain registered, which only happens when the pipeline is
// tearing the hub down itself).
func newMulticastHub(root context.Context, orig OutputPad) *multicastHub {
	ctx, cancel := context.WithCancel(root)
	h := &multicastHub{
		log:    slog.With("component", "graph-multicast", "pad", orig.Ref().String()),
		orig:   orig,
		cancel: cancel,
		subs:   make(map[int]*hubSubscriber),
	}
	go h.run(ctx)
	return h
}

// subscribe registers a new consumer and returns an OutputPad view private
// to it, plus an unsubscribe func the caller must invoke when done. ctx
// bounds only this subscriber's wait for delivery; it does not affect the
// hub's upstream read or other subscribers.
func (h *multicastHub) subscribe(ctx context.Context) (OutputPad, func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	sub := &hubSubscriber{ctx: ctx, ch: make(chan any)}
	h.subs[id] = sub
	h.mu.Unlock()

	pad := &multicastOutput{ref: h.orig.Ref(), bufType: h.orig.BufferType(), ch: sub.ch}
	unsub := func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
	return pad, unsub
}

// isEmpty reports whether the hub currently has no registered subscribers.
// The pipeline calls this right after unsubscribing the last known edge, to
// decide whether to close and reap the hub.
func (h *multicastHub) isEmpty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs) == 0
}

// close stops the hub's drain goroutine. Callers must only invoke this once
// the hub is empty (see Pipeline.cancelEdgeLocked); a hub with live
// subscribers is never closed out from under them.
func (h *multicastHub) close() {
	h.cancel()
}

func (h *multicastHub) run(ctx context.Context) {
	defer h.closeAll()
	for {
		buf, ok := h.orig.Next(ctx)
		if !ok {
			return
		}

		h.mu.Lock()
		subs := make([]*hubSubscriber, 0, len(h.subs))
		for _, s := range h.subs {
			subs = append(subs, s)
		}
		h.mu.Unlock()

		var wg sync.WaitGroup
		for id, s := range subs {
			wg.Add(1)
			go func(id int, s *hubSubscriber) {
				defer wg.Done()
				select {
				case s.ch <- buf:
				case <-s.ctx.Done():
					h.log.Debug("subscriber context ended before delivery, skipping", "subscriber", id)
				case <-ctx.Done():
				}
			}(id, s)
		}
		wg.Wait()

		if ctx.Err() != nil {
			h.log.Debug("hub draining stopped")
			return
		}
	}
}

func (h *multicastHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs {
		close(s.ch)
		delete(h.subs, id)
	}
}

// multicastOutput is one subscriber's private view of a multicast hub.
type multicastOutput struct {
	ref     PadRef
	bufType reflect.Type
	ch      chan any
}

func (p *multicastOutput) Ref() PadRef              { return p.ref }
func (p *multicastOutput) BufferType() reflect.Type { return p.bufType }

func (p *multicastOutput) Next(ctx context.Context) (any, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case v, ok := <-p.ch:
		return v, ok
	}
}
