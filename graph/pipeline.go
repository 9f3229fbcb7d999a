package graph

import (
	"context"
	"log/slog"
	"sync"
)

// Handle is passed to every input pad's handler and lets an element reach
// back into the owning pipeline (e.g. to inspect Status()) without holding
// a direct reference to the concrete *Pipeline.
type Handle interface {
	Status() Status
}

// Status is a point-in-time snapshot of the pipeline's schema and edges.
type Status struct {
	ChildCount       int
	ActiveConnections int
	Groups           []string
}

type hubKey struct {
	elementID string
	pad       PadRef
}

type liveEdge struct {
	id      EdgeID
	outPad  PadRef
	inPad   PadRef
	cancel  context.CancelFunc
	unsub   func()
	usesHub bool
	hubKey  hubKey
}

// Pipeline is the serialized actor owning the schema and the set of live
// edges. All exported methods take an internal lock; edge workers run on
// their own goroutines and only touch Pipeline state through the small
// completion callback finishEdge, deferred in runWorker.
type Pipeline struct {
	log *slog.Logger

	mu      sync.Mutex
	owners  map[string]Element   // every currently-registered owning element, by id
	groups  map[string][]ChildEntry
	groupOrder []string
	edges   map[EdgeID]*liveEdge
	hubs    map[hubKey]*multicastHub

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New creates an empty Pipeline.
func New() *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		log:        slog.With("component", "graph-pipeline"),
		owners:     make(map[string]Element),
		groups:     make(map[string][]ChildEntry),
		edges:      make(map[EdgeID]*liveEdge),
		hubs:       make(map[hubKey]*multicastHub),
		rootCtx:    ctx,
		rootCancel: cancel,
	}
}

// BuildLinear declares (or replaces) the group "default" as a linear chain
// of children. Other groups already in the pipeline are left as they are.
func (p *Pipeline) BuildLinear(children []ChildEntry) error {
	return p.Spec([]Item{{ID: "default", Children: children}})
}

// BuildGroups replaces the named groups with the given children lists.
func (p *Pipeline) BuildGroups(groups map[string][]ChildEntry) error {
	items := make([]Item, 0, len(groups))
	for id, children := range groups {
		items = append(items, Item{ID: id, Children: children})
	}
	return p.Spec(items)
}

// Spec declares (or replaces) the children of each named group in items,
// then reconciles the pipeline's live edges against the resulting schema:
// edges no longer implied by any group are cancelled and dropped, edges
// newly implied are spawned, and edges unchanged by this call are left
// running untouched (idempotent).
func (p *Pipeline) Spec(items []Item) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Release ownership previously held by any group this call replaces,
	// so re-declaring the same element id in its own group's new child
	// list isn't mistaken for a cross-group duplicate.
	released := make(map[string]Element)
	for _, item := range items {
		for _, child := range p.groups[item.ID] {
			if !child.IsRef {
				released[child.ID] = p.owners[child.ID]
				delete(p.owners, child.ID)
			}
		}
	}

	// Validate duplicates across the merged view: current owners (minus
	// released) plus every owning child in this batch.
	trial := make(map[string]Element, len(p.owners))
	for id, el := range p.owners {
		trial[id] = el
	}
	for _, item := range items {
		for _, child := range item.Children {
			if child.IsRef {
				continue
			}
			if _, ok := trial[child.ID]; ok {
				for id, el := range released {
					p.owners[id] = el
				}
				return &SchemaError{GroupID: item.ID, ChildID: child.ID, Err: ErrDuplicateID}
			}
			trial[child.ID] = child.Element
		}
	}

	// Commit the new group definitions.
	for _, item := range items {
		if _, seen := p.groups[item.ID]; !seen {
			p.groupOrder = append(p.groupOrder, item.ID)
		}
		p.groups[item.ID] = item.Children
	}
	p.owners = trial

	// Recompute the full edge set implied by every current group.
	allItems := make([]Item, 0, len(p.groups))
	for _, id := range p.groupOrder {
		if children, ok := p.groups[id]; ok {
			allItems = append(allItems, Item{ID: id, Children: children})
		}
	}
	// allItems already carries every owning declaration currently in the
	// schema (it was rebuilt from p.groups just above), so resolution needs
	// no additional existing-owner context here.
	pending, _, err := resolveItems(allItems, nil)
	if err != nil {
		return err
	}

	desired := make(map[EdgeID]pendingEdge, len(pending))
	for _, pe := range pending {
		desired[pe.id] = pe
	}

	// A source pad needs a multicastHub only when more than one edge in the
	// desired schema reads from it; a single reader is wired straight to the
	// source's own OutputPad (see spawnEdgeLocked), so it backpressures the
	// source directly instead of through the hub's fan-out.
	fanout := make(map[hubKey]int, len(pending))
	for _, pe := range pending {
		fanout[hubKey{elementID: pe.source.ID(), pad: pe.outPad}]++
	}
	useHub := make(map[EdgeID]bool, len(pending))
	for _, pe := range pending {
		useHub[pe.id] = fanout[hubKey{elementID: pe.source.ID(), pad: pe.outPad}] > 1
	}

	// Drop edges no longer implied, implied with a different pad choice, or
	// whose wiring strategy (direct vs. hub) has changed.
	for id, live := range p.edges {
		pe, ok := desired[id]
		if ok && pe.outPad == live.outPad && pe.inPad == live.inPad && useHub[id] == live.usesHub {
			continue
		}
		p.cancelEdgeLocked(id)
	}

	// Spawn edges newly implied.
	for id, pe := range desired {
		if _, ok := p.edges[id]; ok {
			continue
		}
		p.spawnEdgeLocked(pe, useHub[id])
	}

	return nil
}

// Start is a no-op: edge workers start as soon as Spec spawns them. It
// exists so embedders can express "the pipeline should now be running"
// explicitly.
func (p *Pipeline) Start() {}

// Stop cancels every worker task, waits for them to return, and notifies
// each cancelled edge's source element via OnCancel so it can release
// producer resources. Stop is infallible and idempotent.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	for id := range p.edges {
		p.cancelEdgeLocked(id)
	}
	p.mu.Unlock()

	p.rootCancel()
	p.wg.Wait()
}

// RemoveChild cancels and drops every edge where id is the source or sink,
// notifies the source elements of those edges, drops the owning
// registration for id, and drops any group whose children become empty as
// a result. It returns ErrUnknownChild if id is not currently owned.
func (p *Pipeline) RemoveChild(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.owners[id]; !ok {
		return ErrUnknownChild
	}

	for edgeID := range p.edges {
		if edgeID.SourceID == id || edgeID.SinkID == id {
			p.cancelEdgeLocked(edgeID)
		}
	}

	delete(p.owners, id)

	for groupID, children := range p.groups {
		filtered := children[:0:0]
		for _, c := range children {
			if c.ID != id {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) == 0 {
			delete(p.groups, groupID)
			continue
		}
		p.groups[groupID] = filtered
	}

	return nil
}

// Status returns a snapshot of the schema and live edges.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	groups := make([]string, 0, len(p.groupOrder))
	for _, id := range p.groupOrder {
		if _, ok := p.groups[id]; ok {
			groups = append(groups, id)
		}
	}

	return Status{
		ChildCount:        len(p.owners),
		ActiveConnections: len(p.edges),
		Groups:            groups,
	}
}

// WaitForCompletion blocks until every worker task has finished, i.e. every
// source's sequence has been exhausted (or the pipeline has been stopped).
func (p *Pipeline) WaitForCompletion() {
	p.wg.Wait()
}

// cancelEdgeLocked tears down one edge. Caller must hold p.mu.
func (p *Pipeline) cancelEdgeLocked(id EdgeID) {
	live, ok := p.edges[id]
	if !ok {
		return
	}
	delete(p.edges, id)
	live.cancel()
	if live.unsub != nil {
		live.unsub()
	}

	if live.usesHub {
		if hub, ok := p.hubs[live.hubKey]; ok && hub.isEmpty() {
			hub.close()
			delete(p.hubs, live.hubKey)
		}
	}

	if source, ok := p.owners[id.SourceID].(Cancelable); ok {
		go source.OnCancel(context.Background(), id)
	}
}

// spawnEdgeLocked starts one edge's worker goroutine. Caller must hold p.mu.
// useHub selects between two wiring strategies: a direct connection to the
// source's own OutputPad (the common, single-consumer case, preserving
// backpressure straight through to the source) or a shared multicastHub
// when the same source pad also feeds at least one other edge.
func (p *Pipeline) spawnEdgeLocked(pe pendingEdge, useHub bool) {
	ctx, cancel := context.WithCancel(p.rootCtx)

	outPads := pe.source.OutputPads()
	origPad := outPads[pe.outPad]

	var (
		srcPad OutputPad
		unsub  func()
		key    hubKey
	)

	if useHub {
		key = hubKey{elementID: pe.source.ID(), pad: pe.outPad}
		hub, ok := p.hubs[key]
		if !ok {
			hub = newMulticastHub(p.rootCtx, origPad)
			p.hubs[key] = hub
		}
		srcPad, unsub = hub.subscribe(ctx)
	} else {
		srcPad = origPad
	}

	inPad := pe.sink.InputPads()[pe.inPad]

	live := &liveEdge{id: pe.id, outPad: pe.outPad, inPad: pe.inPad, cancel: cancel, unsub: unsub, usesHub: useHub, hubKey: key}
	p.edges[pe.id] = live

	p.wg.Add(1)
	go p.runWorker(ctx, pe.id, srcPad, inPad)
}

// runWorker pulls buffers from src and hands them to dst until src is
// exhausted, ctx is cancelled, or dst's handler fails. dst's handler
// receives the pipeline itself as a Handle, so an element can inspect the
// pipeline's Status from inside its own input pad handler.
func (p *Pipeline) runWorker(ctx context.Context, id EdgeID, src OutputPad, dst InputPad) {
	log := p.log.With("edge", id.String())
	defer p.wg.Done()
	defer p.finishEdge(id)
	defer func() {
		if r := recover(); r != nil {
			log.Error("edge worker panicked", "panic", r)
		}
	}()

	for {
		buf, ok := src.Next(ctx)
		if !ok {
			return
		}
		if err := dst.Handle(ctx, p, buf); err != nil {
			log.Error("edge worker: sink handler failed, closing edge", "error", err)
			return
		}
	}
}

// finishEdge removes an edge that ended on its own (source exhausted or
// handler error), as opposed to being torn down by Stop/RemoveChild, which
// already removed it from the map before cancelling.
func (p *Pipeline) finishEdge(id EdgeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	live, ok := p.edges[id]
	if !ok {
		return
	}
	delete(p.edges, id)
	if live.unsub != nil {
		live.unsub()
	}
	if live.usesHub {
		if hub, ok := p.hubs[live.hubKey]; ok && hub.isEmpty() {
			hub.close()
			delete(p.hubs, live.hubKey)
		}
	}
}
