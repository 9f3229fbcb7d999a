package graph

import (
	"fmt"
	"log/slog"
)

var schemaLog = slog.With("component", "graph-schema")

// EdgeID is the synthetic identity of a resolved edge: the group it was
// declared in plus the ids of the elements on either side.
type EdgeID struct {
	GroupID  string
	SourceID string
	SinkID   string
}

func (e EdgeID) String() string {
	return fmt.Sprintf("%s:%s->%s", e.GroupID, e.SourceID, e.SinkID)
}

// ChildEntry is one position in a group's linear child list: either an
// owning element or a reference to an element owned by another group.
// OutPad and InPad select which pad of the element participates when this
// entry is, respectively, the source or the sink side of an edge to its
// neighbor; a first entry's InPad and a last entry's OutPad are never used.
type ChildEntry struct {
	ID      string
	Kind    Kind
	Element Element // nil when IsRef is true
	IsRef   bool
	OutPad  PadRef
	InPad   PadRef
}

// Owning returns a ChildEntry that owns element, using its default pads
// unless overridden with WithOutPad/WithInPad.
func Owning(element Element) ChildEntry {
	return ChildEntry{
		ID:      element.ID(),
		Kind:    element.Kind(),
		Element: element,
		OutPad:  OutputDefault,
		InPad:   InputDefault,
	}
}

// Ref returns a ChildEntry referencing an element owned elsewhere in the
// schema by id. kind must match the resolved element's Kind or resolution
// fails with ErrKindMismatch.
func Ref(id string, kind Kind) ChildEntry {
	return ChildEntry{ID: id, Kind: kind, IsRef: true, OutPad: OutputDefault, InPad: InputDefault}
}

// WithOutPad overrides the pad used when this entry is the source side of
// an edge to its successor in the group.
func (c ChildEntry) WithOutPad(ref PadRef) ChildEntry {
	c.OutPad = ref
	return c
}

// WithInPad overrides the pad used when this entry is the sink side of an
// edge from its predecessor in the group.
func (c ChildEntry) WithInPad(ref PadRef) ChildEntry {
	c.InPad = ref
	return c
}

// Item is a named group of linearly connected children.
type Item struct {
	ID       string
	Children []ChildEntry
}

// pendingEdge is a resolved, not-yet-spawned connection.
type pendingEdge struct {
	id      EdgeID
	source  Producer
	sink    Consumer
	outPad  PadRef
	inPad   PadRef
}

// resolveItems validates a batch of schema items against the elements
// already known (existing) plus any newly declared owning children, and
// returns the pending edges they describe. It does not mutate existing.
func resolveItems(items []Item, existing map[string]Element) ([]pendingEdge, map[string]Element, error) {
	owners := make(map[string]Element, len(existing))
	for id, el := range existing {
		owners[id] = el
	}

	// Pass 1: register every owning child, rejecting duplicates against
	// both the prior graph and this batch.
	for _, item := range items {
		for _, child := range item.Children {
			if child.IsRef {
				continue
			}
			if _, ok := owners[child.ID]; ok {
				return nil, nil, &SchemaError{GroupID: item.ID, ChildID: child.ID, Err: ErrDuplicateID}
			}
			owners[child.ID] = child.Element
		}
	}

	var pending []pendingEdge

	// Pass 2: resolve each adjacent pair within each group.
	for _, item := range items {
		children := item.Children
		for i := 0; i+1 < len(children); i++ {
			left, right := children[i], children[i+1]

			leftEl, err := resolveEntry(owners, left)
			if err != nil {
				return nil, nil, &SchemaError{GroupID: item.ID, ChildID: left.ID, Err: err}
			}
			rightEl, err := resolveEntry(owners, right)
			if err != nil {
				return nil, nil, &SchemaError{GroupID: item.ID, ChildID: right.ID, Err: err}
			}

			producer, ok := leftEl.(Producer)
			if !ok {
				return nil, nil, &SchemaError{GroupID: item.ID, ChildID: left.ID, Err: ErrPadDirection}
			}
			consumer, ok := rightEl.(Consumer)
			if !ok {
				return nil, nil, &SchemaError{GroupID: item.ID, ChildID: right.ID, Err: ErrPadDirection}
			}

			outPad, ok := producer.OutputPads()[left.OutPad]
			if !ok {
				return nil, nil, &SchemaError{GroupID: item.ID, ChildID: left.ID, Err: ErrPadNotFound}
			}
			inPad, ok := consumer.InputPads()[right.InPad]
			if !ok {
				return nil, nil, &SchemaError{GroupID: item.ID, ChildID: right.ID, Err: ErrPadNotFound}
			}

			if outPad.BufferType() != inPad.BufferType() {
				schemaLog.Warn("edge rejected, buffer type mismatch",
					"group", item.ID,
					"edge", fmt.Sprintf("%s->%s", left.ID, right.ID),
					"source_type", outPad.BufferType(),
					"sink_type", inPad.BufferType(),
				)
				continue
			}

			pending = append(pending, pendingEdge{
				id:     EdgeID{GroupID: item.ID, SourceID: left.ID, SinkID: right.ID},
				source: producer,
				sink:   consumer,
				outPad: left.OutPad,
				inPad:  right.InPad,
			})
		}
	}

	return pending, owners, nil
}

func resolveEntry(owners map[string]Element, entry ChildEntry) (Element, error) {
	if !entry.IsRef {
		return entry.Element, nil
	}
	el, ok := owners[entry.ID]
	if !ok {
		return nil, ErrUnknownRef
	}
	if el.Kind() != entry.Kind {
		return nil, ErrKindMismatch
	}
	return el, nil
}
