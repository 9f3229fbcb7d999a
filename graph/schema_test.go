package graph

import (
	"errors"
	"testing"
)

func TestResolveItemsLinearChain(t *testing.T) {
	t.Parallel()

	src := newChanSource("src")
	mid := newPassFilter("mid")
	dst := newCollectSink("dst")

	items := []Item{{
		ID: "g1",
		Children: []ChildEntry{
			Owning(src),
			Owning(mid),
			Owning(dst),
		},
	}}

	pending, owners, err := resolveItems(items, nil)
	if err != nil {
		t.Fatalf("resolveItems error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending edges, want 2", len(pending))
	}
	if len(owners) != 3 {
		t.Fatalf("got %d owners, want 3", len(owners))
	}

	if pending[0].id != (EdgeID{GroupID: "g1", SourceID: "src", SinkID: "mid"}) {
		t.Errorf("edge 0 id = %+v", pending[0].id)
	}
	if pending[1].id != (EdgeID{GroupID: "g1", SourceID: "mid", SinkID: "dst"}) {
		t.Errorf("edge 1 id = %+v", pending[1].id)
	}
}

func TestResolveItemsDuplicateID(t *testing.T) {
	t.Parallel()

	a := newChanSource("dup")
	b := newCollectSink("dup")

	items := []Item{{ID: "g1", Children: []ChildEntry{Owning(a), Owning(b)}}}
	_, _, err := resolveItems(items, nil)

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) || !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("got %v, want SchemaError wrapping ErrDuplicateID", err)
	}
}

func TestResolveItemsUnknownRef(t *testing.T) {
	t.Parallel()

	dst := newCollectSink("dst")
	items := []Item{{
		ID: "g1",
		Children: []ChildEntry{
			Ref("missing", KindSource),
			Owning(dst),
		},
	}}

	_, _, err := resolveItems(items, nil)
	if !errors.Is(err, ErrUnknownRef) {
		t.Fatalf("got %v, want ErrUnknownRef", err)
	}
}

func TestResolveItemsKindMismatch(t *testing.T) {
	t.Parallel()

	src := newChanSource("src")
	dst := newCollectSink("dst")
	existing := map[string]Element{"src": src}

	items := []Item{{
		ID: "g1",
		Children: []ChildEntry{
			Ref("src", KindSink), // src is actually a KindSource
			Owning(dst),
		},
	}}

	_, _, err := resolveItems(items, existing)
	if !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("got %v, want ErrKindMismatch", err)
	}
}

func TestResolveItemsPadNotFound(t *testing.T) {
	t.Parallel()

	src := newChanSource("src")
	dst := newCollectSink("dst")

	items := []Item{{
		ID: "g1",
		Children: []ChildEntry{
			Owning(src).WithOutPad(CustomPad("nonexistent")),
			Owning(dst),
		},
	}}

	_, _, err := resolveItems(items, nil)
	if !errors.Is(err, ErrPadNotFound) {
		t.Fatalf("got %v, want ErrPadNotFound", err)
	}
}

func TestResolveItemsTypeMismatchRejectsEdgeNotWholeSpec(t *testing.T) {
	t.Parallel()

	src := newChanSource("src")
	dst := newStringSink("dst")

	items := []Item{{
		ID: "g1",
		Children: []ChildEntry{
			Owning(src),
			Owning(dst),
		},
	}}

	pending, owners, err := resolveItems(items, nil)
	if err != nil {
		t.Fatalf("resolveItems error: %v, want nil (mismatch is rejected, not fatal)", err)
	}
	if len(pending) != 0 {
		t.Fatalf("got %d pending edges, want 0 (the only pair mismatches)", len(pending))
	}
	if len(owners) != 2 {
		t.Fatalf("got %d owners, want 2 (both children still registered)", len(owners))
	}
}

func TestResolveItemsTypeMismatchSiblingsStillResolve(t *testing.T) {
	t.Parallel()

	src := newChanSource("src")
	bad := newStringSink("bad")
	good := newCollectSink("good")

	items := []Item{
		{ID: "g1", Children: []ChildEntry{Owning(src), Owning(bad)}},
		{ID: "g2", Children: []ChildEntry{Ref("src", KindSource), Owning(good)}},
	}

	pending, _, err := resolveItems(items, nil)
	if err != nil {
		t.Fatalf("resolveItems error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending edges, want 1 (g1's mismatched edge rejected, g2's spawned)", len(pending))
	}
	if pending[0].id != (EdgeID{GroupID: "g2", SourceID: "src", SinkID: "good"}) {
		t.Errorf("surviving edge id = %+v, want g2:src->good", pending[0].id)
	}
}

func TestResolveItemsPadDirectionMismatch(t *testing.T) {
	t.Parallel()

	// A sink cannot be the source side of an edge.
	dst := newCollectSink("dst")
	other := newCollectSink("other")

	items := []Item{{
		ID:       "g1",
		Children: []ChildEntry{Owning(dst), Owning(other)},
	}}

	_, _, err := resolveItems(items, nil)
	if !errors.Is(err, ErrPadDirection) {
		t.Fatalf("got %v, want ErrPadDirection", err)
	}
}
