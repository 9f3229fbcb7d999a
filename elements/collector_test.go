package elements

import (
	"context"
	"testing"

	"github.com/zsiec/framegraph/graph"
)

func TestCollectorSinkRecordsInOrder(t *testing.T) {
	t.Parallel()

	c := NewCollectorSink[string]("collect")
	inPad := c.InputPads()[graph.InputDefault]

	ctx := context.Background()
	for _, v := range []string{"a", "b", "c"} {
		if err := inPad.Handle(ctx, nil, v); err != nil {
			t.Fatalf("Handle(%q) error: %v", v, err)
		}
	}

	if got := c.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}

	items := c.Items()
	want := []string{"a", "b", "c"}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d = %q, want %q", i, items[i], want[i])
		}
	}
}

func TestCollectorSinkItemsReturnsSnapshot(t *testing.T) {
	t.Parallel()

	c := NewCollectorSink[int]("collect")
	inPad := c.InputPads()[graph.InputDefault]
	inPad.Handle(context.Background(), nil, 1)

	snapshot := c.Items()
	inPad.Handle(context.Background(), nil, 2)

	if len(snapshot) != 1 {
		t.Errorf("snapshot mutated after later Handle: got %v", snapshot)
	}
	if c.Count() != 2 {
		t.Errorf("Count() = %d, want 2", c.Count())
	}
}
