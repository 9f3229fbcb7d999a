package elements

import (
	"context"
	"testing"

	"github.com/zsiec/framegraph/graph"
)

func TestMapFilterAppliesFunction(t *testing.T) {
	t.Parallel()

	f := NewMapFilter[int, string]("double", func(i int) string {
		if i%2 == 0 {
			return "even"
		}
		return "odd"
	})

	inPad := f.InputPads()[graph.InputDefault]
	outPad := f.OutputPads()[graph.OutputDefault]

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- inPad.Handle(ctx, nil, 4) }()

	v, ok := outPad.Next(ctx)
	if !ok {
		t.Fatal("output pad closed unexpectedly")
	}
	if v.(string) != "even" {
		t.Errorf("got %v, want even", v)
	}
	if err := <-done; err != nil {
		t.Fatalf("Handle error: %v", err)
	}
}

func TestMapFilterHandleRejectsWrongType(t *testing.T) {
	t.Parallel()

	f := NewMapFilter[int, int]("id", func(i int) int { return i })
	inPad := f.InputPads()[graph.InputDefault]

	err := inPad.Handle(context.Background(), nil, "not an int")
	if err != graph.ErrTypeMismatch {
		t.Errorf("got %v, want ErrTypeMismatch", err)
	}
}

func TestMapFilterHandleCancelledContext(t *testing.T) {
	t.Parallel()

	f := NewMapFilter[int, int]("id", func(i int) int { return i })
	inPad := f.InputPads()[graph.InputDefault]

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := inPad.Handle(ctx, nil, 1); err == nil {
		t.Error("expected error from cancelled context, since nothing reads the output")
	}
}
