package tasks

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("Register rejects a second active task", func(t *testing.T) {
		r := NewRegistry()
		first, _ := newTask(context.Background(), 1, "first", "")
		second, _ := newTask(context.Background(), 1, "second", "")

		if err := r.Register(first); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := r.Register(second); !errors.Is(err, ErrTaskActive) {
			t.Errorf("expected ErrTaskActive, got %v", err)
		}
		if got, _ := r.Active(1); got != first {
			t.Error("first task must stay registered")
		}
		if r.Len() != 1 {
			t.Errorf("expected one entry, got %d", r.Len())
		}
	})

	t.Run("Register replaces a finished task", func(t *testing.T) {
		r := NewRegistry()
		first, _ := newTask(context.Background(), 1, "first", "")
		second, _ := newTask(context.Background(), 1, "second", "")

		_ = r.Register(first)
		first.finish()
		if err := r.Register(second); err != nil {
			t.Errorf("expected finished task to be replaceable, got %v", err)
		}
	})

	t.Run("different users are independent", func(t *testing.T) {
		r := NewRegistry()
		a, _ := newTask(context.Background(), 1, "a", "")
		b, _ := newTask(context.Background(), 2, "b", "")
		if err := r.Register(a); err != nil {
			t.Fatal(err)
		}
		if err := r.Register(b); err != nil {
			t.Fatal(err)
		}
		if r.Len() != 2 {
			t.Errorf("expected 2 entries, got %d", r.Len())
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		r := NewRegistry()
		if r.Cancel(1) {
			t.Error("cancel without a task must return false")
		}

		task, ctx := newTask(context.Background(), 1, "a", "")
		_ = r.Register(task)
		if !r.Cancel(1) {
			t.Error("expected cancel to succeed")
		}
		if ctx.Err() == nil {
			t.Error("expected task context to be cancelled")
		}

		task.finish()
		if r.Cancel(1) {
			t.Error("cancel of a finished task must return false")
		}
		if _, ok := r.Active(1); ok {
			t.Error("finished task must not be active")
		}
	})

	t.Run("Unregister is idempotent", func(t *testing.T) {
		r := NewRegistry()
		task, _ := newTask(context.Background(), 1, "a", "")
		_ = r.Register(task)

		r.Unregister(1)
		r.Unregister(1)
		if r.Len() != 0 {
			t.Errorf("expected empty registry, got %d", r.Len())
		}
	})

	t.Run("unfinished entry cannot be replaced before Unregister", func(t *testing.T) {
		r := NewRegistry()
		old, _ := newTask(context.Background(), 1, "old", "")
		_ = r.Register(old)

		newer, _ := newTask(context.Background(), 1, "new", "")
		if err := r.Register(newer); !errors.Is(err, ErrTaskActive) {
			t.Fatalf("expected ErrTaskActive, got %v", err)
		}

		r.Unregister(1)
		old.finish()
		if err := r.Register(newer); err != nil {
			t.Fatalf("expected the slot to be free, got %v", err)
		}
		if got, ok := r.Active(1); !ok || got != newer {
			t.Error("newer task must be active")
		}
	})
}
