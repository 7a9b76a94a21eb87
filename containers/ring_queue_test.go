package containers

import "testing"

func TestRingQueueFIFOOrder(t *testing.T) {
	q := NewRingQueue[int](4)
	for i := 1; i <= 4; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := q.Enqueue(5); err != ErrQueueFull {
		t.Fatalf("expected full queue, got %v", err)
	}
	for i := 1; i <= 4; i++ {
		v, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if v != i {
			t.Fatalf("Dequeue = %d, want %d", v, i)
		}
	}
	if _, err := q.Dequeue(); err != ErrQueueEmpty {
		t.Fatalf("expected empty queue, got %v", err)
	}
}

func TestRingQueueWrapsAround(t *testing.T) {
	q := NewRingQueue[string](2)
	q.Enqueue("a")
	q.Enqueue("b")
	q.Dequeue()
	if err := q.Enqueue("c"); err != nil {
		t.Fatalf("Enqueue after wrap: %v", err)
	}
	if v, _ := q.Peek(); v != "b" {
		t.Fatalf("Peek = %q, want b", v)
	}
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
	v, _ := q.Dequeue()
	if v != "b" {
		t.Fatalf("Dequeue = %q, want b", v)
	}
	v, _ = q.Dequeue()
	if v != "c" {
		t.Fatalf("Dequeue = %q, want c", v)
	}
	if !q.IsEmpty() {
		t.Fatal("queue should be empty")
	}
}
