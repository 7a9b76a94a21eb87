package d3d12

import (
	"testing"

	"github.com/afiedler/wgpu/d3d12/native"
)

func newTestHeap(t *testing.T, capacity uint32) *GeneralHeap {
	t.Helper()
	heap, err := NewGeneralHeap(native.NewSoftwareDevice(), native.DescriptorHeapCbvSrvUav, capacity)
	if err != nil {
		t.Fatalf("NewGeneralHeap: %v", err)
	}
	t.Cleanup(heap.Destroy)
	return heap
}

func TestGeneralHeapAllocateContiguous(t *testing.T) {
	heap := newTestHeap(t, 8)

	handles, err := heap.Allocate(3)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(handles) != 3 {
		t.Fatalf("expected 3 handles, got %d", len(handles))
	}
	for i := 1; i < len(handles); i++ {
		if handles[i].Index != handles[i-1].Index+1 {
			t.Fatalf("run not contiguous: %d then %d", handles[i-1].Index, handles[i].Index)
		}
		if handles[i].GPU.Ptr <= handles[i-1].GPU.Ptr {
			t.Fatal("GPU addresses must increase along the run")
		}
	}
	if heap.Allocated() != 3 {
		t.Fatalf("Allocated = %d, want 3", heap.Allocated())
	}
}

func TestGeneralHeapNeverExceedsCapacity(t *testing.T) {
	heap := newTestHeap(t, 8)

	if _, err := heap.Allocate(6); err != nil {
		t.Fatalf("Allocate(6): %v", err)
	}
	if _, err := heap.Allocate(3); err != ErrHeapExhausted {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	// Capacity not yet reached, smaller run still fits.
	if _, err := heap.Allocate(2); err != nil {
		t.Fatalf("Allocate(2): %v", err)
	}
	if _, err := heap.Allocate(1); err != ErrHeapExhausted {
		t.Fatalf("full heap must reject, got %v", err)
	}
	if heap.Allocated() != 8 {
		t.Fatalf("Allocated = %d, want 8", heap.Allocated())
	}
}

func TestGeneralHeapReusesFreedRun(t *testing.T) {
	heap := newTestHeap(t, 8)

	first, err := heap.Allocate(4)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := heap.Allocate(4); err != nil {
		t.Fatalf("Allocate rest: %v", err)
	}
	for _, h := range first {
		if err := heap.Free(h); err != nil {
			t.Fatalf("Free: %v", err)
		}
	}
	again, err := heap.Allocate(4)
	if err != nil {
		t.Fatalf("Allocate after free: %v", err)
	}
	if again[0].Index != first[0].Index {
		t.Fatalf("freed run not reused: got index %d, want %d", again[0].Index, first[0].Index)
	}
}

func TestGeneralHeapSearchWrapsBelowCursor(t *testing.T) {
	heap := newTestHeap(t, 4)

	first, err := heap.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := heap.Allocate(1); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := heap.Free(first[0]); err != nil {
		t.Fatalf("Free: %v", err)
	}
	// Slot 0 is free but too short for a pair; the run lands in the upper
	// half and pushes the search cursor to the end of the heap.
	pair, err := heap.Allocate(2)
	if err != nil {
		t.Fatalf("Allocate(2): %v", err)
	}
	if pair[0].Index != 2 {
		t.Fatalf("pair start = %d, want 2", pair[0].Index)
	}
	// The only remaining slot sits below the cursor and is found by the
	// wrapped scan.
	wrapped, err := heap.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate after wrap: %v", err)
	}
	if wrapped[0].Index != first[0].Index {
		t.Fatalf("wrapped index = %d, want %d", wrapped[0].Index, first[0].Index)
	}
	if heap.Allocated() != 4 {
		t.Fatalf("Allocated = %d, want 4", heap.Allocated())
	}
}

func TestGeneralHeapRejectsDoubleFree(t *testing.T) {
	heap := newTestHeap(t, 4)

	handles, err := heap.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := heap.Free(handles[0]); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := heap.Free(handles[0]); err != ErrSlotAlreadyFree {
		t.Fatalf("expected double-free rejection, got %v", err)
	}
	// The failed free must not corrupt the count.
	if heap.Allocated() != 0 {
		t.Fatalf("Allocated = %d, want 0", heap.Allocated())
	}
	if _, err := heap.Allocate(4); err != nil {
		t.Fatalf("full reallocation after double free: %v", err)
	}
}

func TestGeneralHeapZeroCountAllocation(t *testing.T) {
	heap := newTestHeap(t, 4)
	handles, err := heap.Allocate(0)
	if err != nil || handles != nil {
		t.Fatalf("Allocate(0) = %v, %v; want nil, nil", handles, err)
	}
}

func TestCpuPoolRecyclesFreedSlots(t *testing.T) {
	pool, err := NewCpuPool(native.NewSoftwareDevice(), native.DescriptorHeapRtv, 4)
	if err != nil {
		t.Fatalf("NewCpuPool: %v", err)
	}
	t.Cleanup(pool.Destroy)

	var handles []DescriptorHandle
	for i := 0; i < 4; i++ {
		h, err := pool.Allocate()
		if err != nil {
			t.Fatalf("Allocate %d: %v", i, err)
		}
		handles = append(handles, h)
	}
	if _, err := pool.Allocate(); err != ErrHeapExhausted {
		t.Fatalf("expected exhaustion, got %v", err)
	}

	if err := pool.Free(handles[2]); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if pool.FreeListLen() != 1 {
		t.Fatalf("FreeListLen = %d, want 1", pool.FreeListLen())
	}
	h, err := pool.Allocate()
	if err != nil {
		t.Fatalf("Allocate after free: %v", err)
	}
	if h.Index != handles[2].Index {
		t.Fatalf("recycled index %d, want %d", h.Index, handles[2].Index)
	}
	if pool.FreeListLen() != 0 {
		t.Fatalf("FreeListLen = %d, want 0", pool.FreeListLen())
	}
}

func TestCpuPoolRejectsDoubleFree(t *testing.T) {
	pool, err := NewCpuPool(native.NewSoftwareDevice(), native.DescriptorHeapDsv, 2)
	if err != nil {
		t.Fatalf("NewCpuPool: %v", err)
	}
	t.Cleanup(pool.Destroy)

	h, err := pool.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := pool.Free(h); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := pool.Free(h); err != ErrSlotAlreadyFree {
		t.Fatalf("expected double-free rejection, got %v", err)
	}
	if pool.FreeListLen() != 1 {
		t.Fatalf("free list grew on rejected free: %d", pool.FreeListLen())
	}
}
