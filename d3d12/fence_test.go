package d3d12

import (
	"testing"

	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

func newTestIdler(t *testing.T) (*Idler, *native.SoftwareFence) {
	t.Helper()
	idler, err := newIdler(native.NewSoftwareDevice(), native.NewEvent())
	if err != nil {
		t.Fatalf("newIdler: %v", err)
	}
	t.Cleanup(idler.Destroy)
	return idler, idler.fence.(*native.SoftwareFence)
}

func TestIdlerWaitZeroTimeoutPolls(t *testing.T) {
	idler, fence := newTestIdler(t)

	done, err := idler.Wait(3, 0)
	if err != nil || done {
		t.Fatalf("poll on pending value = %v, %v; want false, nil", done, err)
	}
	fence.Complete(3)
	done, err = idler.Wait(3, 0)
	if err != nil || !done {
		t.Fatalf("poll on completed value = %v, %v; want true, nil", done, err)
	}
}

func TestIdlerWaitCompletedValueSkipsEvent(t *testing.T) {
	idler, fence := newTestIdler(t)
	fence.Complete(7)

	done, err := idler.Wait(5, native.InfiniteTimeout)
	if err != nil || !done {
		t.Fatalf("Wait = %v, %v; want true, nil", done, err)
	}
}

func TestIdlerWaitBlocksUntilSignal(t *testing.T) {
	idler, fence := newTestIdler(t)

	go fence.Complete(1)
	done, err := idler.Wait(1, native.InfiniteTimeout)
	if err != nil || !done {
		t.Fatalf("Wait = %v, %v; want true, nil", done, err)
	}
}

func TestIdlerWaitTimeout(t *testing.T) {
	idler, _ := newTestIdler(t)

	done, err := idler.Wait(1, 1)
	if err != nil || done {
		t.Fatalf("Wait = %v, %v; want false, nil", done, err)
	}
}

func TestIdlerWaitFailureIsDeviceLost(t *testing.T) {
	idler, _ := newTestIdler(t)
	idler.event.Destroy()

	if _, err := idler.Wait(1, native.InfiniteTimeout); err != hal.ErrDeviceLost {
		t.Fatalf("expected device lost, got %v", err)
	}
}

func TestFenceTracksCompletedValue(t *testing.T) {
	fence, err := NewFence(native.NewSoftwareDevice())
	if err != nil {
		t.Fatalf("NewFence: %v", err)
	}
	t.Cleanup(fence.Destroy)

	if fence.Value() != 0 {
		t.Fatalf("initial value = %d, want 0", fence.Value())
	}
	fence.raw.(*native.SoftwareFence).Complete(9)
	if fence.Value() != 9 {
		t.Fatalf("value = %d, want 9", fence.Value())
	}
}

func TestQueueSubmitSignalsFence(t *testing.T) {
	device, _ := newTestDevice(t)
	encoder := newTestEncoder(t, device)
	beginRecording(t, encoder)
	buffer, err := encoder.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	fence, err := device.CreateFence()
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}

	if err := device.Queue().Submit([]*CommandBuffer{buffer}, fence, 42); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	queue := device.queue.raw.(*native.SoftwareQueue)
	if len(queue.Submitted) != 1 || len(queue.Submitted[0]) != 1 {
		t.Fatalf("submission not recorded: %+v", queue.Submitted)
	}
	if fence.Value() != 42 {
		t.Fatalf("fence value = %d, want 42", fence.Value())
	}
}
