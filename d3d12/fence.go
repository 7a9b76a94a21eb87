package d3d12

import (
	"github.com/afiedler/wgpu/core"
	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

// Fence wraps the native fence. The awaited value is caller-supplied per
// submission and never decreases.
type Fence struct {
	raw native.Fence
}

// NewFence creates a fence starting at zero.
func NewFence(device native.Device) (*Fence, error) {
	raw, hr := device.CreateFence(0)
	if err := deviceResult(hr, "fence creation"); err != nil {
		return nil, err
	}
	return &Fence{raw: raw}, nil
}

// Value returns the last value the GPU has completed.
func (f *Fence) Value() hal.FenceValue {
	return f.raw.CompletedValue()
}

func (f *Fence) Destroy() {
	if f.raw != nil {
		f.raw.Destroy()
		f.raw = nil
	}
}

// Idler is the CPU/GPU rendezvous used for "wait until device idle". It
// owns its own fence and event, independent of user-visible fences.
type Idler struct {
	fence native.Fence
	event native.Event
}

func newIdler(device native.Device, event native.Event) (*Idler, error) {
	fence, hr := device.CreateFence(0)
	if err := deviceResult(hr, "idler fence creation"); err != nil {
		return nil, err
	}
	return &Idler{fence: fence, event: event}, nil
}

// Wait blocks until the fence reaches value or the timeout elapses. It
// returns (true, nil) when the value was reached, (false, nil) on timeout.
// A timeout of zero polls without blocking. Abandoned, failed or unexpected
// wait statuses are logged with the raw status and reported as device-lost.
func (i *Idler) Wait(value hal.FenceValue, timeoutMS uint32) (bool, error) {
	if i.fence.CompletedValue() >= value {
		return true, nil
	}
	if timeoutMS == 0 {
		return false, nil
	}
	i.event.Reset()
	if hr := i.fence.SetEventOnCompletion(value, i.event); hr.Failed() {
		return false, deviceResult(hr, "fence event registration")
	}
	switch status := i.event.Wait(timeoutMS); status {
	case native.WaitObject0:
		return true, nil
	case native.WaitTimeout:
		return false, nil
	case native.WaitAbandoned, native.WaitFailed:
		core.LogError("idler wait failed with status 0x%x", uint32(status))
		return false, hal.ErrDeviceLost
	default:
		core.LogError("unexpected wait status: 0x%x", uint32(status))
		return false, hal.ErrDeviceLost
	}
}

// Destroy releases the fence and event.
func (i *Idler) Destroy() {
	if i.fence != nil {
		i.fence.Destroy()
		i.fence = nil
	}
	if i.event != nil {
		i.event.Destroy()
		i.event = nil
	}
}
