//go:build windows

package native

import "golang.org/x/sys/windows"

// osEvent wraps a real kernel event handle, for example the frame-latency
// waitable object of a DXGI swapchain.
type osEvent struct {
	handle windows.Handle
	owned  bool
}

// NewOSEvent creates a manual-reset kernel event.
func NewOSEvent() (Event, error) {
	h, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return nil, err
	}
	return &osEvent{handle: h, owned: true}, nil
}

// WrapWaitHandle adopts an existing waitable handle without taking
// ownership; Destroy will not close it.
func WrapWaitHandle(handle uintptr) Event {
	return &osEvent{handle: windows.Handle(handle)}
}

func (e *osEvent) Set() {
	_ = windows.SetEvent(e.handle)
}

func (e *osEvent) Reset() {
	_ = windows.ResetEvent(e.handle)
}

func (e *osEvent) Wait(timeoutMS uint32) WaitStatus {
	status, err := windows.WaitForSingleObject(e.handle, timeoutMS)
	if err != nil {
		return WaitFailed
	}
	return WaitStatus(status)
}

func (e *osEvent) Destroy() {
	if e.owned {
		_ = windows.CloseHandle(e.handle)
	}
}
