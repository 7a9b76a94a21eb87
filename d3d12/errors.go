// Package d3d12 implements the portable hal boundary on top of the native
// D3D12/DXGI primitives: descriptor heap allocation, pipeline layout
// binding, command encoding with pass-state tracking, and the swapchain
// acquire/present lifecycle.
package d3d12

import (
	"errors"
	"fmt"

	"github.com/afiedler/wgpu/core"
	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

// Usage errors. These indicate incorrect API use by the caller, not a
// runtime condition the backend can recover from.
var (
	ErrPassAlreadyOpen     = errors.New("d3d12: a pass is already open on this encoder")
	ErrNoRenderPass        = errors.New("d3d12: no render pass is open")
	ErrNoComputePass       = errors.New("d3d12: no compute pass is open")
	ErrPassOpen            = errors.New("d3d12: operation requires no open pass")
	ErrNotRecording        = errors.New("d3d12: encoder is not recording")
	ErrHeapExhausted       = errors.New("d3d12: descriptor heap exhausted")
	ErrSlotAlreadyFree     = errors.New("d3d12: descriptor slot freed twice")
	ErrTooManyBindGroups   = errors.New("d3d12: bind group count exceeds limit")
	ErrRootSignatureTooBig = errors.New("d3d12: root signature exceeds size limit")
	ErrTooManyDynamics     = errors.New("d3d12: dynamic buffer count exceeds limit")
	ErrBindingMissing      = errors.New("d3d12: bind group entry missing for layout binding")
	ErrTooManyResolves     = errors.New("d3d12: resolve count exceeds color target limit")
	ErrVertexSlotRange     = errors.New("d3d12: vertex buffer slot out of range")
	ErrSurfaceUnconfigured = errors.New("d3d12: surface is not configured")
	ErrForeignTexture      = errors.New("d3d12: texture was not acquired from this swapchain")
)

// hresultString classifies a raw status code into a short generic cause.
// Unrecognized codes come back as their hex value; callers never branch on
// the text, it is diagnostic only.
func hresultString(hr native.HRESULT) string {
	switch hr {
	case native.E_UNEXPECTED:
		return "unexpected"
	case native.E_NOTIMPL:
		return "not implemented"
	case native.E_OUTOFMEMORY:
		return "out of memory"
	case native.E_INVALIDARG:
		return "invalid argument"
	default:
		return hr.String()
	}
}

// checkResult turns a failed status into a plain error carrying the
// classified cause, without choosing a device/surface mapping yet.
func checkResult(hr native.HRESULT) error {
	if !hr.Failed() {
		return nil
	}
	return fmt.Errorf("%s", hresultString(hr))
}

// deviceResult maps a failed status into the device error taxonomy. Memory
// exhaustion stays OutOfMemory; everything else is reported as device-lost
// because partial driver failures are not reliably classifiable. The raw
// code is logged here and then dropped.
func deviceResult(hr native.HRESULT, description string) error {
	if !hr.Failed() {
		return nil
	}
	core.LogError("%s failed: %s", description, hresultString(hr))
	if hr == native.E_OUTOFMEMORY {
		return hal.ErrOutOfMemory
	}
	return hal.ErrDeviceLost
}
