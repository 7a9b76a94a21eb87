package d3d12

import (
	"testing"

	"github.com/afiedler/wgpu/core"
	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

func testConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.Descriptors.ViewHeapCapacity = 64
	cfg.Descriptors.SamplerHeapCapacity = 16
	cfg.Descriptors.CPUPoolCapacity = 16
	return cfg
}

func newTestDevice(t *testing.T) (*Device, *native.SoftwareDevice) {
	t.Helper()
	raw := native.NewSoftwareDevice()
	device, err := NewDevice(raw, testConfig())
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	t.Cleanup(device.Destroy)
	return device, raw
}

func TestNewDeviceHeapCreationFailure(t *testing.T) {
	raw := native.NewSoftwareDevice()
	raw.FailNext("CreateDescriptorHeap", native.E_OUTOFMEMORY)
	if _, err := NewDevice(raw, testConfig()); err != hal.ErrOutOfMemory {
		t.Fatalf("expected out of memory, got %v", err)
	}
}

func TestWaitIdleSignalsAndCompletes(t *testing.T) {
	device, _ := newTestDevice(t)
	queue := device.queue.raw.(*native.SoftwareQueue)

	if err := device.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if err := device.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle again: %v", err)
	}
	if len(queue.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(queue.Signals))
	}
	if queue.Signals[0] != 1 || queue.Signals[1] != 2 {
		t.Fatalf("idle values must increase: %v", queue.Signals)
	}
}

func TestWaitIdleSignalFailure(t *testing.T) {
	device, _ := newTestDevice(t)
	queue := device.queue.raw.(*native.SoftwareQueue)
	queue.FailSignal = native.E_INVALIDARG

	if err := device.WaitIdle(); err != hal.ErrDeviceLost {
		t.Fatalf("expected device lost, got %v", err)
	}
}

func TestTextureViewDescriptorsComeFromPools(t *testing.T) {
	device, raw := newTestDevice(t)
	texture := NewTexture(native.NewSoftwareResource("color"), hal.TextureFormatRgba8Unorm,
		hal.TextureDimension2D, hal.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1}, 1, 1)

	writesBefore := len(raw.ViewWrites)
	view, err := device.CreateTextureView(texture, TextureViewDescriptor{
		Format: hal.TextureFormatRgba8Unorm,
		Usage:  ViewUsageShader | ViewUsageRenderTarget,
	})
	if err != nil {
		t.Fatalf("CreateTextureView: %v", err)
	}
	if view.handleSRV == nil || view.handleRTV == nil {
		t.Fatal("requested view kinds missing")
	}
	if view.handleUAV != nil || view.handleDSVRW != nil {
		t.Fatal("unrequested view kinds present")
	}
	if got := len(raw.ViewWrites) - writesBefore; got != 2 {
		t.Fatalf("expected 2 descriptor writes, got %d", got)
	}

	device.DestroyTextureView(view)
	if view.handleSRV != nil || view.handleRTV != nil {
		t.Fatal("handles must be released on destroy")
	}
	if device.srvUavPool.FreeListLen() != 1 || device.rtvPool.FreeListLen() != 1 {
		t.Fatal("pool slots not returned")
	}
}

func TestDepthViewGetsReadOnlyAndWritableHandles(t *testing.T) {
	device, _ := newTestDevice(t)
	texture := NewTexture(native.NewSoftwareResource("depth"), hal.TextureFormatDepth32Float,
		hal.TextureDimension2D, hal.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1}, 1, 1)

	view, err := device.CreateTextureView(texture, TextureViewDescriptor{
		Format: hal.TextureFormatDepth32Float,
		Usage:  ViewUsageDepthStencil,
	})
	if err != nil {
		t.Fatalf("CreateTextureView: %v", err)
	}
	if view.handleDSVRO == nil || view.handleDSVRW == nil {
		t.Fatal("depth view needs both read-only and writable handles")
	}
	if view.handleDSVRO.CPU == view.handleDSVRW.CPU {
		t.Fatal("read-only and writable handles must be distinct slots")
	}
	device.DestroyTextureView(view)
}

func TestCreateSamplerExhaustionMapsToOutOfMemory(t *testing.T) {
	device, _ := newTestDevice(t)
	poolCap := testConfig().Descriptors.CPUPoolCapacity
	for i := uint32(0); i < poolCap; i++ {
		if _, err := device.CreateSampler(); err != nil {
			t.Fatalf("sampler %d: %v", i, err)
		}
	}
	if _, err := device.CreateSampler(); err != hal.ErrOutOfMemory {
		t.Fatalf("expected out of memory, got %v", err)
	}
}
