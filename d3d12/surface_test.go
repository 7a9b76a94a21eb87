package d3d12

import (
	"strings"
	"testing"

	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

func testSurfaceConfig() hal.SurfaceConfiguration {
	return hal.SurfaceConfiguration{
		SwapChainSize: 3,
		Extent:        hal.Extent2D{Width: 800, Height: 600},
		Format:        hal.TextureFormatBgra8UnormSrgb,
		PresentMode:   hal.PresentModeFifo,
	}
}

func newConfiguredSurface(t *testing.T) (*Surface, *Device, *native.SoftwareFactory) {
	t.Helper()
	device, _ := newTestDevice(t)
	factory := native.NewSoftwareFactory()
	surface := NewSurface(factory, 0xBEEF)
	if err := surface.Configure(device, testSurfaceConfig()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return surface, device, factory
}

func surfaceReason(t *testing.T, err error) string {
	t.Helper()
	se, ok := err.(*hal.SurfaceError)
	if !ok {
		t.Fatalf("expected surface error, got %v", err)
	}
	return se.Reason
}

func TestConfigureCreatesSwapchain(t *testing.T) {
	surface, _, factory := newConfiguredSurface(t)

	if len(factory.Created) != 1 {
		t.Fatalf("expected 1 swapchain, got %d", len(factory.Created))
	}
	sc := factory.Created[0]
	if sc.Desc.Width != 800 || sc.Desc.Height != 600 || sc.Desc.BufferCount != 3 {
		t.Fatalf("swapchain desc wrong: %+v", sc.Desc)
	}
	// The swapchain buffer format drops the sRGB qualifier; views reapply it.
	if sc.Desc.Format != native.FormatBgra8Unorm {
		t.Fatalf("swapchain format = %v, want %v", sc.Desc.Format, native.FormatBgra8Unorm)
	}
	if sc.Desc.Flags&native.SwapChainFlagFrameLatencyWaitable == 0 {
		t.Fatal("swapchain must be frame-latency waitable")
	}
	if sc.Desc.Flags&native.SwapChainFlagAllowTearing != 0 {
		t.Fatal("fifo swapchain must not allow tearing")
	}
	if len(factory.Associations) != 1 || factory.Associations[0] != 0xBEEF {
		t.Fatal("window association not made")
	}
	if sc.MaxLatency != 3 {
		t.Fatalf("frame latency = %d, want the buffer count 3", sc.MaxLatency)
	}
	if len(surface.swapChain.resources) != 3 {
		t.Fatalf("backbuffers = %d, want 3", len(surface.swapChain.resources))
	}
}

func TestConfigureImmediateEnablesTearing(t *testing.T) {
	device, _ := newTestDevice(t)
	factory := native.NewSoftwareFactory()
	surface := NewSurface(factory, 1)

	cfg := testSurfaceConfig()
	cfg.PresentMode = hal.PresentModeImmediate
	if err := surface.Configure(device, cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if factory.Created[0].Desc.Flags&native.SwapChainFlagAllowTearing == 0 {
		t.Fatal("immediate swapchain must allow tearing")
	}
}

func TestConfigureCreationFailureStages(t *testing.T) {
	device, _ := newTestDevice(t)

	factory := native.NewSoftwareFactory()
	factory.FailCreate = native.E_INVALIDARG
	surface := NewSurface(factory, 1)
	if got := surfaceReason(t, surface.Configure(device, testSurfaceConfig())); got != "swap chain creation" {
		t.Fatalf("reason = %q", got)
	}

	surface = NewSurface(&castFailFactory{SoftwareFactory: native.NewSoftwareFactory()}, 1)
	if got := surfaceReason(t, surface.Configure(device, testSurfaceConfig())); got != "swap chain cast to 3" {
		t.Fatalf("reason = %q", got)
	}
}

// castFailFactory injects a cast failure into freshly created swapchains.
type castFailFactory struct {
	*native.SoftwareFactory
}

func (f *castFailFactory) CreateSwapChainForWindow(queue native.CommandQueue, window uintptr, desc native.SwapChainDesc) (native.SwapChain1, native.HRESULT) {
	sc1, hr := f.SoftwareFactory.CreateSwapChainForWindow(queue, window, desc)
	if hr.Failed() {
		return nil, hr
	}
	sc1.(*native.SoftwareSwapChain).FailCast = native.E_NOTIMPL
	return sc1, hr
}

func TestConfigureResizesExistingSwapchain(t *testing.T) {
	surface, device, factory := newConfiguredSurface(t)
	queue := device.queue.raw.(*native.SoftwareQueue)

	cfg := testSurfaceConfig()
	cfg.Extent = hal.Extent2D{Width: 1024, Height: 768}
	if err := surface.Configure(device, cfg); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if len(factory.Created) != 1 {
		t.Fatal("resize must reuse the swapchain, not create a new one")
	}
	sc := factory.Created[0]
	if sc.Desc.Width != 1024 || sc.Desc.Height != 768 {
		t.Fatalf("resize not applied: %+v", sc.Desc)
	}
	// The resize path drains the GPU first.
	if len(queue.Signals) == 0 {
		t.Fatal("resize must wait for device idle")
	}
	if len(surface.swapChain.resources) != 3 {
		t.Fatalf("backbuffers = %d, want 3", len(surface.swapChain.resources))
	}
}

func TestConfigureResizeFailureReportsWindowInUse(t *testing.T) {
	surface, device, factory := newConfiguredSurface(t)
	factory.Created[0].FailResize = native.DXGI_ERROR_DEVICE_REMOVED

	err := surface.Configure(device, testSurfaceConfig())
	if got := surfaceReason(t, err); got != "window is in use" {
		t.Fatalf("reason = %q", got)
	}
	if !strings.Contains(err.Error(), "window is in use") {
		t.Fatalf("error text = %q", err.Error())
	}
}

func TestFailedReconfigureLeavesSurfaceUnconfigured(t *testing.T) {
	surface, device, factory := newConfiguredSurface(t)
	old := factory.Created[0]
	old.FailResize = native.DXGI_ERROR_DEVICE_REMOVED

	if err := surface.Configure(device, testSurfaceConfig()); err == nil {
		t.Fatal("reconfigure should have failed")
	}
	if surface.swapChain != nil {
		t.Fatal("failed reconfigure left a swapchain attached")
	}
	if !old.Destroyed {
		t.Fatal("failed reconfigure must release the old swapchain")
	}
	if _, err := surface.AcquireTexture(native.InfiniteTimeout); err != ErrSurfaceUnconfigured {
		t.Fatalf("acquire after failed reconfigure: got %v, want %v", err, ErrSurfaceUnconfigured)
	}
	// The surface recovers through a fresh Configure.
	if err := surface.Configure(device, testSurfaceConfig()); err != nil {
		t.Fatalf("configure after failure: %v", err)
	}
	if _, err := surface.AcquireTexture(native.InfiniteTimeout); err != nil {
		t.Fatalf("acquire after recovery: %v", err)
	}
}

func TestAcquireTextureLifecycle(t *testing.T) {
	surface, device, _ := newConfiguredSurface(t)

	var acquired []*Texture
	for i := 0; i < 3; i++ {
		tex, err := surface.AcquireTexture(native.InfiniteTimeout)
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if tex == nil {
			t.Fatalf("acquire %d returned no texture", i)
		}
		if !strings.HasPrefix(tex.Name, "backbuffer-") {
			t.Fatalf("texture name = %q", tex.Name)
		}
		if tex.Format() != hal.TextureFormatBgra8UnormSrgb {
			t.Fatalf("texture format = %v", tex.Format())
		}
		acquired = append(acquired, tex)
	}
	if acquired[0].resource == acquired[1].resource {
		t.Fatal("consecutive acquires must hand out distinct backbuffers")
	}

	if _, err := surface.AcquireTexture(native.InfiniteTimeout); err != hal.ErrNoImageAvailable {
		t.Fatalf("over-acquire: got %v", err)
	}

	// Discard frees capacity without presenting.
	surface.DiscardTexture(acquired[2])
	if _, err := surface.AcquireTexture(native.InfiniteTimeout); err != nil {
		t.Fatalf("acquire after discard: %v", err)
	}

	// Present flips and frees capacity.
	if err := device.Queue().Present(surface, acquired[0]); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if surface.swapChain.acquiredCount != 2 {
		t.Fatalf("acquiredCount = %d, want 2", surface.swapChain.acquiredCount)
	}

	// Backbuffer textures never release the swapchain's resources.
	acquired[0].Destroy()
	if acquired[0].resource.(*native.SoftwareResource).Destroyed {
		t.Fatal("texture destroy released a swapchain buffer")
	}
}

func TestAcquireTextureTimeout(t *testing.T) {
	surface, _, factory := newConfiguredSurface(t)
	factory.Created[0].FrameLatencyWaitableObject().Reset()

	tex, err := surface.AcquireTexture(0)
	if err != nil || tex != nil {
		t.Fatalf("timed-out acquire = %v, %v; want nil, nil", tex, err)
	}
	if surface.swapChain.acquiredCount != 0 {
		t.Fatal("timed-out acquire must not count as acquired")
	}
}

func TestAcquireOnUnconfiguredSurface(t *testing.T) {
	surface := NewSurface(native.NewSoftwareFactory(), 1)
	if _, err := surface.AcquireTexture(0); err != ErrSurfaceUnconfigured {
		t.Fatalf("expected unconfigured error, got %v", err)
	}
}

func TestDiscardNeverGoesNegative(t *testing.T) {
	surface, _, _ := newConfiguredSurface(t)
	tex, err := surface.AcquireTexture(native.InfiniteTimeout)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	surface.DiscardTexture(tex)
	surface.DiscardTexture(tex)
	if surface.swapChain.acquiredCount != 0 {
		t.Fatalf("acquiredCount = %d, want 0", surface.swapChain.acquiredCount)
	}
}

func TestPresentRejectsForeignTexture(t *testing.T) {
	surface, device, factory := newConfiguredSurface(t)
	other, _, _ := newConfiguredSurface(t)

	if _, err := surface.AcquireTexture(native.InfiniteTimeout); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	foreign, err := other.AcquireTexture(native.InfiniteTimeout)
	if err != nil {
		t.Fatalf("acquire foreign: %v", err)
	}

	if err := device.Queue().Present(surface, foreign); err != ErrForeignTexture {
		t.Fatalf("present foreign: got %v, want %v", err, ErrForeignTexture)
	}
	if factory.Created[0].PresentCount != 0 {
		t.Fatal("rejected present must not flip")
	}
	if surface.swapChain.acquiredCount != 1 {
		t.Fatalf("acquiredCount = %d, want 1", surface.swapChain.acquiredCount)
	}

	// Discarding a foreign texture is ignored, it must not eat capacity.
	surface.DiscardTexture(foreign)
	if surface.swapChain.acquiredCount != 1 {
		t.Fatalf("acquiredCount after foreign discard = %d, want 1", surface.swapChain.acquiredCount)
	}
}

func TestPresentModesMapToSyncInterval(t *testing.T) {
	surface, device, factory := newConfiguredSurface(t)
	sc := factory.Created[0]

	tex, err := surface.AcquireTexture(native.InfiniteTimeout)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := device.Queue().Present(surface, tex); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if sc.PresentCount != 1 {
		t.Fatalf("PresentCount = %d, want 1", sc.PresentCount)
	}
	if err := device.Queue().Present(NewSurface(native.NewSoftwareFactory(), 1), tex); err != ErrSurfaceUnconfigured {
		t.Fatalf("present unconfigured: got %v", err)
	}
}

func TestUnconfigureReleasesEverything(t *testing.T) {
	surface, device, factory := newConfiguredSurface(t)
	sc := factory.Created[0]
	buffers := sc.Buffers

	if err := surface.Unconfigure(device); err != nil {
		t.Fatalf("Unconfigure: %v", err)
	}
	if surface.swapChain != nil {
		t.Fatal("surface still configured")
	}
	if !sc.Destroyed {
		t.Fatal("swapchain not destroyed")
	}
	for i, b := range buffers {
		if !b.Destroyed {
			t.Fatalf("backbuffer %d not released", i)
		}
	}
	// Unconfigure twice is harmless, and the surface can come back.
	if err := surface.Unconfigure(device); err != nil {
		t.Fatalf("second Unconfigure: %v", err)
	}
	if err := surface.Configure(device, testSurfaceConfig()); err != nil {
		t.Fatalf("reconfigure after unconfigure: %v", err)
	}
}

func TestSwapchainWaitFailureIsSurfaceLost(t *testing.T) {
	surface, _, factory := newConfiguredSurface(t)
	factory.Created[0].FrameLatencyWaitableObject().Reset()
	factory.Created[0].FrameLatencyWaitableObject().Destroy()

	if _, err := surface.AcquireTexture(native.InfiniteTimeout); err != hal.ErrSurfaceLost {
		t.Fatalf("expected surface lost, got %v", err)
	}
}
