package d3d12

import (
	"github.com/google/uuid"

	"github.com/afiedler/wgpu/core"
	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

// SwapChain is the live presentation state of a configured surface: the
// native swapchain, its backbuffer resources and the frame-latency
// waitable. acquiredCount tracks textures handed out and not yet presented
// or discarded.
type SwapChain struct {
	raw       native.SwapChain
	resources []native.Resource
	waitable  native.Event

	acquiredCount int
	format        hal.TextureFormat
	presentMode   hal.PresentMode
	size          hal.Extent2D
	flags         native.SwapChainFlags
}

// wait blocks on the frame-latency waitable. It returns (true, nil) when
// presentation capacity is available, (false, nil) on timeout. Abandoned,
// failed or unexpected statuses are logged and reported as surface-lost.
func (sc *SwapChain) wait(timeoutMS uint32) (bool, error) {
	switch status := sc.waitable.Wait(timeoutMS); status {
	case native.WaitObject0:
		return true, nil
	case native.WaitTimeout:
		return false, nil
	case native.WaitAbandoned, native.WaitFailed:
		core.LogError("swapchain wait failed with status 0x%x", uint32(status))
		return false, hal.ErrSurfaceLost
	default:
		core.LogError("unexpected swapchain wait status: 0x%x", uint32(status))
		return false, hal.ErrSurfaceLost
	}
}

// releaseResources drops the backbuffer references. Required before a
// resize; the native swapchain refuses to resize while buffers are alive.
func (sc *SwapChain) releaseResources() {
	for _, r := range sc.resources {
		r.Destroy()
	}
	sc.resources = nil
}

// destroy releases the backbuffers and the native swapchain, which owns
// the waitable handle.
func (sc *SwapChain) destroy() {
	sc.releaseResources()
	sc.raw.Destroy()
}

// owns reports whether the texture is a backbuffer of this swapchain.
func (sc *SwapChain) owns(texture *Texture) bool {
	if texture == nil || !texture.borrowed {
		return false
	}
	for _, r := range sc.resources {
		if r == texture.resource {
			return true
		}
	}
	return false
}

// Surface binds a native window to the presentation machinery. It starts
// unconfigured; Configure creates or resizes the swapchain.
type Surface struct {
	factory   native.Factory
	window    uintptr
	swapChain *SwapChain
}

// NewSurface wraps a window handle. No native objects are created until
// Configure.
func NewSurface(factory native.Factory, window uintptr) *Surface {
	return &Surface{factory: factory, window: window}
}

func swapChainFlagsFor(mode hal.PresentMode) native.SwapChainFlags {
	flags := native.SwapChainFlagFrameLatencyWaitable
	if mode == hal.PresentModeImmediate {
		flags |= native.SwapChainFlagAllowTearing
	}
	return flags
}

// Configure creates the swapchain on first call and resizes it afterwards.
// Resizing waits for presentation capacity and device idle first, because
// the native swapchain cannot be resized while any backbuffer is
// referenced. Errors report the stage that failed. The swapchain is
// detached for the duration of the call and reinstalled only on success;
// a failed Configure never leaves partial state behind, the surface is
// simply unconfigured.
func (s *Surface) Configure(device *Device, config hal.SurfaceConfiguration) error {
	flags := swapChainFlagsFor(config.PresentMode)
	rawFormat := ToNativeFormatNoSrgb(config.Format)

	sc := s.swapChain
	s.swapChain = nil
	if sc != nil {
		if _, err := sc.wait(native.InfiniteTimeout); err != nil {
			sc.destroy()
			return err
		}
		if err := device.WaitIdle(); err != nil {
			sc.destroy()
			return err
		}
		sc.releaseResources()
		hr := sc.raw.ResizeBuffers(config.SwapChainSize, config.Extent.Width, config.Extent.Height, rawFormat, flags)
		if hr.Failed() {
			core.LogError("swapchain resize failed: %s", hresultString(hr))
			sc.raw.Destroy()
			return hal.SurfaceFailure("window is in use")
		}
	} else {
		raw1, hr := s.factory.CreateSwapChainForWindow(device.queue.raw, s.window, native.SwapChainDesc{
			Width:       config.Extent.Width,
			Height:      config.Extent.Height,
			BufferCount: config.SwapChainSize,
			Format:      rawFormat,
			Flags:       flags,
			AlphaMode:   ToNativeAlphaMode(config.CompositeAlphaMode),
		})
		if hr.Failed() {
			core.LogError("swapchain creation failed: %s", hresultString(hr))
			return hal.SurfaceFailure("swap chain creation")
		}
		raw3, hr := raw1.CastToSwapChain3()
		if hr.Failed() {
			core.LogError("swapchain cast failed: %s", hresultString(hr))
			raw1.Destroy()
			return hal.SurfaceFailure("swap chain cast to 3")
		}
		if err := checkResult(s.factory.MakeWindowAssociation(s.window, native.MakeWindowAssocNoWindowChanges|native.MakeWindowAssocNoAltEnter)); err != nil {
			core.LogWarn("window association failed: %v", err)
		}
		if err := checkResult(raw3.SetMaximumFrameLatency(config.SwapChainSize)); err != nil {
			core.LogWarn("frame latency setup failed: %v", err)
		}
		sc = &SwapChain{
			raw:      raw3,
			waitable: raw3.FrameLatencyWaitableObject(),
		}
	}

	sc.resources = make([]native.Resource, 0, config.SwapChainSize)
	for i := uint32(0); i < config.SwapChainSize; i++ {
		buffer, hr := sc.raw.GetBuffer(i)
		if hr.Failed() {
			core.LogError("swapchain buffer %d retrieval failed: %s", i, hresultString(hr))
			sc.destroy()
			return hal.SurfaceFailure("swap chain buffer retrieval")
		}
		sc.resources = append(sc.resources, buffer)
	}
	sc.format = config.Format
	sc.presentMode = config.PresentMode
	sc.size = config.Extent
	sc.flags = flags
	sc.acquiredCount = 0
	s.swapChain = sc
	return nil
}

// Unconfigure tears the swapchain down: waits for presentation capacity
// and device idle, then releases every native object. The surface can be
// configured again afterwards.
func (s *Surface) Unconfigure(device *Device) error {
	sc := s.swapChain
	if sc == nil {
		return nil
	}
	if _, err := sc.wait(native.InfiniteTimeout); err != nil {
		return err
	}
	if err := device.WaitIdle(); err != nil {
		return err
	}
	sc.destroy()
	s.swapChain = nil
	return nil
}

// AcquireTexture hands out the next backbuffer as a texture. It returns
// (nil, nil) when the timeout elapses before presentation capacity is
// available. Acquiring more textures than the swapchain holds is an error;
// present or discard first.
func (s *Surface) AcquireTexture(timeoutMS uint32) (*Texture, error) {
	sc := s.swapChain
	if sc == nil {
		return nil, ErrSurfaceUnconfigured
	}
	ok, err := sc.wait(timeoutMS)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if sc.acquiredCount >= len(sc.resources) {
		core.LogError("all %d swapchain textures already acquired", len(sc.resources))
		return nil, hal.ErrNoImageAvailable
	}
	index := (sc.raw.CurrentBackBufferIndex() + uint32(sc.acquiredCount)) % uint32(len(sc.resources))
	sc.acquiredCount++
	return &Texture{
		Name:     "backbuffer-" + uuid.NewString(),
		resource: sc.resources[index],
		format:   sc.format,
		dimension: hal.TextureDimension2D,
		size: hal.Extent3D{
			Width:              sc.size.Width,
			Height:             sc.size.Height,
			DepthOrArrayLayers: 1,
		},
		mipLevelCount: 1,
		sampleCount:   1,
		borrowed:      true,
	}, nil
}

// DiscardTexture gives an acquired texture back without presenting it.
// Textures that do not belong to the current swapchain are ignored; a
// stale texture from before a reconfigure must not eat capacity.
func (s *Surface) DiscardTexture(texture *Texture) {
	sc := s.swapChain
	if sc == nil {
		return
	}
	if !sc.owns(texture) {
		core.LogWarn("discarded texture %s does not belong to this swapchain", textureName(texture))
		return
	}
	if sc.acquiredCount > 0 {
		sc.acquiredCount--
	}
}

func textureName(texture *Texture) string {
	if texture == nil {
		return "<nil>"
	}
	return texture.Name
}

// Present flips an acquired backbuffer to the screen. Immediate mode
// presents without vsync and with tearing allowed when the swapchain
// supports it; Fifo waits for vertical blank.
func (q *Queue) Present(surface *Surface, texture *Texture) error {
	sc := surface.swapChain
	if sc == nil {
		return ErrSurfaceUnconfigured
	}
	if !sc.owns(texture) {
		core.LogError("presented texture %s does not belong to this swapchain", textureName(texture))
		return ErrForeignTexture
	}
	var interval uint32
	var flags native.PresentFlags
	switch sc.presentMode {
	case hal.PresentModeFifo:
		interval = 1
	case hal.PresentModeImmediate:
		if sc.flags&native.SwapChainFlagAllowTearing != 0 {
			flags |= native.PresentAllowTearing
		}
	}
	if hr := sc.raw.Present(interval, flags); hr.Failed() {
		core.LogError("present failed: %s", hresultString(hr))
		return hal.ErrSurfaceLost
	}
	if sc.acquiredCount > 0 {
		sc.acquiredCount--
	}
	return nil
}
