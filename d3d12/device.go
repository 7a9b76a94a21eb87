package d3d12

import (
	"sync/atomic"

	"github.com/afiedler/wgpu/core"
	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

// DeviceShared is the state every encoder and bind group reaches through
// the device: the two shader-visible general heaps. Exactly one heap per
// view kind exists for the lifetime of the device, so command lists can set
// both once at the start of recording.
type DeviceShared struct {
	HeapViews    *GeneralHeap
	HeapSamplers *GeneralHeap
}

// Device owns the native device, its submission queue, the descriptor
// heaps and pools, and the idle rendezvous.
type Device struct {
	raw    native.Device
	queue  *Queue
	idler  *Idler
	shared *DeviceShared

	rtvPool     *CpuPool
	dsvPool     *CpuPool
	srvUavPool  *CpuPool
	samplerPool *CpuPool

	idleValue atomic.Uint64
}

// NewDevice wraps a native device and builds the descriptor heaps sized
// from the configuration. Shader-visible heaps cannot grow afterwards.
func NewDevice(raw native.Device, cfg core.Config) (*Device, error) {
	d := &Device{raw: raw}

	queue, hr := raw.CreateCommandQueue()
	if err := deviceResult(hr, "command queue creation"); err != nil {
		return nil, err
	}
	d.queue = &Queue{raw: queue}

	var err error
	d.shared = &DeviceShared{}
	if d.shared.HeapViews, err = NewGeneralHeap(raw, native.DescriptorHeapCbvSrvUav, cfg.Descriptors.ViewHeapCapacity); err != nil {
		d.Destroy()
		return nil, err
	}
	if d.shared.HeapSamplers, err = NewGeneralHeap(raw, native.DescriptorHeapSampler, cfg.Descriptors.SamplerHeapCapacity); err != nil {
		d.Destroy()
		return nil, err
	}

	poolCap := cfg.Descriptors.CPUPoolCapacity
	if d.rtvPool, err = NewCpuPool(raw, native.DescriptorHeapRtv, poolCap); err != nil {
		d.Destroy()
		return nil, err
	}
	if d.dsvPool, err = NewCpuPool(raw, native.DescriptorHeapDsv, poolCap); err != nil {
		d.Destroy()
		return nil, err
	}
	if d.srvUavPool, err = NewCpuPool(raw, native.DescriptorHeapCbvSrvUav, poolCap); err != nil {
		d.Destroy()
		return nil, err
	}
	if d.samplerPool, err = NewCpuPool(raw, native.DescriptorHeapSampler, poolCap); err != nil {
		d.Destroy()
		return nil, err
	}

	if d.idler, err = newIdler(raw, native.NewEvent()); err != nil {
		d.Destroy()
		return nil, err
	}

	core.LogInfo("d3d12 device created (views=%d samplers=%d pools=%d)",
		cfg.Descriptors.ViewHeapCapacity, cfg.Descriptors.SamplerHeapCapacity, poolCap)
	return d, nil
}

// Queue returns the device's submission queue.
func (d *Device) Queue() *Queue {
	return d.queue
}

// Shared returns the shader-visible heap pair.
func (d *Device) Shared() *DeviceShared {
	return d.shared
}

// CreateFence creates a user-visible timeline fence.
func (d *Device) CreateFence() (*Fence, error) {
	return NewFence(d.raw)
}

// WaitIdle blocks until every submission made so far has completed on the
// GPU. It signals the idler fence with a fresh value through the queue and
// waits on it without a deadline.
func (d *Device) WaitIdle() error {
	value := d.idleValue.Add(1)
	if hr := d.queue.raw.Signal(d.idler.fence, value); hr.Failed() {
		return deviceResult(hr, "idle signal")
	}
	done, err := d.idler.Wait(value, native.InfiniteTimeout)
	if err != nil {
		return err
	}
	if !done {
		core.LogError("idle wait returned without completion")
		return hal.ErrDeviceLost
	}
	return nil
}

// Destroy releases everything the device owns. The caller must have waited
// for GPU idle first.
func (d *Device) Destroy() {
	if d.idler != nil {
		d.idler.Destroy()
		d.idler = nil
	}
	for _, pool := range []**CpuPool{&d.rtvPool, &d.dsvPool, &d.srvUavPool, &d.samplerPool} {
		if *pool != nil {
			(*pool).Destroy()
			*pool = nil
		}
	}
	if d.shared != nil {
		if d.shared.HeapViews != nil {
			d.shared.HeapViews.Destroy()
		}
		if d.shared.HeapSamplers != nil {
			d.shared.HeapSamplers.Destroy()
		}
		d.shared = nil
	}
	if d.queue != nil {
		d.queue.raw.Destroy()
		d.queue = nil
	}
	if d.raw != nil {
		d.raw.Destroy()
		d.raw = nil
	}
}

// ViewUsage selects which descriptor kinds a texture view carries.
type ViewUsage uint8

const (
	ViewUsageShader ViewUsage = 1 << iota
	ViewUsageStorage
	ViewUsageRenderTarget
	ViewUsageDepthStencil
)

// TextureViewDescriptor narrows a texture to one mip and layer for a set
// of usages.
type TextureViewDescriptor struct {
	Format     hal.TextureFormat
	MipLevel   uint32
	ArrayLayer uint32
	Usage      ViewUsage
}

// CreateTextureView stages one CPU descriptor per requested usage. The
// handles live in the CPU pools until the view is destroyed; bind groups
// copy them into the general heap on creation.
func (d *Device) CreateTextureView(texture *Texture, desc TextureViewDescriptor) (*TextureView, error) {
	view := &TextureView{
		rawFormat:   ToNativeFormat(desc.Format),
		target:      texture.resource,
		subresource: texture.CalcSubresource(desc.MipLevel, desc.ArrayLayer, 0),
	}
	fail := func(err error) (*TextureView, error) {
		d.DestroyTextureView(view)
		if err == ErrHeapExhausted {
			return nil, hal.ErrOutOfMemory
		}
		return nil, err
	}

	if desc.Usage&ViewUsageShader != 0 {
		handle, err := d.srvUavPool.Allocate()
		if err != nil {
			return fail(err)
		}
		d.raw.CreateShaderResourceView(texture.resource, handle.CPU)
		view.handleSRV = &handle
	}
	if desc.Usage&ViewUsageStorage != 0 {
		handle, err := d.srvUavPool.Allocate()
		if err != nil {
			return fail(err)
		}
		d.raw.CreateUnorderedAccessView(texture.resource, handle.CPU)
		view.handleUAV = &handle
	}
	if desc.Usage&ViewUsageRenderTarget != 0 {
		handle, err := d.rtvPool.Allocate()
		if err != nil {
			return fail(err)
		}
		d.raw.CreateRenderTargetView(texture.resource, handle.CPU)
		view.handleRTV = &handle
	}
	if desc.Usage&ViewUsageDepthStencil != 0 {
		rw, err := d.dsvPool.Allocate()
		if err != nil {
			return fail(err)
		}
		d.raw.CreateDepthStencilView(texture.resource, rw.CPU)
		view.handleDSVRW = &rw
		ro, err := d.dsvPool.Allocate()
		if err != nil {
			return fail(err)
		}
		d.raw.CreateDepthStencilView(texture.resource, ro.CPU)
		view.handleDSVRO = &ro
	}
	return view, nil
}

// DestroyTextureView returns the view's staged descriptors to their pools.
func (d *Device) DestroyTextureView(view *TextureView) {
	free := func(pool *CpuPool, handle **DescriptorHandle) {
		if *handle != nil {
			_ = pool.Free(**handle)
			*handle = nil
		}
	}
	free(d.srvUavPool, &view.handleSRV)
	free(d.srvUavPool, &view.handleUAV)
	free(d.rtvPool, &view.handleRTV)
	free(d.dsvPool, &view.handleDSVRO)
	free(d.dsvPool, &view.handleDSVRW)
}

// CreateSampler stages one sampler descriptor in the CPU pool.
func (d *Device) CreateSampler() (*Sampler, error) {
	handle, err := d.samplerPool.Allocate()
	if err != nil {
		if err == ErrHeapExhausted {
			return nil, hal.ErrOutOfMemory
		}
		return nil, err
	}
	d.raw.CreateSampler(handle.CPU)
	return &Sampler{handle: handle}, nil
}

// DestroySampler returns the sampler's descriptor to the pool.
func (d *Device) DestroySampler(sampler *Sampler) {
	_ = d.samplerPool.Free(sampler.handle)
}

// Queue is the device's single direct submission queue.
type Queue struct {
	raw native.CommandQueue
}

// Submit executes finished command buffers and, if fence is non-nil,
// signals it with value after they complete.
func (q *Queue) Submit(buffers []*CommandBuffer, fence *Fence, value hal.FenceValue) error {
	lists := make([]native.GraphicsCommandList, len(buffers))
	for i, b := range buffers {
		lists[i] = b.raw
	}
	q.raw.ExecuteCommandLists(lists)
	if fence != nil {
		if hr := q.raw.Signal(fence.raw, value); hr.Failed() {
			return deviceResult(hr, "queue fence signal")
		}
	}
	return nil
}
