package native

import (
	"sync"
	"sync/atomic"
)

// Software implementation of the native boundary. It performs no GPU work:
// queue signals complete immediately and command lists record into
// inspectable logs. Tests and examples run against it on any platform.

var addressCounter atomic.Uint64

func nextAddressBlock() uint64 {
	// Space blocks out so derived addresses never collide between objects.
	return addressCounter.Add(1) << 20
}

// SoftwareDevice implements Device in process.
type SoftwareDevice struct {
	mu sync.Mutex

	// failNext maps a method name to an HRESULT injected into its next
	// call. Test-only knob.
	failNext map[string]HRESULT

	heaps      []*SoftwareDescriptorHeap
	destroyed  bool
	ViewWrites []CPUDescriptorHandle
	Copies     []DescriptorCopy
}

// DescriptorCopy records one CopyDescriptorsSimple call.
type DescriptorCopy struct {
	Count    uint32
	Dest     CPUDescriptorHandle
	Src      CPUDescriptorHandle
	HeapType DescriptorHeapType
}

func NewSoftwareDevice() *SoftwareDevice {
	return &SoftwareDevice{failNext: make(map[string]HRESULT)}
}

// FailNext arranges for the named method's next call to return hr.
func (d *SoftwareDevice) FailNext(method string, hr HRESULT) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext[method] = hr
}

func (d *SoftwareDevice) takeFailure(method string) HRESULT {
	d.mu.Lock()
	defer d.mu.Unlock()
	if hr, ok := d.failNext[method]; ok {
		delete(d.failNext, method)
		return hr
	}
	return S_OK
}

func (d *SoftwareDevice) CreateCommandQueue() (CommandQueue, HRESULT) {
	if hr := d.takeFailure("CreateCommandQueue"); hr.Failed() {
		return nil, hr
	}
	return &SoftwareQueue{}, S_OK
}

func (d *SoftwareDevice) CreateCommandAllocator() (CommandAllocator, HRESULT) {
	if hr := d.takeFailure("CreateCommandAllocator"); hr.Failed() {
		return nil, hr
	}
	return &SoftwareAllocator{}, S_OK
}

func (d *SoftwareDevice) CreateGraphicsCommandList(allocator CommandAllocator) (GraphicsCommandList, HRESULT) {
	if hr := d.takeFailure("CreateGraphicsCommandList"); hr.Failed() {
		return nil, hr
	}
	return &SoftwareList{allocator: allocator}, S_OK
}

func (d *SoftwareDevice) CreateDescriptorHeap(desc DescriptorHeapDesc) (DescriptorHeap, HRESULT) {
	if hr := d.takeFailure("CreateDescriptorHeap"); hr.Failed() {
		return nil, hr
	}
	h := &SoftwareDescriptorHeap{
		Desc:    desc,
		baseCPU: uintptr(nextAddressBlock()),
	}
	if desc.ShaderVisible {
		h.baseGPU = nextAddressBlock()
	}
	d.mu.Lock()
	d.heaps = append(d.heaps, h)
	d.mu.Unlock()
	return h, S_OK
}

func (d *SoftwareDevice) CreateRootSignature(desc RootSignatureDesc) (RootSignature, HRESULT) {
	if hr := d.takeFailure("CreateRootSignature"); hr.Failed() {
		return nil, hr
	}
	return &SoftwareRootSignature{Desc: desc}, S_OK
}

func (d *SoftwareDevice) CreateFence(initialValue uint64) (Fence, HRESULT) {
	if hr := d.takeFailure("CreateFence"); hr.Failed() {
		return nil, hr
	}
	f := &SoftwareFence{}
	f.value.Store(initialValue)
	return f, S_OK
}

func (d *SoftwareDevice) HandleIncrementSize(heapType DescriptorHeapType) uint32 {
	return 32
}

func (d *SoftwareDevice) recordWrite(dest CPUDescriptorHandle) {
	d.mu.Lock()
	d.ViewWrites = append(d.ViewWrites, dest)
	d.mu.Unlock()
}

func (d *SoftwareDevice) CreateRenderTargetView(resource Resource, dest CPUDescriptorHandle) {
	d.recordWrite(dest)
}

func (d *SoftwareDevice) CreateDepthStencilView(resource Resource, dest CPUDescriptorHandle) {
	d.recordWrite(dest)
}

func (d *SoftwareDevice) CreateShaderResourceView(resource Resource, dest CPUDescriptorHandle) {
	d.recordWrite(dest)
}

func (d *SoftwareDevice) CreateUnorderedAccessView(resource Resource, dest CPUDescriptorHandle) {
	d.recordWrite(dest)
}

func (d *SoftwareDevice) CreateConstantBufferView(address uint64, size uint32, dest CPUDescriptorHandle) {
	d.recordWrite(dest)
}

func (d *SoftwareDevice) CreateSampler(dest CPUDescriptorHandle) {
	d.recordWrite(dest)
}

func (d *SoftwareDevice) CopyDescriptorsSimple(count uint32, dest, src CPUDescriptorHandle, heapType DescriptorHeapType) {
	d.mu.Lock()
	d.Copies = append(d.Copies, DescriptorCopy{Count: count, Dest: dest, Src: src, HeapType: heapType})
	d.mu.Unlock()
}

func (d *SoftwareDevice) Destroy() {
	d.mu.Lock()
	d.destroyed = true
	d.mu.Unlock()
}

// SoftwareDescriptorHeap hands out stable fake addresses.
type SoftwareDescriptorHeap struct {
	Desc      DescriptorHeapDesc
	baseCPU   uintptr
	baseGPU   uint64
	Destroyed bool
}

func (h *SoftwareDescriptorHeap) StartCPU() CPUDescriptorHandle {
	return CPUDescriptorHandle{Ptr: h.baseCPU}
}

func (h *SoftwareDescriptorHeap) StartGPU() GPUDescriptorHandle {
	return GPUDescriptorHandle{Ptr: h.baseGPU}
}

func (h *SoftwareDescriptorHeap) Destroy() { h.Destroyed = true }

// SoftwareRootSignature retains its descriptor for inspection.
type SoftwareRootSignature struct {
	Desc      RootSignatureDesc
	Destroyed bool
}

func (rs *SoftwareRootSignature) Destroy() { rs.Destroyed = true }

// SoftwareFence completes a value the moment a queue signals it.
type SoftwareFence struct {
	mu      sync.Mutex
	value   atomic.Uint64
	waiters []fenceWaiter
}

type fenceWaiter struct {
	value uint64
	event Event
}

func (f *SoftwareFence) CompletedValue() uint64 {
	return f.value.Load()
}

func (f *SoftwareFence) SetEventOnCompletion(value uint64, event Event) HRESULT {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.value.Load() >= value {
		event.Set()
		return S_OK
	}
	f.waiters = append(f.waiters, fenceWaiter{value: value, event: event})
	return S_OK
}

// Complete advances the fence and fires reached waiters. Called by
// SoftwareQueue.Signal and directly by tests.
func (f *SoftwareFence) Complete(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value > f.value.Load() {
		f.value.Store(value)
	}
	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if f.value.Load() >= w.value {
			w.event.Set()
		} else {
			remaining = append(remaining, w)
		}
	}
	f.waiters = remaining
}

func (f *SoftwareFence) Destroy() {}

// SoftwareQueue records submissions and completes signals synchronously.
type SoftwareQueue struct {
	mu         sync.Mutex
	Submitted  [][]GraphicsCommandList
	Signals    []uint64
	FailSignal HRESULT
	Destroyed  bool
}

func (q *SoftwareQueue) ExecuteCommandLists(lists []GraphicsCommandList) {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := make([]GraphicsCommandList, len(lists))
	copy(batch, lists)
	q.Submitted = append(q.Submitted, batch)
}

func (q *SoftwareQueue) Signal(fence Fence, value uint64) HRESULT {
	if q.FailSignal.Failed() {
		hr := q.FailSignal
		q.FailSignal = S_OK
		return hr
	}
	q.mu.Lock()
	q.Signals = append(q.Signals, value)
	q.mu.Unlock()
	if sf, ok := fence.(*SoftwareFence); ok {
		sf.Complete(value)
	}
	return S_OK
}

func (q *SoftwareQueue) Destroy() { q.Destroyed = true }

// SoftwareAllocator counts resets.
type SoftwareAllocator struct {
	ResetCount int
	Destroyed  bool
}

func (a *SoftwareAllocator) Reset() HRESULT {
	a.ResetCount++
	return S_OK
}

func (a *SoftwareAllocator) Destroy() { a.Destroyed = true }

// VertexBufferBinding records one IASetVertexBuffers call.
type VertexBufferBinding struct {
	StartSlot uint32
	Views     []VertexBufferView
}

// ResolveRecord records one ResolveSubresource call.
type ResolveRecord struct {
	Dst            Resource
	DstSubresource uint32
	Src            Resource
	SrcSubresource uint32
	Format         Format
}

// RootBinding records one root-parameter set call.
type RootBinding struct {
	Compute   bool
	Table     bool
	RootIndex uint32
	GPUBase   GPUDescriptorHandle
	Kind      RootBufferKind
	Address   uint64
}

// SoftwareList records everything for later inspection.
type SoftwareList struct {
	allocator CommandAllocator
	Closed    bool
	Destroyed bool

	VertexBindings []VertexBufferBinding
	BarrierBatches [][]ResourceBarrier
	Resolves       []ResolveRecord
	RootBindings   []RootBinding
	TargetSets     int
	Clears         int
	Draws          int
	Dispatches     int
	Copies         int
	HeapSets       [][]DescriptorHeap
}

func (l *SoftwareList) Reset(allocator CommandAllocator) HRESULT {
	l.allocator = allocator
	l.Closed = false
	l.VertexBindings = nil
	l.BarrierBatches = nil
	l.Resolves = nil
	l.RootBindings = nil
	l.TargetSets = 0
	l.Clears = 0
	l.Draws = 0
	l.Dispatches = 0
	l.Copies = 0
	l.HeapSets = nil
	return S_OK
}

func (l *SoftwareList) Close() HRESULT {
	l.Closed = true
	return S_OK
}

func (l *SoftwareList) ResourceBarrier(barriers []ResourceBarrier) {
	batch := make([]ResourceBarrier, len(barriers))
	copy(batch, barriers)
	l.BarrierBatches = append(l.BarrierBatches, batch)
}

func (l *SoftwareList) IASetVertexBuffers(startSlot uint32, views []VertexBufferView) {
	vs := make([]VertexBufferView, len(views))
	copy(vs, views)
	l.VertexBindings = append(l.VertexBindings, VertexBufferBinding{StartSlot: startSlot, Views: vs})
}

func (l *SoftwareList) SetDescriptorHeaps(heaps []DescriptorHeap) {
	hs := make([]DescriptorHeap, len(heaps))
	copy(hs, heaps)
	l.HeapSets = append(l.HeapSets, hs)
}

func (l *SoftwareList) SetGraphicsRootSignature(rs RootSignature) {}
func (l *SoftwareList) SetComputeRootSignature(rs RootSignature)  {}

func (l *SoftwareList) SetGraphicsRootDescriptorTable(rootIndex uint32, base GPUDescriptorHandle) {
	l.RootBindings = append(l.RootBindings, RootBinding{Table: true, RootIndex: rootIndex, GPUBase: base})
}

func (l *SoftwareList) SetComputeRootDescriptorTable(rootIndex uint32, base GPUDescriptorHandle) {
	l.RootBindings = append(l.RootBindings, RootBinding{Compute: true, Table: true, RootIndex: rootIndex, GPUBase: base})
}

func (l *SoftwareList) SetGraphicsRootBuffer(kind RootBufferKind, rootIndex uint32, address uint64) {
	l.RootBindings = append(l.RootBindings, RootBinding{RootIndex: rootIndex, Kind: kind, Address: address})
}

func (l *SoftwareList) SetComputeRootBuffer(kind RootBufferKind, rootIndex uint32, address uint64) {
	l.RootBindings = append(l.RootBindings, RootBinding{Compute: true, RootIndex: rootIndex, Kind: kind, Address: address})
}

func (l *SoftwareList) OMSetRenderTargets(colorTargets []CPUDescriptorHandle, depthStencil *CPUDescriptorHandle) {
	l.TargetSets++
}

func (l *SoftwareList) ClearRenderTargetView(target CPUDescriptorHandle, color [4]float32) {
	l.Clears++
}

func (l *SoftwareList) ClearDepthStencilView(target CPUDescriptorHandle, depth float32, stencil uint8) {
	l.Clears++
}

func (l *SoftwareList) ResolveSubresource(dst Resource, dstSubresource uint32, src Resource, srcSubresource uint32, format Format) {
	l.Resolves = append(l.Resolves, ResolveRecord{
		Dst:            dst,
		DstSubresource: dstSubresource,
		Src:            src,
		SrcSubresource: srcSubresource,
		Format:         format,
	})
}

func (l *SoftwareList) CopyBufferRegion(dst Resource, dstOffset uint64, src Resource, srcOffset, size uint64) {
	l.Copies++
}

func (l *SoftwareList) DrawInstanced(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	l.Draws++
}

func (l *SoftwareList) DrawIndexedInstanced(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	l.Draws++
}

func (l *SoftwareList) Dispatch(x, y, z uint32) {
	l.Dispatches++
}

func (l *SoftwareList) Destroy() { l.Destroyed = true }

// SoftwareResource is a named fake GPU allocation.
type SoftwareResource struct {
	Name      string
	address   uint64
	Destroyed bool
}

func NewSoftwareResource(name string) *SoftwareResource {
	return &SoftwareResource{Name: name, address: nextAddressBlock()}
}

func (r *SoftwareResource) GPUVirtualAddress() uint64 { return r.address }

func (r *SoftwareResource) Destroy() { r.Destroyed = true }

// SoftwareSwapChain implements both swapchain revisions.
type SoftwareSwapChain struct {
	Desc         SwapChainDesc
	Buffers      []*SoftwareResource
	waitable     Event
	MaxLatency   uint32
	PresentCount int
	backIndex    uint32
	Destroyed    bool

	// Failure knobs consumed by the next matching call.
	FailCast   HRESULT
	FailResize HRESULT
}

func newSoftwareSwapChain(desc SwapChainDesc) *SoftwareSwapChain {
	sc := &SoftwareSwapChain{Desc: desc, waitable: NewEvent()}
	sc.allocateBuffers()
	// A fresh swapchain has its full latency budget available.
	sc.waitable.Set()
	return sc
}

func (sc *SoftwareSwapChain) allocateBuffers() {
	sc.Buffers = make([]*SoftwareResource, sc.Desc.BufferCount)
	for i := range sc.Buffers {
		sc.Buffers[i] = NewSoftwareResource("backbuffer")
	}
}

func (sc *SoftwareSwapChain) CastToSwapChain3() (SwapChain, HRESULT) {
	if sc.FailCast.Failed() {
		hr := sc.FailCast
		sc.FailCast = S_OK
		return nil, hr
	}
	return sc, S_OK
}

func (sc *SoftwareSwapChain) ResizeBuffers(bufferCount, width, height uint32, format Format, flags SwapChainFlags) HRESULT {
	if sc.FailResize.Failed() {
		hr := sc.FailResize
		sc.FailResize = S_OK
		return hr
	}
	sc.Desc.BufferCount = bufferCount
	sc.Desc.Width = width
	sc.Desc.Height = height
	sc.Desc.Format = format
	sc.Desc.Flags = flags
	sc.allocateBuffers()
	sc.backIndex = 0
	return S_OK
}

func (sc *SoftwareSwapChain) GetBuffer(index uint32) (Resource, HRESULT) {
	if index >= uint32(len(sc.Buffers)) {
		return nil, E_INVALIDARG
	}
	return sc.Buffers[index], S_OK
}

func (sc *SoftwareSwapChain) SetMaximumFrameLatency(count uint32) HRESULT {
	sc.MaxLatency = count
	return S_OK
}

func (sc *SoftwareSwapChain) FrameLatencyWaitableObject() Event {
	return sc.waitable
}

func (sc *SoftwareSwapChain) CurrentBackBufferIndex() uint32 {
	return sc.backIndex
}

func (sc *SoftwareSwapChain) Present(syncInterval uint32, flags PresentFlags) HRESULT {
	sc.PresentCount++
	sc.backIndex = (sc.backIndex + 1) % sc.Desc.BufferCount
	// No queued frames linger here, so the latency budget refills at once.
	sc.waitable.Set()
	return S_OK
}

func (sc *SoftwareSwapChain) Destroy() { sc.Destroyed = true }

// SoftwareFactory creates software swapchains.
type SoftwareFactory struct {
	Created      []*SoftwareSwapChain
	Associations []uintptr
	FailCreate   HRESULT
	Destroyed    bool
}

func NewSoftwareFactory() *SoftwareFactory {
	return &SoftwareFactory{}
}

func (f *SoftwareFactory) CreateSwapChainForWindow(queue CommandQueue, window uintptr, desc SwapChainDesc) (SwapChain1, HRESULT) {
	if f.FailCreate.Failed() {
		hr := f.FailCreate
		f.FailCreate = S_OK
		return nil, hr
	}
	sc := newSoftwareSwapChain(desc)
	f.Created = append(f.Created, sc)
	return sc, S_OK
}

func (f *SoftwareFactory) MakeWindowAssociation(window uintptr, flags uint32) HRESULT {
	f.Associations = append(f.Associations, window)
	return S_OK
}

func (f *SoftwareFactory) Destroy() { f.Destroyed = true }
