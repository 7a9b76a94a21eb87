// Package native declares the boundary to the D3D12/DXGI primitives the
// backend records against. The backend only ever talks to these interfaces;
// the thin per-call marshaling into driver structures lives behind them.
// The package also ships a software reference implementation used by tests
// and examples.
package native

// Device is the subset of ID3D12Device the backend consumes.
type Device interface {
	CreateCommandQueue() (CommandQueue, HRESULT)
	CreateCommandAllocator() (CommandAllocator, HRESULT)
	CreateGraphicsCommandList(allocator CommandAllocator) (GraphicsCommandList, HRESULT)
	CreateDescriptorHeap(desc DescriptorHeapDesc) (DescriptorHeap, HRESULT)
	CreateRootSignature(desc RootSignatureDesc) (RootSignature, HRESULT)
	CreateFence(initialValue uint64) (Fence, HRESULT)

	// HandleIncrementSize is the stride between consecutive descriptor
	// slots of the given heap type.
	HandleIncrementSize(heapType DescriptorHeapType) uint32

	// View creation writes a descriptor into an existing heap slot.
	CreateRenderTargetView(resource Resource, dest CPUDescriptorHandle)
	CreateDepthStencilView(resource Resource, dest CPUDescriptorHandle)
	CreateShaderResourceView(resource Resource, dest CPUDescriptorHandle)
	CreateUnorderedAccessView(resource Resource, dest CPUDescriptorHandle)
	CreateConstantBufferView(address uint64, size uint32, dest CPUDescriptorHandle)
	CreateSampler(dest CPUDescriptorHandle)

	// CopyDescriptorsSimple copies count contiguous descriptors from a
	// CPU-only staging range into a shader-visible range.
	CopyDescriptorsSimple(count uint32, dest, src CPUDescriptorHandle, heapType DescriptorHeapType)

	Destroy()
}

// CommandQueue is the subset of ID3D12CommandQueue the backend consumes.
type CommandQueue interface {
	ExecuteCommandLists(lists []GraphicsCommandList)
	Signal(fence Fence, value uint64) HRESULT
	Destroy()
}

// CommandAllocator backs the recording storage of one command list at a
// time. Reset is only legal once the GPU finished the recorded work.
type CommandAllocator interface {
	Reset() HRESULT
	Destroy()
}

// GraphicsCommandList is the subset of ID3D12GraphicsCommandList the
// backend records into.
type GraphicsCommandList interface {
	Reset(allocator CommandAllocator) HRESULT
	Close() HRESULT

	ResourceBarrier(barriers []ResourceBarrier)
	IASetVertexBuffers(startSlot uint32, views []VertexBufferView)
	SetDescriptorHeaps(heaps []DescriptorHeap)

	SetGraphicsRootSignature(rs RootSignature)
	SetComputeRootSignature(rs RootSignature)
	SetGraphicsRootDescriptorTable(rootIndex uint32, base GPUDescriptorHandle)
	SetComputeRootDescriptorTable(rootIndex uint32, base GPUDescriptorHandle)
	SetGraphicsRootBuffer(kind RootBufferKind, rootIndex uint32, address uint64)
	SetComputeRootBuffer(kind RootBufferKind, rootIndex uint32, address uint64)

	OMSetRenderTargets(colorTargets []CPUDescriptorHandle, depthStencil *CPUDescriptorHandle)
	ClearRenderTargetView(target CPUDescriptorHandle, color [4]float32)
	ClearDepthStencilView(target CPUDescriptorHandle, depth float32, stencil uint8)
	ResolveSubresource(dst Resource, dstSubresource uint32, src Resource, srcSubresource uint32, format Format)
	CopyBufferRegion(dst Resource, dstOffset uint64, src Resource, srcOffset, size uint64)

	DrawInstanced(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexedInstanced(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	Dispatch(x, y, z uint32)

	Destroy()
}

// Resource is a GPU memory object (buffer, texture or swapchain image).
type Resource interface {
	GPUVirtualAddress() uint64
	Destroy()
}

// DescriptorHeap is a fixed-capacity array of descriptor slots.
type DescriptorHeap interface {
	StartCPU() CPUDescriptorHandle
	// StartGPU is zero for heaps that are not shader visible.
	StartGPU() GPUDescriptorHandle
	Destroy()
}

// RootSignature is the compiled binding layout.
type RootSignature interface {
	Destroy()
}

// Fence is the subset of ID3D12Fence the backend consumes. Completed
// values only ever move forward.
type Fence interface {
	CompletedValue() uint64
	// SetEventOnCompletion arranges for event to be set once the fence
	// reaches value. If it already has, the event is set immediately.
	SetEventOnCompletion(value uint64, event Event) HRESULT
	Destroy()
}

// Event is an OS wait handle. Wait accepts a timeout in milliseconds;
// InfiniteTimeout blocks until the event is set.
type Event interface {
	Set()
	Reset()
	Wait(timeoutMS uint32) WaitStatus
	Destroy()
}

// SwapChain1 is a freshly created swapchain before the cast to the
// presentable revision.
type SwapChain1 interface {
	CastToSwapChain3() (SwapChain, HRESULT)
	Destroy()
}

// SwapChain is the presentable swapchain (IDXGISwapChain3 level).
type SwapChain interface {
	ResizeBuffers(bufferCount, width, height uint32, format Format, flags SwapChainFlags) HRESULT
	GetBuffer(index uint32) (Resource, HRESULT)
	SetMaximumFrameLatency(count uint32) HRESULT
	FrameLatencyWaitableObject() Event
	CurrentBackBufferIndex() uint32
	Present(syncInterval uint32, flags PresentFlags) HRESULT
	Destroy()
}

// Factory is the subset of IDXGIFactory4 the backend consumes.
type Factory interface {
	CreateSwapChainForWindow(queue CommandQueue, window uintptr, desc SwapChainDesc) (SwapChain1, HRESULT)
	MakeWindowAssociation(window uintptr, flags uint32) HRESULT
	Destroy()
}
