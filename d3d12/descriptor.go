package d3d12

import (
	"sync"
	"sync/atomic"

	"github.com/afiedler/wgpu/core"
	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

var heapIDCounter atomic.Uint32

// DescriptorHandle identifies one slot in a heap. It is immutable once
// issued; the GPU address is zero for CPU-only pools. The slot index is
// never handed out again while the owning resource is alive.
type DescriptorHandle struct {
	HeapID uint32
	Index  uint32
	CPU    native.CPUDescriptorHandle
	GPU    native.GPUDescriptorHandle
}

// GeneralHeap is the GPU-visible descriptor heap for one view kind. Native
// shader-visible heaps have a fixed capacity set at creation and cannot
// grow; sizing is conservative and exhaustion is a hard error.
type GeneralHeap struct {
	Raw      native.DescriptorHeap
	HeapType native.DescriptorHeapType

	id       uint32
	capacity uint32
	startCPU native.CPUDescriptorHandle
	startGPU native.GPUDescriptorHandle
	stride   uint32

	mutex     sync.Mutex
	live      []bool
	allocated uint32
	// cursor is where the contiguous-run search starts: just past the last
	// allocated run, lowered again when a slot below it is freed.
	cursor uint32
}

// NewGeneralHeap creates the shader-visible heap for the given view kind.
func NewGeneralHeap(device native.Device, heapType native.DescriptorHeapType, capacity uint32) (*GeneralHeap, error) {
	raw, hr := device.CreateDescriptorHeap(native.DescriptorHeapDesc{
		Type:          heapType,
		Capacity:      capacity,
		ShaderVisible: true,
	})
	if err := deviceResult(hr, "general descriptor heap creation"); err != nil {
		return nil, err
	}
	return &GeneralHeap{
		Raw:      raw,
		HeapType: heapType,
		id:       heapIDCounter.Add(1),
		capacity: capacity,
		startCPU: raw.StartCPU(),
		startGPU: raw.StartGPU(),
		stride:   device.HandleIncrementSize(heapType),
		live:     make([]bool, capacity),
	}, nil
}

func (h *GeneralHeap) at(index uint32) DescriptorHandle {
	return DescriptorHandle{
		HeapID: h.id,
		Index:  index,
		CPU:    native.CPUDescriptorHandle{Ptr: h.startCPU.Ptr + uintptr(index*h.stride)},
		GPU:    native.GPUDescriptorHandle{Ptr: h.startGPU.Ptr + uint64(index*h.stride)},
	}
}

// Allocate reserves count contiguous slots and returns their handles in
// slot order. Descriptor tables address the range through the first GPU
// handle, which is why the run must be contiguous. Exhaustion maps outward
// as OutOfMemory; there is nothing to retry.
func (h *GeneralHeap) Allocate(count uint32) ([]DescriptorHandle, error) {
	if count == 0 {
		return nil, nil
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.allocated+count > h.capacity {
		return nil, ErrHeapExhausted
	}
	start, ok := h.findRun(count)
	if !ok {
		return nil, ErrHeapExhausted
	}
	handles := make([]DescriptorHandle, count)
	for i := uint32(0); i < count; i++ {
		h.live[start+i] = true
		handles[i] = h.at(start + i)
	}
	h.allocated += count
	h.cursor = start + count
	return handles, nil
}

// findRun scans for count consecutive free slots. The caller holds the
// mutex.
func (h *GeneralHeap) findRun(count uint32) (uint32, bool) {
	run := uint32(0)
	for i := h.cursor; i < h.capacity; i++ {
		if h.live[i] {
			run = 0
			continue
		}
		run++
		if run == count {
			return i + 1 - count, true
		}
	}
	// Wrap once; freed slots may sit below the cursor.
	run = 0
	for i := uint32(0); i < h.cursor; i++ {
		if h.live[i] {
			run = 0
			continue
		}
		run++
		if run == count {
			return i + 1 - count, true
		}
	}
	return 0, false
}

// Free returns one slot to the heap. Freeing a slot twice is a programmer
// error: it is rejected so the free bookkeeping stays intact.
func (h *GeneralHeap) Free(handle DescriptorHandle) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if handle.Index >= h.capacity || !h.live[handle.Index] {
		core.LogError("descriptor slot %d of %s heap freed twice", handle.Index, h.HeapType)
		return ErrSlotAlreadyFree
	}
	h.live[handle.Index] = false
	h.allocated--
	if handle.Index < h.cursor {
		h.cursor = handle.Index
	}
	return nil
}

// Allocated returns the number of live slots.
func (h *GeneralHeap) Allocated() uint32 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.allocated
}

// Destroy releases the native heap. All handles must have been freed; the
// caller is responsible for having waited for GPU completion first.
func (h *GeneralHeap) Destroy() {
	if h.Raw != nil {
		h.Raw.Destroy()
		h.Raw = nil
	}
}

// CpuPool is a CPU-only descriptor pool used for RTV/DSV staging and for
// transient SRV/UAV/sampler descriptors before they are copied into the
// general heap. All access is serialized through the pool mutex.
type CpuPool struct {
	Raw      native.DescriptorHeap
	HeapType native.DescriptorHeapType

	id       uint32
	capacity uint32
	startCPU native.CPUDescriptorHandle
	stride   uint32

	mutex    sync.Mutex
	live     []bool
	freeList []uint32
	next     uint32
}

// NewCpuPool creates a CPU-only pool of the given view kind.
func NewCpuPool(device native.Device, heapType native.DescriptorHeapType, capacity uint32) (*CpuPool, error) {
	raw, hr := device.CreateDescriptorHeap(native.DescriptorHeapDesc{
		Type:          heapType,
		Capacity:      capacity,
		ShaderVisible: false,
	})
	if err := deviceResult(hr, "cpu descriptor pool creation"); err != nil {
		return nil, err
	}
	return &CpuPool{
		Raw:      raw,
		HeapType: heapType,
		id:       heapIDCounter.Add(1),
		capacity: capacity,
		startCPU: raw.StartCPU(),
		stride:   device.HandleIncrementSize(heapType),
		live:     make([]bool, capacity),
	}, nil
}

// Allocate reserves one slot. Pools recycle freed indices before touching
// fresh capacity.
func (p *CpuPool) Allocate() (DescriptorHandle, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var index uint32
	if n := len(p.freeList); n > 0 {
		index = p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
	} else if p.next < p.capacity {
		index = p.next
		p.next++
	} else {
		return DescriptorHandle{}, ErrHeapExhausted
	}
	p.live[index] = true
	return DescriptorHandle{
		HeapID: p.id,
		Index:  index,
		CPU:    native.CPUDescriptorHandle{Ptr: p.startCPU.Ptr + uintptr(index*p.stride)},
	}, nil
}

// Free returns one slot to the free list. A double free is rejected and
// the free list is left untouched.
func (p *CpuPool) Free(handle DescriptorHandle) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if handle.Index >= p.capacity || !p.live[handle.Index] {
		core.LogError("descriptor slot %d of %s pool freed twice", handle.Index, p.HeapType)
		return ErrSlotAlreadyFree
	}
	p.live[handle.Index] = false
	p.freeList = append(p.freeList, handle.Index)
	return nil
}

// FreeListLen returns the recycled slot count, for integrity checks.
func (p *CpuPool) FreeListLen() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.freeList)
}

// Destroy releases the native heap.
func (p *CpuPool) Destroy() {
	if p.Raw != nil {
		p.Raw.Destroy()
		p.Raw = nil
	}
}

// generalHeapFor picks the general heap serving a view kind; samplers live
// in their own heap, everything else shares the CBV/SRV/UAV heap.
func generalHeapFor(shared *DeviceShared, bindingType hal.BindingType) *GeneralHeap {
	if bindingType == hal.BindingTypeSampler {
		return shared.HeapSamplers
	}
	return shared.HeapViews
}
