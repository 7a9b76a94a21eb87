package d3d12

import (
	"github.com/afiedler/wgpu/containers"
	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

// commandListPoolSize bounds how many closed lists an encoder keeps around
// for reuse after ResetAll.
const commandListPoolSize = 8

// PassKind tracks what kind of pass the encoder is inside. Transfer is the
// idle state between passes; copies are only legal there.
type PassKind int

const (
	PassTransfer PassKind = iota
	PassRender
	PassCompute
)

// PassResolve is one MSAA resolve deferred to the end of the render pass.
// Resolves cannot be recorded while the targets are bound for rendering.
type PassResolve struct {
	dst    native.Resource
	dstSub uint32
	src    native.Resource
	srcSub uint32
	format native.Format
}

// PassState is the per-pass tracking the encoder resets on EndPass.
// Vertex buffer bindings are staged here and flushed to the list in
// contiguous runs right before a draw.
type PassState struct {
	hasLabel bool
	kind     PassKind

	resolves     [hal.MaxColorTargets]PassResolve
	resolveCount int

	vertexBuffers      [hal.MaxVertexBuffers]native.VertexBufferView
	dirtyVertexBuffers uint16
	vertexBufferCount  int
}

func (s *PassState) clear() {
	*s = PassState{}
}

// Temp is scratch storage reused across recording to avoid per-call
// allocation.
type Temp struct {
	barriers []native.ResourceBarrier
}

// ColorAttachment describes one render target of a pass.
type ColorAttachment struct {
	View          *TextureView
	ResolveTarget *TextureView
	LoadOp        hal.LoadOp
	StoreOp       hal.StoreOp
	ClearValue    hal.Color
}

// DepthStencilAttachment describes the depth target of a pass.
type DepthStencilAttachment struct {
	View         *TextureView
	LoadOp       hal.LoadOp
	ClearDepth   float32
	ClearStencil uint8
	ReadOnly     bool
}

// RenderPassDescriptor describes a render pass to open.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []ColorAttachment
	DepthStencil     *DepthStencilAttachment
}

// CommandBuffer is a closed command list ready for submission. It goes
// back to its encoder's free pool through ResetAll.
type CommandBuffer struct {
	raw native.GraphicsCommandList
}

// CommandEncoder records commands into one native list at a time. It is
// not safe for concurrent use; each encoder owns its allocator, so two
// encoders can record in parallel.
type CommandEncoder struct {
	device    *Device
	allocator native.CommandAllocator
	list      native.GraphicsCommandList
	freeLists *containers.RingQueue[native.GraphicsCommandList]

	recording bool
	layout    *PipelineLayout
	pass      PassState
	temp      Temp
}

// CreateCommandEncoder creates an encoder with its own allocator.
func (d *Device) CreateCommandEncoder() (*CommandEncoder, error) {
	allocator, hr := d.raw.CreateCommandAllocator()
	if err := deviceResult(hr, "command allocator creation"); err != nil {
		return nil, err
	}
	return &CommandEncoder{
		device:    d,
		allocator: allocator,
		freeLists: containers.NewRingQueue[native.GraphicsCommandList](commandListPoolSize),
	}, nil
}

// Begin starts recording. A pooled list is reused when one is available;
// otherwise a fresh one is created. Both general heaps are bound up front
// so descriptor tables resolve for the whole recording.
func (e *CommandEncoder) Begin() error {
	if e.recording {
		return ErrPassAlreadyOpen
	}
	if list, err := e.freeLists.Dequeue(); err == nil {
		if hr := list.Reset(e.allocator); hr.Failed() {
			return deviceResult(hr, "command list reset")
		}
		e.list = list
	} else {
		list, hr := e.device.raw.CreateGraphicsCommandList(e.allocator)
		if err := deviceResult(hr, "command list creation"); err != nil {
			return err
		}
		e.list = list
	}
	e.list.SetDescriptorHeaps([]native.DescriptorHeap{
		e.device.shared.HeapViews.Raw,
		e.device.shared.HeapSamplers.Raw,
	})
	e.recording = true
	e.layout = nil
	e.pass.clear()
	return nil
}

// BeginRenderPass opens a render pass: binds the targets, applies clear
// loads, and defers any resolves to EndPass.
func (e *CommandEncoder) BeginRenderPass(desc RenderPassDescriptor) error {
	if !e.recording {
		return ErrNotRecording
	}
	if e.pass.kind != PassTransfer {
		return ErrPassAlreadyOpen
	}
	if len(desc.ColorAttachments) > hal.MaxColorTargets {
		return ErrTooManyResolves
	}

	e.flushBarriers()

	colorTargets := make([]native.CPUDescriptorHandle, len(desc.ColorAttachments))
	for i, at := range desc.ColorAttachments {
		colorTargets[i] = at.View.handleRTV.CPU
		if at.ResolveTarget != nil {
			e.pass.resolves[e.pass.resolveCount] = PassResolve{
				dst:    at.ResolveTarget.target,
				dstSub: at.ResolveTarget.subresource,
				src:    at.View.target,
				srcSub: at.View.subresource,
				format: at.ResolveTarget.rawFormat,
			}
			e.pass.resolveCount++
		}
	}
	var depthTarget *native.CPUDescriptorHandle
	if ds := desc.DepthStencil; ds != nil {
		handle := ds.View.handleDSVRW
		if ds.ReadOnly {
			handle = ds.View.handleDSVRO
		}
		depthTarget = &handle.CPU
	}
	e.list.OMSetRenderTargets(colorTargets, depthTarget)

	for i, at := range desc.ColorAttachments {
		if at.LoadOp == hal.LoadOpClear {
			c := at.ClearValue
			e.list.ClearRenderTargetView(colorTargets[i], [4]float32{
				float32(c.R), float32(c.G), float32(c.B), float32(c.A),
			})
		}
	}
	if ds := desc.DepthStencil; ds != nil && ds.LoadOp == hal.LoadOpClear && !ds.ReadOnly {
		e.list.ClearDepthStencilView(*depthTarget, ds.ClearDepth, ds.ClearStencil)
	}

	e.pass.kind = PassRender
	e.pass.hasLabel = desc.Label != ""
	return nil
}

// BeginComputePass opens a compute pass.
func (e *CommandEncoder) BeginComputePass(label string) error {
	if !e.recording {
		return ErrNotRecording
	}
	if e.pass.kind != PassTransfer {
		return ErrPassAlreadyOpen
	}
	e.flushBarriers()
	e.pass.kind = PassCompute
	e.pass.hasLabel = label != ""
	return nil
}

// EndPass closes the open pass. Render passes flush their deferred
// resolves here, after the targets are no longer bound. The pass state
// goes back to its initial value either way.
func (e *CommandEncoder) EndPass() error {
	switch e.pass.kind {
	case PassRender:
		for i := 0; i < e.pass.resolveCount; i++ {
			r := e.pass.resolves[i]
			e.list.ResolveSubresource(r.dst, r.dstSub, r.src, r.srcSub, r.format)
		}
	case PassCompute:
	default:
		return ErrNoRenderPass
	}
	e.layout = nil
	e.pass.clear()
	return nil
}

// SetPipelineLayout binds the root signature for the open pass and makes
// the layout current for SetBindGroup.
func (e *CommandEncoder) SetPipelineLayout(layout *PipelineLayout) error {
	switch e.pass.kind {
	case PassRender:
		e.list.SetGraphicsRootSignature(layout.raw)
	case PassCompute:
		e.list.SetComputeRootSignature(layout.raw)
	default:
		return ErrNoRenderPass
	}
	e.layout = layout
	return nil
}

// SetBindGroup binds a group at the given index: its tables first, then
// its dynamic buffers in declaration order with the caller's offsets added
// to the recorded base addresses. len(dynamicOffsets) must equal the
// group's dynamic buffer count.
func (e *CommandEncoder) SetBindGroup(index uint32, group *BindGroup, dynamicOffsets []uint64) error {
	if e.layout == nil || int(index) >= len(e.layout.bindGroupInfos) {
		return ErrTooManyBindGroups
	}
	if len(dynamicOffsets) != len(group.dynamicBuffers) {
		return ErrTooManyDynamics
	}
	compute := e.pass.kind == PassCompute
	if e.pass.kind == PassTransfer {
		return ErrNoRenderPass
	}

	info := e.layout.bindGroupInfos[index]
	rootIndex := info.BaseRootIndex
	if info.Tables&TableViews != 0 {
		e.setRootTable(compute, rootIndex, group.gpuViews)
		rootIndex++
	}
	if info.Tables&TableSamplers != 0 {
		e.setRootTable(compute, rootIndex, group.gpuSamplers)
		rootIndex++
	}
	for i, kind := range info.DynamicBuffers {
		address := group.dynamicBuffers[i] + dynamicOffsets[i]
		if compute {
			e.list.SetComputeRootBuffer(kind, rootIndex, address)
		} else {
			e.list.SetGraphicsRootBuffer(kind, rootIndex, address)
		}
		rootIndex++
	}
	return nil
}

func (e *CommandEncoder) setRootTable(compute bool, rootIndex uint32, base native.GPUDescriptorHandle) {
	if compute {
		e.list.SetComputeRootDescriptorTable(rootIndex, base)
	} else {
		e.list.SetGraphicsRootDescriptorTable(rootIndex, base)
	}
}

// SetVertexBuffer stages a vertex buffer binding. Nothing reaches the list
// until the next draw, so repeated rebinds between draws cost one flush.
func (e *CommandEncoder) SetVertexBuffer(slot uint32, binding BufferBinding, stride uint32) error {
	if e.pass.kind != PassRender {
		return ErrNoRenderPass
	}
	if slot >= hal.MaxVertexBuffers {
		return ErrVertexSlotRange
	}
	e.pass.vertexBuffers[slot] = native.VertexBufferView{
		BufferLocation: binding.resolveAddress(),
		SizeInBytes:    uint32(binding.resolveSize()),
		StrideInBytes:  stride,
	}
	e.pass.dirtyVertexBuffers |= 1 << slot
	if int(slot)+1 > e.pass.vertexBufferCount {
		e.pass.vertexBufferCount = int(slot) + 1
	}
	return nil
}

// flushVertexBuffers issues the staged bindings as contiguous runs and
// clears the dirty mask.
func (e *CommandEncoder) flushVertexBuffers() {
	dirty := e.pass.dirtyVertexBuffers
	if dirty == 0 {
		return
	}
	for start := 0; start < e.pass.vertexBufferCount; {
		if dirty&(1<<start) == 0 {
			start++
			continue
		}
		end := start
		for end < e.pass.vertexBufferCount && dirty&(1<<end) != 0 {
			end++
		}
		e.list.IASetVertexBuffers(uint32(start), e.pass.vertexBuffers[start:end])
		start = end
	}
	e.pass.dirtyVertexBuffers = 0
}

// Draw issues a non-indexed draw.
func (e *CommandEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if e.pass.kind != PassRender {
		return ErrNoRenderPass
	}
	e.flushVertexBuffers()
	e.list.DrawInstanced(vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

// DrawIndexed issues an indexed draw.
func (e *CommandEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) error {
	if e.pass.kind != PassRender {
		return ErrNoRenderPass
	}
	e.flushVertexBuffers()
	e.list.DrawIndexedInstanced(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	return nil
}

// Dispatch issues a compute dispatch.
func (e *CommandEncoder) Dispatch(x, y, z uint32) error {
	if e.pass.kind != PassCompute {
		return ErrNoComputePass
	}
	e.list.Dispatch(x, y, z)
	return nil
}

// TransitionResource stages a state transition. Barriers batch until the
// next pass begin or copy so adjacent transitions go out in one call.
func (e *CommandEncoder) TransitionResource(resource native.Resource, subresource uint32, before, after native.ResourceState) {
	if before == after {
		return
	}
	e.temp.barriers = append(e.temp.barriers, native.ResourceBarrier{
		Resource:    resource,
		Subresource: subresource,
		Before:      before,
		After:       after,
	})
}

func (e *CommandEncoder) flushBarriers() {
	if len(e.temp.barriers) == 0 {
		return
	}
	e.list.ResourceBarrier(e.temp.barriers)
	e.temp.barriers = e.temp.barriers[:0]
}

// CopyBufferToBuffer records a copy. Copies are only legal outside passes.
func (e *CommandEncoder) CopyBufferToBuffer(dst *Buffer, dstOffset uint64, src *Buffer, srcOffset, size uint64) error {
	if !e.recording {
		return ErrNotRecording
	}
	if e.pass.kind != PassTransfer {
		return ErrPassOpen
	}
	e.flushBarriers()
	e.list.CopyBufferRegion(dst.resource, dstOffset, src.resource, srcOffset, size)
	return nil
}

// Finish closes the list and hands it over as a submittable buffer. The
// encoder may Begin again immediately with a pooled or fresh list.
func (e *CommandEncoder) Finish() (*CommandBuffer, error) {
	if !e.recording {
		return nil, ErrNotRecording
	}
	if e.pass.kind != PassTransfer {
		return nil, ErrPassOpen
	}
	e.flushBarriers()
	if hr := e.list.Close(); hr.Failed() {
		return nil, deviceResult(hr, "command list close")
	}
	buffer := &CommandBuffer{raw: e.list}
	e.list = nil
	e.recording = false
	return buffer, nil
}

// ResetAll reclaims submitted buffers once the GPU is done with them: the
// allocator is reset and the lists go back to the reuse pool. Lists beyond
// the pool size are destroyed.
func (e *CommandEncoder) ResetAll(buffers []*CommandBuffer) error {
	if hr := e.allocator.Reset(); hr.Failed() {
		return deviceResult(hr, "command allocator reset")
	}
	for _, b := range buffers {
		if err := e.freeLists.Enqueue(b.raw); err != nil {
			b.raw.Destroy()
		}
		b.raw = nil
	}
	return nil
}

// Destroy releases the encoder's allocator and pooled lists. Outstanding
// command buffers must have been reclaimed or submitted and waited on.
func (e *CommandEncoder) Destroy() {
	for {
		list, err := e.freeLists.Dequeue()
		if err != nil {
			break
		}
		list.Destroy()
	}
	if e.list != nil {
		e.list.Destroy()
		e.list = nil
	}
	if e.allocator != nil {
		e.allocator.Destroy()
		e.allocator = nil
	}
}
