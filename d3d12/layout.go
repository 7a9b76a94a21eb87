package d3d12

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

// rootSignatureDWordLimit is the hardware size budget of a root signature:
// a table costs one DWORD, a root descriptor two.
const rootSignatureDWordLimit uint32 = 64

// BindGroupLayout holds the canonicalized (binding-sorted) entry list, so
// two layouts declaring the same entries in different order compare and
// bind identically.
type BindGroupLayout struct {
	entries []hal.BindGroupLayoutEntry
}

// NewBindGroupLayout canonicalizes the entries. The input slice is not
// retained.
func NewBindGroupLayout(entries []hal.BindGroupLayoutEntry) *BindGroupLayout {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b hal.BindGroupLayoutEntry) int {
		return int(a.Binding) - int(b.Binding)
	})
	return &BindGroupLayout{entries: sorted}
}

// Entries returns the canonicalized entry list.
func (l *BindGroupLayout) Entries() []hal.BindGroupLayoutEntry {
	return l.entries
}

// TableTypes records which descriptor tables a bind group contributes to
// the root signature.
type TableTypes uint8

const (
	TableViews    TableTypes = 0x1
	TableSamplers TableTypes = 0x2
)

// BindGroupInfo is what binding a group at draw/dispatch time needs to
// know: where the group's root parameters start, which tables exist, and
// the dynamic buffers in declaration order.
type BindGroupInfo struct {
	BaseRootIndex  uint32
	Tables         TableTypes
	DynamicBuffers []native.RootBufferKind
}

// PipelineLayout maps the portable bind-group model onto the native root
// signature. bindGroupInfos is index-aligned with the group index used at
// bind time.
type PipelineLayout struct {
	raw            native.RootSignature
	bindGroupInfos []BindGroupInfo
}

// BindGroupInfos exposes the per-group binding records.
func (p *PipelineLayout) BindGroupInfos() []BindGroupInfo {
	return p.bindGroupInfos
}

func (p *PipelineLayout) Destroy() {
	if p.raw != nil {
		p.raw.Destroy()
		p.raw = nil
	}
}

// viewRangeKind maps a non-sampler, non-dynamic entry onto its descriptor
// range type.
func viewRangeKind(t hal.BindingType) native.DescriptorRangeKind {
	switch t {
	case hal.BindingTypeUniformBuffer:
		return native.DescriptorRangeCbv
	case hal.BindingTypeStorageBuffer, hal.BindingTypeStorageTexture:
		return native.DescriptorRangeUav
	default:
		return native.DescriptorRangeSrv
	}
}

// dynamicBufferKind maps a dynamic-offset buffer entry onto the root
// descriptor setter used per draw.
func dynamicBufferKind(t hal.BindingType) native.RootBufferKind {
	switch t {
	case hal.BindingTypeStorageBuffer:
		return native.RootBufferUnorderedAccess
	case hal.BindingTypeReadOnlyStorageBuffer:
		return native.RootBufferShaderResource
	default:
		return native.RootBufferConstant
	}
}

func entryCount(e hal.BindGroupLayoutEntry) uint32 {
	if e.Count == 0 {
		return 1
	}
	return e.Count
}

// CreatePipelineLayout builds the root signature for an ordered list of
// bind group layouts. Per group the root parameters are: the view table if
// any entry stages through the CBV/SRV/UAV heap, the sampler table if any
// sampler exists, then one root descriptor per dynamic-offset buffer in
// declaration order. That same order is what SetBindGroup walks and what
// callers supply per-draw dynamic offsets in; the three must never diverge.
func (d *Device) CreatePipelineLayout(groups []*BindGroupLayout) (*PipelineLayout, error) {
	if len(groups) > hal.MaxBindGroups {
		return nil, ErrTooManyBindGroups
	}

	var parameters []native.RootParameter
	var dwords uint32
	var totalDynamic int
	infos := make([]BindGroupInfo, 0, len(groups))

	for groupIndex, group := range groups {
		info := BindGroupInfo{BaseRootIndex: uint32(len(parameters))}

		var viewRanges, samplerRanges []native.DescriptorRange
		var dynamicRegisters []uint32
		for _, entry := range group.entries {
			switch {
			case entry.Type == hal.BindingTypeSampler:
				samplerRanges = append(samplerRanges, native.DescriptorRange{
					Kind:         native.DescriptorRangeSampler,
					Count:        entryCount(entry),
					BaseRegister: entry.Binding,
					Space:        uint32(groupIndex),
				})
			case entry.Type.IsBuffer() && entry.HasDynamicOffset:
				info.DynamicBuffers = append(info.DynamicBuffers, dynamicBufferKind(entry.Type))
				dynamicRegisters = append(dynamicRegisters, entry.Binding)
			default:
				viewRanges = append(viewRanges, native.DescriptorRange{
					Kind:         viewRangeKind(entry.Type),
					Count:        entryCount(entry),
					BaseRegister: entry.Binding,
					Space:        uint32(groupIndex),
				})
			}
		}

		if len(viewRanges) > 0 {
			info.Tables |= TableViews
			parameters = append(parameters, native.RootParameter{
				Kind:   native.RootParameterTable,
				Ranges: viewRanges,
			})
		}
		if len(samplerRanges) > 0 {
			info.Tables |= TableSamplers
			parameters = append(parameters, native.RootParameter{
				Kind:   native.RootParameterTable,
				Ranges: samplerRanges,
			})
		}
		for i, kind := range info.DynamicBuffers {
			var paramKind native.RootParameterKind
			switch kind {
			case native.RootBufferConstant:
				paramKind = native.RootParameterCbv
			case native.RootBufferShaderResource:
				paramKind = native.RootParameterSrv
			case native.RootBufferUnorderedAccess:
				paramKind = native.RootParameterUav
			}
			parameters = append(parameters, native.RootParameter{
				Kind:     paramKind,
				Register: dynamicRegisters[i],
				Space:    uint32(groupIndex),
			})
		}

		totalDynamic += len(info.DynamicBuffers)
		infos = append(infos, info)
	}

	if totalDynamic > hal.MaxDynamicBuffersPerLayout {
		return nil, ErrTooManyDynamics
	}
	for _, p := range parameters {
		dwords += p.DWords()
	}
	if dwords > rootSignatureDWordLimit {
		return nil, ErrRootSignatureTooBig
	}

	raw, hr := d.raw.CreateRootSignature(native.RootSignatureDesc{Parameters: parameters})
	if err := deviceResult(hr, "root signature creation"); err != nil {
		return nil, err
	}
	return &PipelineLayout{raw: raw, bindGroupInfos: infos}, nil
}

// BindGroupEntry supplies the resource for one layout binding.
type BindGroupEntry struct {
	Binding     uint32
	Buffer      BufferBinding
	TextureView *TextureView
	Sampler     *Sampler
}

// BindGroup is an immutable set of descriptor table bases plus the base
// addresses of its dynamic buffers. Command encoders reference it during a
// draw/dispatch; they never own it.
type BindGroup struct {
	gpuViews       native.GPUDescriptorHandle
	gpuSamplers    native.GPUDescriptorHandle
	dynamicBuffers []uint64

	viewHandles    []DescriptorHandle
	samplerHandles []DescriptorHandle
}

// DynamicBufferCount returns how many per-draw offsets a bind call must
// supply.
func (g *BindGroup) DynamicBufferCount() int {
	return len(g.dynamicBuffers)
}

// CreateBindGroup populates general-heap slots for every table entry of the
// layout and records dynamic buffer base addresses in declaration order.
func (d *Device) CreateBindGroup(layout *BindGroupLayout, entries []BindGroupEntry) (*BindGroup, error) {
	find := func(binding uint32) (BindGroupEntry, bool) {
		for _, e := range entries {
			if e.Binding == binding {
				return e, true
			}
		}
		return BindGroupEntry{}, false
	}

	var viewCount, samplerCount uint32
	for _, le := range layout.entries {
		switch {
		case le.Type == hal.BindingTypeSampler:
			samplerCount += entryCount(le)
		case le.Type.IsBuffer() && le.HasDynamicOffset:
		default:
			viewCount += entryCount(le)
		}
	}

	group := &BindGroup{}
	var err error
	if viewCount > 0 {
		group.viewHandles, err = d.shared.HeapViews.Allocate(viewCount)
		if err != nil {
			return nil, bindGroupAllocError(err)
		}
		group.gpuViews = group.viewHandles[0].GPU
	}
	if samplerCount > 0 {
		group.samplerHandles, err = d.shared.HeapSamplers.Allocate(samplerCount)
		if err != nil {
			d.releaseBindGroupSlots(group)
			return nil, bindGroupAllocError(err)
		}
		group.gpuSamplers = group.samplerHandles[0].GPU
	}

	viewSlot, samplerSlot := 0, 0
	for _, le := range layout.entries {
		entry, ok := find(le.Binding)
		if !ok {
			d.releaseBindGroupSlots(group)
			return nil, fmt.Errorf("binding %d: %w", le.Binding, ErrBindingMissing)
		}
		switch {
		case le.Type == hal.BindingTypeSampler:
			dest := group.samplerHandles[samplerSlot].CPU
			d.raw.CopyDescriptorsSimple(1, dest, entry.Sampler.handle.CPU, native.DescriptorHeapSampler)
			samplerSlot++
		case le.Type.IsBuffer() && le.HasDynamicOffset:
			group.dynamicBuffers = append(group.dynamicBuffers, entry.Buffer.resolveAddress())
		case le.Type == hal.BindingTypeUniformBuffer:
			dest := group.viewHandles[viewSlot].CPU
			d.raw.CreateConstantBufferView(entry.Buffer.resolveAddress(), uint32(entry.Buffer.resolveSize()), dest)
			viewSlot++
		case le.Type == hal.BindingTypeStorageBuffer:
			dest := group.viewHandles[viewSlot].CPU
			d.raw.CreateUnorderedAccessView(entry.Buffer.Buffer.resource, dest)
			viewSlot++
		case le.Type == hal.BindingTypeReadOnlyStorageBuffer:
			dest := group.viewHandles[viewSlot].CPU
			d.raw.CreateShaderResourceView(entry.Buffer.Buffer.resource, dest)
			viewSlot++
		case le.Type == hal.BindingTypeSampledTexture:
			dest := group.viewHandles[viewSlot].CPU
			d.raw.CopyDescriptorsSimple(1, dest, entry.TextureView.handleSRV.CPU, native.DescriptorHeapCbvSrvUav)
			viewSlot++
		case le.Type == hal.BindingTypeStorageTexture:
			dest := group.viewHandles[viewSlot].CPU
			d.raw.CopyDescriptorsSimple(1, dest, entry.TextureView.handleUAV.CPU, native.DescriptorHeapCbvSrvUav)
			viewSlot++
		}
	}
	return group, nil
}

// DestroyBindGroup returns the group's general-heap slots. The caller must
// have waited for any GPU work referencing the group.
func (d *Device) DestroyBindGroup(group *BindGroup) {
	d.releaseBindGroupSlots(group)
}

func (d *Device) releaseBindGroupSlots(group *BindGroup) {
	for _, h := range group.viewHandles {
		_ = d.shared.HeapViews.Free(h)
	}
	for _, h := range group.samplerHandles {
		_ = d.shared.HeapSamplers.Free(h)
	}
	group.viewHandles = nil
	group.samplerHandles = nil
}

// bindGroupAllocError maps heap exhaustion onto the portable taxonomy; the
// fixed general heaps cannot grow, so there is nothing to retry.
func bindGroupAllocError(err error) error {
	if errors.Is(err, ErrHeapExhausted) {
		return hal.ErrOutOfMemory
	}
	return err
}
