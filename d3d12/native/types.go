package native

import "fmt"

// HRESULT is the raw native status code. Negative means failure.
type HRESULT int32

// Status codes recognized by the classification step. Anything else is
// reported as its hex value.
const (
	S_OK          HRESULT = 0
	E_UNEXPECTED  HRESULT = -2147418113 // 0x8000FFFF
	E_NOTIMPL     HRESULT = -2147467263 // 0x80004001
	E_OUTOFMEMORY HRESULT = -2147024882 // 0x8007000E
	E_INVALIDARG  HRESULT = -2147024809 // 0x80070057

	DXGI_ERROR_DEVICE_REMOVED HRESULT = -2005270523 // 0x887A0005
	DXGI_ERROR_DEVICE_RESET   HRESULT = -2005270521 // 0x887A0007
)

// Failed reports whether the code is a failure.
func (hr HRESULT) Failed() bool { return hr < 0 }

func (hr HRESULT) String() string {
	return fmt.Sprintf("0x%X", uint32(hr))
}

// WaitStatus is the result of waiting on an Event.
type WaitStatus uint32

const (
	WaitObject0   WaitStatus = 0x00000000
	WaitAbandoned WaitStatus = 0x00000080
	WaitTimeout   WaitStatus = 0x00000102
	WaitFailed    WaitStatus = 0xFFFFFFFF
)

// InfiniteTimeout blocks a Wait until the event is set.
const InfiniteTimeout uint32 = 0xFFFFFFFF

// Format mirrors DXGI_FORMAT values.
type Format uint32

const (
	FormatUnknown           Format = 0
	FormatRgba32Float       Format = 2
	FormatRgba16Float       Format = 10
	FormatRgba8Unorm        Format = 28
	FormatRgba8UnormSrgb    Format = 29
	FormatDepth32Float      Format = 40
	FormatDepth24UnormS8    Format = 45
	FormatRg8Unorm          Format = 49
	FormatR8Unorm           Format = 61
	FormatBgra8Unorm        Format = 87
	FormatBgra8UnormSrgb    Format = 91
)

// CPUDescriptorHandle addresses one descriptor slot for CPU writes.
type CPUDescriptorHandle struct {
	Ptr uintptr
}

// GPUDescriptorHandle addresses one descriptor slot for GPU reads. Only
// shader-visible heaps have one.
type GPUDescriptorHandle struct {
	Ptr uint64
}

// DescriptorHeapType mirrors D3D12_DESCRIPTOR_HEAP_TYPE.
type DescriptorHeapType int

const (
	DescriptorHeapCbvSrvUav DescriptorHeapType = iota
	DescriptorHeapSampler
	DescriptorHeapRtv
	DescriptorHeapDsv
)

func (t DescriptorHeapType) String() string {
	switch t {
	case DescriptorHeapCbvSrvUav:
		return "CBV_SRV_UAV"
	case DescriptorHeapSampler:
		return "SAMPLER"
	case DescriptorHeapRtv:
		return "RTV"
	case DescriptorHeapDsv:
		return "DSV"
	default:
		return "UNKNOWN"
	}
}

// DescriptorHeapDesc describes a heap to create. Shader-visible heaps have
// a fixed capacity that cannot grow afterwards.
type DescriptorHeapDesc struct {
	Type          DescriptorHeapType
	Capacity      uint32
	ShaderVisible bool
}

// DescriptorRangeKind mirrors D3D12_DESCRIPTOR_RANGE_TYPE.
type DescriptorRangeKind int

const (
	DescriptorRangeSrv DescriptorRangeKind = iota
	DescriptorRangeUav
	DescriptorRangeCbv
	DescriptorRangeSampler
)

// DescriptorRange is one contiguous register range inside a table.
type DescriptorRange struct {
	Kind         DescriptorRangeKind
	Count        uint32
	BaseRegister uint32
	Space        uint32
}

// RootParameterKind mirrors D3D12_ROOT_PARAMETER_TYPE.
type RootParameterKind int

const (
	RootParameterTable RootParameterKind = iota
	RootParameterCbv
	RootParameterSrv
	RootParameterUav
)

// RootParameter is one root signature slot: either a descriptor table or a
// single root descriptor.
type RootParameter struct {
	Kind   RootParameterKind
	Ranges []DescriptorRange
	// Register/Space apply to root descriptors only.
	Register uint32
	Space    uint32
}

// DWords returns the root-signature size cost of the parameter. Tables
// cost one DWORD, root descriptors two.
func (p RootParameter) DWords() uint32 {
	if p.Kind == RootParameterTable {
		return 1
	}
	return 2
}

// RootSignatureDesc describes the full binding layout.
type RootSignatureDesc struct {
	Parameters []RootParameter
}

// RootBufferKind selects which root-descriptor setter a dynamic buffer
// binding uses at draw/dispatch time.
type RootBufferKind int

const (
	RootBufferConstant RootBufferKind = iota
	RootBufferShaderResource
	RootBufferUnorderedAccess
)

// ResourceState is a D3D12_RESOURCE_STATES bitset.
type ResourceState uint32

const (
	ResourceStateCommon          ResourceState = 0
	ResourceStateVertexBuffer    ResourceState = 0x1
	ResourceStateRenderTarget    ResourceState = 0x4
	ResourceStateUnorderedAccess ResourceState = 0x8
	ResourceStateDepthWrite      ResourceState = 0x10
	ResourceStateCopyDest        ResourceState = 0x400
	ResourceStateCopySource      ResourceState = 0x800
	ResourceStatePresent         ResourceState = 0
)

// BarrierAllSubresources transitions every subresource at once.
const BarrierAllSubresources uint32 = 0xFFFFFFFF

// ResourceBarrier is a single state transition. Batches must be recorded
// ahead of any command depending on the After state.
type ResourceBarrier struct {
	Resource    Resource
	Subresource uint32
	Before      ResourceState
	After       ResourceState
}

// VertexBufferView mirrors D3D12_VERTEX_BUFFER_VIEW.
type VertexBufferView struct {
	BufferLocation uint64
	SizeInBytes    uint32
	StrideInBytes  uint32
}

// SwapChainFlags mirrors DXGI_SWAP_CHAIN_FLAG.
type SwapChainFlags uint32

const (
	SwapChainFlagFrameLatencyWaitable SwapChainFlags = 0x40
	SwapChainFlagAllowTearing         SwapChainFlags = 0x800
)

// PresentFlags mirrors the DXGI_PRESENT_* values.
type PresentFlags uint32

const PresentAllowTearing PresentFlags = 0x200

// AlphaMode mirrors DXGI_ALPHA_MODE.
type AlphaMode uint32

const (
	AlphaModeUnspecified   AlphaMode = 0
	AlphaModePremultiplied AlphaMode = 1
	AlphaModeStraight      AlphaMode = 2
	AlphaModeIgnore        AlphaMode = 3
)

// Window-association flags disabling DXGI's automatic Alt+Enter handling.
const (
	MakeWindowAssocNoWindowChanges uint32 = 1
	MakeWindowAssocNoAltEnter      uint32 = 2
)

// SwapChainDesc describes a swapchain to create. Flip-discard with one
// sample is the only supported arrangement.
type SwapChainDesc struct {
	Width       uint32
	Height      uint32
	BufferCount uint32
	Format      Format
	Flags       SwapChainFlags
	AlphaMode   AlphaMode
}
