// Package hal defines the portable GPU device/queue/surface boundary that
// backend packages implement. It carries the data model shared between the
// caller and a backend: surface configuration, texture formats, bind group
// layouts and the unified error taxonomy.
package hal

// FenceValue is a caller-supplied, monotonically increasing value signaled
// on a queue submission and awaited on the CPU.
type FenceValue = uint64

// Extent2D is a width/height pair in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Extent3D describes the size of a texture.
type Extent3D struct {
	Width             uint32
	Height            uint32
	DepthOrArrayLayers uint32
}

type TextureDimension int

const (
	TextureDimension1D TextureDimension = iota
	TextureDimension2D
	TextureDimension3D
)

// TextureFormat is the portable pixel format vocabulary. Backends translate
// it into their native format enum through a conversion table.
type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatR8Unorm
	TextureFormatRg8Unorm
	TextureFormatRgba8Unorm
	TextureFormatRgba8UnormSrgb
	TextureFormatBgra8Unorm
	TextureFormatBgra8UnormSrgb
	TextureFormatRgba16Float
	TextureFormatRgba32Float
	TextureFormatDepth32Float
	TextureFormatDepth24PlusStencil8
)

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatR8Unorm:
		return "R8Unorm"
	case TextureFormatRg8Unorm:
		return "Rg8Unorm"
	case TextureFormatRgba8Unorm:
		return "Rgba8Unorm"
	case TextureFormatRgba8UnormSrgb:
		return "Rgba8UnormSrgb"
	case TextureFormatBgra8Unorm:
		return "Bgra8Unorm"
	case TextureFormatBgra8UnormSrgb:
		return "Bgra8UnormSrgb"
	case TextureFormatRgba16Float:
		return "Rgba16Float"
	case TextureFormatRgba32Float:
		return "Rgba32Float"
	case TextureFormatDepth32Float:
		return "Depth32Float"
	case TextureFormatDepth24PlusStencil8:
		return "Depth24PlusStencil8"
	default:
		return "Undefined"
	}
}

// PresentMode selects how presentation is paced.
type PresentMode int

const (
	PresentModeFifo PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
)

// CompositeAlphaMode selects how the backbuffer alpha channel is composited
// with the rest of the desktop.
type CompositeAlphaMode int

const (
	CompositeAlphaModeAuto CompositeAlphaMode = iota
	CompositeAlphaModeOpaque
	CompositeAlphaModePreMultiplied
	CompositeAlphaModePostMultiplied
)

// SurfaceConfiguration describes the presentable image set of a surface.
type SurfaceConfiguration struct {
	// SwapChainSize is the number of backbuffers.
	SwapChainSize uint32
	Extent        Extent2D
	Format        TextureFormat
	PresentMode   PresentMode
	CompositeAlphaMode CompositeAlphaMode
}

// ShaderStages is a bitset of pipeline stages a binding is visible to.
type ShaderStages uint32

const (
	ShaderStageVertex ShaderStages = 1 << iota
	ShaderStageFragment
	ShaderStageCompute
)

// BindingType classifies a bind group layout entry by resource class.
type BindingType int

const (
	BindingTypeUniformBuffer BindingType = iota
	BindingTypeStorageBuffer
	BindingTypeReadOnlyStorageBuffer
	BindingTypeSampler
	BindingTypeSampledTexture
	BindingTypeStorageTexture
)

// IsBuffer reports whether the binding is backed by a buffer resource.
func (b BindingType) IsBuffer() bool {
	switch b {
	case BindingTypeUniformBuffer, BindingTypeStorageBuffer, BindingTypeReadOnlyStorageBuffer:
		return true
	default:
		return false
	}
}

// BindGroupLayoutEntry describes a single binding in a bind group layout.
type BindGroupLayoutEntry struct {
	// Binding is the shader-visible slot number within the group.
	Binding    uint32
	Visibility ShaderStages
	Type       BindingType
	// HasDynamicOffset marks buffer bindings whose offset is supplied per
	// draw/dispatch rather than baked into the bind group.
	HasDynamicOffset bool
	// Count is the array size of the binding; zero means one.
	Count uint32
}

// LoadOp selects what happens to an attachment at pass start.
type LoadOp int

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
)

// StoreOp selects what happens to an attachment at pass end.
type StoreOp int

const (
	StoreOpStore StoreOp = iota
	StoreOpDiscard
)

// Color is a clear color.
type Color struct {
	R, G, B, A float64
}
