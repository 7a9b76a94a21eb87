package d3d12

import (
	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

// ToNativeFormat maps the portable pixel format onto DXGI_FORMAT.
func ToNativeFormat(format hal.TextureFormat) native.Format {
	switch format {
	case hal.TextureFormatR8Unorm:
		return native.FormatR8Unorm
	case hal.TextureFormatRg8Unorm:
		return native.FormatRg8Unorm
	case hal.TextureFormatRgba8Unorm:
		return native.FormatRgba8Unorm
	case hal.TextureFormatRgba8UnormSrgb:
		return native.FormatRgba8UnormSrgb
	case hal.TextureFormatBgra8Unorm:
		return native.FormatBgra8Unorm
	case hal.TextureFormatBgra8UnormSrgb:
		return native.FormatBgra8UnormSrgb
	case hal.TextureFormatRgba16Float:
		return native.FormatRgba16Float
	case hal.TextureFormatRgba32Float:
		return native.FormatRgba32Float
	case hal.TextureFormatDepth32Float:
		return native.FormatDepth32Float
	case hal.TextureFormatDepth24PlusStencil8:
		return native.FormatDepth24UnormS8
	default:
		return native.FormatUnknown
	}
}

// ToNativeFormatNoSrgb is the variant used for swapchain buffers: flip-model
// swapchains reject sRGB formats, so the view layer reapplies the sRGB
// interpretation instead.
func ToNativeFormatNoSrgb(format hal.TextureFormat) native.Format {
	switch format {
	case hal.TextureFormatRgba8UnormSrgb:
		return native.FormatRgba8Unorm
	case hal.TextureFormatBgra8UnormSrgb:
		return native.FormatBgra8Unorm
	default:
		return ToNativeFormat(format)
	}
}

// ToNativeAlphaMode maps the portable composite alpha mode onto
// DXGI_ALPHA_MODE.
func ToNativeAlphaMode(mode hal.CompositeAlphaMode) native.AlphaMode {
	switch mode {
	case hal.CompositeAlphaModeOpaque:
		return native.AlphaModeIgnore
	case hal.CompositeAlphaModePreMultiplied:
		return native.AlphaModePremultiplied
	case hal.CompositeAlphaModePostMultiplied:
		return native.AlphaModeStraight
	default:
		return native.AlphaModeUnspecified
	}
}
