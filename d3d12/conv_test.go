package d3d12

import (
	"testing"

	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

func TestFormatConversionStripsSrgbForSwapchains(t *testing.T) {
	if got := ToNativeFormat(hal.TextureFormatBgra8UnormSrgb); got != native.FormatBgra8UnormSrgb {
		t.Fatalf("ToNativeFormat = %v", got)
	}
	if got := ToNativeFormatNoSrgb(hal.TextureFormatBgra8UnormSrgb); got != native.FormatBgra8Unorm {
		t.Fatalf("ToNativeFormatNoSrgb = %v", got)
	}
	if got := ToNativeFormatNoSrgb(hal.TextureFormatRgba8UnormSrgb); got != native.FormatRgba8Unorm {
		t.Fatalf("ToNativeFormatNoSrgb = %v", got)
	}
	// Non-sRGB formats pass through unchanged.
	if got := ToNativeFormatNoSrgb(hal.TextureFormatRgba16Float); got != native.FormatRgba16Float {
		t.Fatalf("ToNativeFormatNoSrgb passthrough = %v", got)
	}
	if got := ToNativeFormat(hal.TextureFormatUndefined); got != native.FormatUnknown {
		t.Fatalf("undefined format = %v", got)
	}
}

func TestCalcSubresource(t *testing.T) {
	tex := NewTexture(native.NewSoftwareResource("t"), hal.TextureFormatRgba8Unorm,
		hal.TextureDimension2D, hal.Extent3D{Width: 8, Height: 8, DepthOrArrayLayers: 4}, 3, 1)

	if got := tex.CalcSubresource(0, 0, 0); got != 0 {
		t.Fatalf("subresource(0,0,0) = %d", got)
	}
	if got := tex.CalcSubresource(2, 0, 0); got != 2 {
		t.Fatalf("subresource(2,0,0) = %d", got)
	}
	// Mips vary fastest, then layers.
	if got := tex.CalcSubresource(1, 2, 0); got != 1+2*3 {
		t.Fatalf("subresource(1,2,0) = %d", got)
	}
	if got := tex.CalcSubresource(0, 1, 1); got != (1+1*4)*3 {
		t.Fatalf("subresource(0,1,1) = %d", got)
	}
}
