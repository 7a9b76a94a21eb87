package d3d12

import (
	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

// Buffer is a linear GPU allocation.
type Buffer struct {
	resource native.Resource
	size     uint64
}

// NewBuffer wraps a native resource. The backend owns the resource from
// this point and releases it on Destroy.
func NewBuffer(resource native.Resource, size uint64) *Buffer {
	return &Buffer{resource: resource, size: size}
}

func (b *Buffer) Size() uint64 { return b.size }

func (b *Buffer) Destroy() {
	if b.resource != nil {
		b.resource.Destroy()
		b.resource = nil
	}
}

// BufferBinding points into a buffer for a bind group entry. A zero Size
// means "to the end of the buffer".
type BufferBinding struct {
	Buffer *Buffer
	Offset uint64
	Size   uint64
}

func (b BufferBinding) resolveSize() uint64 {
	if b.Size != 0 {
		return b.Size
	}
	return b.Buffer.size - b.Offset
}

func (b BufferBinding) resolveAddress() uint64 {
	return b.Buffer.resource.GPUVirtualAddress() + b.Offset
}

// Texture is an image GPU allocation.
type Texture struct {
	// Name identifies the texture in logs; backbuffer textures get a
	// generated one.
	Name string

	resource      native.Resource
	format        hal.TextureFormat
	dimension     hal.TextureDimension
	size          hal.Extent3D
	mipLevelCount uint32
	sampleCount   uint32
	// borrowed marks a resource owned elsewhere, like a swapchain
	// backbuffer. Destroy leaves borrowed resources alone.
	borrowed bool
}

// NewTexture wraps a native resource with its portable description.
func NewTexture(resource native.Resource, format hal.TextureFormat, dimension hal.TextureDimension, size hal.Extent3D, mipLevelCount, sampleCount uint32) *Texture {
	return &Texture{
		resource:      resource,
		format:        format,
		dimension:     dimension,
		size:          size,
		mipLevelCount: mipLevelCount,
		sampleCount:   sampleCount,
	}
}

func (t *Texture) Format() hal.TextureFormat { return t.format }

func (t *Texture) arrayLayerCount() uint32 {
	if t.dimension == hal.TextureDimension3D {
		return 1
	}
	return t.size.DepthOrArrayLayers
}

// CalcSubresource flattens (mip, layer, plane) into the native subresource
// index: mips vary fastest, then layers, then planes.
func (t *Texture) CalcSubresource(mipLevel, arrayLayer, plane uint32) uint32 {
	return mipLevel + (arrayLayer+plane*t.arrayLayerCount())*t.mipLevelCount
}

// Destroy releases the native resource. Swapchain backbuffer textures are
// skipped; their resources are released by the swapchain.
func (t *Texture) Destroy() {
	if t.resource != nil && !t.borrowed {
		t.resource.Destroy()
		t.resource = nil
	}
}

// TextureView carries one CPU descriptor handle per view kind it was
// created for. The handles come from the device's CPU pools and are copied
// into the general heap when a bind group references the view.
type TextureView struct {
	rawFormat  native.Format
	target     native.Resource
	subresource uint32

	handleSRV   *DescriptorHandle
	handleUAV   *DescriptorHandle
	handleRTV   *DescriptorHandle
	handleDSVRO *DescriptorHandle
	handleDSVRW *DescriptorHandle
}

// Sampler is a single staged sampler descriptor.
type Sampler struct {
	handle DescriptorHandle
}
