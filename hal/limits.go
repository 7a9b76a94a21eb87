package hal

// Compile-time bounds for the fixed-size containers used on hot per-draw
// paths. Backends reject anything that exceeds them at creation time.
const (
	// MaxBindGroups is the number of bind group slots a pipeline layout
	// may use.
	MaxBindGroups = 8

	// MaxColorTargets bounds the color attachments (and therefore pending
	// resolve operations) of a render pass.
	MaxColorTargets = 4

	// MaxVertexBuffers bounds the vertex buffer slots of a render pass.
	MaxVertexBuffers = 16

	// MaxDynamicBuffersPerLayout bounds dynamic-offset buffer bindings
	// across one pipeline layout.
	MaxDynamicBuffersPerLayout = 8
)
