package driver

import "errors"

// Window is the seam between the renderer and the window-system
// glue it deliberately does not implement: the driver consumes only
// the surface extent (and, backend-permitting, a platform surface
// handle obtained through a backend-specific interface the window
// may additionally satisfy). Whatever creates and manages the
// native window lives outside this module.
type Window interface {
	// Width returns the surface width, in pixels.
	Width() int

	// Height returns the surface height, in pixels.
	Height() int
}

// ErrCannotPresent means the driver, device, or window cannot back
// a swapchain; callers fall back to offscreen rendering.
var ErrCannotPresent = errors.New("presentation not supported")

// ErrWindow means the window is misconfigured for presentation,
// e.g. it reports a zero extent.
var ErrWindow = errors.New("window-related error")

// ErrCompositor means the compositor rejects the composition modes
// the swapchain can offer.
var ErrCompositor = errors.New("compositor-related error")

// ErrSwapchain means the swapchain no longer matches the surface
// (usually after a resize) and must be recreated before the next
// acquire; the render-graph driver reacts by draining in-flight
// frames, calling Recreate, and rebuilding its size-dependent
// targets.
var ErrSwapchain = errors.New("swapchain-related error")

// ErrNoBackbuffer means every image is currently acquired; one is
// released when a pending presentation completes.
var ErrNoBackbuffer = errors.New("all backbuffers in use")

// Presenter is implemented by GPUs that can present to a display.
type Presenter interface {
	// NewSwapchain creates a swapchain over win's surface with at
	// least imageCount images. Only one swapchain may exist per
	// window at a time.
	NewSwapchain(win Window, imageCount int) (Swapchain, error)
}

// Swapchain is an n-buffered presentation target driven once per
// frame by the render graph: Next is called right after the frame's
// command buffer begins recording (it registers the acquire wait on
// that buffer), the frame's passes render, the color output is
// copied into the acquired image, and Present registers the release
// signal plus the queued present request. Both calls only take
// effect when the command buffer is committed, and at most one
// Next/Present pair may be recorded per commit.
type Swapchain interface {
	Destroyer

	// Views returns the swapchain's image views, indexed by the
	// value Next returns. The slice is stable until Recreate or
	// Destroy.
	Views() []ImageView

	// Next acquires the next writable image and returns its index
	// in Views. cb must be the first command buffer that will
	// touch the image's contents this frame.
	Next(cb CmdBuffer) (int, error)

	// Present schedules presentation of the image identified by
	// index. cb must be the last command buffer that writes the
	// image; the request is flushed when cb is committed.
	Present(index int, cb CmdBuffer) error

	// Recreate rebuilds the swapchain at the surface's current
	// extent, in response to ErrSwapchain.
	Recreate() error

	// Format returns the images' PixelFmt.
	Format() PixelFmt
}
