// Package driver defines the GPU interface the renderer is written
// against: device and resource creation, typed command recording,
// descriptor heaps, acceleration structures, and presentation.
// Backends implement these interfaces and register themselves at
// init; the rest of the module never touches a backend package
// directly.
package driver

import (
	"errors"
	"sync"

	"github.com/SebastianRueClausen/rendinator-sub000/logging"
)

var log = logging.Named("driver")

// Driver loads and unloads one backend implementation.
type Driver interface {
	// Open initializes the backend and returns its GPU. A second
	// Open on the same receiver returns the same GPU. Open is not
	// safe for concurrent use.
	Open() (GPU, error)

	// Name identifies the backend without opening it.
	Name() string

	// Close releases everything Open acquired. Closing a driver
	// that is not open has no effect.
	Close()
}

// ErrNotInstalled means a library the backend depends on is not
// present on the system.
var ErrNotInstalled = errors.New("driver: missing required library")

// ErrNoDevice means no device suitable for rendering and compute
// was found.
var ErrNoDevice = errors.New("driver: no suitable device found")

// ErrNoHostMemory means a host allocation failed.
var ErrNoHostMemory = errors.New("driver: out of host memory")

// ErrNoDeviceMemory means a device allocation failed.
var ErrNoDeviceMemory = errors.New("driver: out of device memory")

// ErrFatal means the backend is unrecoverable: the caller must
// destroy every resource it created, Close the driver, and may then
// Open again.
var ErrFatal = errors.New("driver: fatal error")

var registry struct {
	sync.Mutex
	drivers []Driver
}

// Register adds drv to the candidates Drivers returns. Backends
// call it from an init function; registering a second driver with
// an already-registered name replaces the first.
func Register(drv Driver) {
	registry.Lock()
	defer registry.Unlock()
	for i, d := range registry.drivers {
		if d.Name() == drv.Name() {
			registry.drivers[i] = drv
			log.Warnw("driver replaced", "name", drv.Name())
			return
		}
	}
	registry.drivers = append(registry.drivers, drv)
	log.Debugw("driver registered", "name", drv.Name())
}

// Drivers returns the registered drivers, in registration order.
func Drivers() []Driver {
	registry.Lock()
	defer registry.Unlock()
	out := make([]Driver, len(registry.drivers))
	copy(out, registry.drivers)
	return out
}
