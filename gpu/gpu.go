// Package gpu holds the process-wide driver.GPU used by the
// upload, cull, hiz, visibility, gbuffer and rendergraph packages.
package gpu

import (
	"sync"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/logging"
)

var (
	mu  sync.Mutex
	gpu driver.GPU
	log = logging.Named("gpu")
)

// Open selects the first registered driver that can open
// successfully and stores its GPU for later retrieval via GPU.
func Open() (driver.GPU, error) {
	mu.Lock()
	defer mu.Unlock()
	if gpu != nil {
		return gpu, nil
	}
	var lastErr error
	for _, drv := range driver.Drivers() {
		g, err := drv.Open()
		if err != nil {
			lastErr = err
			log.Warnw("driver open failed", "driver", drv.Name(), "error", err)
			continue
		}
		gpu = g
		log.Infow("opened driver", "driver", drv.Name())
		return gpu, nil
	}
	if lastErr == nil {
		lastErr = driver.ErrNoDevice
	}
	return nil, errs.New(errs.KindDevice, "gpu.Open", lastErr)
}

// GPU returns the process-wide GPU. It panics if Open has not
// succeeded yet.
func GPU() driver.GPU {
	mu.Lock()
	defer mu.Unlock()
	if gpu == nil {
		panic("gpu: Open has not been called")
	}
	return gpu
}

// Close releases the process-wide GPU, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if gpu != nil {
		gpu.Driver().Close()
		gpu = nil
	}
}
