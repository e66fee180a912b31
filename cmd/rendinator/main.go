// Command rendinator conditions source assets (glTF scenes, fonts)
// into the device-ready formats the renderer consumes.
package main

import (
	"os"

	"github.com/SebastianRueClausen/rendinator-sub000/logging"
)

func main() {
	defer logging.Sync()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
