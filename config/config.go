// Package config loads the renderer's device and frame-ring
// settings from a YAML file, with CLI flags taking precedence.
package config

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Render holds the knobs the render-graph driver and scene
// upload need at startup; everything else is discovered from
// the scene or the device at runtime.
type Render struct {
	// FrameRing is the number of in-flight frames.
	FrameRing int `yaml:"frame_ring"`
	// ArenaBytes is the initial size of the device-local memory
	// arena the bump allocator sizes scene upload against.
	ArenaBytes int64 `yaml:"arena_bytes"`
	// MaxDraws bounds the indirect draw-command buffer.
	MaxDraws uint32 `yaml:"max_draws"`
	// MaxInstances bounds the instance buffer built by flattening
	// the instance tree.
	MaxInstances uint32 `yaml:"max_instances"`
	// MaxMeshlets bounds the meshlet array across all LODs of all
	// meshes in a scene.
	MaxMeshlets uint32 `yaml:"max_meshlets"`
	// Validation enables the Vulkan validation layer.
	Validation bool `yaml:"validation"`
}

// Default returns the settings a fresh scene starts from.
func Default() Render {
	return Render{
		FrameRing:    2,
		ArenaBytes:   256 << 20,
		MaxDraws:     1 << 16,
		MaxInstances: 1 << 16,
		MaxMeshlets:  1 << 20,
		Validation:   false,
	}
}

// Load reads a YAML config file, falling back to Default for any
// field the file omits (zero value in YAML is indistinguishable
// from "unset", so Load starts from Default and lets yaml.Unmarshal
// overwrite only the keys present in path).
func Load(path string) (Render, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Apply exports the validation toggle to the environment variable
// the driver layer parses at instance creation, so the layer can be
// enabled without plumbing config through the driver registry.
func (r *Render) Apply() {
	if r.Validation {
		os.Setenv("RENDINATOR_VALIDATION", "1")
	}
}

// BindFlags registers flags that override the config file's
// values; call after Load and before pflag.Parse.
func (r *Render) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&r.FrameRing, "frame-ring", r.FrameRing, "in-flight frame count")
	fs.Int64Var(&r.ArenaBytes, "arena-bytes", r.ArenaBytes, "initial device memory arena size")
	fs.Uint32Var(&r.MaxDraws, "max-draws", r.MaxDraws, "indirect draw-command buffer capacity")
	fs.Uint32Var(&r.MaxInstances, "max-instances", r.MaxInstances, "instance buffer capacity")
	fs.Uint32Var(&r.MaxMeshlets, "max-meshlets", r.MaxMeshlets, "meshlet array capacity")
	fs.BoolVar(&r.Validation, "validation", r.Validation, "enable the Vulkan validation layer")
}
