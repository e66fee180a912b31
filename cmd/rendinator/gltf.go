package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SebastianRueClausen/rendinator-sub000/asset"
	"github.com/SebastianRueClausen/rendinator-sub000/logging"
	"github.com/SebastianRueClausen/rendinator-sub000/scenecache"
)

var log = logging.Named("cli")

func newGLTFCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "gltf <path.glb>",
		Short: "Condition a binary glTF (.glb) scene into a scene cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if output == "" {
				output = path + ".rndc"
			}
			log.Infow("conditioning glTF scene", "input", path)
			s, err := asset.LoadGLB(path)
			if err != nil {
				return err
			}
			log.Infow("conditioned scene",
				"vertices", len(s.Vertices),
				"meshlets", len(s.Meshlets),
				"meshes", len(s.Meshes),
				"instances", len(s.Instances),
			)
			id, err := scenecache.Save(output, s)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s (cache id %s)\n", output, id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "scene cache output path (default: <input>.rndc)")
	return cmd
}
