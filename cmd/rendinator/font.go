package main

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/fontatlas"
)

func newFontCmd() *cobra.Command {
	var output string
	var size, dpi float64
	cmd := &cobra.Command{
		Use:   "font <path.ttf|path.otf>",
		Short: "Rasterize a font into a BC1-compressed glyph atlas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if output == "" {
				output = path + ".atlas"
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return errs.New(errs.KindIO, "font", err)
			}
			log.Infow("rasterizing font atlas", "input", path, "size", size, "dpi", dpi)
			atlas, err := fontatlas.Build(data, fontatlas.Options{Size: size, DPI: dpi})
			if err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return errs.New(errs.KindIO, "font", err)
			}
			defer f.Close()
			if err := gob.NewEncoder(f).Encode(atlas); err != nil {
				return errs.New(errs.KindIO, "font", err)
			}
			fmt.Printf("wrote %s (%d glyphs, %dx%d)\n", output, len(atlas.Glyphs), atlas.Texture.Width, atlas.Texture.Height)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "atlas output path (default: <input>.atlas)")
	cmd.Flags().Float64Var(&size, "size", 24, "glyph size in points")
	cmd.Flags().Float64Var(&dpi, "dpi", 72, "rasterization DPI")
	return cmd
}
