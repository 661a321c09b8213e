package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reza-shahriari/VIAT/pkg/export"
	"github.com/reza-shahriari/VIAT/pkg/media"
	"github.com/reza-shahriari/VIAT/pkg/project"
)

var exportOpts struct {
	format string
	frame  int
	image  string
	out    string
}

var exportCmd = &cobra.Command{
	Use:   "export <project.json>",
	Short: "Export annotations from a project",
	Long:  "Export one frame's annotations to COCO, YOLO or Pascal VOC, or the whole project to the Raya per-frame format. Image-based formats need --image to read the frame dimensions from.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := project.Load(args[0])
		if err != nil {
			return err
		}

		name := exportOpts.format
		if name == "" {
			name = cfg.Export.DefaultFormat
		}
		format, err := export.ParseFormat(name)
		if err != nil {
			return err
		}

		if format == export.FormatRaya {
			if err := export.ExportRaya(exportOpts.out, proj.Frames); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", exportOpts.out)
			return nil
		}

		if exportOpts.image == "" {
			return fmt.Errorf("--image is required for %s export", format)
		}
		width, height, err := media.Dimensions(exportOpts.image)
		if err != nil {
			return fmt.Errorf("failed to read image dimensions: %w", err)
		}

		anns := proj.Frames[exportOpts.frame]
		if err := export.Annotations(exportOpts.out, anns, width, height, format); err != nil {
			return err
		}
		fmt.Printf("Wrote %d annotations to %s\n", len(anns), exportOpts.out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOpts.format, "format", "f", "", "Export format: coco, yolo, pascal_voc, raya (default from config)")
	exportCmd.Flags().IntVar(&exportOpts.frame, "frame", 0, "Frame to export")
	exportCmd.Flags().StringVarP(&exportOpts.image, "image", "i", "", "Frame image, used for its dimensions")
	exportCmd.Flags().StringVarP(&exportOpts.out, "out", "o", "", "Output file")
	exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
