package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reza-shahriari/VIAT/pkg/interpolate"
	"github.com/reza-shahriari/VIAT/pkg/project"
)

var interpolateOpts struct {
	start int
	end   int
	out   string
}

var interpolateCmd = &cobra.Command{
	Use:   "interpolate <project.json>",
	Short: "Fill the frames between two annotated keyframes",
	Long:  "Match annotations of the same class between the start and end frames and write linearly interpolated boxes for every unannotated frame in between.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := project.Load(args[0])
		if err != nil {
			return err
		}

		var ip interpolate.Interpolator
		n, err := ip.Interpolate(proj.Frames, interpolateOpts.start, interpolateOpts.end)
		if err != nil {
			return err
		}
		if n > 0 {
			proj.MarkModified()
		}

		out := interpolateOpts.out
		if out == "" {
			out = args[0]
		}
		if err := proj.Save(out); err != nil {
			return err
		}
		fmt.Printf("Interpolated %d frames between %d and %d, wrote %s\n",
			n, interpolateOpts.start, interpolateOpts.end, out)
		return nil
	},
}

func init() {
	interpolateCmd.Flags().IntVar(&interpolateOpts.start, "start", 0, "Start keyframe")
	interpolateCmd.Flags().IntVar(&interpolateOpts.end, "end", 0, "End keyframe")
	interpolateCmd.Flags().StringVarP(&interpolateOpts.out, "out", "o", "", "Output project file (default: overwrite input)")
	interpolateCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(interpolateCmd)
}
