package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/reza-shahriari/VIAT/pkg/project"
)

var infoCmd = &cobra.Command{
	Use:   "info <project.json>",
	Short: "Summarize a project file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := project.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Video:        %s\n", orNone(proj.VideoPath))
		fmt.Printf("Current frame: %d\n", proj.CurrentFrame)
		fmt.Printf("Style:        %s\n", orNone(proj.Style))
		fmt.Printf("Classes:      %d\n", len(proj.Classes))
		for _, name := range proj.ClassNames() {
			def := proj.Classes[name]
			attrs := make([]string, 0, len(def.Attributes))
			for attr := range def.Attributes {
				attrs = append(attrs, attr)
			}
			sort.Strings(attrs)
			fmt.Printf("  %-20s attributes: %v\n", name, attrs)
		}
		frames := proj.AnnotatedFrames()
		fmt.Printf("Annotated frames: %d\n", len(frames))
		fmt.Printf("Annotations:      %d\n", proj.AnnotationCount())
		if len(frames) > 0 {
			fmt.Printf("Frame range:      %d..%d\n", frames[0], frames[len(frames)-1])
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <project.json>",
	Short: "Check a project file for inconsistencies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := project.Load(args[0])
		if err != nil {
			return err
		}
		if err := proj.Validate(); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		fmt.Printf("%s: ok (%d annotations, %d classes)\n", args[0], proj.AnnotationCount(), len(proj.Classes))
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(validateCmd)
}
