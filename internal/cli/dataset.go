package cli

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/reza-shahriari/VIAT/internal/utils"
	"github.com/reza-shahriari/VIAT/pkg/dataset"
	"github.com/reza-shahriari/VIAT/pkg/export"
	"github.com/reza-shahriari/VIAT/pkg/project"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Import, convert and inspect whole datasets",
}

var datasetInspectCmd = &cobra.Command{
	Use:   "inspect <folder>",
	Short: "Detect a dataset folder's structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := dataset.DetectFolderType(args[0])
		fmt.Printf("Folder type: %s\n", kind)
		if kind == dataset.SimpleFolder {
			return nil
		}
		info, err := dataset.DetectStructure(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Structure:   %s\n", info.Type)
		if len(info.Splits) > 0 {
			fmt.Printf("Splits:      %v\n", info.Splits)
		}
		fmt.Printf("Images:      %d\n", info.TotalImages)
		for _, f := range info.AnnotationFiles {
			fmt.Printf("Annotations: %s\n", f)
		}
		return nil
	},
}

var convertOpts struct {
	from       string
	to         string
	layout     string
	out        string
	copyImages bool
	skipEmpty  bool
	train      float64
	val        float64
	test       float64
}

var datasetConvertCmd = &cobra.Command{
	Use:   "convert <folder>",
	Short: "Convert a dataset between formats and layouts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := export.ParseFormat(convertOpts.from)
		if err != nil {
			return err
		}
		to, err := export.ParseFormat(convertOpts.to)
		if err != nil {
			return err
		}
		layout, err := dataset.ParseLayout(convertOpts.layout)
		if err != nil {
			return err
		}

		ds, err := dataset.Load(args[0], dataset.ImportOptions{
			Format:    from,
			SkipEmpty: convertOpts.skipEmpty,
			Progress:  newProgress("Importing"),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\nLoaded %d images with %d annotations\n", len(ds.Images), ds.AnnotationCount())

		err = dataset.Export(ds, dataset.ExportOptions{
			Format:     to,
			Layout:     layout,
			OutputDir:  convertOpts.out,
			CopyImages: convertOpts.copyImages,
			Split: dataset.SplitRatios{
				Train: convertOpts.train,
				Val:   convertOpts.val,
				Test:  convertOpts.test,
			},
			Progress: newProgress("Exporting"),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\nDataset written to %s\n", convertOpts.out)
		return nil
	},
}

var chipsOpts struct {
	format    string
	out       string
	skipEmpty bool
}

var datasetChipsCmd = &cobra.Command{
	Use:   "chips <folder>",
	Short: "Crop every annotated box into per-class image chips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(chipsOpts.format)
		if err != nil {
			return err
		}
		ds, err := dataset.Load(args[0], dataset.ImportOptions{
			Format:    format,
			SkipEmpty: true,
			Progress:  newProgress("Importing"),
		})
		if err != nil {
			return err
		}
		n, err := dataset.ExportChips(ds, chipsOpts.out, newProgress("Cropping"))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\nWrote %d chips to %s\n", n, chipsOpts.out)
		return nil
	},
}

var importOpts struct {
	format    string
	out       string
	skipEmpty bool
}

var datasetImportCmd = &cobra.Command{
	Use:   "import <folder>",
	Short: "Import a dataset folder into a new project file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(importOpts.format)
		if err != nil {
			return err
		}
		ds, err := dataset.Load(args[0], dataset.ImportOptions{
			Format:    format,
			SkipEmpty: importOpts.skipEmpty,
			Progress:  newProgress("Importing"),
		})
		if err != nil {
			return err
		}

		proj := project.New("")
		for _, def := range ds.Classes {
			if err := proj.AddClass(def); err != nil {
				return err
			}
		}
		skipped := 0
		for frame, anns := range ds.Frames {
			// Out-of-range boxes from sloppy source labels are dropped, not fatal.
			kept := anns[:0]
			for _, ann := range anns {
				if ann.Validate() == nil {
					kept = append(kept, ann)
				} else {
					skipped++
				}
			}
			if err := proj.SetFrame(frame, kept); err != nil {
				return err
			}
		}
		if skipped > 0 {
			fmt.Fprintf(os.Stderr, "Skipped %d annotations with invalid boxes\n", skipped)
		}
		if err := proj.Save(importOpts.out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\nImported %d images with %d annotations into %s\n",
			len(ds.Images), ds.AnnotationCount(), importOpts.out)
		return nil
	},
}

var exportDSOpts struct {
	images     string
	format     string
	layout     string
	out        string
	copyImages bool
	train      float64
	val        float64
	test       float64
}

var datasetExportCmd = &cobra.Command{
	Use:   "export <project.json>",
	Short: "Export a project's frames as a dataset",
	Long: `Export a project's annotations as a dataset. The --images directory
holds the extracted frames; the sorted image list maps to frame numbers in
order, so frame 0 pairs with the first image.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportDSOpts.format)
		if err != nil {
			return err
		}
		layout, err := dataset.ParseLayout(exportDSOpts.layout)
		if err != nil {
			return err
		}
		proj, err := project.Load(args[0])
		if err != nil {
			return err
		}
		images, err := utils.ListImageFiles(exportDSOpts.images)
		if err != nil {
			return err
		}
		if len(images) == 0 {
			return fmt.Errorf("no images found in %s", exportDSOpts.images)
		}

		ds := &dataset.Dataset{
			Images:  images,
			Frames:  proj.Frames,
			Classes: proj.Classes,
		}
		err = dataset.Export(ds, dataset.ExportOptions{
			Format:     format,
			Layout:     layout,
			OutputDir:  exportDSOpts.out,
			CopyImages: exportDSOpts.copyImages,
			Split: dataset.SplitRatios{
				Train: exportDSOpts.train,
				Val:   exportDSOpts.val,
				Test:  exportDSOpts.test,
			},
			Progress: newProgress("Exporting"),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\nDataset written to %s\n", exportDSOpts.out)
		return nil
	},
}

// newProgress adapts the dataset progress callback to a terminal bar.
func newProgress(description string) dataset.Progress {
	var bar *progressbar.ProgressBar
	return func(done, total int, message string) {
		if bar == nil && total > 0 {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
			)
		}
		if bar != nil {
			bar.Set(done)
		}
	}
}

func init() {
	datasetConvertCmd.Flags().StringVar(&convertOpts.from, "from", "coco", "Source format: coco, yolo, pascal_voc")
	datasetConvertCmd.Flags().StringVar(&convertOpts.to, "to", "yolo", "Target format: coco, yolo, pascal_voc")
	datasetConvertCmd.Flags().StringVar(&convertOpts.layout, "layout", "flat", "Output layout: flat, split, parallel")
	datasetConvertCmd.Flags().StringVarP(&convertOpts.out, "out", "o", "", "Output directory")
	datasetConvertCmd.Flags().BoolVar(&convertOpts.copyImages, "copy-images", true, "Copy images into the output tree")
	datasetConvertCmd.Flags().BoolVar(&convertOpts.skipEmpty, "skip-empty", true, "Skip images without annotations")
	datasetConvertCmd.Flags().Float64Var(&convertOpts.train, "train", 80, "Train percentage for split layout")
	datasetConvertCmd.Flags().Float64Var(&convertOpts.val, "val", 10, "Validation percentage for split layout")
	datasetConvertCmd.Flags().Float64Var(&convertOpts.test, "test", 10, "Test percentage for split layout")
	datasetConvertCmd.MarkFlagRequired("out")

	datasetChipsCmd.Flags().StringVarP(&chipsOpts.format, "format", "f", "coco", "Source annotation format")
	datasetChipsCmd.Flags().StringVarP(&chipsOpts.out, "out", "o", "", "Output directory")
	datasetChipsCmd.MarkFlagRequired("out")

	datasetImportCmd.Flags().StringVarP(&importOpts.format, "format", "f", "coco", "Source format: coco, yolo, pascal_voc")
	datasetImportCmd.Flags().StringVarP(&importOpts.out, "out", "o", "", "Project file to write")
	datasetImportCmd.Flags().BoolVar(&importOpts.skipEmpty, "skip-empty", true, "Skip images without annotations")
	datasetImportCmd.MarkFlagRequired("out")

	datasetExportCmd.Flags().StringVar(&exportDSOpts.images, "images", "", "Directory of extracted frame images")
	datasetExportCmd.Flags().StringVarP(&exportDSOpts.format, "format", "f", "coco", "Target format: coco, yolo, pascal_voc")
	datasetExportCmd.Flags().StringVar(&exportDSOpts.layout, "layout", "flat", "Output layout: flat, split, parallel")
	datasetExportCmd.Flags().StringVarP(&exportDSOpts.out, "out", "o", "", "Output directory")
	datasetExportCmd.Flags().BoolVar(&exportDSOpts.copyImages, "copy-images", true, "Copy images into the output tree")
	datasetExportCmd.Flags().Float64Var(&exportDSOpts.train, "train", 80, "Train percentage for split layout")
	datasetExportCmd.Flags().Float64Var(&exportDSOpts.val, "val", 10, "Validation percentage for split layout")
	datasetExportCmd.Flags().Float64Var(&exportDSOpts.test, "test", 10, "Test percentage for split layout")
	datasetExportCmd.MarkFlagRequired("images")
	datasetExportCmd.MarkFlagRequired("out")

	datasetCmd.AddCommand(datasetInspectCmd)
	datasetCmd.AddCommand(datasetImportCmd)
	datasetCmd.AddCommand(datasetExportCmd)
	datasetCmd.AddCommand(datasetConvertCmd)
	datasetCmd.AddCommand(datasetChipsCmd)
	rootCmd.AddCommand(datasetCmd)
}
