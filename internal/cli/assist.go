package cli

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
	"github.com/reza-shahriari/VIAT/pkg/assist"
	"github.com/reza-shahriari/VIAT/pkg/media"
	"github.com/reza-shahriari/VIAT/pkg/project"
)

var assistOpts struct {
	backend  string
	model    string
	url      string
	minScore float64
	proj     string
	frame    int
}

var assistCmd = &cobra.Command{
	Use:   "assist <image>",
	Short: "Propose annotations for an image with a vision model",
	Long:  "Send the image to a local Ollama or llama.cpp server and print the proposed boxes as JSON. With --project the proposals are appended to that project file instead.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backendName := assistOpts.backend
		if backendName == "" {
			backendName = cfg.Assist.Backend
		}
		backend, err := assist.ParseBackend(backendName)
		if err != nil {
			return err
		}
		serverURL := assistOpts.url
		if serverURL == "" {
			serverURL = cfg.Assist.ServerURL
		}
		model := assistOpts.model
		if model == "" {
			model = cfg.Assist.Model
		}

		client, err := assist.NewClient(backend, serverURL)
		if err != nil {
			return err
		}
		detector := assist.NewDetector(client, model)
		if assistOpts.minScore > 0 {
			detector.MinConfidence = assistOpts.minScore
		} else if cfg.Assist.MinScore > 0 {
			detector.MinConfidence = cfg.Assist.MinScore
		}

		img, err := media.Load(args[0])
		if err != nil {
			return err
		}

		anns, err := detector.ProposeAnnotations(cmd.Context(), img)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Model proposed %d annotations\n", len(anns))

		if assistOpts.proj == "" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(anns)
		}

		proj, err := project.Load(assistOpts.proj)
		if err != nil {
			return err
		}
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		for _, ann := range anns {
			if _, ok := proj.Classes[ann.Class]; !ok {
				def := annotation.ClassDefinition{Name: ann.Class, Color: annotation.RandomColor(rng)}
				if err := proj.AddClass(def); err != nil {
					return err
				}
			}
			if err := proj.Add(assistOpts.frame, ann); err != nil {
				return err
			}
		}
		if err := proj.Save(assistOpts.proj); err != nil {
			return err
		}
		fmt.Printf("Added %d annotations to frame %d of %s\n", len(anns), assistOpts.frame, assistOpts.proj)
		return nil
	},
}

func init() {
	assistCmd.Flags().StringVar(&assistOpts.backend, "backend", "", "Model server: ollama or llamacpp (default from config)")
	assistCmd.Flags().StringVarP(&assistOpts.model, "model", "m", "", "Model name (default from config)")
	assistCmd.Flags().StringVar(&assistOpts.url, "url", "", "Model server URL (default from config)")
	assistCmd.Flags().Float64Var(&assistOpts.minScore, "min-score", 0, "Minimum proposal confidence")
	assistCmd.Flags().StringVarP(&assistOpts.proj, "project", "p", "", "Project file to append the proposals to")
	assistCmd.Flags().IntVar(&assistOpts.frame, "frame", 0, "Frame the proposals belong to")
	rootCmd.AddCommand(assistCmd)
}
