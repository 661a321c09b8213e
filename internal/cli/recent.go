package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reza-shahriari/VIAT/pkg/project"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently opened projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hist, err := project.DefaultHistory()
		if err != nil {
			return err
		}
		recent := hist.Recent()
		if len(recent) == 0 {
			fmt.Println("No recent projects.")
			return nil
		}
		for i, path := range recent {
			fmt.Printf("%2d. %s\n", i+1, path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recentCmd)
}
