package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var hotfilesCmd = &cobra.Command{
	Use:   "hotfiles",
	Short: "Rank the volume's hotfiles B-tree entries by temperature",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, err := openFirstVolume()
		if err != nil {
			return err
		}
		defer vol.Close()

		entries, err := vol.HotfileScan()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("temperature %10d  file %8d  fork %d\n", e.Temperature, e.FileID, e.ForkType)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hotfilesCmd)
}
