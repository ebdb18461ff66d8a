package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var headerCmd = &cobra.Command{
	Use:   "header",
	Short: "Print the volume header",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, err := openFirstVolume()
		if err != nil {
			return err
		}
		defer vol.Close()

		info := vol.VolumeInfo()
		fmt.Printf("HFSX:           %v\n", info.IsHFSX)
		fmt.Printf("Created:        %s\n", info.CreateDate)
		fmt.Printf("Modified:       %s\n", info.ModifyDate)
		fmt.Printf("Block size:     %d\n", info.BlockSize)
		fmt.Printf("Total blocks:   %d\n", info.TotalBlocks)
		fmt.Printf("Free blocks:    %d\n", info.FreeBlocks)
		fmt.Printf("Files:          %d\n", info.FileCount)
		fmt.Printf("Folders:        %d\n", info.FolderCount)
		fmt.Printf("Journaled:      %v\n", info.Journaled)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(headerCmd)
}
