package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var freespaceCmd = &cobra.Command{
	Use:   "freespace",
	Short: "Report the largest free extents",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, err := openFirstVolume()
		if err != nil {
			return err
		}
		defer vol.Close()

		extents, err := vol.FreeSpaceScan()
		if err != nil {
			return err
		}
		for _, e := range extents {
			fmt.Printf("block %10d  length %8d blocks\n", e.StartBlock, e.BlockCount)
		}
		return nil
	},
}

var fragmentationCmd = &cobra.Command{
	Use:   "fragmentation",
	Short: "Report the most-fragmented in-use extents",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, err := openFirstVolume()
		if err != nil {
			return err
		}
		defer vol.Close()

		extents, err := vol.FragmentationScan()
		if err != nil {
			return err
		}
		for _, e := range extents {
			fmt.Printf("block %10d  length %8d blocks\n", e.StartBlock, e.BlockCount)
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Merge header, freespace, and fragmentation into one report",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, err := openFirstVolume()
		if err != nil {
			return err
		}
		defer vol.Close()

		s, err := vol.Summary()
		if err != nil {
			return err
		}
		fmt.Printf("Total blocks:   %d\n", s.Info.TotalBlocks)
		fmt.Printf("Free blocks:    %d\n", s.Info.FreeBlocks)
		fmt.Printf("Free extents:   %d\n", len(s.FreeSpace))
		fmt.Printf("Fragmented extents shown: %d\n", len(s.Fragmentation))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(freespaceCmd, fragmentationCmd, summaryCmd)
}
