package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NSGod/hfsinspect/internal/device"
	"github.com/NSGod/hfsinspect/internal/parsers/volumes"
)

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "List the partition map entries found on a device",
	RunE: func(cmd *cobra.Command, args []string) error {
		win, err := device.Open(devicePath)
		if err != nil {
			return err
		}
		defer win.Close()

		parts, err := (volumes.Locator{}).Locate(win)
		if err != nil {
			return err
		}
		for _, p := range parts {
			fmt.Printf("%2d  type=%d subtype=%d  start=%d  blocks=%d  %s\n",
				p.Index, p.Type, p.Subtype, p.StartLBA, p.BlockCount, p.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(partitionsCmd)
}
