package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/NSGod/hfsinspect/internal/types"
)

var (
	extractPath     string
	extractOut      string
	extractResource bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a file's data or resource fork",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, err := openFirstVolume()
		if err != nil {
			return err
		}
		defer vol.Close()

		cnid, err := vol.ResolvePath(extractPath)
		if err != nil {
			return err
		}
		forkType := types.ForkTypeData
		if extractResource {
			forkType = types.ForkTypeResource
		}
		fork, err := vol.ExtractFork(cnid, forkType)
		if err != nil {
			return err
		}

		out, err := os.Create(extractOut)
		if err != nil {
			return err
		}
		defer out.Close()

		_, err = io.Copy(out, io.NewSectionReader(fork, 0, fork.Size()))
		return err
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractPath, "path", "p", "", "path of the file to extract")
	extractCmd.Flags().StringVarP(&extractOut, "out", "O", "", "output file path")
	extractCmd.Flags().BoolVar(&extractResource, "resource", false, "extract the resource fork instead of the data fork")
	extractCmd.MarkFlagRequired("path")
	extractCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(extractCmd)
}
