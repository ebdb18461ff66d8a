package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	lsPath    string
	lsSummary bool
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List a folder's contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, err := openFirstVolume()
		if err != nil {
			return err
		}
		defer vol.Close()

		cnid, err := vol.ResolvePath(lsPath)
		if err != nil {
			return err
		}
		entries, err := vol.ListDir(cnid)
		if err != nil {
			return err
		}
		for _, e := range entries {
			kind := "file"
			if e.Folder != nil {
				kind = "folder"
			}
			fmt.Printf("%-6s %8d  %s\n", kind, e.CNID, e.Name)
		}

		if lsSummary {
			s, err := vol.ListDirSummary(cnid)
			if err != nil {
				return err
			}
			fmt.Printf("\n%d file(s), %d folder(s), %d empty\n", s.FileCount, s.FolderCount, s.EmptyFileCount)
			fmt.Printf("data forks:     %8d, %12d bytes\n", s.DataForkCount, s.DataForkSize)
			fmt.Printf("resource forks: %8d, %12d bytes\n", s.ResourceForkCount, s.ResourceForkSize)
			fmt.Printf("hardlinks: %d, symlinks: %d, aliases: %d\n", s.HardLinkCount, s.SymLinkCount, s.AliasCount)
		}
		return nil
	},
}

func init() {
	lsCmd.Flags().StringVarP(&lsPath, "path", "p", "/", "path to list")
	lsCmd.Flags().BoolVar(&lsSummary, "summary", false, "also print file/folder/fork tallies for the listed folder")
	rootCmd.AddCommand(lsCmd)
}
