package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	managercatalog "github.com/NSGod/hfsinspect/internal/managers/catalog"
)

var (
	statPath  string
	statAttrs bool
)

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "Print the catalog record for a path",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, err := openFirstVolume()
		if err != nil {
			return err
		}
		defer vol.Close()

		cnid, err := vol.ResolvePath(statPath)
		if err != nil {
			return err
		}
		file, folder, err := vol.RecordForCNID(cnid)
		if err != nil {
			return err
		}
		if folder != nil {
			fmt.Printf("CNID:     %d\n", folder.FolderID)
			fmt.Printf("Type:     folder\n")
			fmt.Printf("Valence:  %d\n", folder.Valence)
			fmt.Printf("Tags:     %v\n", managercatalog.ClassifyFolder(folder))
		}
		if file != nil {
			fmt.Printf("CNID:     %d\n", file.FileID)
			fmt.Printf("Type:     file\n")
			fmt.Printf("Data:     %d bytes\n", file.DataFork.LogicalSize)
			fmt.Printf("Resource: %d bytes\n", file.ResourceFork.LogicalSize)
			fmt.Printf("Tags:     %v\n", managercatalog.ClassifyFile(file))
		}

		if statAttrs {
			attrs, err := vol.ListAttributes(cnid)
			if err != nil {
				return err
			}
			if len(attrs) == 0 {
				fmt.Println("Attributes: none")
			} else {
				fmt.Println("Attributes:")
				for _, a := range attrs {
					switch {
					case a.Inline != nil:
						fmt.Printf("  %-24s inline, %d bytes\n", a.Name, a.Inline.Size)
					case a.Fork != nil:
						fmt.Printf("  %-24s fork, %d bytes\n", a.Name, a.Fork.TheFork.LogicalSize)
					default:
						fmt.Printf("  %-24s (unrecognized record type)\n", a.Name)
					}
				}
			}
		}
		return nil
	},
}

func init() {
	statCmd.Flags().StringVarP(&statPath, "path", "p", "/", "path to stat")
	statCmd.Flags().BoolVar(&statAttrs, "attrs", false, "also list the path's extended attributes")
	rootCmd.AddCommand(statCmd)
}
