// Package cmd implements the cobra CLI dispatcher for hfsinspect-go.
// Per spec.md's Non-goals, this is a thin, uncolored demonstration
// shell over internal/services — no interactive mount-point discovery,
// no partition-map dumping beyond "list", no ANSI/color output.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NSGod/hfsinspect/internal/config"
	"github.com/NSGod/hfsinspect/internal/services"
	"github.com/NSGod/hfsinspect/pkg/app"
)

var (
	verbose        bool
	quiet          bool
	outputFormat   string
	devicePath     string
	partitionIndex int
	partitionName  string

	appCtx = app.NewContext()
)

var rootCmd = &cobra.Command{
	Use:   "hfsinspect",
	Short: "Read-only HFS+/HFSX filesystem inspector",
	Long: `hfsinspect is a cross-platform, read-only command-line tool for
exploring HFS+ and HFSX volumes directly from raw disks, partitions, or
disk image files, without mounting.

Commands:
  partitions    List the partition map entries found on a device
  header        Print the volume header
  ls            List a folder's contents (--summary for fork/kind tallies)
  stat          Print the catalog record for a path (--attrs for extended attributes)
  extract       Extract a file's data or resource fork
  freespace     Report the largest free extents
  fragmentation Report the most-fragmented in-use extents
  hotfiles      Rank the hotfiles B-tree's entries by temperature
  summary       Merge header + freespace + fragmentation into one report`,
	Version: "0.1.0",
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")
	rootCmd.PersistentFlags().StringVar(&devicePath, "device", "", "path to the device, disk image, or partition file")
	rootCmd.PersistentFlags().IntVar(&partitionIndex, "partition", 0, "partition map index to inspect, for multi-volume disks (default: first HFS+/HFSX partition found)")
	rootCmd.PersistentFlags().StringVar(&partitionName, "partition-name", "", "partition name to inspect, for multi-volume disks")
	rootCmd.MarkPersistentFlagRequired("device")

	cobra.OnInitialize(func() {
		appCtx.Verbose = verbose
		appCtx.Quiet = quiet
		appCtx.OutputFormat = outputFormat
	})
}

// openFirstVolume is the shared entry point every subcommand uses to
// open devicePath and select an HFS+/HFSX payload from it. By default
// it picks the first one services.Open finds; --partition or
// --partition-name narrow that selection on a multi-volume disk.
func openFirstVolume() (*services.Volume, error) {
	target := app.PartitionTarget{Index: partitionIndex, Name: partitionName}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	vols, err := services.Open(devicePath, cfg)
	if err != nil {
		return nil, err
	}
	appCtx.Log(fmt.Sprintf("found %d HFS+/HFSX partition(s) on %s", len(vols), devicePath))

	if target.IsEmpty() {
		return vols[0], nil
	}
	for _, v := range vols {
		if target.Name != "" && v.Name() == target.Name {
			return v, nil
		}
		if target.Index != 0 && v.PartitionIndex() == target.Index {
			return v, nil
		}
	}
	appCtx.Error(fmt.Sprintf("%s not found among discovered partitions", target.String()))
	return nil, fmt.Errorf("%s: no matching partition", target.String())
}
