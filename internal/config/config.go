// Package config loads tool-wide tunables for the inspector: B-tree
// node-cache size, the top-K cutoffs used by the free-space,
// fragmentation and hotfile scans, and a list of probe sector sizes.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the values every manager/service reads at construction
// time rather than hardcoding.
type Config struct {
	// BTreeNodeCacheSize bounds the number of decoded nodes kept per
	// open B-tree before the least recently used is evicted.
	BTreeNodeCacheSize int `mapstructure:"btree_node_cache_size"`

	// FreeSpaceTopK and FragmentationTopK bound how many entries the
	// free-space and fragmentation scans keep, by size.
	FreeSpaceTopK     int `mapstructure:"free_space_top_k"`
	FragmentationTopK int `mapstructure:"fragmentation_top_k"`

	// HotFilesTopK bounds how many ranked entries HotFiles returns.
	HotFilesTopK int `mapstructure:"hot_files_top_k"`

	// ProbeSectorSizes lists candidate partition-map sector sizes. It is
	// loaded and defaulted here but not read by the volume locator
	// (internal/parsers/volumes), which probes MBR/APM/GPT with a fixed
	// 512-byte sector size only.
	ProbeSectorSizes []int `mapstructure:"probe_sector_sizes"`
}

// Load reads layered configuration the same way the teacher's
// device.LoadDMGConfig does: defaults, then an optional config file,
// then environment variables (HFSINSPECT_* prefix), highest wins.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("hfsinspect-config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../..")
	v.AddConfigPath("$HOME/.hfsinspect")
	v.AddConfigPath("/etc/hfsinspect")

	v.SetDefault("btree_node_cache_size", 256)
	v.SetDefault("free_space_top_k", 10)
	v.SetDefault("fragmentation_top_k", 10)
	v.SetDefault("hot_files_top_k", 25)
	v.SetDefault("probe_sector_sizes", []int{512, 2048, 4096})

	v.SetEnvPrefix("HFSINSPECT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in defaults without consulting any file or
// environment variable, for callers (tests, library embedders) that
// want deterministic behavior.
func Default() *Config {
	return &Config{
		BTreeNodeCacheSize: 256,
		FreeSpaceTopK:      10,
		FragmentationTopK:  10,
		HotFilesTopK:       25,
		ProbeSectorSizes:   []int{512, 2048, 4096},
	}
}
