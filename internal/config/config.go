// Package config loads the filesystem settings with Viper. Settings
// choose the block size and the strategies behind the succinct
// structures; images are only portable between managers configured with
// the same name-sequence strategy.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-floudsfs/internal/disk"
)

// Config holds the tunable settings of a filesystem instance.
type Config struct {
	// BlockSize is the block size in bytes every image file is opened
	// with. It is not recorded in the image.
	BlockSize int `mapstructure:"block_size"`

	// BitVectorStrategy names the bit vector implementation: "word"
	// or "array".
	BitVectorStrategy string `mapstructure:"bitvector_strategy"`

	// NameSequenceStrategy names the name sequence implementation:
	// "concatenated" or "array".
	NameSequenceStrategy string `mapstructure:"namesequence_strategy"`

	// AllocatorStrategy names the allocator: "monotonic".
	AllocatorStrategy string `mapstructure:"allocator_strategy"`

	// SaveOnMutation makes the kernel bridge persist the filesystem
	// after every mutating request instead of only on fsync and at
	// unmount.
	SaveOnMutation bool `mapstructure:"save_on_mutation"`
}

// Load reads the configuration from the FLOUDSFS environment,
// floudsfs-config.yaml and the defaults, in that order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("floudsfs-config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.floudsfs")
	v.AddConfigPath("/etc/floudsfs")

	v.SetDefault("block_size", disk.DefaultBlockSize)
	v.SetDefault("bitvector_strategy", "word")
	v.SetDefault("namesequence_strategy", "concatenated")
	v.SetDefault("allocator_strategy", "monotonic")
	v.SetDefault("save_on_mutation", true)

	v.SetEnvPrefix("FLOUDSFS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; the defaults apply.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &config, nil
}
