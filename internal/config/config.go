// Package config loads importer configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures the tunable knobs of the import pipeline.
type Config struct {
	Importer ImporterConfig `mapstructure:"importer"`
}

// ImporterConfig governs the EPUB import pipeline.
type ImporterConfig struct {
	// ThumbnailWidth is the fixed width covers are downscaled to.
	ThumbnailWidth int `mapstructure:"thumbnail_width"`
	// ImageBatchSize bounds how many images are extracted concurrently.
	ImageBatchSize int `mapstructure:"image_batch_size"`
	// MinChapterChars is the clean-character threshold below which a
	// text-only chapter is dropped.
	MinChapterChars int `mapstructure:"min_chapter_chars"`
	// JPEGQuality is the quality used when re-encoding cover thumbnails.
	JPEGQuality int `mapstructure:"jpeg_quality"`
}

// Load reads configuration from an optional file and MANGATAN_* environment
// variables, applying defaults for anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("importer.thumbnail_width", 320)
	v.SetDefault("importer.image_batch_size", 8)
	v.SetDefault("importer.min_chapter_chars", 10)
	v.SetDefault("importer.jpeg_quality", 80)

	v.SetEnvPrefix("MANGATAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Importer.ThumbnailWidth <= 0 {
		return fmt.Errorf("importer.thumbnail_width must be positive, got %d", c.Importer.ThumbnailWidth)
	}
	if c.Importer.ImageBatchSize <= 0 {
		return fmt.Errorf("importer.image_batch_size must be positive, got %d", c.Importer.ImageBatchSize)
	}
	if c.Importer.MinChapterChars < 0 {
		return fmt.Errorf("importer.min_chapter_chars must not be negative, got %d", c.Importer.MinChapterChars)
	}
	if c.Importer.JPEGQuality < 1 || c.Importer.JPEGQuality > 100 {
		return fmt.Errorf("importer.jpeg_quality must be in [1,100], got %d", c.Importer.JPEGQuality)
	}
	return nil
}
