// Command lnimport parses an EPUB file into the light-novel metadata and
// content records used by the reader and sync layers, writing them as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sohilsayed/Mangatan-sub002/internal/config"
	"github.com/sohilsayed/Mangatan-sub002/internal/importer"
	"github.com/sohilsayed/Mangatan-sub002/internal/progress"
)

var rootCmd = &cobra.Command{
	Use:   "lnimport <book.epub>",
	Short: "Import an EPUB into block-indexed light-novel records",
	Long: `lnimport runs the EPUB ingestion pipeline: package and TOC
resolution, image and cover extraction, HTML normalization, and block
segmentation. It writes metadata.json and content.json to the output
directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputPath := args[0]
		bookID, _ := cmd.Flags().GetString("id")
		outDir, _ := cmd.Flags().GetString("out")
		cfgPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")

		logger, err := buildLogger(verbose)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		if bookID == "" {
			bookID = uuid.NewString()
		}
		if outDir == "" {
			outDir = filepath.Dir(inputPath)
		}

		data, err := os.ReadFile(inputPath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", inputPath, err)
		}

		logger.Info("importing book",
			zap.String("path", inputPath),
			zap.String("book_id", bookID))

		pipeline := importer.New(importer.Options{
			BookID:          bookID,
			Archive:         data,
			Logger:          logger,
			Sink:            progress.NewLogSink(logger),
			ThumbnailWidth:  cfg.Importer.ThumbnailWidth,
			ImageBatchSize:  cfg.Importer.ImageBatchSize,
			MinChapterChars: cfg.Importer.MinChapterChars,
			JPEGQuality:     cfg.Importer.JPEGQuality,
		})

		result, err := pipeline.Parse()
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		if err := writeJSON(filepath.Join(outDir, "metadata.json"), result.Metadata); err != nil {
			return err
		}
		if err := writeJSON(filepath.Join(outDir, "content.json"), result.Content); err != nil {
			return err
		}

		logger.Info("import complete",
			zap.String("title", result.Metadata.Title),
			zap.Int("chapters", result.Metadata.ChapterCount),
			zap.Int("total_chars", result.Metadata.Stats.TotalLength),
			zap.Int("blocks", len(result.Metadata.Stats.BlockMaps)))
		return nil
	},
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.Flags().String("id", "", "Book identifier (default: new UUID)")
	rootCmd.Flags().StringP("out", "o", "", "Output directory (default: input directory)")
	rootCmd.Flags().String("config", "", "Optional config file path")
	rootCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
