package importer

import (
	"bytes"
	"encoding/base64"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/sohilsayed/Mangatan-sub002/internal/epub"
)

// extractCover locates the cover image via the package's prioritized
// heuristics, downsizes it to thumbWidth preserving aspect ratio, and
// returns it as a JPEG data URI. Every failure path yields an empty string:
// a book without a cover is still a valid book.
func extractCover(a *epub.Archive, pkg *epub.Package, thumbWidth, jpegQuality int, logger *zap.Logger) string {
	info := pkg.DetectCover()
	if info == nil {
		return ""
	}

	data, err := a.ReadFileFold(info.Href)
	if err != nil {
		logger.Warn("cover bytes not found, continuing without cover",
			zap.String("href", info.Href), zap.Error(err))
		return ""
	}

	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		logger.Warn("cover decode failed, continuing without cover",
			zap.String("href", info.Href), zap.Error(err))
		return ""
	}

	if thumbWidth > 0 && src.Bounds().Dx() > thumbWidth {
		src = imaging.Resize(src, thumbWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		logger.Warn("cover encode failed, continuing without cover",
			zap.String("href", info.Href), zap.Error(err))
		return ""
	}

	logger.Debug("cover extracted",
		zap.String("href", info.Href),
		zap.String("method", info.DetectionMethod))

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
