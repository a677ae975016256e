// Package importer turns an EPUB archive into the normalized,
// block-indexed document model the reader and sync layers consume. The
// pipeline runs its stages strictly forward: archive, package, cover,
// images, content normalization, block segmentation, statistics. Each call
// to Parse is independent and reentrant.
package importer

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sohilsayed/Mangatan-sub002/internal/epub"
	"github.com/sohilsayed/Mangatan-sub002/internal/ln"
	"github.com/sohilsayed/Mangatan-sub002/internal/progress"
)

// Options configures a parse. Archive and BookID are required; everything
// else has a default.
type Options struct {
	// BookID is the caller-supplied opaque identifier for the book.
	BookID string
	// Archive is the raw EPUB (zip) file.
	Archive []byte

	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
	// Sink optionally receives progress events; nil changes nothing.
	Sink progress.Sink

	// ThumbnailWidth is the cover thumbnail width (default 320).
	ThumbnailWidth int
	// ImageBatchSize bounds concurrent image extraction (default 8).
	ImageBatchSize int
	// MinChapterChars is the clean-text threshold below which a chapter
	// without images is dropped (default 10).
	MinChapterChars int
	// JPEGQuality is the cover re-encode quality (default 80).
	JPEGQuality int

	// Now supplies the creation timestamp; defaults to time.Now.
	Now func() time.Time
}

// Result bundles the two records a successful parse produces.
type Result struct {
	Metadata *ln.LNMetadata
	Content  *ln.LNParsedBook
}

// Pipeline parses EPUB archives into LNMetadata/LNParsedBook pairs.
type Pipeline struct {
	opts   Options
	logger *zap.Logger
}

// New creates a pipeline, applying defaults for unset options.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = 320
	}
	if opts.ImageBatchSize <= 0 {
		opts.ImageBatchSize = 8
	}
	if opts.MinChapterChars <= 0 {
		opts.MinChapterChars = 10
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 80
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{opts: opts, logger: opts.Logger}
}

// Parse runs the pipeline. On failure it returns a nil result and an error;
// no partial metadata or content escapes. Panics anywhere in the pipeline
// are converted to errors at this boundary, so callers never see a raw
// panic from malformed input.
func (p *Pipeline) Parse() (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("import pipeline panicked", zap.Any("panic", r))
			result = nil
			err = fmt.Errorf("import failed: %v", r)
		}
	}()

	em := &emitter{sink: p.opts.Sink}
	em.emit(progress.StageInit, 0, "opening archive")

	archive, err := epub.OpenArchive(p.opts.Archive)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive: %w", err)
	}

	pkg, err := epub.LoadPackage(archive)
	if err != nil {
		return nil, err
	}
	em.emit(progress.StageInit, 4, fmt.Sprintf("loaded package: %s", pkg.Title))

	cover := extractCover(archive, pkg, p.opts.ThumbnailWidth, p.opts.JPEGQuality, p.logger)
	em.emit(progress.StageInit, 10, "cover extracted")

	store := extractImages(archive, p.opts.ImageBatchSize, p.logger, func(done, total int) {
		em.emit(progress.StageImages, scale(10, 35, done, total),
			fmt.Sprintf("extracted %d/%d images", done, total))
	})
	em.emit(progress.StageImages, 35, fmt.Sprintf("image store ready (%d images)", store.Len()))

	chapters, keptBySpine := p.normalizeChapters(archive, pkg, em)

	blocks, lengths := p.segmentChapters(chapters, em)

	em.emit(progress.StageStats, 88, "resolving table of contents")
	toc := remapToc(resolveToc(archive, pkg), keptBySpine)

	total := 0
	for _, n := range lengths {
		total += n
	}
	em.emit(progress.StageStats, 95, fmt.Sprintf("%d chapters, %d clean characters", len(chapters), total))

	htmls := make([]string, len(chapters))
	filenames := make([]string, len(chapters))
	for i, ch := range chapters {
		htmls[i] = ch.HTML
		filenames[i] = ch.Filename
	}

	meta := &ln.LNMetadata{
		ID:      p.opts.BookID,
		Title:   pkg.Title,
		Author:  pkg.Author,
		Cover:   cover,
		AddedAt: p.opts.Now().UnixMilli(),
		Stats: ln.BookStats{
			ChapterLengths: lengths,
			TotalLength:    total,
			BlockMaps:      blocks,
		},
		ChapterCount: len(chapters),
		Toc:          toc,
		Language:     pkg.Language,
	}
	content := &ln.LNParsedBook{
		Chapters:         htmls,
		ImageBlobs:       store.Blobs(),
		ChapterFilenames: filenames,
	}

	em.emit(progress.StageComplete, 100, "import complete")
	return &Result{Metadata: meta, Content: content}, nil
}

// normalizeChapters runs the content normalizer over the spine, returning
// kept chapters in order plus a map from spine position to kept chapter
// index. Dropped and unreadable spine items occupy no chapter index.
func (p *Pipeline) normalizeChapters(archive *epub.Archive, pkg *epub.Package, em *emitter) ([]*normalizedChapter, map[int]int) {
	policy := chapterPolicy()
	var chapters []*normalizedChapter
	keptBySpine := make(map[int]int, len(pkg.Spine))

	for spineIdx, id := range pkg.Spine {
		item := pkg.Manifest[id]
		ch, err := normalizeChapter(archive, item, policy, p.opts.MinChapterChars, p.logger)
		if err != nil {
			p.logger.Warn("chapter unreadable, skipping",
				zap.String("href", item.Href), zap.Error(err))
			continue
		}
		if ch == nil {
			p.logger.Debug("chapter below text threshold with no image, dropping",
				zap.String("href", item.Href))
			continue
		}
		keptBySpine[spineIdx] = len(chapters)
		chapters = append(chapters, ch)

		em.emit(progress.StageContent, scale(35, 65, spineIdx+1, len(pkg.Spine)),
			fmt.Sprintf("normalized %d/%d chapters", spineIdx+1, len(pkg.Spine)))
	}
	em.emit(progress.StageContent, 65, fmt.Sprintf("%d chapters kept", len(chapters)))
	return chapters, keptBySpine
}

// segmentChapters runs the block engine over every kept chapter, rewriting
// chapter HTML with block annotations. A chapter whose segmentation fails
// falls back to a plain clean-character count and contributes no blocks.
func (p *Pipeline) segmentChapters(chapters []*normalizedChapter, em *emitter) ([]ln.BlockIndexMap, []int) {
	blocks := make([]ln.BlockIndexMap, 0)
	lengths := make([]int, len(chapters))

	for i, ch := range chapters {
		seg, err := segmentChapter(ch.HTML, i)
		if err != nil {
			p.logger.Warn("block segmentation failed, using plain count",
				zap.Int("chapter", i), zap.Error(err))
			lengths[i] = cleanCharCount(ch.HTML)
			continue
		}
		ch.HTML = seg.HTML
		lengths[i] = seg.CleanLen
		blocks = append(blocks, seg.Blocks...)

		em.emit(progress.StageBlocks, scale(65, 85, i+1, len(chapters)),
			fmt.Sprintf("segmented %d/%d chapters", i+1, len(chapters)))
	}
	em.emit(progress.StageBlocks, 85, fmt.Sprintf("%d blocks indexed", len(blocks)))
	return blocks, lengths
}

// remapToc translates TOC entries from spine positions to kept-chapter
// indexes, dropping entries whose target chapter was dropped.
func remapToc(items []ln.TocItem, keptBySpine map[int]int) []ln.TocItem {
	out := make([]ln.TocItem, 0, len(items))
	for _, item := range items {
		idx, ok := keptBySpine[item.ChapterIndex]
		if !ok {
			continue
		}
		item.ChapterIndex = idx
		out = append(out, item)
	}
	return out
}

// emitter publishes progress events with a monotonic non-decreasing
// percentage. State is scoped to one Parse call.
type emitter struct {
	sink progress.Sink
	last int
}

func (e *emitter) emit(stage progress.Stage, percent int, message string) {
	if e.sink == nil {
		return
	}
	if percent < e.last {
		percent = e.last
	}
	if percent > 100 {
		percent = 100
	}
	e.last = percent
	e.sink.Publish(progress.Event{Stage: stage, Percent: percent, Message: message})
}

// scale maps done/total progress within a stage onto the [lo, hi] percent
// band. The result is a heuristic, not an exact measure.
func scale(lo, hi, done, total int) int {
	if total <= 0 {
		return hi
	}
	return lo + (hi-lo)*done/total
}
