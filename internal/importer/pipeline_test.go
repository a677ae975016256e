package importer

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sohilsayed/Mangatan-sub002/internal/epub"
	"github.com/sohilsayed/Mangatan-sub002/internal/progress"
)

func parseFixture(t *testing.T, archive []byte, sink progress.Sink) *Result {
	t.Helper()

	p := New(Options{
		BookID:  "book-1",
		Archive: archive,
		Sink:    sink,
		Now:     func() time.Time { return time.UnixMilli(1700000000000) },
	})
	result, err := p.Parse()
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestParseBasicBook(t *testing.T) {
	result := parseFixture(t, twoChapterEPUB(t), nil)

	meta := result.Metadata
	content := result.Content

	assert.Equal(t, "book-1", meta.ID)
	assert.Equal(t, "Test Novel", meta.Title)
	assert.Equal(t, "Test Author", meta.Author)
	assert.Equal(t, "ja", meta.Language)
	assert.Equal(t, int64(1700000000000), meta.AddedAt)

	// Chapter, filename, and length sequences share one index space.
	require.Equal(t, 2, meta.ChapterCount)
	require.Len(t, content.Chapters, 2)
	require.Len(t, content.ChapterFilenames, 2)
	require.Len(t, meta.Stats.ChapterLengths, 2)
	assert.Equal(t, []string{"ch1.xhtml", "ch2.xhtml"}, content.ChapterFilenames)

	total := 0
	for _, n := range meta.Stats.ChapterLengths {
		total += n
	}
	assert.Equal(t, total, meta.Stats.TotalLength)

	require.Len(t, meta.Toc, 2)
	assert.Equal(t, "Chapter One", meta.Toc[0].Label)
	assert.Equal(t, 0, meta.Toc[0].ChapterIndex)
	assert.Equal(t, 1, meta.Toc[1].ChapterIndex)
}

func TestParseBlockTiling(t *testing.T) {
	result := parseFixture(t, twoChapterEPUB(t), nil)
	meta := result.Metadata

	// Group blocks by chapter and verify each chapter's blocks tile
	// [0, chapterLength) with no gap or overlap.
	perChapter := make(map[int][]int, meta.ChapterCount)
	for _, b := range meta.Stats.BlockMaps {
		var ch, ord int
		_, err := fmt.Sscanf(b.BlockID, "ch%d-b%d", &ch, &ord)
		require.NoError(t, err, "block id %q", b.BlockID)
		assert.Equal(t, len(perChapter[ch]), ord, "ordinals must be dense")
		perChapter[ch] = append(perChapter[ch], b.StartOffset, b.EndOffset)
	}

	for ch, offsets := range perChapter {
		assert.Equal(t, 0, offsets[0], "chapter %d must start at offset 0", ch)
		for i := 2; i < len(offsets); i += 2 {
			assert.Equal(t, offsets[i-1], offsets[i], "chapter %d blocks must be contiguous", ch)
		}
		assert.Equal(t, meta.Stats.ChapterLengths[ch], offsets[len(offsets)-1],
			"chapter %d length must equal last block end", ch)
	}

	// The rewritten chapter HTML carries the block annotations.
	assert.Contains(t, result.Content.Chapters[0], `data-block-id="ch0-b0"`)
}

func TestParseDeterministic(t *testing.T) {
	archive := twoChapterEPUB(t)
	first := parseFixture(t, archive, nil)
	second := parseFixture(t, archive, nil)

	assert.Equal(t, first.Metadata.Stats, second.Metadata.Stats)
	assert.Equal(t, first.Content.Chapters, second.Content.Chapters)
}

func TestParseImagePathVariants(t *testing.T) {
	result := parseFixture(t, twoChapterEPUB(t), nil)
	blobs := result.Content.ImageBlobs

	plain, ok := blobs["OEBPS/images/pic.png"]
	require.True(t, ok)
	slashed, ok := blobs["/OEBPS/images/pic.png"]
	require.True(t, ok)
	assert.Equal(t, plain, slashed)
	assert.True(t, strings.HasPrefix(plain, "data:image/png;base64,"))

	// Chapter HTML references the image through the side attribute.
	assert.Contains(t, result.Content.Chapters[1], `data-epub-src="OEBPS/images/pic.png"`)
	assert.NotContains(t, result.Content.Chapters[1], `width=`)
}

func TestParseProgressMonotonic(t *testing.T) {
	var events []progress.Event
	sink := progress.SinkFunc(func(evt progress.Event) {
		events = append(events, evt)
	})

	withSink := parseFixture(t, twoChapterEPUB(t), sink)
	withoutSink := parseFixture(t, twoChapterEPUB(t), nil)

	require.NotEmpty(t, events)
	last := -1
	for _, evt := range events {
		assert.GreaterOrEqual(t, evt.Percent, last, "percent must not decrease")
		last = evt.Percent
	}
	assert.Equal(t, progress.StageInit, events[0].Stage)
	assert.Equal(t, progress.StageComplete, events[len(events)-1].Stage)
	assert.Equal(t, 100, events[len(events)-1].Percent)

	// Absence of a sink must not change the outcome.
	assert.Equal(t, withoutSink.Metadata.Stats, withSink.Metadata.Stats)
}

func TestParseImageOnlyChapterKept(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf": testOPF(`
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="img1" href="pic.png" media-type="image/png"/>`, `
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>`),
		"OEBPS/ch1.xhtml": chapterXHTML(`<p><img src="pic.png"/></p>`),
		"OEBPS/ch2.xhtml": chapterXHTML(`<p>A chapter with enough text to keep.</p>`),
		"OEBPS/pic.png":   pngBytes(t, 4, 4),
	})

	result := parseFixture(t, archive, nil)

	require.Equal(t, 2, result.Metadata.ChapterCount)
	assert.Contains(t, result.Content.Chapters[0], `class="image-chapter"`)
	assert.NotContains(t, result.Content.Chapters[1], `class="image-chapter"`)
}

func TestParseDropsEmptyChapter(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf": testOPF(`
    <item id="blank" href="blank.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>`, `
    <itemref idref="blank"/>
    <itemref idref="ch1"/>`),
		"OEBPS/blank.xhtml": chapterXHTML(`<p> </p>`),
		"OEBPS/ch1.xhtml":   chapterXHTML(`<p>Real content lives in this chapter.</p>`),
	})

	result := parseFixture(t, archive, nil)

	// The blank chapter occupies no chapter index.
	require.Equal(t, 1, result.Metadata.ChapterCount)
	assert.Equal(t, []string{"ch1.xhtml"}, result.Content.ChapterFilenames)
	assert.Contains(t, result.Content.Chapters[0], "ch0-b0")
}

func TestParseModernNavToc(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf": testOPF(`
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>`, `
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>`),
		"OEBPS/nav.xhtml": []byte(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<body><nav epub:type="toc"><ol>
  <li><a href="ch1.xhtml">Opening</a></li>
  <li><a href="ch2.xhtml#sec">Closing</a></li>
  <li><a href="missing.xhtml">Ghost</a></li>
</ol></nav></body></html>`),
		"OEBPS/ch1.xhtml": chapterXHTML(`<p>Opening chapter paragraph.</p>`),
		"OEBPS/ch2.xhtml": chapterXHTML(`<p>Closing chapter paragraph.</p>`),
	})

	result := parseFixture(t, archive, nil)

	require.Len(t, result.Metadata.Toc, 2)
	assert.Equal(t, "Opening", result.Metadata.Toc[0].Label)
	assert.Equal(t, 0, result.Metadata.Toc[0].ChapterIndex)
	assert.Equal(t, "Closing", result.Metadata.Toc[1].Label)
	assert.Equal(t, 1, result.Metadata.Toc[1].ChapterIndex)
}

func TestParseFatalErrors(t *testing.T) {
	t.Run("no container", func(t *testing.T) {
		archive := buildArchive(t, map[string][]byte{
			"mimetype": []byte("application/epub+zip"),
		})
		_, err := New(Options{BookID: "b", Archive: archive}).Parse()
		assert.ErrorIs(t, err, epub.ErrMalformedContainer)
	})

	t.Run("container points at missing package", func(t *testing.T) {
		archive := buildArchive(t, map[string][]byte{
			"META-INF/container.xml": []byte(testContainerXML),
		})
		_, err := New(Options{BookID: "b", Archive: archive}).Parse()
		assert.ErrorIs(t, err, epub.ErrMissingPackageDocument)
	})

	t.Run("empty spine", func(t *testing.T) {
		archive := buildArchive(t, map[string][]byte{
			"META-INF/container.xml": []byte(testContainerXML),
			"OEBPS/content.opf": testOPF(`
    <item id="img1" href="pic.png" media-type="image/png"/>`, `
    <itemref idref="ghost"/>`),
		})
		_, err := New(Options{BookID: "b", Archive: archive}).Parse()
		assert.ErrorIs(t, err, epub.ErrEmptySpine)
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := New(Options{BookID: "b", Archive: []byte("not an archive")}).Parse()
		assert.Error(t, err)
	})
}
