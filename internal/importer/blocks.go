package importer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sohilsayed/Mangatan-sub002/internal/ln"
)

// blockIDAttr annotates block boundaries in chapter HTML so the reader can
// map a viewport position back to a block id.
const blockIDAttr = "data-block-id"

// blockElementSelector matches the elements eligible to be segment roots. A
// root must additionally contain no other block element, so nested
// structures segment at their innermost text-bearing level.
const blockElementSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote, pre, td, dd, dt, figcaption, div"

// segmentedChapter is the block engine's per-chapter output. CleanLen
// equals the last block's EndOffset, so the blocks tile [0, CleanLen)
// exactly.
type segmentedChapter struct {
	HTML     string
	Blocks   []ln.BlockIndexMap
	CleanLen int
}

// segmentChapter partitions a normalized chapter's clean text into ordered,
// offset-addressable blocks and rewrites the HTML in place with block-id
// annotations. Block ids are derived only from the chapter index and a
// per-chapter ordinal, so re-parsing unchanged content reproduces identical
// ids and offsets; records keyed by block id stay valid across re-imports.
func segmentChapter(chapterHTML string, chapterIndex int) (*segmentedChapter, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(chapterHTML))
	if err != nil {
		return nil, err
	}

	ordinal := 0
	offset := 0
	var blocks []ln.BlockIndexMap

	doc.Find(blockElementSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(blockElementSelector).Length() > 0 {
			return
		}
		count := countCleanRunes(s.Text())
		if count == 0 {
			return
		}

		id := blockID(chapterIndex, ordinal)
		s.SetAttr(blockIDAttr, id)
		blocks = append(blocks, ln.BlockIndexMap{
			BlockID:     id,
			StartOffset: offset,
			EndOffset:   offset + count,
		})
		offset += count
		ordinal++
	})

	body := doc.Find("body")

	if len(blocks) == 0 {
		// No annotatable element but real text: wrap the whole fragment in
		// a single block so the text stays addressable.
		if total := cleanCharCount(chapterHTML); total > 0 {
			id := blockID(chapterIndex, 0)
			return &segmentedChapter{
				HTML: `<div ` + blockIDAttr + `="` + id + `">` + chapterHTML + `</div>`,
				Blocks: []ln.BlockIndexMap{
					{BlockID: id, StartOffset: 0, EndOffset: total},
				},
				CleanLen: total,
			}, nil
		}
		// Image-only or empty chapter: nothing to segment.
		return &segmentedChapter{HTML: chapterHTML}, nil
	}

	annotated, err := body.Html()
	if err != nil {
		return nil, err
	}

	return &segmentedChapter{
		HTML:     annotated,
		Blocks:   blocks,
		CleanLen: offset,
	}, nil
}

// blockID builds the stable block identifier for a chapter index and
// ordinal.
func blockID(chapterIndex, ordinal int) string {
	return fmt.Sprintf("ch%d-b%d", chapterIndex, ordinal)
}
