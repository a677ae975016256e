package importer

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/sohilsayed/Mangatan-sub002/internal/epub"
)

// imageRefAttr carries the archive path of an image whose bytes are resolved
// against the image store at render time. Keeping references symbolic
// decouples chapter HTML from any particular storage representation.
const imageRefAttr = "data-epub-src"

// imageChapterClass marks chapters kept only for their images so the reader
// can apply different layout rules to them.
const imageChapterClass = "image-chapter"

var bodyPattern = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)

// normalizedChapter is the content normalizer's per-spine-item output.
type normalizedChapter struct {
	HTML      string
	Filename  string
	CleanLen  int
	ImageOnly bool
}

// normalizeChapter parses one spine item's markup, rewrites image
// references, sanitizes the result, and decides whether the chapter is worth
// keeping. A nil result with a nil error means the chapter was dropped as
// near-empty; an error means the file was unreadable or unparsable and the
// chapter is skipped by the caller.
func normalizeChapter(a *epub.Archive, item epub.ManifestItem, policy *bluemonday.Policy, minChars int, logger *zap.Logger) (*normalizedChapter, error) {
	data, err := a.ReadFile(item.Href)
	if err != nil {
		return nil, err
	}

	if xmlIndicated(item) && !wellFormedXML(data) {
		logger.Debug("chapter is not well-formed XML, using lenient HTML parse",
			zap.String("href", item.Href))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	rewriteImageRefs(doc, path.Dir(item.Href))

	inner, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(inner) == "" {
		inner = extractBodyFallback(data)
	}

	sanitized := policy.Sanitize(inner)
	cleanLen := cleanCharCount(sanitized)
	hasImage := containsImageMarkup(sanitized)

	if cleanLen <= minChars && !hasImage {
		return nil, nil
	}

	ch := &normalizedChapter{
		HTML:     sanitized,
		Filename: path.Base(item.Href),
		CleanLen: cleanLen,
	}
	if cleanLen <= minChars {
		ch.ImageOnly = true
		ch.HTML = `<div class="` + imageChapterClass + `">` + sanitized + `</div>`
	}
	return ch, nil
}

// rewriteImageRefs replaces relative image references in img, inline image,
// and SVG image elements with the imageRefAttr side attribute holding the
// archive-absolute path. Already-absolute references (http, data URIs) are
// left alone. Explicit dimensions are stripped so rendering stays responsive.
func rewriteImageRefs(doc *goquery.Document, chapterDir string) {
	// The lenient parser rewrites a flow-content <image> element to <img>
	// while keeping its attributes, so img must also try href/xlink:href.
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		rewriteRefAttr(s, chapterDir, "src", "href", "xlink:href")
		s.RemoveAttr("width")
		s.RemoveAttr("height")
	})
	doc.Find("image").Each(func(_ int, s *goquery.Selection) {
		rewriteRefAttr(s, chapterDir, "href", "xlink:href")
		s.RemoveAttr("width")
		s.RemoveAttr("height")
	})
}

// rewriteRefAttr moves the first present reference attribute into
// imageRefAttr, resolved against the chapter's directory, and removes the
// originals.
func rewriteRefAttr(s *goquery.Selection, chapterDir string, attrs ...string) {
	for _, attr := range attrs {
		ref, ok := s.Attr(attr)
		if !ok || ref == "" {
			continue
		}
		if isAbsoluteRef(ref) {
			return
		}
		s.SetAttr(imageRefAttr, resolveChapterRef(chapterDir, ref))
		for _, a := range attrs {
			s.RemoveAttr(a)
		}
		return
	}
}

func isAbsoluteRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "data:")
}

// resolveChapterRef resolves an image reference relative to the chapter's
// own directory, yielding an archive-absolute slash path.
func resolveChapterRef(chapterDir, ref string) string {
	ref = strings.TrimPrefix(ref, "/")
	if chapterDir == "" || chapterDir == "." {
		return path.Clean(ref)
	}
	return path.Clean(path.Join(chapterDir, ref))
}

// extractBodyFallback regex-extracts markup between body tags when
// structured extraction yields nothing.
func extractBodyFallback(data []byte) string {
	if m := bodyPattern.FindSubmatch(data); m != nil {
		return string(m[1])
	}
	return string(data)
}

// containsImageMarkup reports whether sanitized chapter HTML still carries
// an image or SVG element. Image-only chapters are legitimate content and
// must not be dropped by the text-length threshold.
func containsImageMarkup(fragment string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return false
	}
	return doc.Find("img, svg, image").Length() > 0
}

// xmlIndicated reports whether the entry's extension or declared media type
// calls for a strict XML parse attempt.
func xmlIndicated(item epub.ManifestItem) bool {
	ext := strings.ToLower(path.Ext(item.Href))
	if ext == ".xhtml" || ext == ".xml" {
		return true
	}
	return strings.Contains(item.MediaType, "xml")
}

// wellFormedXML runs a strict token scan over the document. The DOM work
// itself always uses the lenient HTML parser; this scan preserves the
// strict-then-lenient contract and its diagnostics.
func wellFormedXML(data []byte) bool {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return true
		}
		if err != nil {
			return false
		}
	}
}
