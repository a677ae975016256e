package importer

import "github.com/microcosm-cc/bluemonday"

// chapterPolicy builds the allowlist sanitizer applied to every chapter.
// This is the security boundary between untrusted EPUB markup and the
// reader's webview: script-capable constructs are removed, while the
// extensions the reader depends on survive — ruby/furigana annotations and
// inline SVG/image elements carrying the deferred image reference attribute.
func chapterPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()

	p.AllowElements(
		"p", "br", "hr", "div", "span", "a",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd",
		"blockquote", "pre", "code",
		"em", "strong", "b", "i", "u", "s", "small", "sub", "sup",
		"table", "thead", "tbody", "tr", "td", "th",
		"figure", "figcaption", "section",
	)

	// Furigana markup used heavily by Japanese light novels.
	p.AllowElements("ruby", "rb", "rt", "rtc", "rp")

	// Inline images. Relative src/href were already replaced by
	// data-epub-src, which the reader resolves against the image store at
	// render time. Absolute http(s) and data-URI sources pass through as-is;
	// the URL policy above restricts which schemes survive.
	p.AllowElements("img", "image", "svg")
	p.AllowAttrs(imageRefAttr, "alt").OnElements("img", "image")
	p.AllowAttrs("src").OnElements("img", "image")
	p.AllowDataURIImages()
	p.AllowAttrs("viewBox", "preserveAspectRatio", "xmlns", "version").OnElements("svg")

	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("id").Globally()

	return p
}
