package importer

import (
	"bytes"
	"encoding/xml"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sohilsayed/Mangatan-sub002/internal/epub"
	"github.com/sohilsayed/Mangatan-sub002/internal/ln"
)

const ncxMediaType = "application/x-dtbncx+xml"

// untitledLabel is used when a navigation point carries no usable label.
const untitledLabel = "Untitled"

// tocResolver extracts a table of contents from one TOC dialect. Resolvers
// are independent; the first non-empty result wins and no merging happens.
type tocResolver func(a *epub.Archive, pkg *epub.Package) []ln.TocItem

// resolveToc tries the legacy navigation map first, then the modern
// navigation document.
func resolveToc(a *epub.Archive, pkg *epub.Package) []ln.TocItem {
	for _, resolve := range []tocResolver{resolveLegacyToc, resolveNavToc} {
		if items := resolve(a, pkg); len(items) > 0 {
			return items
		}
	}
	return nil
}

// ncxNavPoint mirrors a navPoint element of an NCX document. Points nest;
// the resolver flattens them in document order.
type ncxNavPoint struct {
	Labels []struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Text    string `xml:",chardata"`
	Src     string `xml:"src,attr"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

type ncxDocument struct {
	NavMap struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

// resolveLegacyToc extracts the TOC from the legacy NCX navigation map.
// Returns nil when no NCX item exists or nothing resolves to the spine.
func resolveLegacyToc(a *epub.Archive, pkg *epub.Package) []ln.TocItem {
	var ncxItem *epub.ManifestItem
	for _, item := range pkg.ItemsInOrder() {
		if item.MediaType == ncxMediaType {
			ncxItem = &item
			break
		}
	}
	if ncxItem == nil {
		return nil
	}

	data, err := a.ReadFile(ncxItem.Href)
	if err != nil {
		return nil
	}

	var doc ncxDocument
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil
	}

	ncxDir := path.Dir(ncxItem.Href)
	var items []ln.TocItem
	appendNavPoints(&items, doc.NavMap.NavPoints, ncxDir, pkg)
	return items
}

// appendNavPoints flattens navPoints in document order, resolving each to a
// spine position. Unresolvable points are dropped; their children are still
// visited.
func appendNavPoints(items *[]ln.TocItem, points []ncxNavPoint, ncxDir string, pkg *epub.Package) {
	for _, np := range points {
		label := navPointLabel(np)
		target := np.Content.Src
		if target == "" {
			target = np.Src
		}
		target = epub.StripFragment(target)

		if target != "" {
			if item, ok := matchManifestPath(pkg, ncxDir, target); ok {
				if idx := pkg.SpineIndex(item.ID); idx >= 0 {
					*items = append(*items, ln.TocItem{
						Label:        label,
						Href:         item.Href,
						ChapterIndex: idx,
					})
				}
			}
		}
		appendNavPoints(items, np.Children, ncxDir, pkg)
	}
}

// navPointLabel derives a label: nested navLabel text, then generic text
// content, then "Untitled".
func navPointLabel(np ncxNavPoint) string {
	for _, l := range np.Labels {
		if t := strings.TrimSpace(l.Text); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(np.Text); t != "" {
		return t
	}
	return untitledLabel
}

// matchManifestPath resolves a TOC target to a manifest entry: exact match
// of the target resolved against the TOC document's directory, then suffix
// match in either direction to tolerate path-prefix differences between the
// TOC and the manifest.
func matchManifestPath(pkg *epub.Package, tocDir, target string) (epub.ManifestItem, bool) {
	resolved := resolveChapterRef(tocDir, target)
	if item, ok := pkg.FindByHref(resolved); ok {
		return item, true
	}

	cleaned := path.Clean(strings.TrimPrefix(target, "/"))
	for _, item := range pkg.ItemsInOrder() {
		if strings.HasSuffix(item.Href, cleaned) || strings.HasSuffix(cleaned, item.Href) {
			return item, true
		}
	}
	return epub.ManifestItem{}, false
}

// resolveNavToc extracts the TOC from the modern EPUB 3 navigation
// document, located via the manifest item flagged with the nav property.
func resolveNavToc(a *epub.Archive, pkg *epub.Package) []ln.TocItem {
	var navItem *epub.ManifestItem
	for _, item := range pkg.ItemsInOrder() {
		if item.HasProperty("nav") {
			navItem = &item
			break
		}
	}
	if navItem == nil {
		return nil
	}

	data, err := a.ReadFile(navItem.Href)
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	nav := findTocNav(doc)
	if nav == nil {
		return nil
	}

	navDir := path.Dir(navItem.Href)
	var items []ln.TocItem
	nav.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		target := epub.StripFragment(href)
		if target == "" {
			return
		}
		item, ok := pkg.FindByHref(resolveChapterRef(navDir, target))
		if !ok {
			return
		}
		idx := pkg.SpineIndex(item.ID)
		if idx < 0 {
			return
		}
		label := strings.TrimSpace(s.Text())
		if label == "" {
			label = untitledLabel
		}
		items = append(items, ln.TocItem{
			Label:        label,
			Href:         item.Href,
			ChapterIndex: idx,
		})
	})
	return items
}

// findTocNav returns the nav section marked epub:type="toc", falling back
// to the document's first nav element.
func findTocNav(doc *goquery.Document) *goquery.Selection {
	var toc *goquery.Selection
	doc.Find("nav").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if epubType, _ := s.Attr("epub:type"); strings.EqualFold(epubType, "toc") {
			toc = s
			return false
		}
		return true
	})
	if toc != nil {
		return toc
	}
	if first := doc.Find("nav").First(); first.Length() > 0 {
		return first
	}
	return nil
}
