package epub

import "strings"

// ManifestItem is a single resource entry declared by the package document.
// Href is archive-relative (already resolved against the package document's
// directory). Immutable after construction.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// HasProperty reports whether the item carries the given properties token.
func (m ManifestItem) HasProperty(prop string) bool {
	for _, p := range m.Properties {
		if strings.EqualFold(p, prop) {
			return true
		}
	}
	return false
}

// Package is the resolved package (OPF) document: descriptive metadata, the
// manifest, and the spine. Spine holds manifest ids in reading order; the
// position in that slice is the canonical chapter index used by the TOC,
// blocks, and reading progress.
type Package struct {
	Title    string
	Author   string
	Language string

	// CoverID is the manifest id referenced by <meta name="cover">, if any.
	CoverID string

	Manifest      map[string]ManifestItem
	ManifestOrder []string
	Spine         []string
}

// ItemsInOrder returns manifest items in document order.
func (p *Package) ItemsInOrder() []ManifestItem {
	items := make([]ManifestItem, 0, len(p.ManifestOrder))
	for _, id := range p.ManifestOrder {
		if item, ok := p.Manifest[id]; ok {
			items = append(items, item)
		}
	}
	return items
}

// FindByHref looks up a manifest item by exact archive path, ignoring any
// fragment suffix on href.
func (p *Package) FindByHref(href string) (ManifestItem, bool) {
	target := normalizeArchivePath(StripFragment(href))
	for _, item := range p.Manifest {
		if normalizeArchivePath(item.Href) == target {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// SpineIndex returns the chapter index of a manifest id, or -1 when the id
// is not part of the spine.
func (p *Package) SpineIndex(id string) int {
	for i, spineID := range p.Spine {
		if spineID == id {
			return i
		}
	}
	return -1
}

// StripFragment removes an in-document fragment suffix from an href.
func StripFragment(href string) string {
	pathPart, _, _ := strings.Cut(href, "#")
	return pathPart
}
