package epub

import (
	"path"
	"strings"
)

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	ManifestID      string
	Href            string
	MediaType       string
	DetectionMethod string // "properties", "meta", "id", "filename"
}

// DetectCover detects the cover image from the manifest using prioritized
// heuristics:
//  1. properties="cover-image" (EPUB 3)
//  2. <meta name="cover"> reference (EPUB 2)
//  3. manifest id exactly "cover" or "cover-image"
//  4. first image item whose href contains "cover" (case-insensitive)
//
// Returns nil when no candidate is found; a missing cover is not an error.
func (p *Package) DetectCover() *CoverInfo {
	for _, item := range p.ItemsInOrder() {
		if !IsImageMediaType(item.MediaType) {
			continue
		}
		if item.HasProperty("cover-image") {
			return coverInfo(item, "properties")
		}
	}

	if p.CoverID != "" {
		if item, ok := p.Manifest[p.CoverID]; ok && IsImageMediaType(item.MediaType) {
			return coverInfo(item, "meta")
		}
	}

	for _, id := range []string{"cover", "cover-image"} {
		if item, ok := p.Manifest[id]; ok && IsImageMediaType(item.MediaType) {
			return coverInfo(item, "id")
		}
	}

	for _, item := range p.ItemsInOrder() {
		if !IsImageMediaType(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(path.Base(item.Href)), "cover") {
			return coverInfo(item, "filename")
		}
	}

	return nil
}

func coverInfo(item ManifestItem, method string) *CoverInfo {
	return &CoverInfo{
		ManifestID:      item.ID,
		Href:            item.Href,
		MediaType:       item.MediaType,
		DetectionMethod: method,
	}
}

// IsImageMediaType reports whether a media type declares an image resource.
func IsImageMediaType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}
