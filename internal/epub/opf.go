package epub

import (
	"encoding/xml"
	"path"
	"strings"
)

const containerPath = "META-INF/container.xml"

// Soft defaults for books whose package document omits the metadata.
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
)

// container mirrors META-INF/container.xml.
type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// opfPackage mirrors the package (OPF) XML structure.
type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Title    []string `xml:"http://purl.org/dc/elements/1.1/ title"`
		Creator  []string `xml:"http://purl.org/dc/elements/1.1/ creator"`
		Language []string `xml:"http://purl.org/dc/elements/1.1/ language"`
		Meta     []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// LoadPackage locates the container pointer, loads the package document, and
// builds the manifest and spine. It fails with ErrMalformedContainer,
// ErrMissingPackageDocument, or ErrEmptySpine; missing title/author are soft
// defaults, and manifest/spine entries that cannot be resolved are skipped.
func LoadPackage(a *Archive) (*Package, error) {
	containerData, err := a.ReadFile(containerPath)
	if err != nil {
		return nil, ErrMalformedContainer
	}

	var c container
	if err := xml.Unmarshal(containerData, &c); err != nil {
		return nil, ErrMalformedContainer
	}

	opfPath := ""
	for _, rf := range c.Rootfiles.Rootfile {
		if rf.FullPath != "" {
			opfPath = normalizeArchivePath(rf.FullPath)
			break
		}
	}
	if opfPath == "" {
		return nil, ErrMissingPackageDocument
	}

	opfData, err := a.ReadFile(opfPath)
	if err != nil {
		return nil, ErrMissingPackageDocument
	}

	var pkg opfPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return nil, ErrMissingPackageDocument
	}

	p := &Package{
		Title:    UnknownTitle,
		Author:   UnknownAuthor,
		Manifest: make(map[string]ManifestItem, len(pkg.Manifest.Items)),
	}

	if len(pkg.Metadata.Title) > 0 && strings.TrimSpace(pkg.Metadata.Title[0]) != "" {
		p.Title = strings.TrimSpace(pkg.Metadata.Title[0])
	}
	if len(pkg.Metadata.Creator) > 0 && strings.TrimSpace(pkg.Metadata.Creator[0]) != "" {
		p.Author = strings.TrimSpace(pkg.Metadata.Creator[0])
	}
	if len(pkg.Metadata.Language) > 0 {
		p.Language = strings.TrimSpace(pkg.Metadata.Language[0])
	}
	for _, m := range pkg.Metadata.Meta {
		if m.Name == "cover" && m.Content != "" {
			p.CoverID = m.Content
			break
		}
	}

	opfDir := path.Dir(opfPath)
	for _, item := range pkg.Manifest.Items {
		if item.ID == "" || item.Href == "" {
			continue
		}
		entry := ManifestItem{
			ID:        item.ID,
			Href:      joinPath(opfDir, item.Href),
			MediaType: item.MediaType,
		}
		if item.Properties != "" {
			entry.Properties = strings.Fields(item.Properties)
		}
		p.Manifest[item.ID] = entry
		p.ManifestOrder = append(p.ManifestOrder, item.ID)
	}

	for _, ref := range pkg.Spine.ItemRefs {
		if _, ok := p.Manifest[ref.IDRef]; !ok {
			continue
		}
		p.Spine = append(p.Spine, ref.IDRef)
	}

	if len(p.Spine) == 0 {
		return nil, ErrEmptySpine
	}

	return p, nil
}

// joinPath resolves a manifest href against the package document directory.
func joinPath(base, rel string) string {
	if base == "" || base == "." {
		return normalizeArchivePath(rel)
	}
	return normalizeArchivePath(path.Join(base, rel))
}
