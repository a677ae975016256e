package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// Archive provides access to the contents of an in-memory EPUB (zip) file.
type Archive struct {
	files map[string]*zip.File
}

// OpenArchive opens EPUB bytes as a zip archive and indexes its entries
// under normalized paths.
func OpenArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB archive: %w", err)
	}

	a := &Archive{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		a.files[normalizeArchivePath(f.Name)] = f
	}
	return a, nil
}

// Paths returns every entry path in the archive. Order is unspecified.
func (a *Archive) Paths() []string {
	paths := make([]string, 0, len(a.files))
	for p := range a.files {
		paths = append(paths, p)
	}
	return paths
}

// Has reports whether the archive contains an entry at path.
func (a *Archive) Has(p string) bool {
	_, ok := a.files[normalizeArchivePath(p)]
	return ok
}

// ReadFile reads the contents of an entry. The lookup tolerates "./" and
// leading-slash prefixes because packaging tools disagree on both.
func (a *Archive) ReadFile(p string) ([]byte, error) {
	f, ok := a.files[normalizeArchivePath(p)]
	if !ok {
		return nil, fmt.Errorf("file not found in archive: %s", p)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive entry %s: %w", p, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// ReadFileFold reads an entry by exact path, falling back to a
// case-insensitive match on the filename. Used by cover extraction, where
// manifests frequently disagree with the archive on case. When several
// entries share a folded basename the lexicographically smallest path wins,
// so repeated reads always return the same bytes.
func (a *Archive) ReadFileFold(p string) ([]byte, error) {
	if data, err := a.ReadFile(p); err == nil {
		return data, nil
	}

	want := strings.ToLower(path.Base(normalizeArchivePath(p)))
	var matches []string
	for name := range a.files {
		if strings.ToLower(path.Base(name)) == want {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("file not found in archive: %s", p)
	}
	sort.Strings(matches)
	return a.ReadFile(matches[0])
}

// normalizeArchivePath strips "./" and leading-slash prefixes so that the
// same entry is reachable however a document refers to it.
func normalizeArchivePath(p string) string {
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return path.Clean(p)
}
